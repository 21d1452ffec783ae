// Fake USB host controller for testing
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package simhc implements a usbhc.HostController test double (spec.md §9
// design note: "avoid hidden globals where it would make the engine
// untestable against a fake controller"). It performs no real transfer;
// every SubmitURB call is handed to a test-supplied Responder, which plays
// the part of whatever hardware and attached device would otherwise fill
// in the URB.
package simhc

import (
	"errors"
	"sync"

	"github.com/f-secure-foundry/vanilla/usbhc"
)

// Responder fills in u (Data, Status, ActualLength) for a URB submitted on
// the pipe configured as cfg. It must not call u.Complete; SubmitURB does
// that once Responder returns, exactly as a real interrupt-driven
// controller would invoke the completion callback after its own DMA
// engine finishes.
type Responder func(p usbhc.Pipe, cfg usbhc.PipeConfig, u *usbhc.URB)

// Controller is a usbhc.HostController that services every SubmitURB call
// synchronously through Responder, on the calling goroutine. This keeps
// enumeration-engine tests single-threaded and deterministic: the engine's
// re-entrant "submit from completion callback" pattern (spec.md §9) plays
// out as an ordinary nested call stack.
type Controller struct {
	mu sync.Mutex

	pipes []usbhc.PipeConfig

	Respond Responder

	rootHub func(usbhc.RootHubEvent)
	sof     func()

	Submitted int
}

// New creates a Controller with no pipes allocated and no Responder set;
// callers must assign Respond before submitting any URB.
func New() *Controller {
	return &Controller{}
}

func (c *Controller) AllocPipe(cfg usbhc.PipeConfig) (usbhc.Pipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pipes = append(c.pipes, cfg)
	return usbhc.Pipe(len(c.pipes) - 1), nil
}

func (c *Controller) ConfigurePipe(p usbhc.Pipe, cfg usbhc.PipeConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(p) < 0 || int(p) >= len(c.pipes) {
		return errors.New("simhc: unknown pipe")
	}

	c.pipes[p] = cfg
	return nil
}

// PipeConfig returns the configuration currently in effect for p, for
// tests that want to assert a pipe's address or max packet size was
// reprogrammed as expected.
func (c *Controller) PipeConfig(p usbhc.Pipe) usbhc.PipeConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pipes[p]
}

func (c *Controller) SubmitURB(p usbhc.Pipe, u *usbhc.URB) error {
	c.mu.Lock()
	if int(p) < 0 || int(p) >= len(c.pipes) {
		c.mu.Unlock()
		return errors.New("simhc: unknown pipe")
	}
	cfg := c.pipes[p]
	respond := c.Respond
	c.Submitted++
	c.mu.Unlock()

	if respond == nil {
		return errors.New("simhc: no responder configured")
	}

	respond(p, cfg, u)

	if u.Complete != nil {
		u.Complete(u)
	}

	return nil
}

func (c *Controller) OnRootHubEvent(fn func(usbhc.RootHubEvent)) {
	c.rootHub = fn
}

func (c *Controller) OnStartOfFrame(fn func()) {
	c.sof = fn
}

// FireRootHubEvent drives the registered root-hub callback, the way a test
// injects a device connection or bus-reset completion.
func (c *Controller) FireRootHubEvent(e usbhc.RootHubEvent) {
	if c.rootHub != nil {
		c.rootHub(e)
	}
}

// FireStartOfFrame drives the registered start-of-frame callback.
func (c *Controller) FireStartOfFrame() {
	if c.sof != nil {
		c.sof()
	}
}
