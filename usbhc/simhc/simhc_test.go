// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package simhc

import (
	"testing"

	"github.com/f-secure-foundry/vanilla/usbhc"
)

func TestAllocPipeAssignsSequentialHandles(t *testing.T) {
	c := New()

	p0, err := c.AllocPipe(usbhc.PipeConfig{Type: usbhc.Control})
	if err != nil {
		t.Fatalf("AllocPipe: %v", err)
	}

	p1, err := c.AllocPipe(usbhc.PipeConfig{Type: usbhc.Interrupt})
	if err != nil {
		t.Fatalf("AllocPipe: %v", err)
	}

	if p1 != p0+1 {
		t.Fatalf("expected sequential pipe handles, got %d and %d", p0, p1)
	}
}

func TestConfigurePipeUpdatesStoredConfig(t *testing.T) {
	c := New()

	p, _ := c.AllocPipe(usbhc.PipeConfig{Type: usbhc.Control, MaxPacketSize: 8})

	if err := c.ConfigurePipe(p, usbhc.PipeConfig{Type: usbhc.Control, DevAddr: 5, MaxPacketSize: 64}); err != nil {
		t.Fatalf("ConfigurePipe: %v", err)
	}

	cfg := c.PipeConfig(p)
	if cfg.DevAddr != 5 || cfg.MaxPacketSize != 64 {
		t.Fatalf("expected updated config, got %+v", cfg)
	}
}

func TestConfigurePipeUnknownHandle(t *testing.T) {
	c := New()

	if err := c.ConfigurePipe(usbhc.Pipe(99), usbhc.PipeConfig{}); err == nil {
		t.Fatalf("expected error configuring an unallocated pipe")
	}
}

func TestSubmitURBCallsRespondThenComplete(t *testing.T) {
	c := New()
	p, _ := c.AllocPipe(usbhc.PipeConfig{Type: usbhc.Control})

	var order []string

	c.Respond = func(pp usbhc.Pipe, cfg usbhc.PipeConfig, u *usbhc.URB) {
		order = append(order, "respond")
		u.Status = usbhc.StatusOK
		u.ActualLength = len(u.Data)
	}

	u := &usbhc.URB{
		Data:    make([]byte, 4),
		Complete: func(u *usbhc.URB) { order = append(order, "complete") },
	}

	if err := c.SubmitURB(p, u); err != nil {
		t.Fatalf("SubmitURB: %v", err)
	}

	if len(order) != 2 || order[0] != "respond" || order[1] != "complete" {
		t.Fatalf("expected [respond complete], got %v", order)
	}

	if c.Submitted != 1 {
		t.Fatalf("expected Submitted count of 1, got %d", c.Submitted)
	}
}

func TestSubmitURBWithoutResponderErrors(t *testing.T) {
	c := New()
	p, _ := c.AllocPipe(usbhc.PipeConfig{Type: usbhc.Control})

	if err := c.SubmitURB(p, &usbhc.URB{}); err == nil {
		t.Fatalf("expected error submitting a URB with no Responder configured")
	}
}

func TestSubmitURBUnknownPipe(t *testing.T) {
	c := New()
	c.Respond = func(usbhc.Pipe, usbhc.PipeConfig, *usbhc.URB) {}

	if err := c.SubmitURB(usbhc.Pipe(7), &usbhc.URB{}); err == nil {
		t.Fatalf("expected error submitting to an unallocated pipe")
	}
}

func TestRootHubEventDispatch(t *testing.T) {
	c := New()

	var got usbhc.RootHubEvent
	var fired bool

	c.OnRootHubEvent(func(e usbhc.RootHubEvent) {
		got = e
		fired = true
	})

	c.FireRootHubEvent(usbhc.Connection)

	if !fired || got != usbhc.Connection {
		t.Fatalf("expected Connection event delivered, got fired=%v event=%v", fired, got)
	}
}

func TestRootHubEventWithNoListenerIsNoop(t *testing.T) {
	c := New()
	c.FireRootHubEvent(usbhc.ResetSent) // must not panic
}

func TestStartOfFrameDispatch(t *testing.T) {
	c := New()

	calls := 0
	c.OnStartOfFrame(func() { calls++ })

	c.FireStartOfFrame()
	c.FireStartOfFrame()

	if calls != 2 {
		t.Fatalf("expected 2 start-of-frame callbacks, got %d", calls)
	}
}
