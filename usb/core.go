// USB core
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"log"

	"github.com/f-secure-foundry/vanilla/bits"
	"github.com/f-secure-foundry/vanilla/mm"
	"github.com/f-secure-foundry/vanilla/usbhc"
)

// Core is the explicit, non-global analogue of the original's usbc_private
// singleton (spec.md §9 design note: "an explicit single-instance kernel
// context passed to the handlers ... avoid hidden globals where it would
// make the engine untestable against a fake controller"). One Core is
// constructed per host controller.
type Core struct {
	hc    usbhc.HostController
	alloc mm.Allocator

	devices []*Device
	drivers []Driver

	// addrs tracks in-use bus addresses; bit 0 is reserved (spec.md §3
	// "bit 0 reserved, addresses 1..N allocatable").
	addrs *bits.Bitmap

	ctrlPipe usbhc.Pipe

	state   state
	current *Device

	cfgTotalLength uint16
	enumBuf        []byte

	// OnEnumerated is invoked once an attached device finishes driver
	// binding successfully, boundOK reflecting assignDrivers' result.
	OnEnumerated func(dev *Device, boundOK bool)

	// OnEnumerationError is invoked when enumeration aborts (spec.md
	// §7 "fatal enumeration errors ... does not panic the process").
	OnEnumerationError func(dev *Device, err error)
}

// NewCore creates a Core bound to hc, allocating its default control pipe
// and subscribing to root-hub events.
func NewCore(hc usbhc.HostController, alloc mm.Allocator) (*Core, error) {
	c := &Core{
		hc:    hc,
		alloc: alloc,
		addrs: bits.NewBitmap(MaxPipes),
	}

	c.addrs.Set(0)

	pipe, err := hc.AllocPipe(usbhc.PipeConfig{
		Type:          usbhc.Control,
		MaxPacketSize: 64,
	})
	if err != nil {
		return nil, err
	}

	c.ctrlPipe = pipe

	hc.OnRootHubEvent(c.onRootHubEvent)

	return c, nil
}

// Devices returns the currently attached devices, in attachment order.
func (c *Core) Devices() []*Device {
	return c.devices
}

// allocAddress scans the bitmap for the lowest clear bit in [1, MaxPipes)
// and marks it in use, per spec.md §4.D's SET_ADDRESS step: "sets it in
// the bitmap before issuing the request so that failure does not reuse the
// same address".
func (c *Core) allocAddress() (uint8, bool) {
	pos, ok := c.addrs.FirstClear(1)
	if !ok {
		return 0, false
	}

	c.addrs.Set(pos)

	return uint8(pos), true
}

// ReleaseAddress frees a previously allocated bus address. The original
// kernel's usbc_delete_address is a forward declaration the C source never
// calls (spec.md §9 Open Question); this repository keeps that as the
// default on enumeration failure (see abortEnumeration) but exposes the
// operation explicitly so an embedder that wants to reclaim the slot on
// disconnect can call it.
func (c *Core) ReleaseAddress(addr uint8) {
	if addr == 0 {
		return
	}

	c.addrs.Clear(int(addr))
}

// Disconnect removes dev from the attached-device list and logs the event.
// It does not release dev's address (see ReleaseAddress's doc comment);
// callers that want that behavior call both.
func (c *Core) Disconnect(dev *Device) {
	for i, d := range c.devices {
		if d == dev {
			c.devices = append(c.devices[:i], c.devices[i+1:]...)
			break
		}
	}

	if c.current == dev {
		c.current = nil
		c.state = stateIdle
	}

	log.Printf("usb: device at address %d disconnected", dev.Address)
}
