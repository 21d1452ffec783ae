// USB device record
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"github.com/f-secure-foundry/vanilla/bits"
	"github.com/f-secure-foundry/vanilla/usbhc"
)

// MaxPipes bounds both the address space (addresses 1..MaxPipes-1 are
// allocatable, spec.md §4.D) and the per-device pipe table size.
const MaxPipes = 32

// Device is the host-side record of one attached USB device (spec.md §3).
// Address is 0 until SET_ADDRESS completes; EP0MaxPacketSize is learned
// from the first 8 bytes of the device descriptor.
type Device struct {
	Address          uint8
	EP0MaxPacketSize uint8

	Descriptor DeviceDescriptor

	Product      string
	Manufacturer string

	NumConfigs uint8
	arena      *arena

	// Interfaces lists every parsed interface's IfaceID in descriptor
	// order, the device-level "list of interfaces (intrusive)" spec.md
	// §3 describes, realized as arena indices rather than linked nodes.
	Interfaces []IfaceID

	ctrlPipe  usbhc.Pipe
	pipes     map[usbhc.Pipe]usbhc.PipeConfig
	pipeUsed  *bits.Bitmap
}

func newDevice() *Device {
	return &Device{
		pipes:    make(map[usbhc.Pipe]usbhc.PipeConfig),
		pipeUsed: bits.NewBitmap(MaxPipes),
	}
}

// Config returns the number of interfaces and their IfaceIDs for
// configuration index c (0-based), the resolved counterpart of spec.md
// §3's "a configuration's interfaces are stored adjacently".
func (d *Device) Config(c ConfigID) (numIfaces uint8, ifaces []IfaceID) {
	cfg := d.arena.Config(c)
	return cfg.NumIfaces, d.arena.Ifaces(c)
}

// Iface returns an interface's class triple and its endpoints.
func (d *Device) Iface(id IfaceID) (class, subclass, protocol uint8, eps []EndpointID) {
	ifc := d.arena.Iface(id)
	return ifc.InterfaceClass, ifc.InterfaceSubClass, ifc.InterfaceProtocol, d.arena.Endpoints(id)
}

// Endpoint returns one endpoint's wire fields.
func (d *Device) Endpoint(id EndpointID) (address, attributes uint8, maxPacketSize uint16) {
	ep := d.arena.Endpoint(id)
	return ep.Address, ep.Attributes, ep.MaxPacketSize
}
