// Flat descriptor arena
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

// ConfigID, IfaceID and EndpointID are indices into a Device's arena,
// replacing the original kernel's raw pointers into a single contiguous
// descriptor buffer (spec.md §9 design note: "store as a flat arena with
// typed indices; resolve parent/child by index"). They make the
// pointer-resolution pass an index computation instead of unsafe.Pointer
// arithmetic.
type ConfigID int
type IfaceID int
type EndpointID int

// configRecord is the arena's counterpart of the wire ConfigurationDescriptor,
// plus the two fields spec.md §3 calls out: the interface count and a
// pointer (here, a starting index) into the interface region.
type configRecord struct {
	ConfigurationValue uint8
	Attributes         uint8
	MaxPower           uint8

	NumIfaces  uint8
	FirstIface IfaceID
}

// ifaceRecord is the arena's counterpart of InterfaceDescriptor, carrying
// the resolved parent-device back-pointer and the endpoint region start
// spec.md §3 describes.
type ifaceRecord struct {
	ParentDev *Device

	InterfaceNumber   uint8
	AlternateSetting  uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8

	NumEndpoints uint8
	FirstEP      EndpointID

	Assigned bool
}

// endpointRecord is the arena's counterpart of EndpointDescriptor.
type endpointRecord struct {
	Address       uint8
	Attributes    uint8
	MaxPacketSize uint16
	Interval      uint8
}

// arena is the flat, contiguously-allocated store backing one device's
// parsed descriptor tree (spec.md §3 "configuration buffer"). Counts are
// fixed once the allocate pass sizes the three slices; the parse pass only
// ever writes into existing slots.
type arena struct {
	configs []configRecord
	ifaces  []ifaceRecord
	eps     []endpointRecord
}

func newArena(numConfigs, numIfaces, numEPs int) *arena {
	return &arena{
		configs: make([]configRecord, numConfigs),
		ifaces:  make([]ifaceRecord, numIfaces),
		eps:     make([]endpointRecord, numEPs),
	}
}

// Config returns a ConfigID's record. id must be in range; this is an
// in-process arena, not a wire decode, so an out-of-range id is a
// programming error in this package, not a malformed-device condition.
func (a *arena) Config(id ConfigID) *configRecord { return &a.configs[id] }
func (a *arena) Iface(id IfaceID) *ifaceRecord     { return &a.ifaces[id] }
func (a *arena) Endpoint(id EndpointID) *endpointRecord { return &a.eps[id] }

// Ifaces returns the slice of IfaceIDs belonging to a configuration, using
// the contiguous-layout invariant spec.md §3 states: "a configuration's
// interfaces are stored adjacently".
func (a *arena) Ifaces(c ConfigID) []IfaceID {
	cfg := a.configs[c]

	out := make([]IfaceID, cfg.NumIfaces)
	for i := range out {
		out[i] = cfg.FirstIface + IfaceID(i)
	}

	return out
}

// Endpoints returns the slice of EndpointIDs belonging to an interface,
// using the analogous invariant for endpoints within an interface.
func (a *arena) Endpoints(iface IfaceID) []EndpointID {
	ifc := a.ifaces[iface]

	out := make([]EndpointID, ifc.NumEndpoints)
	for i := range out {
		out[i] = ifc.FirstEP + EndpointID(i)
	}

	return out
}
