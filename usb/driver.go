// Driver matching
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

// MatchFlags selects which fields of a DeviceID a driver requires to match
// (spec.md §4.D "driver binding": "for each flag set in the driver's
// device-id, the corresponding field must compare equal").
type MatchFlags uint16

const (
	MatchVendor MatchFlags = 1 << iota
	MatchProduct
	MatchDeviceClass
	MatchDeviceSubClass
	MatchDeviceProtocol
	MatchInterfaceClass
	MatchInterfaceSubClass
	MatchInterfaceProtocol
)

// Convenience combination used by class drivers (spec.md §8 scenario 4's
// HID boot-keyboard driver matches on the interface triple alone).
const MatchInterfaceTriple = MatchInterfaceClass | MatchInterfaceSubClass | MatchInterfaceProtocol

// DeviceID is the match criteria a Driver registers. Only the fields whose
// bit is set in Flags are compared; the rest are ignored.
type DeviceID struct {
	Flags MatchFlags

	VendorID, ProductID uint16

	DeviceClass, DeviceSubClass, DeviceProtocol       uint8
	InterfaceClass, InterfaceSubClass, InterfaceProtocol uint8
}

// matches reports whether dev/iface satisfy id's flagged fields.
func (id DeviceID) matches(dev *Device, ifc *ifaceRecord) bool {
	if id.Flags&MatchVendor != 0 && dev.Descriptor.VendorID != id.VendorID {
		return false
	}
	if id.Flags&MatchProduct != 0 && dev.Descriptor.ProductID != id.ProductID {
		return false
	}
	if id.Flags&MatchDeviceClass != 0 && dev.Descriptor.DeviceClass != id.DeviceClass {
		return false
	}
	if id.Flags&MatchDeviceSubClass != 0 && dev.Descriptor.DeviceSubClass != id.DeviceSubClass {
		return false
	}
	if id.Flags&MatchDeviceProtocol != 0 && dev.Descriptor.DeviceProtocol != id.DeviceProtocol {
		return false
	}
	if id.Flags&MatchInterfaceClass != 0 && ifc.InterfaceClass != id.InterfaceClass {
		return false
	}
	if id.Flags&MatchInterfaceSubClass != 0 && ifc.InterfaceSubClass != id.InterfaceSubClass {
		return false
	}
	if id.Flags&MatchInterfaceProtocol != 0 && ifc.InterfaceProtocol != id.InterfaceProtocol {
		return false
	}

	return true
}

// Driver is a registered USB class/vendor driver. ID gates which
// interfaces Connect is offered; Connect returning false lets the next
// registered driver try the same interface (spec.md §4.D, §8 scenario 5).
type Driver interface {
	ID() DeviceID
	Connect(dev *Device, iface IfaceID) bool
}

// assignDrivers walks dev's interface list and, for each unassigned
// interface, offers it to registered drivers in registration order, the
// first match taking it (spec.md §4.D). It returns true iff at least one
// interface was bound — the explicit return value spec.md §9's Open
// Question calls for in place of the original's missing return statement.
func (c *Core) assignDrivers(dev *Device) bool {
	bound := false

	for _, ifaceID := range dev.Interfaces {
		ifc := dev.arena.Iface(ifaceID)

		for _, drv := range c.drivers {
			if !drv.ID().matches(dev, ifc) {
				continue
			}

			if drv.Connect(dev, ifaceID) {
				ifc.Assigned = true
				bound = true
				break
			}
		}
	}

	return bound
}

// RegisterDriver appends drv to the driver list. Order matters: it is the
// priority order assignDrivers tries candidates in.
func (c *Core) RegisterDriver(drv Driver) {
	c.drivers = append(c.drivers, drv)
}
