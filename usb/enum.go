// USB enumeration state machine
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"fmt"
	"log"

	"github.com/f-secure-foundry/vanilla/mm"
	"github.com/f-secure-foundry/vanilla/usbhc"
)

// state names the engine's position in the fixed sequence spec.md §4.D
// diagrams. Exactly one URB is in flight per enumeration and only one
// device enumerates at a time per controller (both enforced by state: a
// non-idle state blocks a new Connection from starting a second one).
type state int

const (
	stateIdle state = iota
	stateResetSent
	stateGetEP0Size
	stateGetDevDesc
	stateSetAddress
	stateGetDescLength
	stateGetDescriptors
	stateGetProductName
	stateGetManufacturerName
)

// maxStringLen bounds the ASCII down-conversion destination for product
// and manufacturer names (spec.md §3 "bounded length").
const maxStringLen = 64

func (s state) String() string {
	names := [...]string{
		"idle", "reset-sent", "get-ep0-size", "get-dev-desc", "set-address",
		"get-desc-length", "get-descriptors", "get-product-name", "get-manufacturer-name",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return fmt.Sprintf("usb.state(%d)", int(s))
}

// onRootHubEvent is registered with the HostController at NewCore and
// drives the state machine's entry and exit points; every other
// transition happens from a URB completion callback (the on*Complete
// methods below), per spec.md §9's "re-submits a URB from within its own
// completion callback".
func (c *Core) onRootHubEvent(e usbhc.RootHubEvent) {
	switch e {
	case usbhc.Connection:
		if c.current != nil {
			log.Printf("usb: connection event while a device is already enumerating, ignored")
			return
		}

		c.current = newDevice()
		c.state = stateResetSent

		log.Printf("usb: device connected, waiting for bus reset")

	case usbhc.ResetSent:
		if c.state != stateResetSent || c.current == nil {
			return
		}

		c.beginEnumeration()

	case usbhc.Disconnection:
		if c.current != nil {
			c.current = nil
			c.state = stateIdle
		}
	}
}

func (c *Core) beginEnumeration() {
	dev := c.current

	if err := c.hc.ConfigurePipe(c.ctrlPipe, usbhc.PipeConfig{
		Type:          usbhc.Control,
		DevAddr:       0,
		EPAddr:        0,
		MaxPacketSize: 64,
	}); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	c.state = stateGetEP0Size
	c.submitGetDescriptor(dev, DescriptorDevice, 0, 0, 8, c.onEP0SizeComplete)
}

// submitGetDescriptor builds and submits a GET_DESCRIPTOR control
// transfer, allocating its data stage buffer from the shared allocator
// (the "enumeration buffer" spec.md §5 designates single-writer, needing
// no locking since the USB callback chain is serialised by the
// controller).
func (c *Core) submitGetDescriptor(dev *Device, descType, index uint8, langID, length uint16, complete func(*usbhc.URB)) {
	data, _, err := c.alloc.Alloc(int(length), mm.RegionDefault)
	if err != nil {
		c.abortEnumeration(dev, fmt.Errorf("usb: enumeration buffer allocation failed: %w", err))
		return
	}

	setup := getDescriptorSetup(descType, index, langID, length)

	urb := &usbhc.URB{
		Setup:   setup.Bytes(),
		Data:    data,
		Context: dev,
	}
	urb.Complete = complete

	if err := c.hc.SubmitURB(c.ctrlPipe, urb); err != nil {
		c.abortEnumeration(dev, err)
	}
}

func (c *Core) onEP0SizeComplete(u *usbhc.URB) {
	dev := u.Context.(*Device)

	if err := c.checkStatus(u); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	if u.ActualLength < 8 {
		c.abortEnumeration(dev, fmt.Errorf("usb: short GET_EP0_SIZE response (%d bytes)", u.ActualLength))
		return
	}

	size := u.Data[7]
	if int(size) < 8 || int(size) > 1024 {
		c.abortEnumeration(dev, fmt.Errorf("usb: invalid bMaxPacketSize %d", size))
		return
	}

	dev.EP0MaxPacketSize = size

	if err := c.hc.ConfigurePipe(c.ctrlPipe, usbhc.PipeConfig{
		Type:          usbhc.Control,
		DevAddr:       0,
		MaxPacketSize: uint16(size),
	}); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	c.state = stateGetDevDesc
	c.submitGetDescriptor(dev, DescriptorDevice, 0, 0, DeviceDescriptorLength, c.onDevDescComplete)
}

func (c *Core) onDevDescComplete(u *usbhc.URB) {
	dev := u.Context.(*Device)

	if err := c.checkStatus(u); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	if u.ActualLength < DeviceDescriptorLength {
		c.abortEnumeration(dev, fmt.Errorf("usb: short device descriptor (%d bytes)", u.ActualLength))
		return
	}

	dev.Descriptor = decodeDeviceDescriptor(u.Data)

	c.state = stateSetAddress
	c.submitSetAddress(dev)
}

func (c *Core) submitSetAddress(dev *Device) {
	addr, ok := c.allocAddress()
	if !ok {
		c.abortEnumeration(dev, fmt.Errorf("usb: no free device address"))
		return
	}

	setup := setAddressSetup(addr)

	urb := &usbhc.URB{
		Setup:   setup.Bytes(),
		Context: dev,
	}
	urb.Complete = func(u *usbhc.URB) { c.onSetAddressComplete(u, addr) }

	if err := c.hc.SubmitURB(c.ctrlPipe, urb); err != nil {
		c.abortEnumeration(dev, err)
	}
}

func (c *Core) onSetAddressComplete(u *usbhc.URB, addr uint8) {
	dev := u.Context.(*Device)

	if err := c.checkStatus(u); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	dev.Address = addr

	if err := c.hc.ConfigurePipe(c.ctrlPipe, usbhc.PipeConfig{
		Type:          usbhc.Control,
		DevAddr:       addr,
		MaxPacketSize: uint16(dev.EP0MaxPacketSize),
	}); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	c.state = stateGetDescLength
	c.submitGetDescriptor(dev, DescriptorConfiguration, 0, 0, ConfigurationDescriptorLength, c.onDescLengthComplete)
}

func (c *Core) onDescLengthComplete(u *usbhc.URB) {
	dev := u.Context.(*Device)

	if err := c.checkStatus(u); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	if u.ActualLength != ConfigurationDescriptorLength {
		c.abortEnumeration(dev, fmt.Errorf("usb: configuration descriptor header is %d bytes, want %d", u.ActualLength, ConfigurationDescriptorLength))
		return
	}

	c.cfgTotalLength = decodeConfigTotalLength(u.Data)

	c.state = stateGetDescriptors
	c.submitGetDescriptor(dev, DescriptorConfiguration, 0, 0, c.cfgTotalLength, c.onDescriptorsComplete)
}

func (c *Core) onDescriptorsComplete(u *usbhc.URB) {
	dev := u.Context.(*Device)

	if err := c.checkStatus(u); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	c.enumBuf = u.Data[:u.ActualLength]

	if err := parseConfig(dev, c.enumBuf); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	c.state = stateGetProductName
	c.fetchStringOrSkip(dev, dev.Descriptor.Product, &dev.Product, c.onProductNameComplete)
}

// fetchStringOrSkip implements spec.md §4.D's "if the index is 0 (no
// string), the step is a no-op": it either submits the GET_DESCRIPTOR
// (STRING) request or, for index 0, sets dst to the spec's "None" default
// and advances the state machine itself (since there is no URB completion
// to advance it from).
func (c *Core) fetchStringOrSkip(dev *Device, index uint8, dst *string, next func(*usbhc.URB)) {
	if index == 0 {
		*dst = "None"
		next(&usbhc.URB{Status: usbhc.StatusOK, Context: dev})
		return
	}

	c.submitGetDescriptor(dev, DescriptorString, index, 0, 255, next)
}

func (c *Core) onProductNameComplete(u *usbhc.URB) {
	dev := u.Context.(*Device)

	if err := c.checkStatus(u); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	if dev.Descriptor.Product != 0 {
		dev.Product = stringToASCII(u.Data[:u.ActualLength], maxStringLen)
	}

	c.state = stateGetManufacturerName
	c.fetchStringOrSkip(dev, dev.Descriptor.Manufacturer, &dev.Manufacturer, c.onManufacturerNameComplete)
}

func (c *Core) onManufacturerNameComplete(u *usbhc.URB) {
	dev := u.Context.(*Device)

	if err := c.checkStatus(u); err != nil {
		c.abortEnumeration(dev, err)
		return
	}

	if dev.Descriptor.Manufacturer != 0 {
		dev.Manufacturer = stringToASCII(u.Data[:u.ActualLength], maxStringLen)
	}

	c.finishEnumeration(dev)
}

func (c *Core) finishEnumeration(dev *Device) {
	bound := c.assignDrivers(dev)

	c.devices = append(c.devices, dev)
	c.current = nil
	c.state = stateIdle

	log.Printf("usb: device at address %d enumerated (product=%q, bound=%v)", dev.Address, dev.Product, bound)

	if c.OnEnumerated != nil {
		c.OnEnumerated(dev, bound)
	}
}

// abortEnumeration implements spec.md §7's "fatal enumeration errors ...
// abort that device's enumeration" without panicking the process: a
// hostile or broken USB device must not be able to take down the kernel.
// The address, if one was allocated, is not released (spec.md §9 Open
// Question; see Core.ReleaseAddress's doc comment for the explicit
// counter-operation).
func (c *Core) abortEnumeration(dev *Device, err error) {
	log.Printf("usb: enumeration aborted: %v", err)

	c.current = nil
	c.state = stateIdle

	if c.OnEnumerationError != nil {
		c.OnEnumerationError(dev, err)
	}
}

func (c *Core) checkStatus(u *usbhc.URB) error {
	if u.Status != usbhc.StatusOK {
		return fmt.Errorf("usb: URB completed with status %s", u.Status)
	}

	return nil
}
