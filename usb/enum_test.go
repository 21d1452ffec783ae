// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"encoding/binary"
	"testing"

	"github.com/f-secure-foundry/vanilla/mm"
	"github.com/f-secure-foundry/vanilla/usbhc"
	"github.com/f-secure-foundry/vanilla/usbhc/simhc"
)

func encodeDeviceDescriptor(d DeviceDescriptor) []byte {
	buf := make([]byte, DeviceDescriptorLength)

	buf[0] = DeviceDescriptorLength
	buf[1] = DescriptorDevice
	binary.LittleEndian.PutUint16(buf[2:4], d.BCDUSB)
	buf[4] = d.DeviceClass
	buf[5] = d.DeviceSubClass
	buf[6] = d.DeviceProtocol
	buf[7] = d.MaxPacketSize
	binary.LittleEndian.PutUint16(buf[8:10], d.VendorID)
	binary.LittleEndian.PutUint16(buf[10:12], d.ProductID)
	binary.LittleEndian.PutUint16(buf[12:14], d.BCDDevice)
	buf[14] = d.Manufacturer
	buf[15] = d.Product
	buf[16] = d.SerialNumber
	buf[17] = d.NumConfigurations

	return buf
}

func encodeStringDescriptor(s string) []byte {
	buf := []byte{uint8(2 + 2*len(s)), DescriptorString}

	for _, r := range s {
		buf = append(buf, byte(r), 0)
	}

	return buf
}

func decodeSetup(buf []byte) SetupPacket {
	return SetupPacket{
		RequestType: buf[0],
		Request:     buf[1],
		Value:       binary.LittleEndian.Uint16(buf[2:4]),
		Index:       binary.LittleEndian.Uint16(buf[4:6]),
		Length:      binary.LittleEndian.Uint16(buf[6:8]),
	}
}

// fakeDevice plays the part of the attached device for a simhc.Controller,
// serving every request the enumeration engine issues against a
// precomputed descriptor set.
type fakeDevice struct {
	devDesc    []byte
	cfgDesc    []byte
	strings    map[uint8][]byte
	setAddrLog []uint8
}

func (f *fakeDevice) respond(p usbhc.Pipe, cfg usbhc.PipeConfig, u *usbhc.URB) {
	setup := decodeSetup(u.Setup)

	switch setup.Request {
	case RequestGetDescriptor:
		descType := uint8(setup.Value >> 8)
		index := uint8(setup.Value)

		var src []byte
		switch descType {
		case DescriptorDevice:
			src = f.devDesc
		case DescriptorConfiguration:
			src = f.cfgDesc
		case DescriptorString:
			src = f.strings[index]
		}

		if src == nil {
			u.Status = usbhc.StatusStalled
			return
		}

		n := len(src)
		if n > len(u.Data) {
			n = len(u.Data)
		}

		copy(u.Data, src[:n])
		u.ActualLength = n
		u.Status = usbhc.StatusOK

	case RequestSetAddress:
		f.setAddrLog = append(f.setAddrLog, uint8(setup.Value))
		u.Status = usbhc.StatusOK

	default:
		u.Status = usbhc.StatusError
	}
}

func newFakeDevice(cfgDesc []byte, product, manufacturer string, productIdx, manufacturerIdx uint8) *fakeDevice {
	return &fakeDevice{
		devDesc: encodeDeviceDescriptor(DeviceDescriptor{
			BCDUSB:            0x0200,
			MaxPacketSize:     8,
			VendorID:          0x1234,
			ProductID:         0x5678,
			Manufacturer:      manufacturerIdx,
			Product:           productIdx,
			NumConfigurations: 1,
		}),
		cfgDesc: cfgDesc,
		strings: map[uint8][]byte{
			productIdx:      encodeStringDescriptor(product),
			manufacturerIdx: encodeStringDescriptor(manufacturer),
		},
	}
}

func newTestCore(t *testing.T) (*Core, *simhc.Controller) {
	t.Helper()

	hc := simhc.New()
	pool := mm.NewPool(0x8000, 1<<16, make([]byte, 1<<16))

	core, err := NewCore(hc, pool)
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}

	return core, hc
}

type fakeDriver struct {
	id        DeviceID
	connectFn func(dev *Device, iface IfaceID) bool
	calls     int
}

func (d *fakeDriver) ID() DeviceID { return d.id }

func (d *fakeDriver) Connect(dev *Device, iface IfaceID) bool {
	d.calls++
	return d.connectFn(dev, iface)
}

func hidBootKeyboardID() DeviceID {
	return DeviceID{
		Flags:             MatchInterfaceTriple,
		InterfaceClass:    3,
		InterfaceSubClass: 1,
		InterfaceProtocol: 1,
	}
}

func TestEnumerationHIDKeyboardDevice(t *testing.T) {
	core, hc := newTestCore(t)

	cfgDesc := buildConfigDescriptor([]int{1})
	fd := newFakeDevice(cfgDesc, "", "", 0, 0)
	hc.Respond = fd.respond

	drv := &fakeDriver{id: hidBootKeyboardID(), connectFn: func(dev *Device, iface IfaceID) bool { return true }}
	core.RegisterDriver(drv)

	var enumerated *Device
	var bound bool
	core.OnEnumerated = func(dev *Device, ok bool) { enumerated = dev; bound = ok }

	hc.FireRootHubEvent(usbhc.Connection)
	hc.FireRootHubEvent(usbhc.ResetSent)

	if enumerated == nil {
		t.Fatalf("expected OnEnumerated to fire")
	}

	if enumerated.NumConfigs != 1 {
		t.Fatalf("expected 1 configuration, got %d", enumerated.NumConfigs)
	}

	numIfaces, ifaces := enumerated.Config(0)
	if numIfaces != 1 {
		t.Fatalf("expected 1 interface, got %d", numIfaces)
	}

	_, _, _, eps := enumerated.Iface(ifaces[0])
	if len(eps) != 1 {
		t.Fatalf("expected 1 endpoint, got %d", len(eps))
	}

	if enumerated.Product != "None" {
		t.Fatalf("expected product %q for iProduct=0, got %q", "None", enumerated.Product)
	}

	if !bound || drv.calls != 1 {
		t.Fatalf("expected driver connect exactly once, calls=%d bound=%v", drv.calls, bound)
	}

	if len(core.Devices()) != 1 {
		t.Fatalf("expected device added to core's device list")
	}
}

func TestEnumerationDriverPriorityFirstMatchWins(t *testing.T) {
	core, hc := newTestCore(t)

	cfgDesc := buildConfigDescriptor([]int{1})
	fd := newFakeDevice(cfgDesc, "", "", 0, 0)
	hc.Respond = fd.respond

	d1 := &fakeDriver{id: hidBootKeyboardID(), connectFn: func(dev *Device, iface IfaceID) bool { return true }}
	d2 := &fakeDriver{id: hidBootKeyboardID(), connectFn: func(dev *Device, iface IfaceID) bool { return true }}

	core.RegisterDriver(d1)
	core.RegisterDriver(d2)

	hc.FireRootHubEvent(usbhc.Connection)
	hc.FireRootHubEvent(usbhc.ResetSent)

	if d1.calls != 1 {
		t.Fatalf("expected d1.Connect called once, got %d", d1.calls)
	}

	if d2.calls != 0 {
		t.Fatalf("expected d2 never consulted once d1 claimed the interface, got %d calls", d2.calls)
	}
}

func TestEnumerationDriverFallthroughWhenFirstDeclines(t *testing.T) {
	core, hc := newTestCore(t)

	cfgDesc := buildConfigDescriptor([]int{1})
	fd := newFakeDevice(cfgDesc, "", "", 0, 0)
	hc.Respond = fd.respond

	d1 := &fakeDriver{id: hidBootKeyboardID(), connectFn: func(dev *Device, iface IfaceID) bool { return false }}
	d2 := &fakeDriver{id: hidBootKeyboardID(), connectFn: func(dev *Device, iface IfaceID) bool { return true }}

	core.RegisterDriver(d1)
	core.RegisterDriver(d2)

	hc.FireRootHubEvent(usbhc.Connection)
	hc.FireRootHubEvent(usbhc.ResetSent)

	if d1.calls != 1 || d2.calls != 1 {
		t.Fatalf("expected both drivers consulted, got d1=%d d2=%d", d1.calls, d2.calls)
	}
}

func TestEnumerationProductAndManufacturerNames(t *testing.T) {
	core, hc := newTestCore(t)

	cfgDesc := buildConfigDescriptor([]int{1})
	fd := newFakeDevice(cfgDesc, "Widget", "Acme", 1, 2)
	hc.Respond = fd.respond

	var enumerated *Device
	core.OnEnumerated = func(dev *Device, ok bool) { enumerated = dev }

	hc.FireRootHubEvent(usbhc.Connection)
	hc.FireRootHubEvent(usbhc.ResetSent)

	if enumerated == nil {
		t.Fatalf("expected enumeration to finish")
	}

	if enumerated.Product != "Widget" {
		t.Fatalf("expected product %q, got %q", "Widget", enumerated.Product)
	}

	if enumerated.Manufacturer != "Acme" {
		t.Fatalf("expected manufacturer %q, got %q", "Acme", enumerated.Manufacturer)
	}
}

func TestEnumerationMalformedDescriptorTreeAborts(t *testing.T) {
	core, hc := newTestCore(t)

	cfgDesc := buildConfigDescriptor([]int{1})
	cfgDesc = append(cfgDesc, 0x00)
	binary.LittleEndian.PutUint16(cfgDesc[2:4], uint16(len(cfgDesc)))

	fd := newFakeDevice(cfgDesc, "", "", 0, 0)
	hc.Respond = fd.respond

	var enumErr error
	core.OnEnumerationError = func(dev *Device, err error) { enumErr = err }

	hc.FireRootHubEvent(usbhc.Connection)
	hc.FireRootHubEvent(usbhc.ResetSent)

	if enumErr == nil {
		t.Fatalf("expected enumeration to abort on malformed descriptor tree")
	}

	if len(core.Devices()) != 0 {
		t.Fatalf("expected no device added after an aborted enumeration")
	}
}

func TestEnumerationBadMaxPacketSizeAborts(t *testing.T) {
	core, hc := newTestCore(t)

	fd := newFakeDevice(buildConfigDescriptor([]int{1}), "", "", 0, 0)
	fd.devDesc[7] = 7 // below the [8, 1024] bound
	hc.Respond = fd.respond

	var enumErr error
	core.OnEnumerationError = func(dev *Device, err error) { enumErr = err }

	hc.FireRootHubEvent(usbhc.Connection)
	hc.FireRootHubEvent(usbhc.ResetSent)

	if enumErr == nil {
		t.Fatalf("expected enumeration to abort for bMaxPacketSize=7")
	}
}

func TestOnlyOneDeviceEnumeratesAtATime(t *testing.T) {
	core, hc := newTestCore(t)

	fd := newFakeDevice(buildConfigDescriptor([]int{1}), "", "", 0, 0)
	hc.Respond = fd.respond

	hc.FireRootHubEvent(usbhc.Connection)

	// a second connection while the first is still mid-enumeration must
	// be ignored rather than starting a concurrent enumeration
	hc.FireRootHubEvent(usbhc.Connection)
	hc.FireRootHubEvent(usbhc.ResetSent)

	if len(core.Devices()) != 1 {
		t.Fatalf("expected exactly one device to finish enumerating, got %d", len(core.Devices()))
	}
}
