// USB wire contract
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package usb implements the host-side USB device record and the
// URB-driven enumeration state machine (spec.md §3, §4.D): the root
// usb.Core owns the attached-device list, the driver list, the address
// bitmap and the default control pipe; usb.Device caches a device's
// descriptors and parsed descriptor tree.
package usb

import "encoding/binary"

// Standard descriptor sizes (USB 2.0 Table 9-8, 9-10, 9-12, 9-13),
// grounded on soc/imx6/usb/descriptor.go's DEVICE_LENGTH family.
const (
	DeviceDescriptorLength        = 18
	ConfigurationDescriptorLength = 9
	InterfaceDescriptorLength     = 9
	EndpointDescriptorLength      = 7
)

// Descriptor types (USB 2.0 Table 9-5).
const (
	DescriptorDevice        = 1
	DescriptorConfiguration = 2
	DescriptorString        = 3
	DescriptorInterface     = 4
	DescriptorEndpoint      = 5
)

// Standard request codes (USB 2.0 Table 9-4), the subset the enumeration
// engine issues.
const (
	RequestGetDescriptor = 6
	RequestSetAddress    = 5
)

// bmRequestType values for the two direction/recipient combinations the
// engine needs: host-to-device for SET_ADDRESS, device-to-host for every
// GET_DESCRIPTOR.
const (
	requestTypeHostToDevice = 0x00
	requestTypeDeviceToHost = 0x80
)

// SetupPacket is the 8-byte Setup Data stage of a control transfer (USB 2.0
// Table 9-2), grounded on soc/nxp/usb/setup.go's SetupData but encoded
// rather than decoded, since this side issues requests instead of serving
// them.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// Bytes encodes the setup packet into the little-endian wire format a
// HostController expects in URB.Setup.
func (s SetupPacket) Bytes() []byte {
	buf := make([]byte, 8)

	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:], s.Value)
	binary.LittleEndian.PutUint16(buf[4:], s.Index)
	binary.LittleEndian.PutUint16(buf[6:], s.Length)

	return buf
}

func getDescriptorSetup(descType uint8, index uint8, langID uint16, length uint16) SetupPacket {
	return SetupPacket{
		RequestType: requestTypeDeviceToHost,
		Request:     RequestGetDescriptor,
		Value:       uint16(descType)<<8 | uint16(index),
		Index:       langID,
		Length:      length,
	}
}

func setAddressSetup(addr uint8) SetupPacket {
	return SetupPacket{
		RequestType: requestTypeHostToDevice,
		Request:     RequestSetAddress,
		Value:       uint16(addr),
	}
}

// DeviceDescriptor implements USB 2.0 Table 9-8, decoded from the 18-byte
// buffer GET_DEV_DESC returns.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BCDUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	VendorID          uint16
	ProductID         uint16
	BCDDevice         uint16
	Manufacturer      uint8
	Product           uint8
	SerialNumber      uint8
	NumConfigurations uint8
}

// decodeDeviceDescriptor parses an 18-byte buffer into a DeviceDescriptor.
func decodeDeviceDescriptor(buf []byte) DeviceDescriptor {
	return DeviceDescriptor{
		Length:            buf[0],
		DescriptorType:    buf[1],
		BCDUSB:            binary.LittleEndian.Uint16(buf[2:4]),
		DeviceClass:       buf[4],
		DeviceSubClass:    buf[5],
		DeviceProtocol:    buf[6],
		MaxPacketSize:     buf[7],
		VendorID:          binary.LittleEndian.Uint16(buf[8:10]),
		ProductID:         binary.LittleEndian.Uint16(buf[10:12]),
		BCDDevice:         binary.LittleEndian.Uint16(buf[12:14]),
		Manufacturer:      buf[14],
		Product:           buf[15],
		SerialNumber:      buf[16],
		NumConfigurations: buf[17],
	}
}

// decodeConfigTotalLength parses the first 9 bytes of a configuration descriptor
// (the GET_DESC_LENGTH response), returning the declared total tree size.
func decodeConfigTotalLength(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf[2:4])
}

// stringToASCII down-converts a standard USB string descriptor (2-byte
// header, UTF-16LE payload) to ASCII by taking every second byte, keeping at
// most max characters. The result is a Go string, so no zero terminator is
// appended.
func stringToASCII(buf []byte, max int) string {
	if len(buf) <= 2 {
		return ""
	}

	payload := buf[2:]
	out := make([]byte, 0, len(payload)/2)

	for i := 0; i+1 < len(payload) && len(out) < max; i += 2 {
		out = append(out, payload[i])
	}

	return string(out)
}
