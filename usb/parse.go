// Descriptor tree parsing
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"encoding/binary"
	"fmt"
)

// parseConfig implements spec.md §4.D's three-pass algorithm over a raw
// GET_DESCRIPTORS response buffer: verify, allocate, parse. It is a pure
// function of buf and dev, with no dependency on the host controller, so
// it is directly unit-testable against hand-built byte slices.
func parseConfig(dev *Device, buf []byte) error {
	numConfigs, numIfaces, numEPs, err := verifyDescriptorTree(buf)
	if err != nil {
		return err
	}

	dev.arena = newArena(numConfigs, numIfaces, numEPs)
	dev.Interfaces = dev.Interfaces[:0]

	return parseDescriptorTree(dev, buf)
}

// verifyDescriptorTree is spec.md §4.D's verify pass: a walk using each
// descriptor's bLength as stride, counting CONFIGURATION, INTERFACE and
// ENDPOINT descriptors and checking their length against the standard
// size. Any other descriptor type (HID, class-specific, ...) is skipped
// over by its bLength but not counted, matching "all other descriptor
// types are skipped over by their bLength but not counted".
func verifyDescriptorTree(buf []byte) (numConfigs, numIfaces, numEPs int, err error) {
	i := 0

	for i < len(buf) {
		if i+2 > len(buf) {
			return 0, 0, 0, fmt.Errorf("usb: truncated descriptor header at offset %d", i)
		}

		bLength := int(buf[i])
		bDescriptorType := buf[i+1]

		if bLength == 0 || i+bLength > len(buf) {
			return 0, 0, 0, fmt.Errorf("usb: descriptor at offset %d overruns buffer (bLength=%d)", i, bLength)
		}

		switch bDescriptorType {
		case DescriptorConfiguration:
			if bLength != ConfigurationDescriptorLength {
				return 0, 0, 0, fmt.Errorf("usb: configuration descriptor at offset %d has bLength=%d, want %d", i, bLength, ConfigurationDescriptorLength)
			}
			numConfigs++
		case DescriptorInterface:
			if bLength != InterfaceDescriptorLength {
				return 0, 0, 0, fmt.Errorf("usb: interface descriptor at offset %d has bLength=%d, want %d", i, bLength, InterfaceDescriptorLength)
			}
			numIfaces++
		case DescriptorEndpoint:
			if bLength != EndpointDescriptorLength {
				return 0, 0, 0, fmt.Errorf("usb: endpoint descriptor at offset %d has bLength=%d, want %d", i, bLength, EndpointDescriptorLength)
			}
			numEPs++
		}

		i += bLength
	}

	if i != len(buf) {
		return 0, 0, 0, fmt.Errorf("usb: descriptor walk ended at offset %d, buffer is %d bytes", i, len(buf))
	}

	return numConfigs, numIfaces, numEPs, nil
}

// parseDescriptorTree is spec.md §4.D's parse pass: a second walk copying
// each descriptor into its arena slot and resolving the parent/child links
// the original's offset() formulas compute as byte offsets; here they are
// plain slice indices (spec.md §9 design note), tracked via the
// "currently open configuration/interface" cursors below.
func parseDescriptorTree(dev *Device, buf []byte) error {
	var curConfig ConfigID = -1
	var curIface IfaceID = -1

	var cIdx, iIdx, eIdx int

	i := 0
	for i < len(buf) {
		bLength := int(buf[i])
		bDescriptorType := buf[i+1]

		switch bDescriptorType {
		case DescriptorConfiguration:
			rec := dev.arena.Config(ConfigID(cIdx))
			rec.ConfigurationValue = buf[i+5]
			rec.Attributes = buf[i+7]
			rec.MaxPower = buf[i+8]
			rec.FirstIface = IfaceID(iIdx)

			curConfig = ConfigID(cIdx)
			cIdx++

		case DescriptorInterface:
			rec := dev.arena.Iface(IfaceID(iIdx))
			rec.ParentDev = dev
			rec.InterfaceNumber = buf[i+2]
			rec.AlternateSetting = buf[i+3]
			rec.InterfaceClass = buf[i+5]
			rec.InterfaceSubClass = buf[i+6]
			rec.InterfaceProtocol = buf[i+7]
			rec.FirstEP = EndpointID(eIdx)

			if curConfig >= 0 {
				dev.arena.Config(curConfig).NumIfaces++
			}

			dev.Interfaces = append(dev.Interfaces, IfaceID(iIdx))

			curIface = IfaceID(iIdx)
			iIdx++

		case DescriptorEndpoint:
			rec := dev.arena.Endpoint(EndpointID(eIdx))
			rec.Address = buf[i+2]
			rec.Attributes = buf[i+3]
			rec.MaxPacketSize = binary.LittleEndian.Uint16(buf[i+4 : i+6])
			rec.Interval = buf[i+6]

			if curIface >= 0 {
				dev.arena.Iface(curIface).NumEndpoints++
			}

			eIdx++
		}

		i += bLength
	}

	dev.NumConfigs = uint8(cIdx)

	return nil
}
