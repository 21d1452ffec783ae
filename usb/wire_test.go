// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import "testing"

func TestSetupPacketBytesGetDescriptor(t *testing.T) {
	s := getDescriptorSetup(DescriptorDevice, 0, 0, 18)
	buf := s.Bytes()

	if len(buf) != 8 {
		t.Fatalf("expected an 8-byte setup packet, got %d", len(buf))
	}

	if buf[0] != requestTypeDeviceToHost || buf[1] != RequestGetDescriptor {
		t.Fatalf("unexpected bmRequestType/bRequest: %#x %#x", buf[0], buf[1])
	}

	if buf[2] != 0 || buf[3] != DescriptorDevice {
		t.Fatalf("expected wValue = (descType<<8 | index), got %#x %#x", buf[3], buf[2])
	}

	if buf[6] != 18 || buf[7] != 0 {
		t.Fatalf("expected wLength = 18, got %d", int(buf[6])|int(buf[7])<<8)
	}
}

func TestSetupPacketBytesSetAddress(t *testing.T) {
	s := setAddressSetup(5)
	buf := s.Bytes()

	if buf[0] != requestTypeHostToDevice || buf[1] != RequestSetAddress {
		t.Fatalf("unexpected bmRequestType/bRequest: %#x %#x", buf[0], buf[1])
	}

	if buf[2] != 5 {
		t.Fatalf("expected wValue = 5, got %d", buf[2])
	}
}

func TestDecodeDeviceDescriptor(t *testing.T) {
	d := DeviceDescriptor{
		BCDUSB:            0x0200,
		MaxPacketSize:     64,
		VendorID:          0x1234,
		ProductID:         0x5678,
		Product:           1,
		Manufacturer:      2,
		NumConfigurations: 1,
	}

	buf := encodeDeviceDescriptor(d)
	got := decodeDeviceDescriptor(buf)

	if got.VendorID != d.VendorID || got.ProductID != d.ProductID {
		t.Fatalf("expected vendor/product to round-trip, got %+v", got)
	}

	if got.MaxPacketSize != 64 || got.Product != 1 || got.Manufacturer != 2 {
		t.Fatalf("unexpected decode result: %+v", got)
	}
}

func TestDecodeConfigTotalLength(t *testing.T) {
	buf := buildConfigDescriptor([]int{1})

	got := decodeConfigTotalLength(buf)
	if int(got) != len(buf) {
		t.Fatalf("expected wTotalLength %d, got %d", len(buf), got)
	}
}

func TestStringToASCII(t *testing.T) {
	buf := encodeStringDescriptor("Widget")

	if got := stringToASCII(buf, maxStringLen); got != "Widget" {
		t.Fatalf("expected %q, got %q", "Widget", got)
	}
}

func TestStringToASCIITruncatesAtMax(t *testing.T) {
	buf := encodeStringDescriptor("abcdef")

	if got := stringToASCII(buf, 3); got != "abc" {
		t.Fatalf("expected truncation to 3 characters, got %q", got)
	}
}

func TestStringToASCIIEmptyHeaderOnly(t *testing.T) {
	buf := []byte{2, DescriptorString}

	if got := stringToASCII(buf, maxStringLen); got != "" {
		t.Fatalf("expected empty string for a header-only descriptor, got %q", got)
	}
}

func TestStringToASCIITooShortToHaveAHeader(t *testing.T) {
	if got := stringToASCII([]byte{2}, maxStringLen); got != "" {
		t.Fatalf("expected empty string for a truncated buffer, got %q", got)
	}
}
