// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mm

import "unsafe"

func uintptrOf(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&buf[0]))
}
