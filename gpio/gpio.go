// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gpio is the boundary the syscall gate's gpio_toggle selector
// crosses into. Register-level GPIO/pin-mux drivers are explicitly out of
// scope for this repository (spec.md §1); Toggler is the narrow interface
// the kernel core consumes, analogous to how the teacher's arm/imx6
// packages never appear by name inside this repository, only through
// interfaces.
package gpio

// Toggler is implemented by a board's GPIO driver. Port identifies the
// GPIO bank, pin the bit position within it; neither is interpreted by this
// package.
type Toggler interface {
	Toggle(port uint8, pin uint8)
}
