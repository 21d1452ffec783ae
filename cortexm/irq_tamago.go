// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package cortexm

// defined in irq_cortexm.s
func irq_enable()
func irq_disable()

// EnableInterrupts unmasks interrupts (CPSIE i), mirroring
// arm.CPU.EnableInterrupts.
func EnableInterrupts() {
	irq_enable()
}

// DisableInterrupts masks interrupts (CPSID i). Used to bracket the
// non-atomic run-queue/sleep-queue/bitmap mutations spec.md §5 requires to
// run inside an interrupt-disabled critical section.
func DisableInterrupts() {
	irq_disable()
}
