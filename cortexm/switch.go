// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package cortexm

import _ "unsafe"

// The context switch is the one piece of this repository spec.md §9
// explicitly calls architecture-specific assembly: saving/restoring the
// callee-saved register set (R4-R11) is not expressible in portable Go, and
// is isolated here behind the two-call interface spec.md §9 recommends,
// exactly the way arm.irq_enable/irq_disable isolate CPSIE/CPSID.
//
// SaveContext pushes the callee-saved registers onto the stack pointed to by
// *sp and updates *sp to the new top of stack. RestoreContext does the
// inverse, popping the callee-saved registers from *sp. Neither touches the
// caller-saved registers or the exception-frame PC/xPSR, which the hardware
// exception entry/exit sequence already handles per spec.md §4.B.

// defined in switch_cortexm.s
func saveContext(sp *uint)
func restoreContext(sp *uint)

// SaveContext saves the outgoing thread's callee-saved registers onto its
// own stack and records the resulting stack pointer.
func SaveContext(sp *uint) {
	saveContext(sp)
}

// RestoreContext restores the incoming thread's callee-saved registers from
// its saved stack pointer.
func RestoreContext(sp *uint) {
	restoreContext(sp)
}

// PendContextSwitch pends the PendSV exception, the lowest-priority
// exception in the system, so that the actual register save/restore in
// ContextSwitchHandler only runs once no higher-priority handler is active
// (spec.md §4.B). This is how both the tick handler and the syscall gate
// request a reschedule without switching contexts inline.
//
// defined in switch_cortexm.s
func PendContextSwitch()

var contextSwitchFn func()

// InstallContextSwitchHandler registers the function invoked on PendSV
// entry. The scheduler installs its own reschedule-and-switch routine here
// at Scheduler.Start.
func InstallContextSwitchHandler(fn func()) {
	contextSwitchFn = fn
}

//go:linkname pendSVHandler runtime.pendSVHandler
func pendSVHandler() {
	if contextSwitchFn != nil {
		contextSwitchFn()
	}
}
