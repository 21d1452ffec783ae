// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package sched

import "github.com/f-secure-foundry/vanilla/cortexm"

// Install wires the scheduler to the hardware SysTick and PendSV exceptions
// (spec.md §4.B): the tick handler runs Scheduler.Tick directly, and the
// PendSV handler brackets Scheduler.ContextSwitch's thread-picking decision
// with the assembly register save/restore pair, exactly the sequencing
// spec.md §4.B describes: (i) save outgoing callee-saved registers and
// stack pointer, (iii) pick the next thread, (iv) restore its callee-saved
// registers. Caller-saved registers and the exception frame are the
// hardware's job on exception entry/exit.
func (s *Scheduler) Install() {
	cortexm.InstallTickHandler(s.Tick)

	cortexm.InstallContextSwitchHandler(func() {
		cortexm.SaveContext(&s.current.SP)
		s.ContextSwitch()
		cortexm.RestoreContext(&s.current.SP)
	})
}
