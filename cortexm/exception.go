// ARM Cortex-M exception support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cortexm provides the architecture-specific primitives the
// scheduler and system-call gate are built on: the exception vector table,
// the SVCall/PendSV trap frame, interrupt masking, and the SysTick-driven
// time base. It is the Cortex-M analogue of the teacher's arm/arm64/riscv
// packages.
package cortexm

import (
	"fmt"
	_ "unsafe"
)

// Cortex-M exception numbers, Table B1-4, ARMv7-M Architecture Reference
// Manual.
const (
	Reset       = 1
	NMI         = 2
	HardFault   = 3
	MemManage   = 4
	BusFault    = 5
	UsageFault  = 6
	SVCall      = 11
	PendSV      = 14
	SysTickExcp = 15
)

var exceptionHandlerFn = defaultExceptionHandler

// ExceptionHandler overrides the default exception handler. The passed
// function receives the exception number as argument, mirroring
// arm.ExceptionHandler.
func ExceptionHandler(fn func(int)) {
	exceptionHandlerFn = fn
}

//go:linkname exceptionHandler runtime.exceptionHandler
func exceptionHandler(num int) {
	exceptionHandlerFn(num)
}

func defaultExceptionHandler(num int) {
	panic(fmt.Sprintf("unhandled exception, number %d (%s)", num, ExceptionName(num)))
}

// ExceptionName returns the exception number's mnemonic name.
func ExceptionName(num int) string {
	switch num {
	case Reset:
		return "Reset"
	case NMI:
		return "NMI"
	case HardFault:
		return "HardFault"
	case MemManage:
		return "MemManage"
	case BusFault:
		return "BusFault"
	case UsageFault:
		return "UsageFault"
	case SVCall:
		return "SVCall"
	case PendSV:
		return "PendSV"
	case SysTickExcp:
		return "SysTick"
	}

	return "Unknown"
}
