// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package cortexm

import _ "unsafe"

var tickFn func()

// InstallTickHandler registers the function invoked on every SysTick
// exception. The scheduler installs spec.md §4.B's tick handler here.
func InstallTickHandler(fn func()) {
	tickFn = fn
}

//go:linkname sysTickHandler runtime.sysTickHandler
func sysTickHandler() {
	if tickFn != nil {
		tickFn()
	}
}

// defined in timer_cortexm.s, programs SysTick's reload value for the
// requested tick period and enables its interrupt.
func configureSysTick(reload uint32)

// ConfigureSysTick arms the periodic timer interrupt that drives
// spec.md §4.B's tick handler, given the CPU clock frequency and the
// desired tick period in milliseconds.
func ConfigureSysTick(cpuHz uint32, periodMs uint32) {
	reload := cpuHz/1000*periodMs - 1
	configureSysTick(reload)
}
