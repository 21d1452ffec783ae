// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cortexm

// Critical runs fn with interrupts disabled, re-enabling them on return.
// Package sched wraps its thread-mode run-queue mutations (NewThread, Block,
// Wake) in it; the exception-context entry points (Tick, ContextSwitch,
// EnqueueDelay) and package usb do not call it.
func Critical(fn func()) {
	DisableInterrupts()
	defer EnableInterrupts()

	fn()
}
