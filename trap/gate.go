// System-call gate
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package trap implements the SVC-based system-call gate (spec.md §4.C): a
// dispatch table keyed by the 8-bit selector embedded in the trap
// instruction, and the handler registration boot code uses to wire the four
// current selectors to the scheduler, GPIO and memory-manager packages.
package trap

import "github.com/f-secure-foundry/vanilla/cortexm"

// The current selectors (spec.md §4.C): 1 sleep(ms), 2 gpio_toggle(port,
// pin), 3 mm_alloc(size, region), 4 mm_free(ptr). New selectors are appended
// by calling Gate.Register with the next free value.
const (
	SelectorSleep      uint8 = 1
	SelectorGPIOToggle uint8 = 2
	SelectorMemAlloc   uint8 = 3
	SelectorMemFree    uint8 = 4
)

// Handler services one selector. It receives the exception frame so it can
// read argument registers via Frame.Arg and, for calls that return a value
// (mm_alloc), write the result back into R0 before the exception returns.
type Handler func(f *cortexm.Frame)

// Gate is the selector-indexed dispatch table. The zero value has every
// selector unregistered and is ready to use.
type Gate struct {
	handlers [256]Handler
}

// Register installs h as the handler for selector. Calling Register twice
// for the same selector replaces the previous handler; boot code is
// expected to call it once per selector before interrupts are enabled.
func (g *Gate) Register(selector uint8, h Handler) {
	g.handlers[selector] = h
}

// Dispatch decodes the selector from f per spec.md §4.C ("subtract 2 from
// the saved PC and dereference the byte there") and invokes the registered
// handler. An unregistered selector is the literal zero value of the
// handlers array (nil) and is silently ignored, matching spec.md §7's
// "unknown selector is silently ignored, the exception returns to the
// caller" — there is no channel back to the trapping thread to report a
// fault on an already-serviced trap.
func (g *Gate) Dispatch(f *cortexm.Frame, fetchByte func(addr uint32) byte) {
	selector := f.Selector(fetchByte)

	h := g.handlers[selector]
	if h == nil {
		return
	}

	h(f)
}
