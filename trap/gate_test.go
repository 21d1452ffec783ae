// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"testing"

	"github.com/f-secure-foundry/vanilla/cortexm"
)

func svcCode(selector uint8) ([]byte, uint32, uint32) {
	// a single `svc #selector` Thumb instruction at address 0x1000
	const base = 0x1000
	code := []byte{selector, 0xdf}
	return code, base + 2, base
}

func TestDispatchCallsRegisteredHandler(t *testing.T) {
	var g Gate

	called := false
	g.Register(SelectorGPIOToggle, func(f *cortexm.Frame) {
		called = true
	})

	code, pc, base := svcCode(SelectorGPIOToggle)
	f := &cortexm.Frame{PC: pc}

	g.Dispatch(f, func(addr uint32) byte { return code[addr-base] })

	if !called {
		t.Fatalf("expected handler to be invoked")
	}
}

func TestDispatchUnknownSelectorIsIgnored(t *testing.T) {
	var g Gate

	code, pc, base := svcCode(42)
	f := &cortexm.Frame{PC: pc}

	// must not panic
	g.Dispatch(f, func(addr uint32) byte { return code[addr-base] })
}

func TestRegisterReplacesHandler(t *testing.T) {
	var g Gate

	var seen int
	g.Register(SelectorMemFree, func(f *cortexm.Frame) { seen = 1 })
	g.Register(SelectorMemFree, func(f *cortexm.Frame) { seen = 2 })

	code, pc, base := svcCode(SelectorMemFree)
	f := &cortexm.Frame{PC: pc}
	g.Dispatch(f, func(addr uint32) byte { return code[addr-base] })

	if seen != 2 {
		t.Fatalf("expected second registration to win, got %d", seen)
	}
}
