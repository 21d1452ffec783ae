// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import (
	"encoding/binary"
	"testing"

	"github.com/f-secure-foundry/vanilla/mm"
)

func TestInitStackFrameLayout(t *testing.T) {
	const words = 32
	stack := make([]byte, words*wordSize)

	entry := func(uintptr) {}

	sp := initStack(stack, 0, entry, 0xcafe)

	if int(sp) <= 0 || int(sp) >= len(stack) {
		t.Fatalf("stack pointer %#x outside stack [0, %#x)", sp, len(stack))
	}

	frame := sp + switchWords*wordSize

	r0 := binary.LittleEndian.Uint32(stack[frame:])
	if r0 != 0xcafe {
		t.Errorf("expected R0 == arg (0xcafe), got %#x", r0)
	}

	pc := binary.LittleEndian.Uint32(stack[frame+6*wordSize:])
	if pc != entryAddr(entry) {
		t.Errorf("expected PC slot to hold entry's code address, got %#x", pc)
	}

	xpsr := binary.LittleEndian.Uint32(stack[frame+7*wordSize:])
	if xpsr&0x01000000 == 0 {
		t.Errorf("expected Thumb bit set in xPSR, got %#x", xpsr)
	}
}

func TestInitStackPanicsWhenTooSmall(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for undersized stack")
		}
	}()

	initStack(make([]byte, 4), 0, func(uintptr) {}, 0)
}

func TestNewThreadNameTruncated(t *testing.T) {
	pool := mm.NewPool(0, 4096, make([]byte, 4096))
	s := New(Config{TickPeriodMs: 1, IdleStackWords: 16}, pool, nil)
	s.Start()

	long := "this-thread-name-is-way-too-long-for-the-kernel"

	th, err := s.NewThread(ThreadInfo{
		Name:       long,
		StackWords: 16,
		Entry:      func(uintptr) {},
		Class:      Background,
	})
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}

	if len(th.Name) != MaxNameLen {
		t.Fatalf("expected name truncated to %d chars, got %d", MaxNameLen, len(th.Name))
	}
}

func TestNewThreadOutOfMemory(t *testing.T) {
	// just enough room for the idle thread's minimal 16-word stack
	pool := mm.NewPool(0, 64, make([]byte, 64))
	s := New(Config{TickPeriodMs: 1, IdleStackWords: 16}, pool, nil)
	s.Start()

	_, err := s.NewThread(ThreadInfo{
		Name:       "big",
		StackWords: 1000,
		Entry:      func(uintptr) {},
		Class:      Application,
	})

	if err == nil {
		t.Fatalf("expected out-of-memory error")
	}
}
