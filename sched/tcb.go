// Thread control block
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sched implements the preemptive multi-class scheduler: thread
// control blocks, the per-class run queues, the sleep queue, and the tick
// handler and context-switch trigger that drive them (spec.md §4.A-§4.B).
package sched

import (
	"container/list"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/f-secure-foundry/vanilla/mm"
)

// MaxNameLen bounds a thread's name, the Go-idiomatic replacement for the
// fixed THREAD_MAX_NAME_LEN byte array in the original C thread_info.
const MaxNameLen = 32

// wordSize is the machine word size (bytes) the stack frame layout below is
// expressed in; ARM Cortex-M is a 32-bit architecture.
const wordSize = 4

// frameWords is the hardware exception frame pushed by Cortex-M on
// exception entry: R0, R1, R2, R3, R12, LR, PC, xPSR (ARMv7-M Architecture
// Reference Manual, B1.5.6).
const frameWords = 8

// switchWords is the software-saved callee-saved register set
// (R4-R11) the context switch's SaveContext/RestoreContext pair manages
// (spec.md §4.B, §9).
const switchWords = 8

// ThreadInfo describes a thread to be created, the Go analogue of the C
// struct thread_info.
type ThreadInfo struct {
	// Name identifies the thread; truncated to MaxNameLen.
	Name string

	// StackWords is the requested stack size, in 32-bit words.
	StackWords int

	// Entry is the thread's entry function, invoked with Arg.
	Entry func(arg uintptr)

	// Arg is passed to Entry in R0 on first dispatch.
	Arg uintptr

	// Class selects which scheduling-class run queue the thread joins.
	Class *Class
}

// TCB is a thread control block: one per schedulable thread. Fields are
// ordered with SP first, mirroring the C struct's comment that the
// context-switch assembly loads it with a single indexed load.
type TCB struct {
	// SP is the saved stack pointer; valid whenever the thread is not
	// currently running.
	SP uint

	// StackBase is the lowest address of the thread's stack allocation.
	StackBase uint
	stackAddr uint // address returned by the allocator, for Free

	Name  string
	Class *Class

	// TickToWake is valid only while the thread is in the sleep queue.
	TickToWake uint64

	RuntimeCommitted  uint64
	RuntimeInProgress uint64

	// queue is the *list.List the thread currently resides on (a class
	// run queue, the sleep queue, or the blocked queue), or nil if on
	// none. elem is this thread's node within that list. Together these
	// give O(1) removal from whichever queue the thread is on without
	// the caller needing to know which one that is — the "tagged
	// variant" strategy spec.md §9 calls for, grounded on how
	// dma.Region tracks a block's membership in freeBlocks/usedBlocks.
	queue *list.List
	elem  *list.Element

	allThreadsElem *list.Element
}

// newTCB allocates a thread's stack from alloc and builds the synthetic
// initial stack frame spec.md §4.A describes: a full exception frame with
// the entry function as PC and the argument in R0, and beneath it a
// synthetic inner frame for the callee-saved register set, so that the
// first context switch into this thread is indistinguishable from resuming
// one that had merely been preempted.
func newTCB(info ThreadInfo, alloc mm.Allocator) (*TCB, error) {
	name := info.Name
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}

	size := info.StackWords * wordSize
	stack, addr, err := alloc.Alloc(size, mm.RegionDefault)
	if err != nil {
		return nil, fmt.Errorf("sched: stack allocation failed for %q: %w", name, err)
	}

	t := &TCB{
		Name:      name,
		Class:     info.Class,
		StackBase: addr,
		stackAddr: addr,
	}

	t.SP = initStack(stack, addr, info.Entry, info.Arg)

	return t, nil
}

// initStack writes the synthetic exception frame and callee-saved register
// block to the top of stack, returning the resulting stack pointer.
func initStack(stack []byte, base uint, entry func(arg uintptr), arg uintptr) uint {
	total := frameWords + switchWords
	if len(stack) < total*wordSize {
		panic("sched: stack too small for initial frame")
	}

	top := len(stack)
	frame := top - frameWords*wordSize
	sp := frame - switchWords*wordSize

	// hardware exception frame: R0, R1, R2, R3, R12, LR, PC, xPSR
	putWord(stack, frame+0*wordSize, uint32(arg)) // R0: thread argument
	putWord(stack, frame+1*wordSize, 0)           // R1
	putWord(stack, frame+2*wordSize, 0)           // R2
	putWord(stack, frame+3*wordSize, 0)           // R3
	putWord(stack, frame+4*wordSize, 0)           // R12
	putWord(stack, frame+5*wordSize, 0)           // LR
	putWord(stack, frame+6*wordSize, entryAddr(entry))
	putWord(stack, frame+7*wordSize, 0x01000000) // xPSR: Thumb bit set

	// synthetic inner frame: R4-R11, all zero for a never-run thread
	for i := 0; i < switchWords; i++ {
		putWord(stack, sp+i*wordSize, 0)
	}

	return base + uint(sp)
}

func putWord(stack []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(stack[off:off+wordSize], v)
}

// entryAddr recovers the entry function's code address for the PC slot of
// the synthetic exception frame. A Go func value's first word is a pointer
// to its funcval, whose first word is in turn the code entry point; this is
// the same unsafe-pointer-into-runtime-layout idiom the teacher uses
// throughout dma/block.go to turn Go slices into raw addresses. It is only
// ever read back by the real Cortex-M context-switch assembly (not present
// in this retrieval, per spec.md §9), never dereferenced by this package.
func entryAddr(entry func(arg uintptr)) uint32 {
	if entry == nil {
		return 0
	}

	return uint32(**(**uintptr)(unsafe.Pointer(&entry)))
}
