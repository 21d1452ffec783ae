// First-fit memory allocator for kernel-owned buffers
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mm is the boundary between the scheduler/USB core and the
// register-level physical memory manager, which is out of scope for this
// repository (spec.md §1). It supplies a first-fit free-list allocator,
// directly adapted from the teacher's dma.Region, that anything needing a
// real backing buffer (thread stacks, USB descriptor/URB buffers) can use
// without depending on board-specific page tables.
package mm

import (
	"container/list"
	"errors"
	"sync"
)

// Region distinguishes the two allocation-site families the original kernel
// calls out for mm_alloc: ordinary heap memory, and a bounded region better
// suited for DMA-visible or otherwise constrained buffers. Pool draws no
// distinction between the two and ignores the selector, since the physical
// memory map is an external collaborator, but the selector is threaded
// through so that an embedder with real physical regions can back them with
// distinct Pools.
type Region int

const (
	RegionDefault Region = iota
	RegionDMA
)

// ErrOutOfMemory is returned when a Pool cannot satisfy an allocation. The
// scheduler's NewThread returns it wrapped as an error, and Start panics if
// the idle thread's stack cannot be allocated; the syscall gate treats it as
// an ordinary error return (a zero address) for mm_alloc.
var ErrOutOfMemory = errors.New("mm: out of memory")

// Allocator is the interface the scheduler and USB core consume. Pool is the
// only implementation in this repository, but the interface keeps both
// consumers testable against a deterministic fake with a tiny, fixed budget.
type Allocator interface {
	Alloc(size int, region Region) ([]byte, uint, error)
	Free(addr uint)
}

// Pool is a first-fit allocator over a single contiguous backing buffer,
// addressed by a synthetic base so that returned addresses behave like real
// memory addresses (useful for invariants such as "stack pointer falls
// within [base, base+size)") without requiring unsafe pointer arithmetic.
type Pool struct {
	sync.Mutex

	start uint
	size  uint
	mem   []byte

	freeBlocks *list.List
	usedBlocks map[uint]*block
}

// NewPool creates a Pool of the given size. start is a synthetic base
// address used only to give allocations address-like identity; it need not
// correspond to any real physical location.
func NewPool(start uint, size uint, mem []byte) *Pool {
	p := &Pool{
		start:      start,
		size:       size,
		mem:        mem,
		freeBlocks: list.New(),
		usedBlocks: make(map[uint]*block),
	}

	p.freeBlocks.PushBack(&block{addr: start, size: size})

	return p
}

// Start returns the pool's base address.
func (p *Pool) Start() uint {
	return p.start
}

// Size returns the pool's total size.
func (p *Pool) Size() uint {
	return p.size
}

// Alloc reserves size bytes, returning a slice view onto the pool's backing
// memory, its address, and ErrOutOfMemory if no free block is large enough.
// The region argument is not used; see Region.
func (p *Pool) Alloc(size int, region Region) ([]byte, uint, error) {
	if size <= 0 {
		return nil, 0, nil
	}

	p.Lock()
	defer p.Unlock()

	b, err := p.alloc(uint(size))
	if err != nil {
		return nil, 0, err
	}

	p.usedBlocks[b.addr] = b

	return b.slice(p.mem, p.start), b.addr, nil
}

// Free releases a buffer previously returned by Alloc. Freeing an address
// that was not allocated, or was already freed, is a no-op — mirroring
// spec.md §7's "unknown selector is silently ignored" posture for the
// mm_free syscall, which has no way to report an error to its caller.
func (p *Pool) Free(addr uint) {
	if addr == 0 {
		return
	}

	p.Lock()
	defer p.Unlock()

	b, ok := p.usedBlocks[addr]
	if !ok {
		return
	}

	delete(p.usedBlocks, addr)
	p.free(b)
}

func (p *Pool) alloc(size uint) (*block, error) {
	const align = 8

	var e *list.Element
	var free *block
	var pad uint

	for e = p.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)
		pad = -b.addr & (align - 1)

		if b.size >= size+pad {
			free = b
			break
		}
	}

	if free == nil {
		return nil, ErrOutOfMemory
	}

	defer p.freeBlocks.Remove(e)

	if pad != 0 {
		before := &block{addr: free.addr, size: pad}
		free.addr += pad
		free.size -= pad
		p.freeBlocks.InsertBefore(before, e)
	}

	if r := free.size - size; r != 0 {
		after := &block{addr: free.addr + size, size: r}
		free.size = size
		p.freeBlocks.InsertAfter(after, e)
	}

	return free, nil
}

func (p *Pool) free(used *block) {
	for e := p.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		if b.addr > used.addr {
			p.freeBlocks.InsertBefore(used, e)
			p.defrag()
			return
		}
	}

	p.freeBlocks.PushBack(used)
	p.defrag()
}

func (p *Pool) defrag() {
	var prev *block

	for e := p.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		if prev != nil && prev.addr+prev.size == b.addr {
			prev.size += b.size
			defer p.freeBlocks.Remove(e)
			continue
		}

		prev = b
	}
}
