// First-fit memory allocator for kernel-owned buffers
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mm

// block tracks one allocation (or free gap) within a Pool, the same way
// dma.block tracks one DMA allocation.
type block struct {
	addr uint
	size uint
}

func (b *block) slice(mem []byte, poolStart uint) []byte {
	off := b.addr - poolStart
	return mem[off : off+b.size]
}
