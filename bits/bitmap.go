// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bits

// Bitmap is a fixed-size bitmap backed by a slice of 32-bit words, built on
// top of the single-word primitives in this package. It is used wherever a
// scarce numeric resource (such as USB device addresses) needs allocation
// tracking with no heap churn per operation.
type Bitmap struct {
	words []uint32
	n     int
}

// NewBitmap allocates a bitmap able to track n bit positions.
func NewBitmap(n int) *Bitmap {
	return &Bitmap{
		words: make([]uint32, (n+31)/32),
		n:     n,
	}
}

func (b *Bitmap) word(pos int) (*uint32, int) {
	return &b.words[pos/32], pos % 32
}

// IsSet returns whether the bit at pos is set.
func (b *Bitmap) IsSet(pos int) bool {
	w, off := b.word(pos)
	return Get(w, off)
}

// Set marks the bit at pos as in use.
func (b *Bitmap) Set(pos int) {
	w, off := b.word(pos)
	Set(w, off)
}

// Clear marks the bit at pos as free.
func (b *Bitmap) Clear(pos int) {
	w, off := b.word(pos)
	Clear(w, off)
}

// FirstClear returns the lowest position in [lo, b.n) whose bit is clear, and
// true, or false if every position in that range is set.
func (b *Bitmap) FirstClear(lo int) (int, bool) {
	for pos := lo; pos < b.n; pos++ {
		if !b.IsSet(pos) {
			return pos, true
		}
	}

	return 0, false
}
