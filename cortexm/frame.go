// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cortexm

import "encoding/binary"

// Frame models the 8-register exception frame the Cortex-M hardware pushes
// onto the active stack on exception entry (ARMv7-M Architecture Reference
// Manual, B1.5.6): R0, R1, R2, R3, R12, LR, PC, xPSR. It is the portable
// (architecture-independent-looking) counterpart of spec.md §4.C's raw
// stack-slot access, kept as a named type so the decode logic in package
// trap does not depend on the underlying stack representation.
type Frame struct {
	R0, R1, R2, R3 uint32
	R12            uint32
	LR             uint32
	PC             uint32
	XPSR           uint32
}

// Arg returns exception-frame argument register i (0..3), corresponding to
// the R0-R3 slots the SVC calling convention uses for syscall arguments.
func (f *Frame) Arg(i int) uint32 {
	switch i {
	case 0:
		return f.R0
	case 1:
		return f.R1
	case 2:
		return f.R2
	case 3:
		return f.R3
	}

	panic("cortexm: argument index out of range")
}

// Selector decodes the 8-bit SVC immediate embedded in the trap instruction
// that raised this exception. Per spec.md §4.C: the instruction preceding
// the saved PC is `svc #n`, a 16-bit Thumb instruction whose low byte is the
// immediate; since the processor is little-endian, that byte sits at
// PC-2. fetchByte abstracts the actual memory read, so this can be unit
// tested against a synthetic instruction stream instead of a live
// instruction bus.
func (f *Frame) Selector(fetchByte func(addr uint32) byte) uint8 {
	return fetchByte(f.PC - 2)
}

// DecodeSVCImmediate extracts the 8-bit immediate from a little-endian
// 16-bit Thumb `svc #n` encoding (1101 1111 iiiiiiii), exposed standalone so
// that tests can exercise the bit layout without constructing a Frame.
func DecodeSVCImmediate(instr uint16) uint8 {
	return uint8(instr & 0x00ff)
}

// ReadSVCImmediate decodes the selector directly out of a byte slice
// representing the code memory containing the trap instruction, using the
// PC value saved in the frame. It is the convenience form of Selector used
// against a flat simulated instruction memory in tests.
func ReadSVCImmediate(code []byte, pc uint32, base uint32) uint8 {
	off := pc - base - 2
	instr := binary.LittleEndian.Uint16(code[off : off+2])
	return DecodeSVCImmediate(instr)
}
