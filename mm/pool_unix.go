// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build linux || darwin

package mm

import (
	"golang.org/x/sys/unix"
)

// NewHostPool creates a Pool backed by an anonymous mmap mapping, so that
// addresses handed out to callers under `go test` are real process
// addresses rather than synthetic offsets, the same way dma.Region always
// addresses physical memory directly. Used by package tests; a real board
// instead wires Pool against RAM handed to it by board bring-up.
func NewHostPool(size int) (*Pool, func(), error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	base := uint(uintptrOf(mem))
	pool := NewPool(base, uint(size), mem)

	cleanup := func() {
		unix.Munmap(mem)
	}

	return pool, cleanup, nil
}
