// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !linux && !darwin

package mm

// NewHostPool creates a Pool backed by a plain Go slice, for platforms
// without an mmap-based test harness (see pool_unix.go).
func NewHostPool(size int) (*Pool, func(), error) {
	mem := make([]byte, size)
	pool := NewPool(uint(uintptrOf(mem)), uint(size), mem)

	return pool, func() {}, nil
}
