// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago

package cortexm

import "sync"

// Off-target (go test) substitute for the CPSID/CPSIE-backed
// EnableInterrupts/DisableInterrupts in irq_tamago.go: a single mutex
// serializes critical sections instead of masking real interrupts, giving
// the same "at most one mutator of the privileged queues at a time"
// guarantee spec.md §5 requires, without needing live Cortex-M silicon.
var irqLock sync.Mutex

// EnableInterrupts is the host-test stand-in for unmasking interrupts.
func EnableInterrupts() {
	irqLock.Unlock()
}

// DisableInterrupts is the host-test stand-in for masking interrupts.
func DisableInterrupts() {
	irqLock.Lock()
}
