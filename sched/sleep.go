// Sleep queue
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "container/list"

// SleepQueue holds threads waiting for a future tick, kept in ascending
// TickToWake order so the tick handler can stop walking it at the first
// thread that is still sleeping (spec.md §4.B step 2). Threads with equal
// TickToWake resume in insertion order (spec.md §9's resolution of the
// sleep-queue Open Question).
type SleepQueue struct {
	l *list.List
}

// NewSleepQueue creates an empty sleep queue.
func NewSleepQueue() *SleepQueue {
	return &SleepQueue{l: list.New()}
}

// Insert places t into the queue in TickToWake order, after any
// already-queued thread with an equal wake tick (FIFO on insertion ties).
func (sq *SleepQueue) Insert(t *TCB) {
	detach(t)

	for e := sq.l.Front(); e != nil; e = e.Next() {
		if e.Value.(*TCB).TickToWake > t.TickToWake {
			t.elem = sq.l.InsertBefore(t, e)
			t.queue = sq.l
			return
		}
	}

	t.elem = sq.l.PushBack(t)
	t.queue = sq.l
}

// Len returns the number of sleeping threads.
func (sq *SleepQueue) Len() int {
	return sq.l.Len()
}

// Wake detaches and returns every thread whose TickToWake is <= now, in
// wake-tick order, stopping at the first thread that must still sleep.
// Called from the tick handler; an empty queue is a no-op (spec.md §8
// boundary behaviour).
func (sq *SleepQueue) Wake(now uint64) []*TCB {
	var woken []*TCB

	for e := sq.l.Front(); e != nil; {
		t := e.Value.(*TCB)

		if t.TickToWake > now {
			break
		}

		next := e.Next()
		detach(t)
		woken = append(woken, t)
		e = next
	}

	return woken
}
