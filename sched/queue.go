// Run queue and sleep queue primitives
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "container/list"

// RunQueue is an ordered queue of threads, built on container/list the same
// way dma.Region's free-block list is, giving O(1) push/pop/remove once a
// thread's list.Element is known. A thread is a member of at most one
// RunQueue (a class queue or the blocked queue) or the SleepQueue at a time;
// PushBack, PushFront and Remove keep TCB.queue/TCB.elem consistent so a
// thread can always be detached knowing only the TCB, not which queue it is
// on.
type RunQueue struct {
	l *list.List
}

// NewRunQueue creates an empty run queue.
func NewRunQueue() *RunQueue {
	return &RunQueue{l: list.New()}
}

// PushBack appends t to the tail of the queue.
func (q *RunQueue) PushBack(t *TCB) {
	detach(t)
	t.elem = q.l.PushBack(t)
	t.queue = q.l
}

// PushFront inserts t at the head of the queue.
func (q *RunQueue) PushFront(t *TCB) {
	detach(t)
	t.elem = q.l.PushFront(t)
	t.queue = q.l
}

// Front returns the thread at the head of the queue, or nil if empty.
func (q *RunQueue) Front() *TCB {
	if e := q.l.Front(); e != nil {
		return e.Value.(*TCB)
	}

	return nil
}

// Len returns the number of threads on the queue.
func (q *RunQueue) Len() int {
	return q.l.Len()
}

// RotateToBack moves the thread currently at the head of the queue to its
// tail, implementing the round-robin classes' "rotate on tick" policy
// (spec.md §4.B). It is a no-op on an empty queue.
func (q *RunQueue) RotateToBack() {
	if e := q.l.Front(); e != nil {
		q.l.MoveToBack(e)
	}
}

// Remove detaches t from q. It panics if t is not on q (whether on another
// queue or on none), since that represents a scheduler bookkeeping bug
// (spec.md §4.B "structural corruption... is fatal").
func (q *RunQueue) Remove(t *TCB) {
	requireOn(t, q.l)
	detach(t)
}

// detach removes t from its current queue, if any, leaving it on none.
func detach(t *TCB) {
	if t.queue != nil && t.elem != nil {
		t.queue.Remove(t.elem)
	}

	t.queue = nil
	t.elem = nil
}

func requireOn(t *TCB, l *list.List) {
	if t.queue != l {
		panic("sched: thread is not on the expected queue")
	}
}

// ThreadList is the unordered list of every thread the scheduler knows
// about, the analogue of struct rq's `threads` dlist. A thread's presence
// on this list is its sole lifetime marker (spec.md §3).
type ThreadList struct {
	l *list.List
}

// NewThreadList creates an empty all-threads list.
func NewThreadList() *ThreadList {
	return &ThreadList{l: list.New()}
}

// Add registers t on the all-threads list.
func (tl *ThreadList) Add(t *TCB) {
	t.allThreadsElem = tl.l.PushBack(t)
}

// Remove deregisters t from the all-threads list; this is the thread's
// deletion event (spec.md §3).
func (tl *ThreadList) Remove(t *TCB) {
	if t.allThreadsElem != nil {
		tl.l.Remove(t.allThreadsElem)
		t.allThreadsElem = nil
	}
}

// Len returns the number of threads known to the scheduler.
func (tl *ThreadList) Len() int {
	return tl.l.Len()
}

// Each calls fn once per thread on the all-threads list, in list order.
func (tl *ThreadList) Each(fn func(*TCB)) {
	for e := tl.l.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*TCB))
	}
}
