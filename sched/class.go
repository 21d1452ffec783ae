// Scheduling classes
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

// Class is a scheduling-class descriptor: an immutable record of a link to
// the next-lower class (forming the static priority chain spec.md §3
// describes) plus its pick/enqueue/dequeue operations. Exactly four
// instances exist, declared below as process-wide constants.
type Class struct {
	name string
	next *Class

	pick    func(b *Bundle) *TCB
	enqueue func(t *TCB, b *Bundle)
	dequeue func(t *TCB, b *Bundle)
}

// String returns the class's name, for logging.
func (c *Class) String() string {
	return c.name
}

// Bundle is the run-queue bundle: the process-wide scheduling state
// (spec.md §3). Exactly one exists per Scheduler.
type Bundle struct {
	rt         *RunQueue
	app        *RunQueue
	background *RunQueue
	idle       *TCB

	Sleep   *SleepQueue
	Blocked *RunQueue
	All     *ThreadList
}

func newBundle() *Bundle {
	return &Bundle{
		rt:         NewRunQueue(),
		app:        NewRunQueue(),
		background: NewRunQueue(),
		Sleep:      NewSleepQueue(),
		Blocked:    NewRunQueue(),
		All:        NewThreadList(),
	}
}

// queueFor returns the run queue backing a round-robin or FIFO class, or
// nil for Idle, which has no queue of its own.
func (b *Bundle) queueFor(c *Class) *RunQueue {
	switch c {
	case RealTime:
		return b.rt
	case Application:
		return b.app
	case Background:
		return b.background
	}

	return nil
}

// higherQueues returns the run queues of every class strictly above c in
// the priority chain, used by the tick handler to decide whether a
// round-robin class must rotate (spec.md §4.B "Application preempts
// background; both preempt idle unconditionally").
func (b *Bundle) higherQueues(c *Class) []*RunQueue {
	switch c {
	case Application:
		return []*RunQueue{b.rt}
	case Background:
		return []*RunQueue{b.rt, b.app}
	}

	return nil
}

// RealTime, Application, Background, and Idle are the four process-wide
// scheduling-class descriptors spec.md §3 requires, chained in descending
// priority order for the pick traversal (spec.md §4.B).
var (
	RealTime = &Class{
		name: "real-time",
		next: Application,
		pick: func(b *Bundle) *TCB {
			return b.rt.Front()
		},
		enqueue: func(t *TCB, b *Bundle) {
			t.Class = RealTime
			b.rt.PushBack(t)
		},
		dequeue: func(t *TCB, b *Bundle) {
			b.rt.Remove(t)
		},
	}

	Application = &Class{
		name: "application",
		next: Background,
		pick: func(b *Bundle) *TCB {
			return b.app.Front()
		},
		enqueue: func(t *TCB, b *Bundle) {
			b.app.PushBack(t)
		},
		dequeue: func(t *TCB, b *Bundle) {
			b.app.Remove(t)
		},
	}

	Background = &Class{
		name: "background",
		next: Idle,
		pick: func(b *Bundle) *TCB {
			return b.background.Front()
		},
		enqueue: func(t *TCB, b *Bundle) {
			t.Class = Background
			b.background.PushBack(t)
		},
		dequeue: func(t *TCB, b *Bundle) {
			b.background.Remove(t)
		},
	}

	Idle = &Class{
		name: "idle",
		pick: func(b *Bundle) *TCB {
			return b.idle
		},
		enqueue: func(t *TCB, b *Bundle) {
			t.Class = Idle
			b.idle = t
		},
		dequeue: func(t *TCB, b *Bundle) {
			if b.idle == t {
				b.idle = nil
			}
		},
	}
)

// pickNext walks the class chain from head in descending priority order,
// returning the first class's non-nil pick result (spec.md §4.B). The
// scheduler is total: Idle.pick always returns non-nil once the idle
// thread has been created, so this never returns nil after Scheduler.Start.
func pickNext(head *Class, b *Bundle) *TCB {
	for c := head; c != nil; c = c.next {
		if t := c.pick(b); t != nil {
			return t
		}
	}

	return nil
}
