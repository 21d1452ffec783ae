// Scheduler core
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import (
	"fmt"
	"log"

	"github.com/f-secure-foundry/vanilla/cortexm"
	"github.com/f-secure-foundry/vanilla/mm"
)

// Config gathers the scheduler's boot-time parameters, the Go-idiomatic
// replacement for the C's board-specific #define constants (SYSTICK_RVR,
// THREAD_MAX_NAME_LEN).
type Config struct {
	// TickPeriodMs is the period, in milliseconds, between two tick
	// handler invocations; also the unit sleep durations are rounded to.
	TickPeriodMs uint32

	// IdleStackWords is the stack size reserved for the idle thread.
	IdleStackWords int
}

// DefaultConfig mirrors the values the original kernel's scheduler.h hard
// codes (a 1ms tick at a 300MHz-class core) in spirit, scaled to a
// millisecond tick period rather than a raw reload value, since the reload
// value is cortexm.ConfigureSysTick's concern, not the scheduler's.
var DefaultConfig = Config{
	TickPeriodMs:   1,
	IdleStackWords: 128,
}

// Scheduler is the explicit, non-global kernel context spec.md §9 calls
// for: one instance per controlled system, constructed once by board
// bring-up and passed to the trap gate and the tick/context-switch
// installation hooks, rather than hidden behind package-level state the
// way a true hardware singleton (such as arm's CPU registers) would be.
type Scheduler struct {
	cfg   Config
	alloc mm.Allocator

	bundle *Bundle

	tick    uint64
	current *TCB
	started bool

	pendSwitch func()
}

// New creates a Scheduler. alloc supplies stack memory for every thread
// created through it, including the idle thread created by Start.
func New(cfg Config, alloc mm.Allocator, pendSwitch func()) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		alloc:      alloc,
		bundle:     newBundle(),
		pendSwitch: pendSwitch,
	}
}

// Now returns the current tick count.
func (s *Scheduler) Now() uint64 {
	return s.tick
}

// Current returns the thread currently selected to run, or nil before
// Start.
func (s *Scheduler) Current() *TCB {
	return s.current
}

// NewThread creates a thread per spec.md §4.A: it allocates the stack
// through the Scheduler's allocator, builds the synthetic initial frame,
// links the TCB onto the all-threads list, and enqueues it on its class's
// run queue.
func (s *Scheduler) NewThread(info ThreadInfo) (*TCB, error) {
	if info.Class == nil {
		return nil, fmt.Errorf("sched: thread %q has no scheduling class", info.Name)
	}

	t, err := newTCB(info, s.alloc)
	if err != nil {
		return nil, err
	}

	cortexm.Critical(func() {
		s.bundle.All.Add(t)
		info.Class.enqueue(t, s.bundle)
	})

	return t, nil
}

// Start creates the idle thread and performs the first pick, establishing
// Current. It must be called exactly once, before the tick and PendSV
// handlers are wired to Tick/ContextSwitch; threads may be created through
// NewThread before or after it.
func (s *Scheduler) Start() {
	if s.started {
		panic("sched: Start called twice")
	}

	idle, err := s.NewThread(ThreadInfo{
		Name:       "idle",
		StackWords: s.cfg.IdleStackWords,
		Entry:      func(uintptr) {},
		Class:      Idle,
	})
	if err != nil {
		panic(fmt.Sprintf("sched: could not create idle thread: %v", err))
	}

	s.current = idle
	s.started = true
}

// Tick is the periodic timer handler (spec.md §4.B): it advances the tick
// counter, wakes due sleepers, applies the round-robin tick-preemption
// policy to the current thread's class, and requests a reschedule. It must
// run with interrupts disabled with respect to itself (i.e. from the timer
// exception), but may be preempted by nothing of higher priority per
// spec.md §5's priority ordering.
func (s *Scheduler) Tick() {
	s.tick++
	s.current.RuntimeInProgress++

	for _, t := range s.bundle.Sleep.Wake(s.tick) {
		t.Class.enqueue(t, s.bundle)
	}

	s.applyRoundRobin()

	if s.pendSwitch != nil {
		s.pendSwitch()
	}
}

// applyRoundRobin rotates the current thread to the tail of its own class
// queue if a peer of equal or higher class is runnable (spec.md §4.B).
// Real-time is strict FIFO and never rotated here; idle has no queue to
// rotate.
func (s *Scheduler) applyRoundRobin() {
	c := s.current.Class
	if c != Application && c != Background {
		return
	}

	own := s.bundle.queueFor(c)
	peerRunnable := own.Len() > 1

	for _, hq := range s.bundle.higherQueues(c) {
		if hq.Len() > 0 {
			peerRunnable = true
			break
		}
	}

	if peerRunnable {
		own.RotateToBack()
	}
}

// ContextSwitch performs the reschedule spec.md §4.B describes: it commits
// the outgoing thread's runtime counters, traverses the class chain to pick
// the next thread, and updates Current. The actual register save/restore
// around this call is cortexm.SaveContext/RestoreContext's job, invoked by
// the PendSV trampoline this method is installed under
// (cortexm.InstallContextSwitchHandler); this method only decides *which*
// thread runs next.
func (s *Scheduler) ContextSwitch() {
	out := s.current

	out.RuntimeCommitted += out.RuntimeInProgress
	out.RuntimeInProgress = 0

	next := pickNext(RealTime, s.bundle)
	if next == nil {
		panic("sched: no thread to run, not even idle")
	}

	s.current = next
}

// EnqueueDelay implements spec.md's scheduler_enqueue_delay: it removes the
// calling thread from its run queue, computes its wake tick, inserts it
// into the sleep queue in wake-tick order, and requests a reschedule.
// Wakeup is implicit, performed by a later Tick.
func (s *Scheduler) EnqueueDelay(t *TCB, ticks uint64) {
	t.TickToWake = s.tick + ticks
	t.Class.dequeue(t, s.bundle)
	s.bundle.Sleep.Insert(t)

	if s.pendSwitch != nil {
		s.pendSwitch()
	}
}

// Block moves t from its run queue to the blocked queue. Waking a blocked
// thread (e.g. on a synchronization primitive) is outside this core's
// scope (spec.md §5); callers re-enqueue via t.Class.Enqueue equivalent
// through Scheduler.Wake.
func (s *Scheduler) Block(t *TCB) {
	cortexm.Critical(func() {
		t.Class.dequeue(t, s.bundle)
		s.bundle.Blocked.PushBack(t)
	})
}

// Wake moves a blocked thread back onto its scheduling class's run queue.
func (s *Scheduler) Wake(t *TCB) {
	cortexm.Critical(func() {
		s.bundle.Blocked.Remove(t)
		t.Class.enqueue(t, s.bundle)
	})
}

// MillisToTicks converts a millisecond duration to a tick count using the
// scheduler's configured tick period, rounding up so that a requested sleep
// never completes early (spec.md §5 "Sleep is always for the full requested
// duration").
func (s *Scheduler) MillisToTicks(ms uint32) uint64 {
	period := s.cfg.TickPeriodMs
	if period == 0 {
		period = 1
	}

	return uint64((ms + period - 1) / period)
}

func init() {
	// quiet by default; an embedding application redirects this the way
	// imx6/usb/setup.go leaves logging to whatever the board wired.
	log.SetFlags(0)
}
