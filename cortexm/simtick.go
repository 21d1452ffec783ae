// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cortexm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SimTick is a software substitute for the hardware SysTick interrupt
// (timer.go, built only under GOOS=tamago), for driving a tick handler such
// as the scheduler's at a steady rate without real silicon; in this
// repository only this package's own tests use it. It paces
// ticks with a rate.Limiter rather than a plain time.Ticker so that callers
// can also burst several ticks at once (Advance) when a test needs to fast
// forward past a sleep without waiting on a wall clock, the same role
// arm.TimerFn plays for the hardware-backed scheduler.
type SimTick struct {
	limiter *rate.Limiter
	fn      func()
	cancel  context.CancelFunc
}

// NewSimTick creates a SimTick that invokes fn at most once per period.
func NewSimTick(period time.Duration, fn func()) *SimTick {
	return &SimTick{
		limiter: rate.NewLimiter(rate.Every(period), 1),
		fn:      fn,
	}
}

// Run starts a goroutine that calls fn once per tick period until Stop is
// called. It is the host-test analogue of cortexm.InstallTickHandler plus a
// live SysTick source.
func (s *SimTick) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		for {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}

			s.fn()
		}
	}()
}

// Stop halts the tick goroutine started by Run.
func (s *SimTick) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Advance synchronously invokes the tick callback n times, ignoring the
// rate limiter. Tests use this to deterministically fast-forward the
// scheduler's tick counter instead of sleeping on a wall clock.
func (s *SimTick) Advance(n int) {
	for i := 0; i < n; i++ {
		s.fn()
	}
}
