// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"github.com/f-secure-foundry/vanilla/cortexm"
	"github.com/f-secure-foundry/vanilla/gpio"
	"github.com/f-secure-foundry/vanilla/mm"
	"github.com/f-secure-foundry/vanilla/sched"
)

// Install registers the four current selectors (spec.md §4.C) against their
// kernel-side collaborators. Board bring-up calls this once, after the
// scheduler and GPIO/memory drivers exist but before interrupts are
// enabled, mirroring how the teacher's board packages wire concrete drivers
// behind narrow interfaces at init time.
func Install(g *Gate, s *sched.Scheduler, gp gpio.Toggler, alloc mm.Allocator) {
	g.Register(SelectorSleep, func(f *cortexm.Frame) {
		ms := f.Arg(0)
		s.EnqueueDelay(s.Current(), s.MillisToTicks(ms))
	})

	g.Register(SelectorGPIOToggle, func(f *cortexm.Frame) {
		port := uint8(f.Arg(0))
		pin := uint8(f.Arg(1))
		gp.Toggle(port, pin)
	})

	g.Register(SelectorMemAlloc, func(f *cortexm.Frame) {
		size := f.Arg(0)
		region := mm.Region(f.Arg(1))

		_, addr, err := alloc.Alloc(int(size), region)
		if err != nil {
			f.R0 = 0
			return
		}

		f.R0 = uint32(addr)
	})

	g.Register(SelectorMemFree, func(f *cortexm.Frame) {
		alloc.Free(uint(f.Arg(0)))
	})
}
