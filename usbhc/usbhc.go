// USB host controller contract
// https://github.com/usbarmory/tamago
//
// Copyright (c) The Vanilla Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package usbhc is the external collaborator boundary the USB enumeration
// engine depends on (spec.md §6): pipe allocation and configuration, URB
// submission, root-hub event notification and a start-of-frame hook. A
// register-level host-controller driver is out of scope for this
// repository (spec.md §1), the same way imx6/usb.go's EHCI register
// pushes never appear above the package this interface replaces; package
// usb only ever talks to a HostController.
package usbhc

import "fmt"

// TransferType mirrors the four USB transfer types a pipe can be configured
// for (spec.md §6: "type ∈ {CTRL, BULK, INT, ISO}").
type TransferType int

const (
	Control TransferType = iota
	Bulk
	Interrupt
	Isochronous
)

func (t TransferType) String() string {
	switch t {
	case Control:
		return "control"
	case Bulk:
		return "bulk"
	case Interrupt:
		return "interrupt"
	case Isochronous:
		return "isochronous"
	}

	return fmt.Sprintf("usbhc.TransferType(%d)", int(t))
}

// PipeConfig describes how a logical channel is bound to a device endpoint
// (spec.md §6 and glossary "Pipe"). BankSwitch/Banks surface the
// host-controller's transfer-descriptor double-buffering knobs the way
// imx6/usb_ep.go's queue head configuration does, even though this
// repository never drives real queue heads.
type PipeConfig struct {
	DevAddr       uint8
	EPAddr        uint8
	Type          TransferType
	MaxPacketSize uint16
	Frequency     uint8
	Banks         uint8
	BankSwitch    bool
}

// Pipe is an opaque handle returned by AllocPipe. Its only meaning is as an
// argument to the other HostController methods; the real bit pattern (a
// hardware queue-head index, a ring-buffer slot, ...) is the controller's
// business.
type Pipe int

// Status reports the outcome of a completed URB transfer.
type Status int

const (
	StatusOK Status = iota
	StatusError
	StatusStalled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStalled:
		return "stalled"
	default:
		return "error"
	}
}

// URB is a USB Request Block (glossary): a single unit of transfer work.
// Ownership transfers to the controller for the duration of SubmitURB and
// back to the caller once Complete has been invoked (spec.md §3).
type URB struct {
	// Setup is the 8-byte setup packet for a control transfer; nil for
	// non-control pipes.
	Setup []byte

	// Data is the transfer buffer: written by the controller for an IN
	// transfer, read from for an OUT transfer.
	Data []byte

	Status       Status
	ActualLength int

	// Complete is invoked by the controller once the transfer finishes.
	// The enumeration engine re-submits its next URB from within this
	// callback (spec.md §9 design note on callback re-entry).
	Complete func(u *URB)

	// Context carries caller state through to Complete without a
	// separate side table.
	Context interface{}
}

// RootHubEvent enumerates the root-hub notifications spec.md §6 lists.
type RootHubEvent int

const (
	Connection RootHubEvent = iota
	Disconnection
	ResetSent
)

func (e RootHubEvent) String() string {
	switch e {
	case Connection:
		return "connection"
	case Disconnection:
		return "disconnection"
	case ResetSent:
		return "reset-sent"
	}

	return fmt.Sprintf("usbhc.RootHubEvent(%d)", int(e))
}

// HostController is the interface package usb consumes (spec.md §6). A real
// implementation drives a specific SoC's EHCI/OHCI register set; this
// repository carries none, in the same way it carries no register-level
// GPIO driver, and instead is exercised in tests against usbhc/simhc.
type HostController interface {
	// AllocPipe reserves a new logical channel for the given
	// configuration, returning a handle for use in the other methods.
	AllocPipe(cfg PipeConfig) (Pipe, error)

	// ConfigurePipe reprograms an already-allocated pipe, used when the
	// device's address or EP0 max packet size changes mid-enumeration.
	ConfigurePipe(p Pipe, cfg PipeConfig) error

	// SubmitURB queues u for transfer over p. u.Complete is invoked,
	// synchronously or asynchronously depending on the controller, once
	// the transfer finishes.
	SubmitURB(p Pipe, u *URB) error

	// OnRootHubEvent registers the callback invoked when the root hub
	// reports a device connecting, disconnecting, or finishing a bus
	// reset.
	OnRootHubEvent(fn func(RootHubEvent))

	// OnStartOfFrame registers a callback invoked once per USB frame.
	// The enumeration engine does not use it; it exists because
	// spec.md §6 lists it as part of the contract and a periodic
	// isochronous-class driver would need it.
	OnStartOfFrame(fn func())
}
