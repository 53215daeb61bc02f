// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package e2 implements a bit-banged master for the E+E E2 two-wire
// synchronous protocol: open-drain START/STOP framing, byte shifting with
// ACK/NACK, and the frame layer (control byte, address, data, PEC) used by
// E+E sensors such as the EE871 CO2 probe.
//
// The bus is driven entirely through caller-supplied callbacks (see HAL);
// e2 never names a concrete pin driver, never allocates in steady state,
// and never touches a wall clock other than through the delay callback.
package e2

// Level is the logical level of an open-drain line, using the bus's own
// vocabulary rather than a generic true/false: Release lets the pull-up
// raise the line; Low actively pulls it down. Modelled after the
// release/drive distinction conn/gpio's Level/Pull pair makes for a
// physical pin, but collapsed to the two states this bus ever commands.
type Level bool

// The two levels a master ever commands on an open-drain E2 line.
const (
	Low     Level = false
	Release Level = true
)

func (l Level) String() string {
	if l == Release {
		return "Release"
	}
	return "Low"
}

// HAL is the pin/timing contract the caller supplies. All five members are
// mandatory; Begin rejects a Config missing any of them. None of them may
// return an error: the HAL is infallible from this package's perspective,
// matching spec.md §6 ("All are infallible from the core's perspective").
//
// User is an opaque value threaded through every callback; e2 never
// dereferences or inspects it.
type HAL struct {
	// SetSCL drives the clock line: Low pulls it down, Release lets the
	// pull-up (or a stretching slave) raise it.
	SetSCL func(level Level, user interface{})
	// SetSDA drives the data line, same convention as SetSCL.
	SetSDA func(level Level, user interface{})
	// ReadSCL samples the current clock line level.
	ReadSCL func(user interface{}) Level
	// ReadSDA samples the current data line level.
	ReadSDA func(user interface{}) Level
	// DelayMicros blocks for at least the given number of microseconds. It
	// may block longer (e.g. in an RTOS scheduler); it must never return
	// early.
	DelayMicros func(us uint32, user interface{})
}

// complete reports whether every callback is set.
func (h HAL) complete() bool {
	return h.SetSCL != nil && h.SetSDA != nil && h.ReadSCL != nil && h.ReadSDA != nil && h.DelayMicros != nil
}

// Timing holds the µs/ms timing knobs of spec.md §3. All are validated by
// Master.Validate before the bus is ever touched.
type Timing struct {
	// ClockLowMicros and ClockHighMicros are the minimum widths the master
	// holds SCL low / high, in microseconds. Must be >= 100.
	ClockLowMicros  uint32
	ClockHighMicros uint32
	// StartHoldMicros and StopHoldMicros are the minimum START/STOP hold
	// widths, in microseconds. Must be >= 4.
	StartHoldMicros uint32
	StopHoldMicros  uint32
	// BitTimeoutMicros is the per-bit clock-stretch budget. Must be non-zero
	// and <= 25000 (spec maximum for slave clock stretching).
	BitTimeoutMicros uint32
	// ByteTimeoutMicros is the per-byte clock-stretch budget, enforced
	// across all 9 clock periods of a byte. Must be non-zero, >=
	// BitTimeoutMicros, and <= 35000.
	ByteTimeoutMicros uint32
}

// dataSetupMicros is the data-setup time before releasing SCL on every bit,
// a timing floor embedded in the device's wire protocol (spec.md §6) and,
// per spec.md's open questions, deliberately not exposed in Config.
const dataSetupMicros = 10

// stretchPollMicros is the polling step while waiting for a stretched SCL
// to rise.
const stretchPollMicros = 5

// maxBitTimeoutMicros and maxByteTimeoutMicros are the spec maxima for
// slave clock stretching (spec.md §5, §6).
const (
	maxBitTimeoutMicros  = 25000
	maxByteTimeoutMicros = 35000
)

// minClockMicros and minHoldMicros are the timing floors of spec.md §6.
const (
	minClockMicros = 100
	minHoldMicros  = 4
)
