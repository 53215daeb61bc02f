// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package e2

// Master drives the E2 bus through a HAL. It owns no heap state beyond the
// callback set, the opaque user pointer, and the timing configuration; all
// transaction buffers are supplied by the caller (see ee871 for the device
// layer built on top).
//
// A Master is not safe for concurrent use: the bus is exclusive per
// instance and callers must serialize access externally (spec.md §5).
type Master struct {
	hal    HAL
	user   interface{}
	timing Timing
}

// NewMaster returns a Master bound to hal and timing. It does not validate
// its arguments; call Validate before driving the bus.
func NewMaster(hal HAL, user interface{}, timing Timing) *Master {
	return &Master{hal: hal, user: user, timing: timing}
}

// SleepMillis blocks for at least ms milliseconds via the HAL's
// microsecond-delay callback, for flash-commit waits that live above the
// bit-line layer (spec.md §4.4).
func (m *Master) SleepMillis(ms uint32) {
	m.hal.DelayMicros(ms*1000, m.user)
}

// Validate checks HAL completeness and the timing floors of spec.md §3/§6.
// It never touches the bus.
func (m *Master) Validate() Status {
	if !m.hal.complete() {
		return New(InvalidConfig, 0, "HAL callback missing")
	}
	t := m.timing
	if t.ClockLowMicros < minClockMicros || t.ClockHighMicros < minClockMicros {
		return New(InvalidConfig, int32(t.ClockLowMicros), "clock width below minimum")
	}
	if t.StartHoldMicros < minHoldMicros || t.StopHoldMicros < minHoldMicros {
		return New(InvalidConfig, int32(t.StartHoldMicros), "start/stop hold below minimum")
	}
	if t.BitTimeoutMicros == 0 || t.ByteTimeoutMicros == 0 {
		return New(InvalidConfig, 0, "stretch timeout must be non-zero")
	}
	if t.ByteTimeoutMicros < t.BitTimeoutMicros {
		return New(InvalidConfig, int32(t.ByteTimeoutMicros), "byte timeout below bit timeout")
	}
	if t.BitTimeoutMicros > maxBitTimeoutMicros || t.ByteTimeoutMicros > maxByteTimeoutMicros {
		return New(InvalidConfig, int32(t.ByteTimeoutMicros), "stretch timeout above spec maximum")
	}
	return Ok()
}

// stretchWait polls SCL until it reads high, at stretchPollMicros steps,
// failing with Timeout if the per-bit deadline is exceeded or, when budget
// is non-nil, if the cumulative per-byte deadline would be exceeded at any
// poll. budget is shared across the bit-line calls that make up a single
// byte transfer (spec.md §4.1/§4.2); pass nil for operations (START, STOP,
// standalone ACK/NACK, bus rescue) that are not part of a byte transfer.
func (m *Master) stretchWait(budget *uint32) Status {
	var local uint32
	for {
		if m.hal.ReadSCL(m.user) != Low {
			return Ok()
		}
		m.hal.DelayMicros(stretchPollMicros, m.user)
		local += stretchPollMicros
		if budget != nil {
			*budget += stretchPollMicros
		}
		if local > m.timing.BitTimeoutMicros {
			return New(Timeout, int32(local), "clock stretch exceeded per-bit budget")
		}
		if budget != nil && *budget > m.timing.ByteTimeoutMicros {
			return New(Timeout, int32(*budget), "clock stretch exceeded per-byte budget")
		}
	}
}

// Start issues a START condition. Entry state is unconstrained (both lines
// are released first); exit leaves SDA and SCL low.
func (m *Master) Start() Status {
	m.hal.SetSDA(Release, m.user)
	m.hal.SetSCL(Release, m.user)
	if st := m.stretchWait(nil); !st.Success() {
		return st
	}
	m.hal.DelayMicros(m.timing.StartHoldMicros, m.user)
	m.hal.SetSDA(Low, m.user)
	m.hal.DelayMicros(m.timing.StartHoldMicros, m.user)
	m.hal.SetSCL(Low, m.user)
	m.hal.DelayMicros(m.timing.ClockLowMicros, m.user)
	return Ok()
}

// Stop issues a STOP condition. It expects SCL low at entry and leaves both
// lines released.
func (m *Master) Stop() Status {
	m.hal.SetSDA(Low, m.user)
	m.hal.DelayMicros(dataSetupMicros, m.user)
	m.hal.SetSCL(Release, m.user)
	if st := m.stretchWait(nil); !st.Success() {
		return st
	}
	m.hal.DelayMicros(m.timing.StopHoldMicros, m.user)
	m.hal.SetSDA(Release, m.user)
	m.hal.DelayMicros(m.timing.StopHoldMicros, m.user)
	return Ok()
}

// writeBit drives one bit on SDA. It expects SCL low at entry and leaves it
// low at exit.
func (m *Master) writeBit(bit bool, budget *uint32) Status {
	level := Low
	if bit {
		level = Release
	}
	m.hal.SetSDA(level, m.user)
	m.hal.DelayMicros(dataSetupMicros, m.user)
	m.hal.SetSCL(Release, m.user)
	if st := m.stretchWait(budget); !st.Success() {
		return st
	}
	m.hal.DelayMicros(m.timing.ClockHighMicros, m.user)
	m.hal.SetSCL(Low, m.user)
	m.hal.DelayMicros(m.timing.ClockLowMicros, m.user)
	return Ok()
}

// readBit samples one bit from SDA, releasing it so the slave may drive it.
// It expects SCL low at entry and leaves it low at exit.
func (m *Master) readBit(budget *uint32) (bool, Status) {
	m.hal.SetSDA(Release, m.user)
	m.hal.DelayMicros(dataSetupMicros, m.user)
	m.hal.SetSCL(Release, m.user)
	if st := m.stretchWait(budget); !st.Success() {
		return false, st
	}
	half := m.timing.ClockHighMicros / 2
	m.hal.DelayMicros(half, m.user)
	bit := m.hal.ReadSDA(m.user) == Release
	m.hal.DelayMicros(m.timing.ClockHighMicros-half, m.user)
	m.hal.SetSCL(Low, m.user)
	m.hal.DelayMicros(m.timing.ClockLowMicros, m.user)
	return bit, Ok()
}

// SendAck drives the 9th clock of a byte the master has just received: low
// for ACK, released for NACK. It expects SCL low at entry and releases SDA
// at exit, matching spec.md §4.1.
func (m *Master) SendAck(ack bool) Status {
	level := Release
	if ack {
		level = Low
	}
	m.hal.SetSDA(level, m.user)
	m.hal.DelayMicros(dataSetupMicros, m.user)
	m.hal.SetSCL(Release, m.user)
	if st := m.stretchWait(nil); !st.Success() {
		return st
	}
	m.hal.DelayMicros(m.timing.ClockHighMicros, m.user)
	m.hal.SetSCL(Low, m.user)
	m.hal.DelayMicros(m.timing.ClockLowMicros, m.user)
	m.hal.SetSDA(Release, m.user)
	return Ok()
}

// observeAck reads the 9th clock of a byte the master has just sent,
// sharing budget with the 8 data bits that preceded it.
func (m *Master) observeAck(budget *uint32) (bool, Status) {
	bit, st := m.readBit(budget)
	if !st.Success() {
		return false, st
	}
	// ACK is driven low by the slave; readBit reports true for Release.
	return !bit, Ok()
}
