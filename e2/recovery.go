// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package e2

// Bits of a BusStuck status's Detail, indicating which line(s) were found
// low.
const (
	stuckSDA = 1 << iota
	stuckSCL
)

// CheckBusIdle reports OK iff both SCL and SDA sample high (released). It
// never drives a line and never changes any state.
func (m *Master) CheckBusIdle() Status {
	detail := int32(0)
	if m.hal.ReadSDA(m.user) == Low {
		detail |= stuckSDA
	}
	if m.hal.ReadSCL(m.user) == Low {
		detail |= stuckSCL
	}
	if detail != 0 {
		return New(BusStuck, detail, "bus line held low at idle check")
	}
	return Ok()
}

// Recover runs the nine-clock rescue sequence followed by a clean STOP, to
// free a slave that is holding SDA low (e.g. mid-byte after a master reset).
// It releases SDA, pulses SCL nine times waiting for it to actually rise
// each time (bounded by the per-bit timeout), reasserts STOP, then samples
// both lines; either remaining low is reported as BusStuck.
func (m *Master) Recover() Status {
	m.hal.SetSDA(Release, m.user)
	for i := 0; i < 9; i++ {
		m.hal.SetSCL(Low, m.user)
		m.hal.DelayMicros(m.timing.ClockLowMicros, m.user)
		m.hal.SetSCL(Release, m.user)
		if st := m.stretchWait(nil); !st.Success() {
			return st
		}
		m.hal.DelayMicros(m.timing.ClockHighMicros, m.user)
	}
	m.hal.SetSCL(Low, m.user)
	m.hal.DelayMicros(m.timing.ClockLowMicros, m.user)
	m.hal.SetSDA(Low, m.user)
	m.hal.DelayMicros(dataSetupMicros, m.user)
	m.hal.SetSCL(Release, m.user)
	if st := m.stretchWait(nil); !st.Success() {
		return st
	}
	m.hal.DelayMicros(m.timing.StopHoldMicros, m.user)
	m.hal.SetSDA(Release, m.user)
	m.hal.DelayMicros(m.timing.StopHoldMicros, m.user)
	return m.CheckBusIdle()
}
