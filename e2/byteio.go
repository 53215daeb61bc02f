// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package e2

// WriteByte sends b MSB first and observes the slave's ACK/NACK on the 9th
// clock. All 9 clock periods share one elapsed-µs budget, so a slave that
// stretches across several bits of the same byte is still bounded by the
// 35ms-per-byte envelope rather than a fresh 25ms budget per bit.
func (m *Master) WriteByte(b byte) (acked bool, st Status) {
	var budget uint32
	for i := 7; i >= 0; i-- {
		bit := (b>>uint(i))&1 != 0
		if st = m.writeBit(bit, &budget); !st.Success() {
			return false, st
		}
	}
	return m.observeAck(&budget)
}

// ReadByte samples 8 bits MSB first into b, sharing one elapsed-µs budget
// across the byte. It does not generate the trailing ACK/NACK; the frame
// layer does that explicitly since the choice (continue vs. stop) is a
// frame-level decision, not a byte-level one.
func (m *Master) ReadByte() (b byte, st Status) {
	var budget uint32
	for i := 7; i >= 0; i-- {
		bit, s := m.readBit(&budget)
		if !s.Success() {
			return 0, s
		}
		if bit {
			b |= 1 << uint(i)
		}
	}
	return b, Ok()
}
