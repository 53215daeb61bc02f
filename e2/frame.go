// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package e2

// ControlByte packs a main command nibble, a 3-bit device address, and the
// read/write direction into the wire's control byte layout: bits 7..4 are
// the command, bits 3..1 the address, bit 0 is 1 for read and 0 for write.
func ControlByte(mainNibble uint8, addr uint8, read bool) byte {
	b := (mainNibble&0x0F)<<4 | (addr&0x07)<<1
	if read {
		b |= 1
	}
	return b
}

// Index of the byte refused within a write transaction, used as the NACK
// status's Detail so callers can tell which of the four bytes was rejected.
const (
	refusedControl = iota
	refusedAddress
	refusedData
	refusedPEC
)

// ReadTransaction performs a full E2 read: START, control byte, a single
// data byte (ACKed by the master), the PEC byte (NACKed by the master to
// end the transfer), STOP. It verifies the PEC before returning success.
func (m *Master) ReadTransaction(control byte) (byte, Status) {
	if st := m.Start(); !st.Success() {
		return 0, st
	}
	acked, st := m.WriteByte(control)
	if !st.Success() {
		m.Stop()
		return 0, st
	}
	if !acked {
		m.Stop()
		return 0, New(NACK, refusedControl, "control byte not acknowledged")
	}
	data, st := m.ReadByte()
	if !st.Success() {
		m.Stop()
		return 0, st
	}
	if st := m.SendAck(true); !st.Success() {
		m.Stop()
		return 0, st
	}
	pec, st := m.ReadByte()
	if !st.Success() {
		m.Stop()
		return 0, st
	}
	if st := m.SendAck(false); !st.Success() {
		m.Stop()
		return 0, st
	}
	if st := m.Stop(); !st.Success() {
		return 0, st
	}
	if expected := byte((uint16(control) + uint16(data)) % 256); pec != expected {
		return 0, New(PECMismatch, int32(pec), "received PEC does not match computed PEC")
	}
	return data, Ok()
}

// WriteTransaction performs a full E2 write: START, control/address/data/PEC
// bytes each ACKed by the slave, STOP. Any NACK aborts with a best-effort
// STOP and reports which byte was refused.
func (m *Master) WriteTransaction(control, address, data byte) Status {
	pec := byte((uint16(control) + uint16(address) + uint16(data)) % 256)
	if st := m.Start(); !st.Success() {
		return st
	}
	steps := [4]byte{control, address, data, pec}
	for i, b := range steps {
		acked, st := m.WriteByte(b)
		if !st.Success() {
			m.Stop()
			return st
		}
		if !acked {
			m.Stop()
			return New(NACK, int32(i), "byte not acknowledged")
		}
	}
	return m.Stop()
}
