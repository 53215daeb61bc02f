// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package e2test is a scripted wire-level fake of an E2 slave, in the idiom
// of periph's conn/i2c/i2ctest Record/Playback: a test supplies the bytes
// it expects to see and the bytes the device should answer with, and the
// fake drives/samples the bus at the bit level so the real bit-line, byte
// and frame layers in e2 run unmodified during the test.
//
// Unlike i2ctest, which intercepts at Bus.Tx (one call per transaction),
// this fake intercepts at the HAL (one call per line edge), because e2's
// lowest layer is line-level, not byte-level.
package e2test

import (
	"testing"

	"github.com/janhavelka/EE871-E2/e2"
)

// Step describes one byte-time (8 data bits + 1 ack bit) of a Transaction.
//
// When MasterWrites is true, the device expects the master to drive Byte
// onto the bus and replies with Ack on the 9th clock (Ack=false sends a
// NACK, used to script refusal scenarios). When MasterWrites is false, the
// device drives Byte itself and records what the master sent back on the
// 9th clock; if WantAck is non-nil, a mismatch is reported as a test
// failure.
type Step struct {
	MasterWrites bool
	Byte         byte
	Ack          bool
	WantAck      *bool

	gotByte byte
}

// Transaction is one scripted START..STOP exchange.
type Transaction struct {
	Steps []Step
}

// Ack and Nack are convenience pointers for Step.WantAck.
var (
	ackTrue  = true
	ackFalse = false
)

// Ack returns a *bool pointing at true, for Step.WantAck.
func Ack() *bool { return &ackTrue }

// Nack returns a *bool pointing at false, for Step.WantAck.
func Nack() *bool { return &ackFalse }

type bitAction struct {
	slaveDrives bool
	bitHigh     bool
	observed    bool
	step        *Step
	bitIndex    int // -1 for the ack bit, else 0..7 (MSB first)
}

// Device is a HAL-backed fake EE871. Queue transactions with Expect, then
// drive e2.Master or ee871.Driver against the HAL returned by HAL.
type Device struct {
	t         *testing.T
	pending   []*Transaction
	actions   []bitAction
	cursor    int
	idle      bool
	sclUp     bool
	mSDAUp    bool // master's commanded SDA level (true = released)
	sSDAUp    bool // slave's commanded SDA level (true = released)
	armed     bool
	DelayedUs uint64 // cumulative microseconds requested via DelayMicros
}

// NewDevice returns an idle Device bound to t for failure reporting.
func NewDevice(t *testing.T) *Device {
	return &Device{t: t, idle: true, sclUp: true, mSDAUp: true, sSDAUp: true}
}

// Expect queues a Transaction to be consumed by the next START..STOP the
// master issues.
func (d *Device) Expect(tx Transaction) {
	d.pending = append(d.pending, &tx)
}

// Pending reports how many scripted transactions have not yet started.
func (d *Device) Pending() int {
	return len(d.pending)
}

// HAL returns the HAL callback set driving this fake device. user is
// ignored; the Device itself holds all state.
func (d *Device) HAL() e2.HAL {
	return e2.HAL{
		SetSCL:      func(level e2.Level, _ interface{}) { d.setSCL(level) },
		SetSDA:      func(level e2.Level, _ interface{}) { d.setSDA(level) },
		ReadSCL:     func(_ interface{}) e2.Level { return boolLevel(d.sclUp) },
		ReadSDA:     func(_ interface{}) e2.Level { return boolLevel(d.currentSDAUp()) },
		DelayMicros: func(us uint32, _ interface{}) { d.DelayedUs += uint64(us) },
	}
}

func boolLevel(up bool) e2.Level {
	if up {
		return e2.Release
	}
	return e2.Low
}

func (d *Device) currentSDAUp() bool {
	return d.mSDAUp && d.sSDAUp
}

func (d *Device) setSCL(level e2.Level) {
	up := level == e2.Release
	if up {
		d.sclUp = true
		if d.idle {
			return
		}
		if d.cursor < len(d.actions) {
			a := &d.actions[d.cursor]
			if a.slaveDrives {
				d.sSDAUp = a.bitHigh
			} else {
				d.sSDAUp = true
			}
			d.armed = true
		}
		return
	}
	// START detection: SDA falls while SCL was released, and we're idle.
	// (Handled in setSDA below; nothing to do here for falling SCL
	// beyond closing out the current bit, if any.)
	d.sclUp = false
	if !d.armed {
		return
	}
	d.armed = false
	a := &d.actions[d.cursor]
	a.observed = d.currentSDAUp()
	d.finishBit(a)
	d.cursor++
	if d.cursor == len(d.actions) {
		// Transaction content fully exchanged; STOP is detected separately
		// on the trailing SDA rise.
	}
}

func (d *Device) finishBit(a *bitAction) {
	if a.slaveDrives {
		// The device drove this bit; nothing more to verify unless the
		// master's own observation (ack/nack) already round-tripped.
		return
	}
	if a.bitIndex == -1 {
		// a.observed true means master released SDA (NACK); WantAck asks
		// "did master ACK", so invert.
		gotAck := !a.observed
		if a.step.WantAck != nil && gotAck != *a.step.WantAck {
			d.t.Errorf("e2test: expected master ack=%v, got %v", *a.step.WantAck, gotAck)
		}
		return
	}
	// Master-driven data bit: reconstruct the byte across all 8 bits and
	// compare once the last one lands.
	if a.observed {
		a.step.gotByte |= 1 << uint(7-a.bitIndex)
	}
	if a.bitIndex == 7 {
		if a.step.gotByte != a.step.Byte {
			d.t.Errorf("e2test: expected master to write 0x%02x, got 0x%02x", a.step.Byte, a.step.gotByte)
		}
	}
}

// setSDA handles the master's SetSDA calls. START (SDA falls while SCL is
// released and the bus is idle) and STOP (SDA rises while SCL is released
// and the current transaction's bits are exhausted) are detected here,
// against the line state as it stood before this call.
func (d *Device) setSDA(level e2.Level) {
	releasing := level == e2.Release
	if d.sclUp {
		if d.idle && !releasing {
			d.mSDAUp = releasing
			d.startTransaction()
			return
		}
		if !d.idle && releasing && d.cursor >= len(d.actions) {
			d.mSDAUp = releasing
			d.endTransaction()
			return
		}
	}
	d.mSDAUp = releasing
}

func (d *Device) startTransaction() {
	if len(d.pending) == 0 {
		d.t.Fatalf("e2test: START seen with no scripted transaction queued")
		return
	}
	tx := d.pending[0]
	d.pending = d.pending[1:]
	d.actions = buildActions(tx)
	d.cursor = 0
	d.idle = false
	d.armed = false
}

func (d *Device) endTransaction() {
	if d.cursor != len(d.actions) {
		d.t.Errorf("e2test: STOP seen after %d/%d bits of the scripted transaction", d.cursor, len(d.actions))
	}
	d.idle = true
}

func buildActions(tx *Transaction) []bitAction {
	actions := make([]bitAction, 0, len(tx.Steps)*9)
	for i := range tx.Steps {
		s := &tx.Steps[i]
		for bit := 0; bit < 8; bit++ {
			high := s.Byte&(1<<uint(7-bit)) != 0
			actions = append(actions, bitAction{
				slaveDrives: !s.MasterWrites,
				bitHigh:     high,
				step:        s,
				bitIndex:    bit,
			})
		}
		ackHigh := !s.Ack // ACK drives low
		actions = append(actions, bitAction{
			slaveDrives: s.MasterWrites,
			bitHigh:     ackHigh,
			step:        s,
			bitIndex:    -1,
		})
	}
	return actions
}
