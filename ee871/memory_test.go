// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ee871_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhavelka/EE871-E2/e2"
	"github.com/janhavelka/EE871-E2/ee871"
	"github.com/janhavelka/EE871-E2/ee871/e2test"
)

func expectWrite(dev *e2test.Device, nibble, addr, data byte) {
	control := e2.ControlByte(nibble, 2, false)
	pec := byte((uint16(control) + uint16(addr) + uint16(data)) % 256)
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: control, Ack: true},
		{MasterWrites: true, Byte: addr, Ack: true},
		{MasterWrites: true, Byte: data, Ack: true},
		{MasterWrites: true, Byte: pec, Ack: true},
	}})
}

// expectPointerRead scripts one pointer-based read transaction. Each byte of
// a block read is its own transaction, so the master always NACKs the PEC.
func expectPointerRead(dev *e2test.Device, data byte) {
	control := e2.ControlByte(0x5, 2, true)
	pec := byte((uint16(control) + uint16(data)) % 256)
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: control, Ack: true},
		{MasterWrites: false, Byte: data, WantAck: e2test.Ack()},
		{MasterWrites: false, Byte: pec, WantAck: e2test.Nack()},
	}})
}

func TestWriteMeasurementIntervalRoundTrip(t *testing.T) {
	dev := e2test.NewDevice(t)
	// Feature cache must have the interval-write bit set.
	expectSuccessfulBegin(dev, 0xFF, 0x03, ee871FeatureIntervalWriteBit())
	d := &ee871.Driver{}
	require.True(t, d.Begin(baseConfig(dev)).Success())

	const value = uint16(200)
	expectWrite(dev, 0x1, ee871.OffsetIntervalLow, byte(value))
	expectWrite(dev, 0x1, ee871.OffsetIntervalHigh, byte(value>>8))
	// verify read-back of both bytes via pointer set + two pointer reads.
	expectPointerSet(dev, ee871.OffsetIntervalLow)
	expectPointerRead(dev, byte(value))
	expectPointerRead(dev, byte(value>>8))

	st := d.WriteMeasurementInterval(value)
	require.True(t, st.Success(), "WriteMeasurementInterval: %v", st)

	expectPointerSet(dev, ee871.OffsetIntervalLow)
	expectPointerRead(dev, byte(value))
	expectPointerRead(dev, byte(value>>8))
	got, st := d.ReadMeasurementInterval()
	require.True(t, st.Success())
	assert.Equal(t, value, got)
}

func TestWriteMeasurementIntervalOutOfRangePerformsNoIO(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x03, 0x01)
	d := &ee871.Driver{}
	require.True(t, d.Begin(baseConfig(dev)).Success())

	// No transaction is scripted past Begin; if the out-of-range write
	// touched the bus at all, e2test.Device.startTransaction would call
	// t.Fatalf for an unscripted START.
	st := d.WriteMeasurementInterval(149)
	assert.Equal(t, e2.OutOfRange, st.Kind)
}

func expectPointerSet(dev *e2test.Device, addr byte) {
	control := e2.ControlByte(0x5, 2, false)
	pec := byte((uint16(control) + 0x00 + uint16(addr)) % 256)
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: control, Ack: true},
		{MasterWrites: true, Byte: 0x00, Ack: true},
		{MasterWrites: true, Byte: addr, Ack: true},
		{MasterWrites: true, Byte: pec, Ack: true},
	}})
}

// ee871FeatureIntervalWriteBit mirrors the unexported bit this driver
// assigns to the measurement-interval write gate (see memory.go), kept
// local to the test package since the bit layout is an implementation
// choice, not a wire constant.
func ee871FeatureIntervalWriteBit() byte {
	return 0x01
}
