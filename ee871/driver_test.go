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

func driverTiming() e2.Timing {
	return e2.Timing{
		ClockLowMicros:    20,
		ClockHighMicros:   20,
		StartHoldMicros:   10,
		StopHoldMicros:    10,
		BitTimeoutMicros:  25000,
		ByteTimeoutMicros: 35000,
	}
}

func baseConfig(dev *e2test.Device) ee871.Config {
	return ee871.Config{
		HAL:              dev.HAL(),
		Timing:           driverTiming(),
		Address:          2,
		OfflineThreshold: 3,
	}
}

// expectSuccessfulBegin scripts the group-identifier read (type-low then type-high)
// that Begin always performs, plus the three feature bytes read from
// pointer 0x07.
func expectSuccessfulBegin(dev *e2test.Device, ops, modeSupport, special byte) {
	readControl := func(nibble, addr byte) byte {
		return e2.ControlByte(nibble, addr, true)
	}
	const addr = 2
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: readControl(0x1, addr), Ack: true},
		{MasterWrites: false, Byte: 0x67, WantAck: e2test.Ack()},
		{MasterWrites: false, Byte: byte((uint16(readControl(0x1, addr)) + 0x67) % 256), WantAck: e2test.Nack()},
	}})
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: readControl(0x4, addr), Ack: true},
		{MasterWrites: false, Byte: 0x03, WantAck: e2test.Ack()},
		{MasterWrites: false, Byte: byte((uint16(readControl(0x4, addr)) + 0x03) % 256), WantAck: e2test.Nack()},
	}})
	// Pointer set to 0x07.
	pointerSetControl := e2.ControlByte(0x5, addr, false)
	pecSet := byte((uint16(pointerSetControl) + 0x00 + 0x07) % 256)
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: pointerSetControl, Ack: true},
		{MasterWrites: true, Byte: 0x00, Ack: true},
		{MasterWrites: true, Byte: 0x07, Ack: true},
		{MasterWrites: true, Byte: pecSet, Ack: true},
	}})
	pointerReadControl := e2.ControlByte(0x5, addr, true)
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: pointerReadControl, Ack: true},
		{MasterWrites: false, Byte: ops, WantAck: e2test.Ack()},
		{MasterWrites: false, Byte: byte((uint16(pointerReadControl) + uint16(ops)) % 256), WantAck: e2test.Nack()},
	}})
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: pointerReadControl, Ack: true},
		{MasterWrites: false, Byte: modeSupport, WantAck: e2test.Ack()},
		{MasterWrites: false, Byte: byte((uint16(pointerReadControl) + uint16(modeSupport)) % 256), WantAck: e2test.Nack()},
	}})
	dev.Expect(e2test.Transaction{Steps: []e2test.Step{
		{MasterWrites: true, Byte: pointerReadControl, Ack: true},
		{MasterWrites: false, Byte: special, WantAck: e2test.Ack()},
		{MasterWrites: false, Byte: byte((uint16(pointerReadControl) + uint16(special)) % 256), WantAck: e2test.Nack()},
	}})
}

func TestBeginRejectsIncompleteConfig(t *testing.T) {
	var d ee871.Driver
	st := d.Begin(ee871.Config{})
	assert.Equal(t, e2.InvalidConfig, st.Kind)
	assert.False(t, d.IsOnline())
}

func TestBeginSuccessCachesFeatures(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x03, 0x01)
	var d ee871.Driver
	st := d.Begin(baseConfig(dev))
	require.True(t, st.Success(), "Begin: %v", st)
	assert.Equal(t, ee871.Ready, d.Health().State)
	assert.True(t, d.IsOnline())
	assert.Equal(t, 0, dev.Pending())
}

func TestBeginTwiceFails(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x03, 0x01)
	var d ee871.Driver
	require.True(t, d.Begin(baseConfig(dev)).Success())
	st := d.Begin(baseConfig(dev))
	assert.Equal(t, e2.AlreadyInitialized, st.Kind)
}

func TestEndReturnsToUninitAndBlocksOperations(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x03, 0x01)
	var d ee871.Driver
	require.True(t, d.Begin(baseConfig(dev)).Success())
	require.True(t, d.End().Success())
	assert.Equal(t, ee871.Uninit, d.Health().State)
	_, st := d.ReadCo2Fast()
	assert.Equal(t, e2.NotInitialized, st.Kind)
}

func TestOperationBeforeBeginIsNotInitialized(t *testing.T) {
	var d ee871.Driver
	_, st := d.ReadCo2Fast()
	assert.Equal(t, e2.NotInitialized, st.Kind)
}
