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

func TestWriteCo2IntervalFactorRoundTrip(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x03, 0x02) // featureCo2FactorWrite set
	d := &ee871.Driver{}
	require.True(t, d.Begin(baseConfig(dev)).Success())

	expectWrite(dev, 0x1, ee871.OffsetCo2IntervalFactor, byte(int8(-3)))
	expectPointerBlockRead(dev, ee871.OffsetCo2IntervalFactor, []byte{byte(int8(-3))})

	st := d.WriteCo2IntervalFactor(-3)
	assert.True(t, st.Success(), "WriteCo2IntervalFactor: %v", st)
}

func TestWriteCo2FilterNotSupported(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x03, 0x00) // featureFilterWrite clear
	d := &ee871.Driver{}
	require.True(t, d.Begin(baseConfig(dev)).Success())

	st := d.WriteCo2Filter(5)
	assert.Equal(t, e2.NotSupported, st.Kind)
	assert.Equal(t, 0, dev.Pending())
}

func TestWriteOperatingModeOutOfRangePerformsNoIO(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x03, 0x00)
	d := &ee871.Driver{}
	require.True(t, d.Begin(baseConfig(dev)).Success())

	st := d.WriteOperatingMode(0x04)
	assert.Equal(t, e2.OutOfRange, st.Kind)
	assert.Equal(t, 0, dev.Pending())
}

func TestWriteOperatingModeBitIndependentlyGated(t *testing.T) {
	dev := e2test.NewDevice(t)
	expectSuccessfulBegin(dev, 0xFF, 0x01, 0x00) // only mode bit 0 supported
	d := &ee871.Driver{}
	require.True(t, d.Begin(baseConfig(dev)).Success())

	st := d.WriteOperatingMode(0x02) // bit 1 requested, unsupported
	assert.Equal(t, e2.NotSupported, st.Kind)
	assert.Equal(t, 0, dev.Pending())

	expectWrite(dev, 0x1, ee871.OffsetOperatingMode, 0x01)
	expectPointerBlockRead(dev, ee871.OffsetOperatingMode, []byte{0x01})
	st = d.WriteOperatingMode(0x01) // bit 0 requested, supported
	assert.True(t, st.Success(), "WriteOperatingMode: %v", st)
}
