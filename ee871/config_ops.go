// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ee871

import "github.com/janhavelka/EE871-E2/e2"

// ReadCo2IntervalFactor reads the signed CO2 interval factor.
func (d *Driver) ReadCo2IntervalFactor() (int8, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (int8, e2.Status) {
		b, st := d.readCustomByte(OffsetCo2IntervalFactor)
		if !st.Success() {
			return 0, st
		}
		return int8(b), e2.Ok()
	})
}

// WriteCo2IntervalFactor writes the signed CO2 interval factor, gated on
// the cached special-features bit.
func (d *Driver) WriteCo2IntervalFactor(factor int8) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if d.features.specialFeatures&featureCo2FactorWrite == 0 {
			return e2.New(e2.NotSupported, 0, "CO2 interval factor write not supported")
		}
		return d.writeCustomByte(OffsetCo2IntervalFactor, byte(factor))
	})
}

// ReadCo2Filter reads the raw CO2 filter register.
func (d *Driver) ReadCo2Filter() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readCustomByte(OffsetFilter)
	})
}

// WriteCo2Filter writes the raw CO2 filter register, gated on the cached
// special-features bit.
func (d *Driver) WriteCo2Filter(value byte) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if d.features.specialFeatures&featureFilterWrite == 0 {
			return e2.New(e2.NotSupported, 0, "CO2 filter write not supported")
		}
		return d.writeCustomByte(OffsetFilter, value)
	})
}

// ReadOperatingMode reads the two-bit operating-mode mask.
func (d *Driver) ReadOperatingMode() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readCustomByte(OffsetOperatingMode)
	})
}

// WriteOperatingMode writes the two-bit operating-mode mask. Each bit is
// gated by its own support flag in the cached mode-support byte; any bit
// beyond the two-bit mask is OUT_OF_RANGE.
func (d *Driver) WriteOperatingMode(mask byte) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if mask > 0x03 {
			return e2.New(e2.OutOfRange, int32(mask), "operating mode mask above 2 bits")
		}
		if mask&0x01 != 0 && d.features.modeSupport&featureModeBit0 == 0 {
			return e2.New(e2.NotSupported, 0, "operating mode bit 0 not supported")
		}
		if mask&0x02 != 0 && d.features.modeSupport&featureModeBit1 == 0 {
			return e2.New(e2.NotSupported, 0, "operating mode bit 1 not supported")
		}
		return d.writeCustomByte(OffsetOperatingMode, mask)
	})
}
