// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ee871

import "github.com/janhavelka/EE871-E2/e2"

// ReadCo2Offset reads the CO2 offset correction, in ppm, little-endian at
// OffsetCo2Offset/OffsetCo2Offset+1.
func (d *Driver) ReadCo2Offset() (int16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (int16, e2.Status) {
		var buf [2]byte
		if st := d.readCustomBlock(OffsetCo2Offset, buf[:]); !st.Success() {
			return 0, st
		}
		return int16(uint16(buf[0]) | uint16(buf[1])<<8), e2.Ok()
	})
}

// WriteCo2Offset writes the CO2 offset correction, in ppm.
func (d *Driver) WriteCo2Offset(ppm int16) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		v := uint16(ppm)
		if st := d.writeCustomByte(OffsetCo2Offset, byte(v)); !st.Success() {
			return st
		}
		return d.writeCustomByte(OffsetCo2Offset+1, byte(v>>8))
	})
}

// ReadCo2Gain reads the CO2 gain correction. The wire value is the gain
// scaled by 32768 (spec.md §4.5); callers wanting the unscaled factor
// divide by 32768.
func (d *Driver) ReadCo2Gain() (uint16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (uint16, e2.Status) {
		var buf [2]byte
		if st := d.readCustomBlock(OffsetCo2Gain, buf[:]); !st.Success() {
			return 0, st
		}
		return uint16(buf[0]) | uint16(buf[1])<<8, e2.Ok()
	})
}

// WriteCo2Gain writes the raw, already-scaled CO2 gain value.
func (d *Driver) WriteCo2Gain(gain uint16) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if st := d.writeCustomByte(OffsetCo2Gain, byte(gain)); !st.Success() {
			return st
		}
		return d.writeCustomByte(OffsetCo2Gain+1, byte(gain>>8))
	})
}

// Co2CalPoints is the pair of calibration points read by ReadCo2CalPoints.
type Co2CalPoints struct {
	Lower uint16
	Upper uint16
}

// ReadCo2CalPoints reads the four-byte calibration-point block, lower
// point first then upper, each little-endian.
func (d *Driver) ReadCo2CalPoints() (Co2CalPoints, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return Co2CalPoints{}, st
	}
	return trackedValue(d, func() (Co2CalPoints, e2.Status) {
		var buf [4]byte
		if st := d.readCustomBlock(OffsetCo2CalPoints, buf[:]); !st.Success() {
			return Co2CalPoints{}, st
		}
		return Co2CalPoints{
			Lower: uint16(buf[0]) | uint16(buf[1])<<8,
			Upper: uint16(buf[2]) | uint16(buf[3])<<8,
		}, e2.Ok()
	})
}

// ReadAutoAdjustStatus reads bit 0 of the auto-adjust register: true while
// an automatic background adjustment is running.
func (d *Driver) ReadAutoAdjustStatus() (bool, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return false, st
	}
	return trackedValue(d, func() (bool, e2.Status) {
		b, st := d.readCustomByte(OffsetAutoAdjust)
		if !st.Success() {
			return false, st
		}
		return b&0x01 != 0, e2.Ok()
	})
}

// StartAutoAdjust begins an automatic background adjustment. It cannot be
// cancelled once started.
func (d *Driver) StartAutoAdjust() e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if d.features.specialFeatures&featureAutoAdjustStart == 0 {
			return e2.New(e2.NotSupported, 0, "auto-adjust start not supported")
		}
		return d.writeCustomByte(OffsetAutoAdjust, 0x01)
	})
}
