// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ee871

import "github.com/janhavelka/EE871-E2/e2"

// ReadCo2Fast reads MV3, the fast-response CO2 measurement, in ppm.
func (d *Driver) ReadCo2Fast() (uint16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (uint16, e2.Status) {
		return d.readU16(nibbleMV3Low, nibbleMV3High)
	})
}

// ReadCo2Average reads MV4, the 11-sample averaged CO2 measurement, in
// ppm.
func (d *Driver) ReadCo2Average() (uint16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (uint16, e2.Status) {
		return d.readU16(nibbleMV4Low, nibbleMV4High)
	})
}

// ReadMeasurementInterval reads the configured measurement interval, in
// deciseconds (0.1s units).
func (d *Driver) ReadMeasurementInterval() (uint16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (uint16, e2.Status) {
		return d.readMeasurementInterval()
	})
}

// WriteMeasurementInterval sets the measurement interval, in deciseconds.
// Valid range is [150, 36000]; out-of-range values perform no bus I/O.
func (d *Driver) WriteMeasurementInterval(deciseconds uint16) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if deciseconds < intervalMin || deciseconds > intervalMax {
			return e2.New(e2.OutOfRange, int32(deciseconds), "measurement interval out of range")
		}
		if d.features.specialFeatures&featureIntervalWrite == 0 {
			return e2.New(e2.NotSupported, 0, "measurement interval write not supported")
		}
		return d.writeMeasurementInterval(deciseconds)
	})
}
