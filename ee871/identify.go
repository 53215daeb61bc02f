// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ee871

import "github.com/janhavelka/EE871-E2/e2"

// readU16 reads two main-nibble registers and assembles them low byte
// first, matching every multi-byte sensor value on the wire (spec.md §6).
func (d *Driver) readU16(loNibble, hiNibble uint8) (uint16, e2.Status) {
	lo, st := d.readControlByte(loNibble)
	if !st.Success() {
		return 0, st
	}
	hi, st := d.readControlByte(hiNibble)
	if !st.Success() {
		return 0, st
	}
	return uint16(lo) | uint16(hi)<<8, e2.Ok()
}

// readControlByte is the escape hatch for a raw single-byte read
// transaction addressed by main nibble, for callers that need a register
// this driver does not otherwise name.
func (d *Driver) readControlByte(nibble uint8) (byte, e2.Status) {
	if nibble > 0x0F {
		return 0, e2.New(e2.InvalidParam, int32(nibble), "main nibble above 0x0F")
	}
	control := e2.ControlByte(nibble, d.cfg.Address, true)
	return d.master.ReadTransaction(control)
}

// probeRaw reads the type-low/type-high pair and checks it against the
// EE871 group identifier. It is raw: it never touches health state, used
// both by Begin and by the exported Probe.
func (d *Driver) probeRaw() e2.Status {
	got, st := d.readU16(nibbleTypeLowOrCustomWrite, nibbleTypeHigh)
	if !st.Success() {
		return st
	}
	if got != group {
		return e2.New(e2.DeviceNotFound, int32(got), "group identifier mismatch")
	}
	return e2.Ok()
}

// Probe reads the device's group identifier without updating health state,
// per spec.md §4.5 ("probe" is a raw diagnostic operation).
func (d *Driver) Probe() e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.probeRaw()
}

// ReadGroup is the tracked counterpart of Probe: same wire exchange, routed
// through the health wrapper.
func (d *Driver) ReadGroup() (uint16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (uint16, e2.Status) {
		got, st := d.readU16(nibbleTypeLowOrCustomWrite, nibbleTypeHigh)
		if !st.Success() {
			return 0, st
		}
		if got != group {
			return 0, e2.New(e2.DeviceNotFound, int32(got), "group identifier mismatch")
		}
		return got, e2.Ok()
	})
}

// ReadSubgroup reads and validates the device subgroup identifier.
func (d *Driver) ReadSubgroup() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		got, st := d.readControlByte(nibbleSubgroup)
		if !st.Success() {
			return 0, st
		}
		if got != subgroupValue {
			return 0, e2.New(e2.DeviceNotFound, int32(got), "subgroup identifier mismatch")
		}
		return got, e2.Ok()
	})
}

// Bit 3 of the available-measurements bitfield and of the status bitfield,
// per spec.md §6.
const (
	availableMeasureCo2 = 1 << 3
	statusCo2Error      = 1 << 3
)

// ReadAvailableMeasurements returns the raw available-measurements
// bitfield; bit 3 indicates CO2 support.
func (d *Driver) ReadAvailableMeasurements() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readControlByte(nibbleAvailableMeasure)
	})
}

// ReadStatus returns the raw status bitfield; bit 3 is the latched CO2
// measurement error. Reading status may, per the device, trigger a new
// measurement cycle as a side effect.
func (d *Driver) ReadStatus() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readControlByte(nibbleStatus)
	})
}

// ReadErrorCode reads the custom error-code register, gated on the cached
// operating-functions feature bit.
func (d *Driver) ReadErrorCode() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		if d.features.operatingFunctions&featureErrorCode == 0 {
			return 0, e2.New(e2.NotSupported, 0, "error code register not supported")
		}
		return d.readCustomByte(OffsetErrorCode)
	})
}

// ReadFirmwareVersion reads the two firmware version bytes (main, sub).
func (d *Driver) ReadFirmwareVersion() (main, sub byte, st e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, 0, st
	}
	type pair struct{ main, sub byte }
	p, st := trackedValue(d, func() (pair, e2.Status) {
		m, st := d.readCustomByte(OffsetFirmwareMain)
		if !st.Success() {
			return pair{}, st
		}
		s, st := d.readCustomByte(OffsetFirmwareSub)
		if !st.Success() {
			return pair{}, st
		}
		return pair{m, s}, e2.Ok()
	})
	return p.main, p.sub, st
}

// ReadE2SpecVersion reads the E2 protocol specification version byte.
func (d *Driver) ReadE2SpecVersion() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readCustomByte(OffsetSpecVersion)
	})
}

// ReadOperatingFunctions re-reads the live operating-functions byte (as
// opposed to the cache taken at Begin).
func (d *Driver) ReadOperatingFunctions() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readCustomByte(OffsetOperatingFunctions)
	})
}

// ReadOperatingModeSupport re-reads the live mode-support byte.
func (d *Driver) ReadOperatingModeSupport() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readCustomByte(OffsetModeSupport)
	})
}

// ReadSpecialFeatures re-reads the live special-features byte.
func (d *Driver) ReadSpecialFeatures() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readCustomByte(OffsetSpecialFeatures)
	})
}

// ReadSerialNumber reads the 16-byte serial number into buf, which must
// have length 16.
func (d *Driver) ReadSerialNumber(buf []byte) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if d.features.operatingFunctions&featureSerialNumber == 0 {
			return e2.New(e2.NotSupported, 0, "serial number not supported")
		}
		if len(buf) != 16 {
			return e2.New(e2.InvalidParam, int32(len(buf)), "serial number buffer must be 16 bytes")
		}
		return d.readCustomBlock(OffsetSerialNumber, buf)
	})
}

// ReadPartName reads the 16-byte part name into buf, which must have
// length 16.
func (d *Driver) ReadPartName(buf []byte) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if d.features.operatingFunctions&featurePartName == 0 {
			return e2.New(e2.NotSupported, 0, "part name not supported")
		}
		if len(buf) != 16 {
			return e2.New(e2.InvalidParam, int32(len(buf)), "part name buffer must be 16 bytes")
		}
		return d.readCustomBlock(OffsetPartName, buf)
	})
}

// WritePartName writes name (exactly 16 bytes) as a sequence of verified
// custom-byte writes.
func (d *Driver) WritePartName(name []byte) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if len(name) != 16 {
			return e2.New(e2.InvalidParam, int32(len(name)), "part name must be 16 bytes")
		}
		for i, b := range name {
			if st := d.writeCustomByte(OffsetPartName+byte(i), b); !st.Success() {
				return st
			}
		}
		return e2.Ok()
	})
}

// ReadBusAddress reads the device's configured bus address (0..7).
func (d *Driver) ReadBusAddress() (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readCustomByte(OffsetBusAddress)
	})
}

// WriteBusAddress writes a new bus address (0..7); it only takes effect
// after the device is power-cycled.
func (d *Driver) WriteBusAddress(addr byte) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		if d.features.specialFeatures&featureBusAddressWrite == 0 {
			return e2.New(e2.NotSupported, 0, "bus address write not supported")
		}
		if addr > 7 {
			return e2.New(e2.OutOfRange, int32(addr), "bus address above 7")
		}
		return d.writeCustomByte(OffsetBusAddress, addr)
	})
}

// ReadControlByte is the escape hatch for a raw single-byte read addressed
// by main nibble, tracked through the health wrapper.
func (d *Driver) ReadControlByte(nibble uint8) (byte, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (byte, e2.Status) {
		return d.readControlByte(nibble)
	})
}

// ReadU16 is the escape hatch for a raw two-byte read addressed by a pair
// of main nibbles, tracked through the health wrapper.
func (d *Driver) ReadU16(loNibble, hiNibble uint8) (uint16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	return trackedValue(d, func() (uint16, e2.Status) {
		return d.readU16(loNibble, hiNibble)
	})
}

// SetCustomPointer seats the device's custom-memory pointer, tracked
// through the health wrapper.
func (d *Driver) SetCustomPointer(addr uint16) e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.tracked(func() e2.Status {
		return d.setCustomPointer(addr)
	})
}

// BusReset runs the nine-clock rescue sequence and a clean STOP. It is a
// raw operation: it never updates health state.
func (d *Driver) BusReset() e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.master.Recover()
}

// CheckBusIdle reports OK iff both bus lines sample high; it is raw.
func (d *Driver) CheckBusIdle() e2.Status {
	if st := d.requireInitialized(); !st.Success() {
		return st
	}
	return d.master.CheckBusIdle()
}

// Recover runs BusReset (ignoring its outcome) and then a tracked
// ReadGroup, returning that operation's outcome, per spec.md §4.5/§4.7.
func (d *Driver) Recover() (uint16, e2.Status) {
	if st := d.requireInitialized(); !st.Success() {
		return 0, st
	}
	_ = d.master.Recover()
	return d.ReadGroup()
}
