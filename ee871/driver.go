// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ee871 is a managed, synchronous device driver for the E+E EE871
// CO2 probe, built on top of the bit-banged E2 master in package e2. It
// adds the custom-memory protocol, typed device operations, a four-state
// health machine, and config validation / lifecycle on top of the raw bus.
package ee871

import (
	"fmt"

	"github.com/janhavelka/EE871-E2/e2"
)

// Config is the immutable-after-Begin configuration of a Driver. It embeds
// the HAL and bus timing the underlying e2.Master needs, plus the device-
// and driver-level knobs spec.md §3 names.
type Config struct {
	HAL    e2.HAL
	User   interface{}
	Timing e2.Timing

	// Address is the device's 3-bit bus address, 0..7.
	Address uint8

	// SingleByteCommitDelayMs is how long to wait after a direct custom-
	// byte write before reading it back for verification. Zero selects the
	// spec default (150 ms). Must not exceed 5000 ms.
	SingleByteCommitDelayMs uint32

	// IntervalCommitDelayMs is the analogous wait after writing the
	// measurement-interval byte pair. Zero selects the spec default
	// (300 ms). Must not exceed 5000 ms.
	IntervalCommitDelayMs uint32

	// OfflineThreshold is the consecutive-failure count at which the
	// driver transitions from DEGRADED to OFFLINE. Must be at least 1.
	OfflineThreshold uint32
}

func (c Config) effective() Config {
	if c.SingleByteCommitDelayMs == 0 {
		c.SingleByteCommitDelayMs = singleByteCommitDefault
	}
	if c.IntervalCommitDelayMs == 0 {
		c.IntervalCommitDelayMs = intervalCommitDefault
	}
	return c
}

// Validate checks Config in isolation, without touching the bus, per
// spec.md §4.8. It is also run internally by Begin.
func (c Config) Validate() e2.Status {
	if c.Address > 7 {
		return e2.New(e2.InvalidConfig, int32(c.Address), "device address above 7")
	}
	eff := c.effective()
	if eff.SingleByteCommitDelayMs > 5000 {
		return e2.New(e2.InvalidConfig, int32(eff.SingleByteCommitDelayMs), "single-byte commit delay above 5000ms")
	}
	if eff.IntervalCommitDelayMs > 5000 {
		return e2.New(e2.InvalidConfig, int32(eff.IntervalCommitDelayMs), "interval commit delay above 5000ms")
	}
	if eff.OfflineThreshold == 0 {
		return e2.New(e2.InvalidConfig, 0, "offline threshold must be at least 1")
	}
	master := e2.NewMaster(eff.HAL, eff.User, eff.Timing)
	return master.Validate()
}

// Driver is a handle to a managed EE871 probe. The zero value is a valid,
// uninitialised Driver; call Begin before using it.
type Driver struct {
	cfg         Config
	master      *e2.Master
	initialized bool
	nowTick     uint32
	health      health
	features    featureCache
}

// String reports a short human-readable identity, matching the teacher's
// Dev.String() convention.
func (d *Driver) String() string {
	return fmt.Sprintf("ee871(addr=%d, state=%s)", d.cfg.Address, d.health.state)
}

func (d *Driver) requireInitialized() e2.Status {
	if !d.initialized {
		return e2.New(e2.NotInitialized, 0, "driver not initialised")
	}
	return e2.Ok()
}

// Begin validates cfg, snapshots it, performs rescue-if-needed, probes the
// device's group identifier, and best-effort caches the three feature
// bytes, per spec.md §4.8. It rejects a second Begin without an
// intervening End.
func (d *Driver) Begin(cfg Config) e2.Status {
	if d.initialized {
		return e2.New(e2.AlreadyInitialized, 0, "driver already initialised")
	}
	if st := cfg.Validate(); !st.Success() {
		return st
	}
	cfg = cfg.effective()
	d.cfg = cfg
	d.master = e2.NewMaster(cfg.HAL, cfg.User, cfg.Timing)
	d.health = health{}
	d.features = featureCache{}
	d.nowTick = 0

	if st := d.master.CheckBusIdle(); !st.Success() {
		if st := d.master.Recover(); !st.Success() {
			return st
		}
	}

	if st := d.probeRaw(); !st.Success() {
		return st
	}

	// Best-effort feature-byte cache; failure leaves all feature bits
	// clear, which simply makes feature-gated operations NOT_SUPPORTED.
	var feat [3]byte
	if st := d.readCustomBlock(OffsetOperatingFunctions, feat[:]); st.Success() {
		d.features.operatingFunctions = feat[0]
		d.features.modeSupport = feat[1]
		d.features.specialFeatures = feat[2]
	}

	d.initialized = true
	d.health.state = Ready
	return e2.Ok()
}

// Tick records the caller's monotonic-millisecond clock for the next
// health update; it never touches the bus.
func (d *Driver) Tick(nowMs uint32) {
	d.nowTick = nowMs
}

// End unconditionally returns the driver to UNINIT. Lifetime counters are
// not erased by End; a subsequent Begin resets them (spec.md §9).
func (d *Driver) End() e2.Status {
	d.initialized = false
	d.health.state = Uninit
	return e2.Ok()
}

// Health returns a point-in-time snapshot of the driver's health
// bookkeeping.
func (d *Driver) Health() HealthSnapshot {
	return d.health.snapshot()
}

// IsOnline reports whether the driver state permits treating the device as
// reachable (READY or DEGRADED).
func (d *Driver) IsOnline() bool {
	return d.health.isOnline()
}
