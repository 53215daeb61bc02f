// Copyright 2024 The EE871-E2 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ee871

import "github.com/janhavelka/EE871-E2/e2"

// State is one of the four lifecycle states a Driver occupies.
type State uint8

const (
	Uninit State = iota
	Ready
	Degraded
	Offline
)

var stateNames = [...]string{"UNINIT", "READY", "DEGRADED", "OFFLINE"}

func (s State) String() string {
	if int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// health holds the lifetime counters and last-outcome bookkeeping that the
// tracked-operation wrapper is the sole writer of. It is reset to its zero
// value by Begin, and survives Tick but not a fresh Begin.
type health struct {
	state              State
	lastSuccessTick    uint32
	lastErrorTick      uint32
	lastError          e2.Status
	consecutiveFailure uint32
	totalSuccess       uint64
	totalFailure       uint64
}

func saturateAddU32(v *uint32) {
	if *v != ^uint32(0) {
		*v++
	}
}

func saturateAddU64(v *uint64) {
	if *v != ^uint64(0) {
		*v++
	}
}

// recordSuccess is the only code path, apart from Begin's initial
// transition out of UNINIT, that advances state toward READY. now
// is the driver's current tick, as supplied by the most recent Tick call.
func (h *health) recordSuccess(now uint32) {
	h.lastSuccessTick = now
	h.consecutiveFailure = 0
	saturateAddU64(&h.totalSuccess)
	h.state = Ready
}

// recordFailure is the only code path that advances state toward DEGRADED
// or OFFLINE.
func (h *health) recordFailure(now uint32, st e2.Status, offlineThreshold uint32) {
	h.lastErrorTick = now
	h.lastError = st
	saturateAddU64(&h.totalFailure)
	saturateAddU32(&h.consecutiveFailure)
	if h.consecutiveFailure >= offlineThreshold {
		h.state = Offline
	} else {
		h.state = Degraded
	}
}

// isOnline reports whether the driver state permits a caller to still treat
// the device as reachable, per spec.md §4.6.
func (h *health) isOnline() bool {
	return h.state == Ready || h.state == Degraded
}

// HealthSnapshot is a point-in-time, read-only copy of a Driver's health
// bookkeeping, returned by Driver.Health.
type HealthSnapshot struct {
	State              State
	LastSuccessTick    uint32
	LastErrorTick      uint32
	LastError          e2.Status
	ConsecutiveFailure uint32
	TotalSuccess       uint64
	TotalFailure       uint64
	IsOnline           bool
}

func (h *health) snapshot() HealthSnapshot {
	return HealthSnapshot{
		State:              h.state,
		LastSuccessTick:    h.lastSuccessTick,
		LastErrorTick:      h.lastErrorTick,
		LastError:          h.lastError,
		ConsecutiveFailure: h.consecutiveFailure,
		TotalSuccess:       h.totalSuccess,
		TotalFailure:       h.totalFailure,
		IsOnline:           h.isOnline(),
	}
}

// tracked runs op and feeds its outcome through the single health update
// point (spec.md §4.6). op must not itself mutate d.health.
func (d *Driver) tracked(op func() e2.Status) e2.Status {
	st := op()
	if st.Success() {
		d.health.recordSuccess(d.nowTick)
	} else {
		d.health.recordFailure(d.nowTick, st, d.cfg.OfflineThreshold)
	}
	return st
}

// trackedValue is tracked's counterpart for operations that also produce a
// value, to avoid callers threading a closure-captured variable through
// tracked by hand at every call site.
func trackedValue[T any](d *Driver, op func() (T, e2.Status)) (T, e2.Status) {
	var zero T
	val, st := op()
	if st.Success() {
		d.health.recordSuccess(d.nowTick)
		return val, st
	}
	d.health.recordFailure(d.nowTick, st, d.cfg.OfflineThreshold)
	return zero, st
}
