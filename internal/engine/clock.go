package engine

import "time"

// Clock supplies the monotonic microsecond timestamp TimedPlayer's Tick
// uses to compute elapsed play-time. Abstracted so tests can drive the
// scheduler with a synthetic clock advancing in exact, reproducible
// increments (spec §8's round-trip law for tick-to-sample conversion).
type Clock interface {
	NowMicros() uint64
}

// WallClock is the production Clock, backed by time.Now().
type WallClock struct{ start time.Time }

// NewWallClock returns a WallClock anchored at the current instant.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (w *WallClock) NowMicros() uint64 {
	return uint64(time.Since(w.start).Microseconds())
}

// FakeClock is a manually advanced Clock for deterministic tests.
type FakeClock struct {
	now uint64
}

// NewFakeClock starts a FakeClock at microsecond 0.
func NewFakeClock() *FakeClock { return &FakeClock{} }

func (f *FakeClock) NowMicros() uint64 { return f.now }

// Advance moves the clock forward by deltaUs microseconds.
func (f *FakeClock) Advance(deltaUs uint64) { f.now += deltaUs }

// Set pins the clock to an absolute microsecond value, used to force the
// rollover boundary test in spec §8 ("force now_us = start_time_us - 1").
func (f *FakeClock) Set(us uint64) { f.now = us }
