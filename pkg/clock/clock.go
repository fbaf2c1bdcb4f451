// Package clock abstracts wall-clock time so renewal and billing-period
// logic can be tested deterministically.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the real wall clock.
func System() Clock { return systemClock{} }

// Fixed is a settable clock for tests.
type Fixed struct {
	Time time.Time
}

func (f *Fixed) Now() time.Time { return f.Time }

// Advance moves the fixed clock forward.
func (f *Fixed) Advance(d time.Duration) { f.Time = f.Time.Add(d) }
