package recall

import "time"

// Clock is injected everywhere "now" matters so tests are deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock delegates to the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Used by tests and by Recall
// callers that pass an explicit options.Now.
type FixedClock struct {
	At time.Time
}

func (f FixedClock) Now() time.Time { return f.At }
