package clock

import "time"

// Clock supplies the current instant. Services read it exactly once per
// operation and derive every time-based value from that single read.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns a Clock backed by the wall clock, normalized to UTC.
func System() Clock {
	return systemClock{}
}

// Fixed returns a Clock pinned to the given instant. Test helper.
type Fixed struct {
	Instant time.Time
}

func (f *Fixed) Now() time.Time {
	return f.Instant.UTC()
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.Instant = f.Instant.Add(d)
}
