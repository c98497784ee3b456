package chrono

import "time"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return time.Now()
}

// FixedTime always returns the same instant, advanced by Step after every call.
type FixedTime struct {
	Current time.Time
	Step    time.Duration
}

func (f *FixedTime) Now() time.Time {
	now := f.Current
	f.Current = f.Current.Add(f.Step)
	return now
}
