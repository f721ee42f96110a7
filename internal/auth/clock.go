package auth

import "time"

// Clock supplies the current time for expiry computation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads wall-clock time in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// FixedClock always reports t. Useful for deterministic issuance.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
