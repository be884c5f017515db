package domain

import "time"

// unixEpochJD is the Julian date of 1970-01-01T00:00:00Z.
const unixEpochJD = 2440587.5

// JulianDate returns t as a continuous Julian date.
func JulianDate(t time.Time) float64 {
	return float64(t.UnixNano())/float64(24*time.Hour) + unixEpochJD
}

// Bracket is an existing field file on one side of a query time.
type Bracket struct {
	Time time.Time
	Path string
}

// LerpFields interpolates f0 (at t0) and f1 (at t1) linearly in time at t.
// The weights match interpolation in Julian date but are taken from exact
// durations. Times outside [t0, t1] are clamped to the nearer endpoint.
// Absent components stay Absent.
func LerpFields(t, t0 time.Time, f0 Fields, t1 time.Time, f1 Fields) Fields {
	span := t1.Sub(t0)
	if span == 0 {
		return f0
	}
	frac := float64(t.Sub(t0)) / float64(span)
	switch {
	case frac <= 0:
		return f0
	case frac >= 1:
		return f1
	}

	lerp := func(a, b float64) float64 {
		return (1-frac)*a + frac*b
	}
	return Fields{
		U:    lerp(f0.U, f1.U),
		V:    lerp(f0.V, f1.V),
		W:    lerp(f0.W, f1.W),
		Temp: lerp(f0.Temp, f1.Temp),
		Sal:  lerp(f0.Sal, f1.Sal),
	}
}
