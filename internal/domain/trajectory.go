package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Direction is the integration direction through time.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// ParseDirection parses "forward" or "backward".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "":
		return Forward, nil
	case "backward":
		return Backward, nil
	default:
		return 0, fmt.Errorf("%w: direction must be forward or backward, got %q", ErrConfig, s)
	}
}

// Sign returns +1 for forward and -1 for backward integration.
func (d Direction) Sign() float64 {
	if d == Backward {
		return -1
	}
	return 1
}

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Release describes where and when a particle starts and how long it drifts.
type Release struct {
	ParticleID string
	Lat        float64
	Lon        float64
	Depth      float64
	Start      time.Time
	Duration   time.Duration
}

// Validate checks the release position and duration.
func (r Release) Validate() error {
	if r.ParticleID == "" {
		return fmt.Errorf("particle id is required")
	}
	// The id names the particle's output file.
	if strings.ContainsAny(r.ParticleID, `/\`) || r.ParticleID == "." || r.ParticleID == ".." {
		return fmt.Errorf("particle id %q is not a valid file name", r.ParticleID)
	}
	if r.Lat < -90 || r.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if r.Lon < -180 || r.Lon > 360 {
		return fmt.Errorf("longitude must be between -180 and 360")
	}
	if r.Start.IsZero() {
		return fmt.Errorf("start time is required")
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

// Record is one recorded particle state.
type Record struct {
	ParticleID string
	Time       time.Time
	Lat        float64
	Lon        float64
	Depth      float64
	U          float64
	V          float64
	W          float64 // Absent in 2-D runs.
	Temp       float64
	Sal        float64
}

// Trajectory is the ordered record set of one particle.
// Err is set when the particle's run stopped early; Records holds what was recorded before.
type Trajectory struct {
	ParticleID string
	Records    []Record
	Err        error
}

// Complete reports whether the particle ran to its end time.
func (t Trajectory) Complete() bool {
	return t.Err == nil
}

// LogValue implements slog.LogValuer.
func (t Trajectory) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("particle", t.ParticleID),
		slog.Int("records", len(t.Records)),
	}
	if n := len(t.Records); n > 0 {
		last := t.Records[n-1]
		attrs = append(attrs,
			slog.Time("last_time", last.Time),
			slog.Float64("last_lat", last.Lat),
			slog.Float64("last_lon", last.Lon),
		)
	}
	if t.Err != nil {
		attrs = append(attrs, slog.String("error", t.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}
