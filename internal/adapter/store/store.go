package store

import (
	"context"
	"time"

	"go.ngs.io/drifters/internal/domain"
)

// SampleLoader is the interface for loading model time slices.
type SampleLoader interface {
	// Load reads the sample backed by path and stamps it with time t.
	Load(path string, t time.Time) (*domain.FieldSample, error)
}

// TrajectoryWriter is the interface for persisting finished trajectories.
type TrajectoryWriter interface {
	// Write stores one particle's records. It is safe for concurrent use.
	Write(ctx context.Context, tr domain.Trajectory) error

	Close() error
}
