package usecase

import (
	"context"
	"fmt"
	"time"

	"go.ngs.io/drifters/internal/domain"
)

// Simulator runs releases over a configured model grid.
type Simulator interface {
	Run(ctx context.Context, releases []domain.Release) []domain.Trajectory
	GridInfo() GridInfo
}

// ReleaseRequest is one particle release.
type ReleaseRequest struct {
	ParticleID string    `json:"particle_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Depth      float64   `json:"depth"`
	Start      time.Time `json:"start"`
	Days       float64   `json:"days"`
}

// SimulationRequest encapsulates a trajectory request.
type SimulationRequest struct {
	Releases []ReleaseRequest `json:"releases"`
}

// SimulationResponse contains the trajectories in request order.
type SimulationResponse struct {
	Model        string               `json:"model"`
	Direction    string               `json:"direction"`
	Trajectories []TrajectoryResponse `json:"trajectories"`
}

// TrajectoryResponse is one particle's track.
type TrajectoryResponse struct {
	ParticleID string       `json:"particle_id"`
	Complete   bool         `json:"complete"`
	Error      string       `json:"error,omitempty"`
	Points     []TrackPoint `json:"points"`
}

// TrackPoint is one recorded particle state.
type TrackPoint struct {
	Time  string   `json:"time"`
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Depth float64  `json:"depth"`
	U     *float64 `json:"u"`
	V     *float64 `json:"v"`
	W     *float64 `json:"w,omitempty"`
	Temp  *float64 `json:"temp"`
	Sal   *float64 `json:"sal"`
}

// SimulationUseCase orchestrates trajectory requests.
type SimulationUseCase struct {
	sim          Simulator
	direction    domain.Direction
	maxParticles int
}

// NewSimulationUseCase creates a new simulation use case.
func NewSimulationUseCase(sim Simulator, direction domain.Direction, maxParticles int) *SimulationUseCase {
	return &SimulationUseCase{
		sim:          sim,
		direction:    direction,
		maxParticles: maxParticles,
	}
}

// Validate checks if the request is valid.
func (r *SimulationRequest) Validate(maxParticles int) error {
	if len(r.Releases) == 0 {
		return fmt.Errorf("at least one release is required")
	}
	if maxParticles > 0 && len(r.Releases) > maxParticles {
		return fmt.Errorf("too many releases (%d), at most %d per request", len(r.Releases), maxParticles)
	}
	seen := make(map[string]bool, len(r.Releases))
	for i, rel := range r.Releases {
		if seen[rel.ParticleID] {
			return fmt.Errorf("release %d: duplicate particle id %q", i, rel.ParticleID)
		}
		seen[rel.ParticleID] = true
		if rel.Days > 366 {
			return fmt.Errorf("release %d: days must be at most 366", i)
		}
		if err := rel.Release().Validate(); err != nil {
			return fmt.Errorf("release %d: %w", i, err)
		}
	}
	return nil
}

// Release converts the request to a domain release.
func (r ReleaseRequest) Release() domain.Release {
	return domain.Release{
		ParticleID: r.ParticleID,
		Lat:        r.Lat,
		Lon:        r.Lon,
		Depth:      r.Depth,
		Start:      r.Start.UTC(),
		Duration:   time.Duration(r.Days * float64(24*time.Hour)),
	}
}

// Execute runs the requested releases.
func (uc *SimulationUseCase) Execute(ctx context.Context, req SimulationRequest) (*SimulationResponse, error) {
	if err := req.Validate(uc.maxParticles); err != nil {
		return nil, err
	}

	releases := make([]domain.Release, len(req.Releases))
	for i, rel := range req.Releases {
		releases[i] = rel.Release()
	}
	trajectories := uc.sim.Run(ctx, releases)

	resp := &SimulationResponse{
		Model:        uc.sim.GridInfo().Model,
		Direction:    uc.direction.String(),
		Trajectories: make([]TrajectoryResponse, len(trajectories)),
	}
	for i, tr := range trajectories {
		resp.Trajectories[i] = NewTrajectoryResponse(tr)
	}
	return resp, nil
}

// GridInfo returns the simulator's grid metadata.
func (uc *SimulationUseCase) GridInfo() GridInfo {
	return uc.sim.GridInfo()
}

// NewTrajectoryResponse converts a trajectory. Absent values become null;
// an absent vertical velocity is omitted.
func NewTrajectoryResponse(tr domain.Trajectory) TrajectoryResponse {
	out := TrajectoryResponse{
		ParticleID: tr.ParticleID,
		Complete:   tr.Complete(),
		Points:     make([]TrackPoint, len(tr.Records)),
	}
	if tr.Err != nil {
		out.Error = tr.Err.Error()
	}
	for i, r := range tr.Records {
		out.Points[i] = TrackPoint{
			Time:  r.Time.UTC().Format(time.RFC3339),
			Lat:   r.Lat,
			Lon:   r.Lon,
			Depth: r.Depth,
			U:     optional(r.U),
			V:     optional(r.V),
			W:     optional(r.W),
			Temp:  optional(r.Temp),
			Sal:   optional(r.Sal),
		}
	}
	return out
}

func optional(v float64) *float64 {
	if domain.IsAbsent(v) {
		return nil
	}
	return &v
}
