package usecase

import (
	"fmt"
	"math"
	"time"

	"go.ngs.io/drifters/internal/domain"
)

// DepthLimiter bounds a particle's depth at a position.
type DepthLimiter interface {
	Clamp(lat, lon, depth float64) float64
}

// Integrator advances particles with an explicit Euler step.
type Integrator struct {
	Proj      domain.Projector
	Timestep  time.Duration
	Direction domain.Direction
	Dims      int

	// Migration, when set, gives the particle depth for each hour of the day
	// and replaces vertical advection. 3-D only.
	Migration []float64

	// Seafloor, when set, keeps 3-D particles inside the water column.
	Seafloor DepthLimiter

	// Source returns the expected backing file for a time.
	Source func(time.Time) string
}

// Advance moves p by one timestep:
//
//	x' = x + dt*u*s, y' = y + dt*v*s, depth' = depth + dt*w*s (3-D), t' = t + dt*s
//
// where s is +1 forward and -1 backward. On error p is left unchanged.
func (in Integrator) Advance(p *domain.Particle) error {
	dt := in.Timestep.Seconds()
	s := in.Direction.Sign()

	if math.IsNaN(p.Fields.U) || math.IsNaN(p.Fields.V) {
		return fmt.Errorf("particle %s has no velocity at %s", p.ID, p.Time.Format(time.RFC3339))
	}
	x := p.X + dt*p.Fields.U*s
	y := p.Y + dt*p.Fields.V*s
	t := p.Time.Add(time.Duration(s) * in.Timestep)

	depth := p.Depth
	if in.Dims == 3 {
		switch {
		case len(in.Migration) == 24:
			depth = in.Migration[t.UTC().Hour()]
		case p.Fields.HasW():
			depth += dt * p.Fields.W * s
		default:
			return fmt.Errorf("particle %s has no vertical velocity at %s", p.ID, p.Time.Format(time.RFC3339))
		}
	}

	if err := p.MoveTo(x, y, in.Proj); err != nil {
		return err
	}
	if in.Dims == 3 && in.Seafloor != nil {
		depth = in.Seafloor.Clamp(p.Lat, p.Lon, depth)
	}
	p.Depth = depth
	p.Time = t
	if in.Source != nil {
		p.Source = in.Source(t)
	}
	return nil
}
