package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/drifters/internal/domain"
)

// FieldSampler fills a particle's fields at its current position and time.
type FieldSampler interface {
	Sample(p *domain.Particle) error
}

// Stepper advances a particle by one timestep.
type Stepper interface {
	Advance(p *domain.Particle) error
}

// Runner drives particles from release to end time.
type Runner struct {
	Sampler    FieldSampler
	Integrator Stepper
	Proj       domain.Projector

	Timestep        time.Duration
	OutputFrequency time.Duration // Zero records every step.
	Workers         int

	// Source returns the expected backing file for a time.
	Source func(time.Time) string

	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// RunParticle integrates one particle. The trajectory holds a record for every
// output step reached, and the particle is not advanced past the last one; a failure stops the particle and is returned in
// Trajectory.Err together with the records collected so far.
func (r *Runner) RunParticle(ctx context.Context, rel domain.Release) domain.Trajectory {
	tr := domain.Trajectory{ParticleID: rel.ParticleID}
	if err := rel.Validate(); err != nil {
		tr.Err = fmt.Errorf("invalid release %q: %w", rel.ParticleID, err)
		return tr
	}
	if r.Timestep <= 0 {
		tr.Err = fmt.Errorf("%w: timestep must be positive", domain.ErrConfig)
		return tr
	}
	every := r.OutputFrequency
	if every <= 0 {
		every = r.Timestep
	}

	p, err := domain.NewParticle(rel.ParticleID, rel.Lat, rel.Lon, rel.Depth, rel.Start, r.Proj)
	if err != nil {
		tr.Err = err
		return tr
	}
	if r.Source != nil {
		p.Source = r.Source(p.Time)
	}

	tr.Records = make([]domain.Record, 0, int(rel.Duration/every)+1)
	for elapsed := time.Duration(0); elapsed < rel.Duration; elapsed += r.Timestep {
		if err := ctx.Err(); err != nil {
			tr.Err = err
			break
		}
		if err := r.Sampler.Sample(p); err != nil {
			tr.Err = fmt.Errorf("sampling at %s: %w", p.Time.Format(time.RFC3339), err)
			break
		}
		if elapsed%every == 0 {
			tr.Records = append(tr.Records, p.Record())
		}
		if elapsed+r.Timestep >= rel.Duration {
			break
		}
		if err := r.Integrator.Advance(p); err != nil {
			tr.Err = fmt.Errorf("advancing at %s: %w", p.Time.Format(time.RFC3339), err)
			break
		}
	}

	if tr.Err != nil {
		r.logger().Warn("particle stopped early", "trajectory", tr)
	} else {
		r.logger().Debug("particle complete", "trajectory", tr)
	}
	return tr
}

// Run integrates every release on up to Workers goroutines. The result is in
// release order. Cancelling ctx stops scheduling; releases not started carry
// the context error.
func (r *Runner) Run(ctx context.Context, releases []domain.Release) []domain.Trajectory {
	out := make([]domain.Trajectory, len(releases))

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)

	started := time.Now()
	for i, rel := range releases {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(releases); j++ {
				out[j] = domain.Trajectory{ParticleID: releases[j].ParticleID, Err: err}
			}
			break
		}
		g.Go(func() error {
			out[i] = r.RunParticle(ctx, rel)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, tr := range out {
		if !tr.Complete() {
			failed++
		}
	}
	r.logger().Info("run finished",
		"particles", len(releases),
		"failed", failed,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return out
}
