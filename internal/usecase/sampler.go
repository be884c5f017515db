package usecase

import (
	"fmt"
	"time"

	"go.ngs.io/drifters/internal/adapter/interp"
	"go.ngs.io/drifters/internal/adapter/store"
	"go.ngs.io/drifters/internal/domain"
)

// GridChecker verifies that a sample matches the run grid.
type GridChecker interface {
	Check(s *domain.FieldSample) error
}

// Sampler evaluates the model fields at a particle's position and time.
type Sampler struct {
	Resolver TemporalResolver
	Loader   store.SampleLoader
	Grid     GridChecker
	Interp   interp.Interpolator
	Vars     []domain.Variable
}

// Sample sets p.Fields from the bracketing samples, interpolated linearly in time.
func (s *Sampler) Sample(p *domain.Particle) error {
	res, err := s.Resolver.ResolveBrackets(p.Time)
	if err != nil {
		return err
	}
	q := interp.Point{X: p.X, Y: p.Y, Depth: p.Depth}

	f0, err := s.at(res.Before, q)
	if err != nil {
		return err
	}
	if res.Exact {
		p.Fields = f0
		return nil
	}

	f1, err := s.at(res.After, q)
	if err != nil {
		return err
	}
	p.Fields = domain.LerpFields(p.Time, res.Before.Time, f0, res.After.Time, f1)
	return nil
}

func (s *Sampler) at(b domain.Bracket, q interp.Point) (domain.Fields, error) {
	sample, err := s.Loader.Load(b.Path, b.Time)
	if err != nil {
		return domain.Fields{}, fmt.Errorf("failed to load slice for %s: %w", b.Time.Format(time.RFC3339), err)
	}
	if s.Grid != nil {
		if err := s.Grid.Check(sample); err != nil {
			return domain.Fields{}, err
		}
	}
	f, err := s.Interp.Sample(sample, s.Vars, q)
	if err != nil {
		return domain.Fields{}, fmt.Errorf("failed to interpolate %s: %w", sample.Source, err)
	}
	return f, nil
}
