package interp

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"go.ngs.io/drifters/internal/adapter/grid"
	"go.ngs.io/drifters/internal/domain"
)

// IDW interpolates by inverse distance weighting over the k nearest grid nodes.
type IDW struct {
	grid   *grid.Grid
	dims   int
	k      int
	power  float64
	logger *slog.Logger
}

// NewIDW creates an inverse distance interpolator.
func NewIDW(g *grid.Grid, dims int, opts Options) (*IDW, error) {
	if opts.K < 1 {
		return nil, fmt.Errorf("%w: idw needs at least one neighbor, got %d", domain.ErrConfig, opts.K)
	}
	if opts.Power <= 0 {
		return nil, fmt.Errorf("%w: idw power must be positive, got %g", domain.ErrConfig, opts.Power)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IDW{grid: g, dims: dims, k: opts.K, power: opts.Power, logger: logger}, nil
}

func (w *IDW) Sample(s *domain.FieldSample, vars []domain.Variable, p Point) (domain.Fields, error) {
	fields := domain.NewFields()

	dists, idx := w.grid.Nearest(p.X, p.Y, w.k)
	if len(idx) == 0 {
		return fields, fmt.Errorf("no grid nodes near (%.1f, %.1f)", p.X, p.Y)
	}
	if dists[0] == 0 {
		w.logger.Debug("query coincides with grid node", "node", idx[0], "source", s.Source)
	}

	// 2-D samples hold a single level; 3-D runs interpolate between the levels around the particle.
	k0, k1, frac := 0, 0, 0.0
	if w.dims == 3 {
		k0, k1, frac = depthBracket(s.Axes.Depths, p.Depth)
	}
	levelSize := len(s.Axes.Lats) * len(s.Axes.Lons)

	weights := make([]float64, 0, len(idx))
	values := make([]float64, 0, len(idx))
	for _, v := range vars {
		vals, ok := s.Values(v)
		if !ok {
			return fields, fmt.Errorf("variable %s not loaded from %s", v, s.Source)
		}

		v0, err := w.level(vals[k0*levelSize:(k0+1)*levelSize], dists, idx, weights, values)
		if err != nil {
			return fields, fmt.Errorf("%s at depth level %d: %w", v, k0, err)
		}
		if k1 != k0 && frac > 0 {
			v1, err := w.level(vals[k1*levelSize:(k1+1)*levelSize], dists, idx, weights, values)
			if err != nil {
				return fields, fmt.Errorf("%s at depth level %d: %w", v, k1, err)
			}
			v0 = (1-frac)*v0 + frac*v1
		}
		fields.Set(v, v0)
	}
	return fields, nil
}

// level weights the neighbors within one horizontal level. Masked nodes are skipped.
func (w *IDW) level(vals []float64, dists []float64, idx []int, weights, values []float64) (float64, error) {
	weights, values = weights[:0], values[:0]
	for i, n := range idx {
		v := vals[n]
		if math.IsNaN(v) {
			continue
		}
		if dists[i] == 0 {
			return v, nil
		}
		weights = append(weights, 1/math.Pow(dists[i], w.power))
		values = append(values, v)
	}
	if len(values) == 0 {
		return math.NaN(), domain.ErrMaskedValue
	}
	return floats.Dot(weights, values) / floats.Sum(weights), nil
}
