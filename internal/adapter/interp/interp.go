// Package interp samples model fields at arbitrary planar positions.
package interp

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.ngs.io/drifters/internal/adapter/grid"
	"go.ngs.io/drifters/internal/domain"
)

// Method selects the spatial interpolation scheme.
type Method string

const (
	MethodIDW     Method = "idw"
	MethodNearest Method = "nearest"
	MethodLinear  Method = "linear"
	MethodSpline  Method = "spline"
)

// ParseMethod parses an interpolation method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodIDW, MethodNearest, MethodLinear, MethodSpline:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown interpolation method %q", domain.ErrConfig, s)
	}
}

// Point is a query position in planar meters and depth in meters.
type Point struct {
	X     float64
	Y     float64
	Depth float64
}

// Interpolator samples the requested variables of a field sample at a point.
// Variables not requested are left Absent.
type Interpolator interface {
	Sample(s *domain.FieldSample, vars []domain.Variable, p Point) (domain.Fields, error)
}

// Options tunes interpolator construction.
type Options struct {
	K             int     // Neighbors used by IDW.
	Power         float64 // IDW distance exponent.
	FallbackToIDW bool    // Retry out-of-bounds regular-grid queries with IDW.
	Logger        *slog.Logger
}

// New builds the interpolator for method over g. dims is the model dimensionality (2 or 3).
func New(method Method, g *grid.Grid, dims int, opts Options) (Interpolator, error) {
	if dims != 2 && dims != 3 {
		return nil, fmt.Errorf("%w: dims must be 2 or 3, got %d", domain.ErrConfig, dims)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Power == 0 {
		opts.Power = 1
	}

	switch method {
	case MethodIDW:
		return NewIDW(g, dims, opts)
	case MethodNearest, MethodLinear, MethodSpline:
		reg, err := NewRegular(method, g, dims)
		if err != nil {
			return nil, err
		}
		if !opts.FallbackToIDW {
			return reg, nil
		}
		idw, err := NewIDW(g, dims, opts)
		if err != nil {
			return nil, err
		}
		return &fallback{primary: reg, secondary: idw, logger: opts.Logger}, nil
	default:
		return nil, fmt.Errorf("%w: unknown interpolation method %q", domain.ErrConfig, method)
	}
}

// fallback retries out-of-bounds queries with a secondary interpolator.
type fallback struct {
	primary   Interpolator
	secondary Interpolator
	logger    *slog.Logger
}

func (f *fallback) Sample(s *domain.FieldSample, vars []domain.Variable, p Point) (domain.Fields, error) {
	fields, err := f.primary.Sample(s, vars, p)
	if errors.Is(err, domain.ErrOutOfBounds) {
		f.logger.Debug("regular grid query out of bounds, using idw", "x", p.X, "y", p.Y, "depth", p.Depth)
		return f.secondary.Sample(s, vars, p)
	}
	return fields, err
}

// depthBracket returns the levels bracketing depth and the weight of the upper one.
// Depths outside the level range clamp to the nearest level.
func depthBracket(depths []float64, depth float64) (k0, k1 int, frac float64) {
	n := len(depths)
	if n == 1 || depth <= depths[0] {
		return 0, 0, 0
	}
	if depth >= depths[n-1] {
		return n - 1, n - 1, 0
	}
	k1 = 1
	for depths[k1] < depth {
		k1++
	}
	k0 = k1 - 1
	return k0, k1, (depth - depths[k0]) / (depths[k1] - depths[k0])
}
