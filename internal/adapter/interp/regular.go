package interp

import (
	"fmt"
	"math"
	"sort"

	gonuminterp "gonum.org/v1/gonum/interp"

	"go.ngs.io/drifters/internal/adapter/grid"
	"go.ngs.io/drifters/internal/domain"
)

// RegularGrid is an N-dimensional rectilinear grid.
// Values are stored flat with the last axis varying fastest.
type RegularGrid struct {
	Axes   [][]float64
	Values []float64
}

// Validate checks if the grid is valid.
func (g *RegularGrid) Validate() error {
	if err := validateAxes(g.Axes); err != nil {
		return err
	}
	size := 1
	for _, axis := range g.Axes {
		size *= len(axis)
	}
	if len(g.Values) != size {
		return fmt.Errorf("grid has %d values, expected %d", len(g.Values), size)
	}
	return nil
}

func validateAxes(axes [][]float64) error {
	if len(axes) == 0 {
		return fmt.Errorf("grid has no axes")
	}
	for d, axis := range axes {
		if len(axis) < 2 {
			return fmt.Errorf("axis %d must have at least 2 coordinates", d)
		}
		for i := 1; i < len(axis); i++ {
			if axis[i] <= axis[i-1] {
				return fmt.Errorf("axis %d coordinates must be strictly increasing", d)
			}
		}
	}
	return nil
}

// cell locates v on axis: the lower node index and the fractional offset to the next node.
func cell(axis []float64, v float64) (int, float64, error) {
	n := len(axis)
	if v < axis[0] || v > axis[n-1] || math.IsNaN(v) {
		return 0, 0, fmt.Errorf("%w: %.6f outside [%.6f, %.6f]", domain.ErrOutOfBounds, v, axis[0], axis[n-1])
	}
	i := sort.SearchFloat64s(axis, v)
	switch {
	case axis[i] == v && i == n-1:
		return n - 2, 1, nil
	case axis[i] == v:
		return i, 0, nil
	default:
		return i - 1, (v - axis[i-1]) / (axis[i] - axis[i-1]), nil
	}
}

func (g *RegularGrid) locate(q []float64) ([]int, []float64, error) {
	if len(q) != len(g.Axes) {
		return nil, nil, fmt.Errorf("query has %d coordinates, grid has %d axes", len(q), len(g.Axes))
	}
	idx := make([]int, len(q))
	frac := make([]float64, len(q))
	for d, axis := range g.Axes {
		i, f, err := cell(axis, q[d])
		if err != nil {
			return nil, nil, fmt.Errorf("axis %d: %w", d, err)
		}
		idx[d], frac[d] = i, f
	}
	return idx, frac, nil
}

func (g *RegularGrid) offset(idx []int) int {
	off := 0
	for d, axis := range g.Axes {
		off = off*len(axis) + idx[d]
	}
	return off
}

// Nearest returns the value of the node closest to q along every axis.
func (g *RegularGrid) Nearest(q []float64) (float64, error) {
	idx, frac, err := g.locate(q)
	if err != nil {
		return 0, err
	}
	for d := range idx {
		if frac[d] > 0.5 {
			idx[d]++
		}
	}
	return masked(g.Values[g.offset(idx)])
}

// Linear performs multilinear interpolation at q.
// Corners with zero weight are skipped, so a query on a node returns that node exactly.
func (g *RegularGrid) Linear(q []float64) (float64, error) {
	idx, frac, err := g.locate(q)
	if err != nil {
		return 0, err
	}

	n := len(idx)
	corner := make([]int, n)
	var sum float64
	for mask := 0; mask < 1<<n; mask++ {
		weight := 1.0
		for d := 0; d < n; d++ {
			if mask&(1<<d) != 0 {
				corner[d] = idx[d] + 1
				weight *= frac[d]
			} else {
				corner[d] = idx[d]
				weight *= 1 - frac[d]
			}
		}
		if weight == 0 {
			continue
		}
		sum += weight * g.Values[g.offset(corner)]
	}
	return masked(sum)
}

// Spline interpolates at q with a natural cubic spline along each axis in turn,
// fitted over the four nodes around the query (fewer at the grid edges).
// Masked nodes are dropped from each one-dimensional fit; a query beyond the
// remaining nodes is masked.
func (g *RegularGrid) Spline(q []float64) (float64, error) {
	idx, _, err := g.locate(q)
	if err != nil {
		return 0, err
	}
	pos := make([]int, len(idx))
	return masked(g.spline(q, idx, pos, 0))
}

func (g *RegularGrid) spline(q []float64, idx, pos []int, d int) float64 {
	if d == len(g.Axes) {
		return g.Values[g.offset(pos)]
	}

	axis := g.Axes[d]
	lo, hi := max(idx[d]-1, 0), min(idx[d]+2, len(axis)-1)
	xs := make([]float64, 0, hi-lo+1)
	ys := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		pos[d] = i
		if y := g.spline(q, idx, pos, d+1); !math.IsNaN(y) {
			xs = append(xs, axis[i])
			ys = append(ys, y)
		}
	}
	return fit1D(xs, ys, q[d])
}

func fit1D(xs, ys []float64, x float64) float64 {
	for i := range xs {
		if xs[i] == x {
			return ys[i]
		}
	}
	// No extrapolation past the unmasked nodes.
	if len(xs) < 2 || x < xs[0] || x > xs[len(xs)-1] {
		return math.NaN()
	}
	switch len(xs) {
	case 2:
		t := (x - xs[0]) / (xs[1] - xs[0])
		return (1-t)*ys[0] + t*ys[1]
	}

	var nc gonuminterp.NaturalCubic
	if err := nc.Fit(xs, ys); err != nil {
		return math.NaN()
	}
	return nc.Predict(x)
}

func masked(v float64) (float64, error) {
	if math.IsNaN(v) {
		return v, domain.ErrMaskedValue
	}
	return v, nil
}

// Regular samples fields on the structured projected grid.
type Regular struct {
	method Method
	grid   *grid.Grid
	dims   int
}

// NewRegular creates a regular-grid interpolator using nearest, linear or spline.
func NewRegular(method Method, g *grid.Grid, dims int) (*Regular, error) {
	switch method {
	case MethodNearest, MethodLinear, MethodSpline:
	default:
		return nil, fmt.Errorf("%w: %q is not a regular grid method", domain.ErrConfig, method)
	}
	axes := [][]float64{g.Y, g.X}
	if dims == 3 {
		axes = [][]float64{g.Axes.Depths, g.Y, g.X}
	}
	if err := validateAxes(axes); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	return &Regular{method: method, grid: g, dims: dims}, nil
}

func (r *Regular) Sample(s *domain.FieldSample, vars []domain.Variable, p Point) (domain.Fields, error) {
	fields := domain.NewFields()

	rg := RegularGrid{Axes: [][]float64{r.grid.Y, r.grid.X}}
	q := []float64{p.Y, p.X}
	size := len(r.grid.Y) * len(r.grid.X)
	if r.dims == 3 {
		rg.Axes = [][]float64{r.grid.Axes.Depths, r.grid.Y, r.grid.X}
		q = []float64{p.Depth, p.Y, p.X}
		size *= len(r.grid.Axes.Depths)
	}

	for _, v := range vars {
		vals, ok := s.Values(v)
		if !ok {
			return fields, fmt.Errorf("variable %s not loaded from %s", v, s.Source)
		}
		if len(vals) < size {
			return fields, fmt.Errorf("%w: %s holds %d values for %s, grid needs %d", domain.ErrGridMismatch, s.Source, len(vals), v, size)
		}
		rg.Values = vals[:size]

		var (
			val float64
			err error
		)
		switch r.method {
		case MethodNearest:
			val, err = rg.Nearest(q)
		case MethodLinear:
			val, err = rg.Linear(q)
		default:
			val, err = rg.Spline(q)
		}
		if err != nil {
			return fields, fmt.Errorf("%s %s interpolation: %w", v, r.method, err)
		}
		fields.Set(v, val)
	}
	return fields, nil
}
