package domain

import (
	"fmt"
	"time"
)

// Axes holds the coordinate axes of a model grid.
type Axes struct {
	Lats   []float64 // Degrees north.
	Lons   []float64 // Degrees east.
	Depths []float64 // Meters, positive down.
}

// Shape returns the number of depth, latitude and longitude levels.
func (a Axes) Shape() (nDepth, nLat, nLon int) {
	return len(a.Depths), len(a.Lats), len(a.Lons)
}

// Size returns the number of grid nodes.
func (a Axes) Size() int {
	return len(a.Depths) * len(a.Lats) * len(a.Lons)
}

// FieldSample is one model time slice bound to its backing file.
//
// Values are stored flat in [depth][lat][lon] order, with masked nodes as NaN.
// A FieldSample is immutable after construction and safe for concurrent reads.
type FieldSample struct {
	Time   time.Time
	Source string
	Axes   Axes
	values map[Variable][]float64
}

// NewFieldSample builds a sample, checking every value array against the axes.
func NewFieldSample(t time.Time, source string, axes Axes, values map[Variable][]float64) (*FieldSample, error) {
	size := axes.Size()
	if size == 0 {
		return nil, fmt.Errorf("empty grid in %s", source)
	}
	for v, vals := range values {
		if len(vals) != size {
			return nil, fmt.Errorf("variable %s in %s has %d values, expected %d", v, source, len(vals), size)
		}
	}
	return &FieldSample{
		Time:   t,
		Source: source,
		Axes:   axes,
		values: values,
	}, nil
}

// Values returns the flat value array of v.
func (s *FieldSample) Values(v Variable) ([]float64, bool) {
	vals, ok := s.values[v]
	return vals, ok
}

// Index returns the flat index of node (k, i, j) = (depth, lat, lon).
func (s *FieldSample) Index(k, i, j int) int {
	return (k*len(s.Axes.Lats)+i)*len(s.Axes.Lons) + j
}
