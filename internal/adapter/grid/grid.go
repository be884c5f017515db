// Package grid builds the run-wide projected model grid and its nearest-neighbor index.
package grid

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"go.ngs.io/drifters/internal/domain"
)

// Planar projects arrays of geographic coordinates.
type Planar interface {
	ToPlanarAll(lats, lons []float64) ([]float64, []float64, error)
}

// Grid is the projected spatial grid shared by every particle of a run.
// It is immutable after New and safe for concurrent use.
type Grid struct {
	Axes domain.Axes

	// X holds the planar x coordinate of each longitude, Y of each latitude.
	X []float64
	Y []float64

	nodes nodes
	tree  *kdtree.Tree
}

// New projects the axes of a reference sample and indexes every horizontal node.
func New(axes domain.Axes, proj Planar) (*Grid, error) {
	nLat, nLon := len(axes.Lats), len(axes.Lons)
	if nLat < 2 || nLon < 2 {
		return nil, fmt.Errorf("grid must have at least 2 latitudes and 2 longitudes, got %d x %d", nLat, nLon)
	}
	if len(axes.Depths) == 0 {
		return nil, fmt.Errorf("grid has no depth levels")
	}
	if err := increasing("latitude", axes.Lats); err != nil {
		return nil, err
	}
	if err := increasing("longitude", axes.Lons); err != nil {
		return nil, err
	}
	if err := increasing("depth", axes.Depths); err != nil {
		return nil, err
	}

	// Mesh the axes row-major, matching the flat [lat][lon] layout of the samples.
	lats := make([]float64, 0, nLat*nLon)
	lons := make([]float64, 0, nLat*nLon)
	for _, lat := range axes.Lats {
		for _, lon := range axes.Lons {
			lats = append(lats, lat)
			lons = append(lons, lon)
		}
	}
	xs, ys, err := proj.ToPlanarAll(lats, lons)
	if err != nil {
		return nil, fmt.Errorf("failed to project grid nodes: %w", err)
	}

	g := &Grid{
		Axes:  axes,
		X:     make([]float64, nLon),
		Y:     make([]float64, nLat),
		nodes: make(nodes, len(xs)),
	}
	copy(g.X, xs[:nLon])
	for i := range g.Y {
		g.Y[i] = ys[i*nLon]
	}
	if err := increasing("projected x", g.X); err != nil {
		return nil, err
	}
	if err := increasing("projected y", g.Y); err != nil {
		return nil, err
	}

	for i := range xs {
		g.nodes[i] = node{x: xs[i], y: ys[i], idx: i}
	}
	// kdtree.New reorders its input, so the tree gets its own copy.
	indexed := make(nodes, len(g.nodes))
	copy(indexed, g.nodes)
	g.tree = kdtree.New(indexed, false)

	return g, nil
}

// Nearest returns the k grid nodes closest to (x, y) in planar meters, nearest first.
// Node indices are flat [lat][lon] offsets. Points outside the grid are not an error.
func (g *Grid) Nearest(x, y float64, k int) ([]float64, []int) {
	if k > len(g.nodes) {
		k = len(g.nodes)
	}
	if k < 1 {
		return nil, nil
	}

	keep := kdtree.NewNKeeper(k)
	g.tree.NearestSet(keep, node{x: x, y: y, idx: -1})

	found := make([]kdtree.ComparableDist, 0, k)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		found = append(found, c)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Dist < found[j].Dist })

	dists := make([]float64, len(found))
	idx := make([]int, len(found))
	for i, c := range found {
		dists[i] = math.Sqrt(c.Dist)
		idx[i] = c.Comparable.(node).idx
	}
	return dists, idx
}

// Node returns the planar position of flat node index idx.
func (g *Grid) Node(idx int) (x, y float64) {
	n := g.nodes[idx]
	return n.x, n.y
}

// Dims returns the number of depth, latitude and longitude levels.
func (g *Grid) Dims() (nDepth, nLat, nLon int) {
	return g.Axes.Shape()
}

// Check verifies that a sample shares this grid's geometry, depth levels included.
// The run assumes one time-invariant grid; a differing sample is rejected.
func (g *Grid) Check(s *domain.FieldSample) error {
	if !sameAxis(g.Axes.Lats, s.Axes.Lats) || !sameAxis(g.Axes.Lons, s.Axes.Lons) {
		return fmt.Errorf("%w: %s has %d x %d nodes, grid has %d x %d",
			domain.ErrGridMismatch, s.Source, len(s.Axes.Lats), len(s.Axes.Lons), len(g.Axes.Lats), len(g.Axes.Lons))
	}
	if !sameAxis(g.Axes.Depths, s.Axes.Depths) {
		return fmt.Errorf("%w: %s has depth levels %v, grid has %v",
			domain.ErrGridMismatch, s.Source, s.Axes.Depths, g.Axes.Depths)
	}
	return nil
}

// Bounds returns the geographic extent of the grid.
func (g *Grid) Bounds() (minLat, maxLat, minLon, maxLon float64) {
	lats, lons := g.Axes.Lats, g.Axes.Lons
	return lats[0], lats[len(lats)-1], lons[0], lons[len(lons)-1]
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	const tol = 1e-6
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func increasing(name string, axis []float64) error {
	for i := 1; i < len(axis); i++ {
		if !(axis[i] > axis[i-1]) {
			return fmt.Errorf("%s coordinates must be strictly increasing (index %d: %g after %g)", name, i, axis[i], axis[i-1])
		}
	}
	return nil
}
