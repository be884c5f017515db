package grid

import "gonum.org/v1/gonum/spatial/kdtree"

// node is a planar grid node carrying its flat index.
type node struct {
	x, y float64
	idx  int
}

var (
	_ kdtree.Comparable = node{}
	_ kdtree.Interface  = nodes(nil)
)

func (n node) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(node)
	switch d {
	case 0:
		return n.x - q.x
	case 1:
		return n.y - q.y
	default:
		panic("illegal dimension")
	}
}

func (n node) Dims() int { return 2 }

// Distance returns the squared Euclidean distance.
func (n node) Distance(c kdtree.Comparable) float64 {
	q := c.(node)
	dx, dy := n.x-q.x, n.y-q.y
	return dx*dx + dy*dy
}

type nodes []node

func (p nodes) Index(i int) kdtree.Comparable         { return p[i] }
func (p nodes) Len() int                              { return len(p) }
func (p nodes) Pivot(d kdtree.Dim) int                { return plane{nodes: p, Dim: d}.Pivot() }
func (p nodes) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts nodes along one dimension for median partitioning.
type plane struct {
	kdtree.Dim
	nodes
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.nodes[i].x < p.nodes[j].x
	case 1:
		return p.nodes[i].y < p.nodes[j].y
	default:
		panic("illegal dimension")
	}
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.nodes = p.nodes[start:end]
	return p
}

func (p plane) Swap(i, j int) { p.nodes[i], p.nodes[j] = p.nodes[j], p.nodes[i] }
