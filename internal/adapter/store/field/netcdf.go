// Package field loads model time slices from per-timestep NetCDF files.
package field

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/drifters/internal/domain"
)

// libnetcdf is not thread-safe; every call into it goes through ncMu.
var ncMu sync.Mutex

var (
	latNames   = []string{"Latitude", "latitude", "lat", "y"}
	lonNames   = []string{"Longitude", "longitude", "lon", "x"}
	depthNames = []string{"Depth", "depth", "z", "lev"}
	timeNames  = []string{"MT", "time", "Time", "t"}
)

// Options configures how samples are read.
type Options struct {
	Schema []domain.VarBinding

	// Dims is the model dimensionality. 2-D runs read the single level at ForcingDepth.
	Dims         int
	ForcingDepth float64

	// CacheSize bounds the number of decoded samples kept in memory.
	CacheSize int
}

// Store loads and caches field samples.
type Store struct {
	opts  Options
	cache map[string]*domain.FieldSample // Cache loaded samples by path.
	order []string                       // Insertion order for eviction.
	mu    sync.RWMutex                   // Protect cache.
}

// NewStore creates a new NetCDF field store.
func NewStore(opts Options) (*Store, error) {
	if opts.Dims != 2 && opts.Dims != 3 {
		return nil, fmt.Errorf("%w: dims must be 2 or 3, got %d", domain.ErrConfig, opts.Dims)
	}
	if len(opts.Schema) == 0 {
		return nil, fmt.Errorf("%w: no data variables configured", domain.ErrConfig)
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = 1
	}
	return &Store{
		opts:  opts,
		cache: make(map[string]*domain.FieldSample),
	}, nil
}

// Load returns the sample stored at path, stamped with time t.
func (s *Store) Load(path string, t time.Time) (*domain.FieldSample, error) {
	// Check cache first.
	s.mu.RLock()
	if sample, ok := s.cache[path]; ok {
		s.mu.RUnlock()
		return sample, nil
	}
	s.mu.RUnlock()

	sample, err := s.Read(path, t)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[path]; ok {
		return cached, nil
	}
	for len(s.order) >= s.opts.CacheSize {
		delete(s.cache, s.order[0])
		s.order = s.order[1:]
	}
	s.cache[path] = sample
	s.order = append(s.order, path)
	return sample, nil
}

// Cached returns the number of samples held in memory.
func (s *Store) Cached() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Read decodes the sample at path without touching the cache.
func (s *Store) Read(path string, t time.Time) (*domain.FieldSample, error) {
	ncMu.Lock()
	defer ncMu.Unlock()

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	lats, err := readAxis(nc, latNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lons, err := readAxis(nc, lonNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	fileDepths, err := readAxis(nc, depthNames)
	if err != nil {
		if s.opts.Dims == 3 {
			return nil, fmt.Errorf("%s: 3-D model requires a depth axis: %w", path, err)
		}
		fileDepths = nil
	}

	// level is the depth index read for 2-D runs; -1 reads every level.
	level := -1
	depths := fileDepths
	if s.opts.Dims == 2 {
		level, err = forcingLevel(fileDepths, s.opts.ForcingDepth)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		depths = []float64{s.opts.ForcingDepth}
		if len(fileDepths) > 0 {
			depths = []float64{fileDepths[level]}
		}
	}

	axes := domain.Axes{Lats: lats, Lons: lons, Depths: depths}
	values := make(map[domain.Variable][]float64, len(s.opts.Schema))
	for _, b := range s.opts.Schema {
		v, err := nc.Var(b.Source)
		if err != nil {
			return nil, fmt.Errorf("%s: data variable %q not found: %w", path, b.Source, err)
		}
		data, err := readField(v, axes, len(fileDepths), level)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read %s: %w", path, b.Source, err)
		}
		values[b.Dest] = data
	}

	return domain.NewFieldSample(t, path, axes, values)
}

// forcingLevel finds the index of depth among the file's levels.
func forcingLevel(depths []float64, depth float64) (int, error) {
	if len(depths) <= 1 {
		return 0, nil
	}
	for i, d := range depths {
		if math.Abs(d-depth) < 1e-6 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: forcing depth %g is not a model level (levels %v)", domain.ErrConfig, depth, depths)
}

// readAxis reads the first 1-D coordinate variable found among names.
func readAxis(nc netcdf.Dataset, names []string) ([]float64, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		dims, err := v.Dims()
		if err != nil {
			return nil, fmt.Errorf("failed to get dimensions of %s: %w", name, err)
		}
		if len(dims) != 1 {
			return nil, fmt.Errorf("expected 1D coordinate %s, got %dD", name, len(dims))
		}
		n, err := dims[0].Len()
		if err != nil {
			return nil, err
		}
		return readValues(v, []uint64{0}, []uint64{n})
	}
	return nil, fmt.Errorf("coordinate variable not found (tried: %v)", names)
}

// readField reads one data variable into [depth][lat][lon] order.
// Leading time and singleton dimensions are squeezed; level >= 0 selects one depth level.
func readField(v netcdf.Var, axes domain.Axes, nFileDepth, level int) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) < 2 {
		return nil, fmt.Errorf("expected at least 2 dimensions, got %d", len(dims))
	}

	start := make([]uint64, len(dims))
	count := make([]uint64, len(dims))
	depthSeen := false
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, err
		}
		name, err := d.Name()
		if err != nil {
			return nil, err
		}

		switch {
		case i == len(dims)-2:
			if int(n) != len(axes.Lats) {
				return nil, fmt.Errorf("%w: latitude dimension has %d levels, axis has %d", domain.ErrGridMismatch, n, len(axes.Lats))
			}
			count[i] = n
		case i == len(dims)-1:
			if int(n) != len(axes.Lons) {
				return nil, fmt.Errorf("%w: longitude dimension has %d levels, axis has %d", domain.ErrGridMismatch, n, len(axes.Lons))
			}
			count[i] = n
		case isName(name, timeNames):
			count[i] = 1 // First time slice only.
		case !depthSeen && (isName(name, depthNames) || (nFileDepth > 1 && int(n) == nFileDepth)):
			depthSeen = true
			if level >= 0 {
				//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF indices.
				start[i], count[i] = uint64(level), 1
			} else {
				count[i] = n
			}
		case n == 1:
			count[i] = 1
		default:
			return nil, fmt.Errorf("unexpected dimension %s of length %d", name, n)
		}
	}
	if level < 0 && !depthSeen && len(axes.Depths) > 1 {
		return nil, fmt.Errorf("%w: variable has no depth dimension", domain.ErrGridMismatch)
	}

	return readValues(v, start, count)
}

func isName(name string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}

// readValues reads a hyperslab as float64, masking fill values as NaN and
// applying scale_factor and add_offset.
// Supports float64, float32, int32, and int16 types.
func readValues(v netcdf.Var, start, count []uint64) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	total := uint64(1)
	for _, c := range count {
		total *= c
	}
	data := make([]float64, total)

	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64: %w", err)
		}
	case netcdf.FLOAT:
		raw := make([]float32, total)
		if err := v.ReadFloat32Slice(raw, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32: %w", err)
		}
		for i, val := range raw {
			data[i] = float64(val)
		}
	case netcdf.SHORT:
		raw := make([]int16, total)
		if err := v.ReadInt16Slice(raw, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16: %w", err)
		}
		for i, val := range raw {
			data[i] = float64(val)
		}
	case netcdf.INT:
		raw := make([]int32, total)
		if err := v.ReadInt32Slice(raw, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32: %w", err)
		}
		for i, val := range raw {
			data[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	}

	// Fill values are compared against the packed data.
	for _, name := range []string{"_FillValue", "missing_value"} {
		fill, ok := readAttr(v, name)
		if !ok {
			continue
		}
		for i, val := range data {
			if val == fill {
				data[i] = math.NaN()
			}
		}
	}

	scale, hasScale := readAttr(v, "scale_factor")
	offset, hasOffset := readAttr(v, "add_offset")
	if (hasScale && scale != 0 && scale != 1) || (hasOffset && offset != 0) {
		if !hasScale || scale == 0 {
			scale = 1
		}
		for i := range data {
			data[i] = data[i]*scale + offset
		}
	}

	return data, nil
}

// readAttr reads a numeric scalar attribute.
func readAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	typ, err := a.Type()
	if err != nil {
		return 0, false
	}

	switch typ {
	case netcdf.DOUBLE:
		val := make([]float64, n)
		if err := a.ReadFloat64s(val); err == nil {
			return val[0], true
		}
	case netcdf.FLOAT:
		val := make([]float32, n)
		if err := a.ReadFloat32s(val); err == nil {
			return float64(val[0]), true
		}
	case netcdf.INT:
		val := make([]int32, n)
		if err := a.ReadInt32s(val); err == nil {
			return float64(val[0]), true
		}
	case netcdf.SHORT:
		val := make([]int16, n)
		if err := a.ReadInt16s(val); err == nil {
			return float64(val[0]), true
		}
	}
	return 0, false
}
