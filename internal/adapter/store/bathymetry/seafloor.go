// Package bathymetry provides seafloor depth from GEBCO-style elevation grids.
package bathymetry

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/drifters/internal/adapter/interp"
)

var (
	latNames  = []string{"lat", "latitude", "Latitude", "y"}
	lonNames  = []string{"lon", "longitude", "Longitude", "x"}
	dataNames = []string{"elevation", "z", "data"}
)

// Region is the geographic box read from the elevation file, in degrees.
type Region struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Seafloor holds the elevation grid over a region. It is immutable after Load
// and safe for concurrent use.
type Seafloor struct {
	path string
	grid interp.RegularGrid // Axes {lat, lon}; elevation in meters, negative below sea level.
}

// Load reads the part of the elevation file at path covering r plus margin degrees.
// It is called once per run, before particles are integrated.
func Load(path string, r Region, margin float64) (*Seafloor, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	latData, err := readAxis(nc, latNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lonData, err := readAxis(nc, lonNames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Calculate subset indices, keeping at least 2 points per axis.
	latStart := clamp(findNearestIndex(latData, r.MinLat-margin), 0, len(latData)-2)
	latEnd := clamp(findNearestIndex(latData, r.MaxLat+margin)+1, latStart+2, len(latData))
	lonStart := clamp(findNearestIndex(lonData, r.MinLon-margin), 0, len(lonData)-2)
	lonEnd := clamp(findNearestIndex(lonData, r.MaxLon+margin)+1, lonStart+2, len(lonData))

	var dataVar netcdf.Var
	found := false
	for _, name := range dataNames {
		if v, err := nc.Var(name); err == nil {
			dataVar = v
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%s: elevation variable not found (tried: %v)", path, dataNames)
	}

	dims, err := dataVar.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected 2D elevation, got %dD", len(dims))
	}
	dim0Len, err := dims[0].Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get dim0 length: %w", err)
	}

	nLat, nLon := latEnd-latStart, lonEnd-lonStart
	var values []float64
	//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF dimensions.
	switch dim0Len {
	case uint64(len(latData)):
		values, err = readSubset(dataVar, latStart, lonStart, nLat, nLon)
	case uint64(len(lonData)):
		// Data is [lon, lat]; transpose.
		var transposed []float64
		transposed, err = readSubset(dataVar, lonStart, latStart, nLon, nLat)
		if err == nil {
			values = transpose(transposed, nLon, nLat)
		}
	default:
		return nil, fmt.Errorf("%s: elevation is [%d, ...], expected %d latitudes or %d longitudes",
			path, dim0Len, len(latData), len(lonData))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read elevation: %w", err)
	}

	s := &Seafloor{
		path: path,
		grid: interp.RegularGrid{
			Axes:   [][]float64{latData[latStart:latEnd], lonData[lonStart:lonEnd]},
			Values: values,
		},
	}
	if err := s.grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid elevation grid in %s: %w", path, err)
	}
	return s, nil
}

// Depth returns the bilinear seafloor depth in meters, positive down.
// Land returns zero.
func (s *Seafloor) Depth(lat, lon float64) (float64, error) {
	elev, err := s.grid.Linear([]float64{lat, lon})
	if err != nil {
		return 0, err
	}
	if elev >= 0 {
		return 0, nil
	}
	return -elev, nil
}

// Clamp keeps depth between the surface and the seafloor at (lat, lon).
// Outside the grid only the surface bound applies.
func (s *Seafloor) Clamp(lat, lon, depth float64) float64 {
	if depth < 0 {
		depth = 0
	}
	floor, err := s.Depth(lat, lon)
	if err != nil {
		return depth
	}
	return math.Min(depth, floor)
}

// Path returns the elevation file.
func (s *Seafloor) Path() string {
	return s.path
}

func readAxis(nc netcdf.Dataset, names []string) ([]float64, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		dims, err := v.Dims()
		if err != nil || len(dims) != 1 {
			continue
		}
		n, err := dims[0].Len()
		if err != nil {
			return nil, err
		}
		data := make([]float64, n)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if len(data) < 2 {
			return nil, fmt.Errorf("axis %s has %d points", name, len(data))
		}
		return data, nil
	}
	return nil, fmt.Errorf("axis not found (tried: %v)", names)
}

// readSubset reads [startRow:startRow+nRows, startCol:startCol+nCols] as float64,
// applying scale_factor when present.
func readSubset(v netcdf.Var, startRow, startCol, nRows, nCols int) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	total := nRows * nCols
	//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF indices.
	start := []uint64{uint64(startRow), uint64(startCol)}
	//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF dimensions.
	count := []uint64{uint64(nRows), uint64(nCols)}

	data := make([]float64, total)
	switch varType {
	case netcdf.DOUBLE:
		err = v.ReadFloat64Slice(data, start, count)
	case netcdf.FLOAT:
		buf := make([]float32, total)
		if err = v.ReadFloat32Slice(buf, start, count); err == nil {
			for i, x := range buf {
				data[i] = float64(x)
			}
		}
	case netcdf.SHORT:
		buf := make([]int16, total)
		if err = v.ReadInt16Slice(buf, start, count); err == nil {
			for i, x := range buf {
				data[i] = float64(x)
			}
		}
	case netcdf.INT:
		buf := make([]int32, total)
		if err = v.ReadInt32Slice(buf, start, count); err == nil {
			for i, x := range buf {
				data[i] = float64(x)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	}
	if err != nil {
		return nil, err
	}

	if scale, ok := scaleFactor(v); ok {
		for i := range data {
			data[i] *= scale
		}
	}
	return data, nil
}

func scaleFactor(v netcdf.Var) (float64, bool) {
	a := v.Attr("scale_factor")
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	t, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		if a.ReadFloat64s(buf) == nil && buf[0] != 0 {
			return buf[0], true
		}
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if a.ReadFloat32s(buf) == nil && buf[0] != 0 {
			return float64(buf[0]), true
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if a.ReadInt32s(buf) == nil && buf[0] != 0 {
			return float64(buf[0]), true
		}
	}
	return 0, false
}

func transpose(data []float64, nRows, nCols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			out[j*nRows+i] = data[i*nCols+j]
		}
	}
	return out
}

// findNearestIndex finds the index of the value closest to target in a sorted array.
func findNearestIndex(arr []float64, target float64) int {
	if len(arr) == 0 {
		return 0
	}

	left, right := 0, len(arr)-1
	for left < right {
		mid := (left + right) / 2
		if arr[mid] < target {
			left = mid + 1
		} else {
			right = mid
		}
	}

	if left > 0 && math.Abs(arr[left-1]-target) < math.Abs(arr[left]-target) {
		return left - 1
	}
	return left
}

// clamp ensures value is within [minVal, maxVal] range.
func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
