package bathymetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fhs/go-netcdf/netcdf"
)

// Helper to create a minimal GEBCO-like NetCDF file with the given elevation data.
func createElevationTestFile(t *testing.T, path string, latVals, lonVals []float64, values [][]float32) {
	t.Helper()
	//nolint:gosec // G301: Standard test directory permissions.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	latDim, _ := f.AddDim("lat", uint64(len(latVals)))
	lonDim, _ := f.AddDim("lon", uint64(len(lonVals)))
	vlat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	vlon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	velev, _ := f.AddVar("elevation", netcdf.FLOAT, []netcdf.Dim{latDim, lonDim})

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}
	if err := vlat.WriteFloat64s(latVals); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vlon.WriteFloat64s(lonVals); err != nil {
		t.Fatalf("write lon: %v", err)
	}
	flat := make([]float32, 0, len(latVals)*len(lonVals))
	for i := range values {
		flat = append(flat, values[i]...)
	}
	if err := velev.WriteFloat32s(flat); err != nil {
		t.Fatalf("write elevation: %v", err)
	}
}

// shelf slopes from land at lon 0 down to -100 m at lon 4, -25 m per degree.
func shelf(t *testing.T) string {
	t.Helper()
	latVals := []float64{20, 21, 22, 23, 24, 25}
	lonVals := []float64{-1, 0, 1, 2, 3, 4}
	values := make([][]float32, len(latVals))
	for i := range values {
		values[i] = make([]float32, len(lonVals))
		for j, lon := range lonVals {
			values[i][j] = float32(-25 * lon)
		}
	}
	path := filepath.Join(t.TempDir(), "gebco.nc")
	createElevationTestFile(t, path, latVals, lonVals, values)
	return path
}

func TestSeafloorDepth(t *testing.T) {
	path := shelf(t)
	s, err := Load(path, Region{MinLat: 21, MaxLat: 23, MinLon: 0, MaxLon: 3}, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Path() != path {
		t.Errorf("Path() = %s, want %s", s.Path(), path)
	}

	tests := []struct {
		lon, expected float64
	}{
		{-1, 0}, // land
		{0, 0},
		{1, 25},
		{2.5, 62.5},
		{4, 100},
	}
	for _, tt := range tests {
		got, err := s.Depth(22, tt.lon)
		if err != nil {
			t.Fatalf("Depth(22, %v): %v", tt.lon, err)
		}
		if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Depth(22, %v) = %v, want %v", tt.lon, got, tt.expected)
		}
	}
}

func TestSeafloorLoadsSubset(t *testing.T) {
	s, err := Load(shelf(t), Region{MinLat: 22, MaxLat: 22.5, MinLon: 1, MaxLon: 1.5}, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	lats, lons := s.grid.Axes[0], s.grid.Axes[1]
	if lats[0] != 22 || lats[len(lats)-1] != 23 {
		t.Errorf("latitude subset = %v", lats)
	}
	if lons[0] != 1 || lons[len(lons)-1] != 2 {
		t.Errorf("longitude subset = %v", lons)
	}
	if _, err := s.Depth(24.5, 1.5); err == nil {
		t.Error("expected out-of-bounds error outside the loaded subset")
	}
}

func TestSeafloorClamp(t *testing.T) {
	s, err := Load(shelf(t), Region{MinLat: 20, MaxLat: 25, MinLon: -1, MaxLon: 4}, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name            string
		lat, lon, depth float64
		expected        float64
	}{
		{"above surface", 22, 2, -3, 0},
		{"water column", 22, 2, 30, 30},
		{"below seafloor", 22, 2, 80, 50},
		{"on land", 22, -0.5, 10, 0},
		{"outside grid", 40, 2, 500, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clamp(tt.lat, tt.lon, tt.depth); got != tt.expected {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.lat, tt.lon, tt.depth, got, tt.expected)
			}
		})
	}
}

func TestLoadMissingVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.nc")
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	_ = f.Close()

	if _, err := Load(path, Region{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1}, 0); err == nil {
		t.Error("expected error for file without axes")
	}
}
