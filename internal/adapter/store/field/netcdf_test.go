package field

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/drifters/internal/domain"
)

var sliceTime = time.Date(2016, 6, 1, 3, 0, 0, 0, time.UTC)

// writeTestSample writes a 3-level 2x3 sample where every value encodes its node.
func writeTestSample(t *testing.T, path string) *domain.FieldSample {
	t.Helper()
	axes := domain.Axes{
		Lats:   []float64{27.0, 27.5},
		Lons:   []float64{-90.0, -89.5, -89.0},
		Depths: []float64{0, 10, 20},
	}
	schema, err := domain.Schema(3, nil)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	values := make(map[domain.Variable][]float64)
	for _, b := range schema {
		vals := make([]float64, axes.Size())
		for i := range vals {
			vals[i] = float64(b.Dest)*100 + float64(i)*0.5
		}
		values[b.Dest] = vals
	}
	values[domain.VarTemp][4] = math.NaN() // land

	s, err := domain.NewFieldSample(sliceTime, path, axes, values)
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	if err := WriteSample(path, s, schema); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return s
}

func TestStoreLoads3D(t *testing.T) {
	path := filepath.Join(t.TempDir(), "HYCOM_GOMl0.04_expt_31.0_2016060103.nc")
	want := writeTestSample(t, path)

	schema, _ := domain.Schema(3, nil)
	store, err := NewStore(Options{Schema: schema, Dims: 3, CacheSize: 4})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	got, err := store.Load(path, sliceTime)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Time.Equal(sliceTime) || got.Source != path {
		t.Errorf("sample stamped %v %s, want %v %s", got.Time, got.Source, sliceTime, path)
	}
	if len(got.Axes.Depths) != 3 || len(got.Axes.Lats) != 2 || len(got.Axes.Lons) != 3 {
		t.Fatalf("unexpected axes %+v", got.Axes)
	}

	for _, b := range schema {
		gotVals, ok := got.Values(b.Dest)
		if !ok {
			t.Fatalf("%s not loaded", b.Dest)
		}
		wantVals, _ := want.Values(b.Dest)
		for i := range wantVals {
			if math.IsNaN(wantVals[i]) {
				if !math.IsNaN(gotVals[i]) {
					t.Errorf("%s[%d]: expected masked value, got %v", b.Dest, i, gotVals[i])
				}
				continue
			}
			if gotVals[i] != wantVals[i] {
				t.Errorf("%s[%d]: expected %v, got %v", b.Dest, i, wantVals[i], gotVals[i])
			}
		}
	}
}

func TestStoreReadsForcingDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slice.nc")
	want := writeTestSample(t, path)

	schema, _ := domain.Schema(2, nil)
	store, err := NewStore(Options{Schema: schema, Dims: 2, ForcingDepth: 10, CacheSize: 4})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	got, err := store.Load(path, sliceTime)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Axes.Depths) != 1 || got.Axes.Depths[0] != 10 {
		t.Fatalf("expected a single level at 10 m, got %v", got.Axes.Depths)
	}
	if _, ok := got.Values(domain.VarW); ok {
		t.Errorf("w must not be loaded for a 2-D model")
	}

	u, _ := got.Values(domain.VarU)
	wantU, _ := want.Values(domain.VarU)
	if len(u) != 6 {
		t.Fatalf("expected one level of 6 values, got %d", len(u))
	}
	for i := range u {
		if u[i] != wantU[6+i] {
			t.Errorf("u[%d]: expected %v, got %v", i, wantU[6+i], u[i])
		}
	}
}

func TestStoreRejectsUnknownForcingDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slice.nc")
	writeTestSample(t, path)

	schema, _ := domain.Schema(2, nil)
	store, err := NewStore(Options{Schema: schema, Dims: 2, ForcingDepth: 15})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = store.Load(path, sliceTime)
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestStoreCacheEvictsOldest(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.nc"), filepath.Join(dir, "b.nc")}
	for _, p := range paths {
		writeTestSample(t, p)
	}

	schema, _ := domain.Schema(3, nil)
	store, err := NewStore(Options{Schema: schema, Dims: 3, CacheSize: 1})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	first, err := store.Load(paths[0], sliceTime)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	again, _ := store.Load(paths[0], sliceTime)
	if first != again {
		t.Errorf("expected cached sample on second load")
	}

	if _, err := store.Load(paths[1], sliceTime); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := store.Cached(); n != 1 {
		t.Errorf("expected 1 cached sample, got %d", n)
	}
	reloaded, _ := store.Load(paths[0], sliceTime)
	if reloaded == first {
		t.Errorf("expected evicted sample to be reloaded")
	}
}

// createPackedNC writes a 2-D file with lowercase coordinates and a packed int16 variable.
func createPackedNC(t *testing.T, path string) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer f.Close()

	latDim, _ := f.AddDim("lat", 2)
	lonDim, _ := f.AddDim("lon", 2)
	vlat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	vlon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	vtemp, _ := f.AddVar("temperature", netcdf.SHORT, []netcdf.Dim{latDim, lonDim})
	if err := vtemp.Attr("_FillValue").WriteInt16s([]int16{-32767}); err != nil {
		t.Fatalf("fill attr: %v", err)
	}
	if err := vtemp.Attr("scale_factor").WriteFloat64s([]float64{0.5}); err != nil {
		t.Fatalf("scale attr: %v", err)
	}
	if err := vtemp.Attr("add_offset").WriteFloat64s([]float64{20}); err != nil {
		t.Fatalf("offset attr: %v", err)
	}

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}
	if err := vlat.WriteFloat64s([]float64{35.0, 36.0}); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vlon.WriteFloat64s([]float64{139.0, 140.0}); err != nil {
		t.Fatalf("write lon: %v", err)
	}
	if err := vtemp.WriteInt16s([]int16{0, 2, -32767, 10}); err != nil {
		t.Fatalf("write temperature: %v", err)
	}
}

func TestStoreUnpacksScaledValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packed.nc")
	createPackedNC(t, path)

	schema := []domain.VarBinding{{Source: "temperature", Dest: domain.VarTemp}}
	store, err := NewStore(Options{Schema: schema, Dims: 2})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s, err := store.Load(path, sliceTime)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	temp, _ := s.Values(domain.VarTemp)
	want := []float64{20, 21, math.NaN(), 25}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(temp[i]) {
				t.Errorf("temp[%d]: expected masked value, got %v", i, temp[i])
			}
			continue
		}
		if temp[i] != want[i] {
			t.Errorf("temp[%d]: expected %v, got %v", i, want[i], temp[i])
		}
	}
}

func TestStoreMissingVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packed.nc")
	createPackedNC(t, path)

	schema := []domain.VarBinding{{Source: "u", Dest: domain.VarU}}
	store, _ := NewStore(Options{Schema: schema, Dims: 2})
	if _, err := store.Load(path, sliceTime); err == nil {
		t.Errorf("expected error for missing variable")
	}
	if _, err := store.Load(filepath.Join(t.TempDir(), "absent.nc"), sliceTime); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestNewStoreValidates(t *testing.T) {
	schema, _ := domain.Schema(2, nil)
	if _, err := NewStore(Options{Schema: schema, Dims: 1}); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected configuration error for dims, got %v", err)
	}
	if _, err := NewStore(Options{Dims: 2}); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected configuration error for empty schema, got %v", err)
	}
}

func TestHourlyResolver(t *testing.T) {
	got := HourlyResolver(time.Date(2016, 1, 2, 7, 30, 0, 0, time.UTC), "HYCOM", "GOMl0.04/expt_31.0", "data")
	want := filepath.Join("data", "HYCOM_GOMl0.04_expt_31.0_2016010207.nc")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestLocatorAndFirstFile(t *testing.T) {
	dir := t.TempDir()
	loc := Locator{Model: "HYCOM", Submodel: "GOMl0.04/expt_31.0", DataDir: dir}

	present := time.Date(2016, 1, 1, 1, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{present, present.Add(-time.Hour)} {
		if err := os.WriteFile(loc.Path(ts), []byte{}, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if path, ok := loc.Lookup(present); !ok || filepath.Base(path) != "HYCOM_GOMl0.04_expt_31.0_2016010101.nc" {
		t.Errorf("expected existing file, got %s %v", path, ok)
	}
	if _, ok := loc.Lookup(present.Add(time.Hour)); ok {
		t.Errorf("expected missing file")
	}

	first, err := FirstFile(dir)
	if err != nil {
		t.Fatalf("FirstFile: %v", err)
	}
	if filepath.Base(first) != "HYCOM_GOMl0.04_expt_31.0_2016010100.nc" {
		t.Errorf("expected earliest file, got %s", first)
	}

	if _, err := FirstFile(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("expected error for missing directory")
	}
}

func TestWriteSampleFlushesOnReturn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "written.nc")
	want := writeTestSample(t, path)

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer func() { _ = nc.Close() }()
	v, err := nc.Var("u")
	if err != nil {
		t.Fatalf("variable u: %v", err)
	}
	got := make([]float32, want.Axes.Size())
	if err := v.ReadFloat32s(got); err != nil {
		t.Fatalf("read u: %v", err)
	}
	vals, _ := want.Values(domain.VarU)
	for i := range got {
		if float64(got[i]) != vals[i] {
			t.Fatalf("u[%d] = %v, want %v", i, got[i], vals[i])
		}
	}

	// A write error is not masked by the close.
	schema, _ := domain.Schema(3, nil)
	partial, err := domain.NewFieldSample(sliceTime, path, want.Axes, map[domain.Variable][]float64{domain.VarU: vals})
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	if err := WriteSample(filepath.Join(t.TempDir(), "partial.nc"), partial, schema); err == nil {
		t.Errorf("expected error for sample without every schema variable")
	}
}
