package field

import (
	"fmt"
	"math"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/drifters/internal/domain"
)

// FillValue marks masked nodes in written files.
const FillValue float32 = -30000

// mtEpoch is the origin of the MT time coordinate (days).
var mtEpoch = time.Date(1900, 12, 31, 0, 0, 0, 0, time.UTC)

// WriteSample writes a sample in the per-timestep layout read by Store:
// coordinates Depth, Latitude, Longitude and MT, and each schema variable as
// float32 (MT, Depth, Latitude, Longitude) with NaN stored as FillValue.
func WriteSample(path string, s *domain.FieldSample, schema []domain.VarBinding) (err error) {
	ncMu.Lock()
	defer ncMu.Unlock()

	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create NetCDF file %s: %w", path, err)
	}
	// Data reaches the file on close.
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close NetCDF file %s: %w", path, cerr)
		}
	}()

	nDepth, nLat, nLon := s.Axes.Shape()
	//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF dimensions.
	dims, err := addDims(f, []string{"MT", "Depth", "Latitude", "Longitude"}, []uint64{1, uint64(nDepth), uint64(nLat), uint64(nLon)})
	if err != nil {
		return err
	}

	coords := []struct {
		name string
		dim  netcdf.Dim
		data []float64
	}{
		{"MT", dims[0], []float64{s.Time.Sub(mtEpoch).Hours() / 24}},
		{"Depth", dims[1], s.Axes.Depths},
		{"Latitude", dims[2], s.Axes.Lats},
		{"Longitude", dims[3], s.Axes.Lons},
	}
	coordVars := make([]netcdf.Var, len(coords))
	for i, c := range coords {
		v, err := f.AddVar(c.name, netcdf.DOUBLE, []netcdf.Dim{c.dim})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
		coordVars[i] = v
	}

	dataVars := make([]netcdf.Var, len(schema))
	for i, b := range schema {
		v, err := f.AddVar(b.Source, netcdf.FLOAT, dims)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", b.Source, err)
		}
		if err := v.Attr("_FillValue").WriteFloat32s([]float32{FillValue}); err != nil {
			return fmt.Errorf("failed to set fill value of %s: %w", b.Source, err)
		}
		dataVars[i] = v
	}

	if err := f.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}

	for i, c := range coords {
		if err := coordVars[i].WriteFloat64s(c.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", c.name, err)
		}
	}
	for i, b := range schema {
		vals, ok := s.Values(b.Dest)
		if !ok {
			return fmt.Errorf("sample has no values for %s", b.Dest)
		}
		packed := make([]float32, len(vals))
		for j, val := range vals {
			if math.IsNaN(val) {
				packed[j] = FillValue
			} else {
				packed[j] = float32(val)
			}
		}
		if err := dataVars[i].WriteFloat32s(packed); err != nil {
			return fmt.Errorf("failed to write %s: %w", b.Source, err)
		}
	}
	return nil
}

func addDims(f netcdf.Dataset, names []string, lengths []uint64) ([]netcdf.Dim, error) {
	dims := make([]netcdf.Dim, len(names))
	for i, name := range names {
		d, err := f.AddDim(name, lengths[i])
		if err != nil {
			return nil, fmt.Errorf("failed to add dimension %s: %w", name, err)
		}
		dims[i] = d
	}
	return dims, nil
}
