package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/drifters/internal/adapter/store/field"
	"go.ngs.io/drifters/internal/config"
	"go.ngs.io/drifters/internal/domain"
)

// writeUniformFields writes hourly 2-D files with a uniform eastward current
// of u m/s over a 5x5 grid around (27N, 90W).
func writeUniformFields(t *testing.T, cfg *config.Config, u float64, hours ...int) {
	t.Helper()
	schema, err := cfg.Schema()
	require.NoError(t, err)

	axes := domain.Axes{
		Lats:   []float64{26, 26.5, 27, 27.5, 28},
		Lons:   []float64{-91, -90.5, -90, -89.5, -89},
		Depths: []float64{0},
	}
	constant := func(v float64) []float64 {
		vals := make([]float64, axes.Size())
		for i := range vals {
			vals[i] = v
		}
		return vals
	}
	for _, h := range hours {
		ts := start.Add(time.Duration(h) * time.Hour)
		path := field.HourlyResolver(ts, cfg.Model.Name, cfg.Model.Submodel, cfg.Model.DataDir)
		s, err := domain.NewFieldSample(ts, path, axes, map[domain.Variable][]float64{
			domain.VarU:    constant(u),
			domain.VarV:    constant(0),
			domain.VarTemp: constant(24.5),
			domain.VarSal:  constant(36),
		})
		require.NoError(t, err)
		require.NoError(t, field.WriteSample(path, s, schema))
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Model.DataDir = t.TempDir()
	cfg.Run.Workers = 2
	return cfg
}

func TestEngineRunsUniformCurrent(t *testing.T) {
	cfg := testConfig(t)
	writeUniformFields(t, cfg, 0.1, 0, 1, 2, 3, 4)

	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	info := engine.GridInfo()
	assert.Equal(t, 5, info.NLat)
	assert.Equal(t, 5, info.NLon)
	assert.Equal(t, []float64{0}, info.Depths)
	assert.Equal(t, 26.0, info.MinLat)
	assert.Equal(t, -89.0, info.MaxLon)

	rel := domain.Release{ParticleID: "d1", Lat: 27, Lon: -90, Start: start, Duration: 3 * time.Hour}
	out := engine.Run(context.Background(), []domain.Release{rel})
	require.Len(t, out, 1)
	tr := out[0]
	require.NoError(t, tr.Err)
	require.Len(t, tr.Records, 3)

	for i, rec := range tr.Records {
		assert.Equal(t, start.Add(time.Duration(i)*time.Hour), rec.Time)
		assert.InDelta(t, 0.1, rec.U, 1e-6)
		assert.InDelta(t, 0, rec.V, 1e-6)
		assert.InDelta(t, 24.5, rec.Temp, 1e-4)
		assert.InDelta(t, 36, rec.Sal, 1e-4)
		assert.True(t, domain.IsAbsent(rec.W))
		assert.InDelta(t, 27, rec.Lat, 1e-6, "no meridional current")
	}
	assert.Greater(t, tr.Records[1].Lon, tr.Records[0].Lon)
	assert.Greater(t, tr.Records[2].Lon, tr.Records[1].Lon)
	assert.Equal(t, 3, engine.Store.Cached())
}

func TestEngineStopsAtDataGap(t *testing.T) {
	cfg := testConfig(t)
	writeUniformFields(t, cfg, 0.1, 0, 1)

	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	rel := domain.Release{ParticleID: "d1", Lat: 27, Lon: -90, Start: start, Duration: 6 * time.Hour}
	tr := engine.Run(context.Background(), []domain.Release{rel})[0]
	assert.True(t, errors.Is(tr.Err, domain.ErrDataGap), "got %v", tr.Err)
	assert.Len(t, tr.Records, 2)
}

func TestNewEngineRequiresData(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewEngine(cfg, nil)
	assert.True(t, errors.Is(err, domain.ErrConfig))
}
