package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/drifters/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATA_DIR", "DRIFT_INTERP", "DRIFT_DIRECTION", "DRIFT_WORKERS", "DRIFT_DIMS", "OUTPUT_FILE", "OUTPUT_SQLITE"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Model.Dims)
	assert.Equal(t, "HYCOM", cfg.Model.Name)
	assert.Equal(t, time.Hour, cfg.Run.Timestep)
	assert.Equal(t, 24*time.Hour, cfg.Model.SearchWindow)
	assert.Equal(t, "linear", cfg.Interp.Method)
	assert.Equal(t, 9, cfg.Interp.LeafSize)
	assert.Equal(t, 1.0, cfg.Interp.IDWPower)
	assert.Len(t, cfg.VerticalMigration.Depths, 24)
	assert.Equal(t, domain.Forward, cfg.Direction())
	assert.Contains(t, cfg.TargetProjection(), "+proj=merc")

	schema, err := cfg.Schema()
	require.NoError(t, err)
	assert.Equal(t, []domain.VarBinding{
		{Source: "u", Dest: domain.VarU},
		{Source: "v", Dest: domain.VarV},
		{Source: "temperature", Dest: domain.VarTemp},
		{Source: "salinity", Dest: domain.VarSal},
	}, schema)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "run.yaml", `
model:
  dims: 3
  data_step: 3h
  variables:
    w: wvel
run:
  direction: backward
  timestep: 30m
interp:
  method: spline
vertical_migration:
  enabled: true
projection:
  target: "+proj=merc +lon_0=-90 +ellps=WGS84 +units=m"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Model.Dims)
	assert.Equal(t, 3*time.Hour, cfg.Model.DataStep)
	assert.Equal(t, 30*time.Minute, cfg.Run.Timestep)
	assert.Equal(t, time.Hour, cfg.Run.OutputFrequency, "unchanged default")
	assert.Equal(t, domain.Backward, cfg.Direction())
	assert.Equal(t, "spline", cfg.Interp.Method)
	assert.Equal(t, "HYCOM", cfg.Model.Name, "unchanged default")
	assert.Equal(t, "+proj=merc +lon_0=-90 +ellps=WGS84 +units=m", cfg.TargetProjection())

	schema, err := cfg.Schema()
	require.NoError(t, err)
	require.Len(t, schema, 5)
	assert.Equal(t, domain.VarBinding{Source: "wvel", Dest: domain.VarW}, schema[2])
}

func TestLoadINI(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "run.ini", `
[model]
data-dir = /srv/hycom
dims = 3
search-window = 12h

[run]
direction = backward
workers = 2

[interp]
method = idw
leaf-size = 4
fallback-to-idw = true

[projection]
source = "+proj=longlat +ellps=WGS84"

[vertical-migration]
enabled = true
depth = 1
depth = 2
depth = 3
depth = 4
depth = 5
depth = 6
depth = 7
depth = 8
depth = 9
depth = 10
depth = 11
depth = 12
depth = 13
depth = 14
depth = 15
depth = 16
depth = 17
depth = 18
depth = 19
depth = 20
depth = 21
depth = 22
depth = 23
depth = 24
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/hycom", cfg.Model.DataDir)
	assert.Equal(t, 3, cfg.Model.Dims)
	assert.Equal(t, 12*time.Hour, cfg.Model.SearchWindow)
	assert.Equal(t, time.Hour, cfg.Model.DataStep, "unchanged default")
	assert.Equal(t, domain.Backward, cfg.Direction())
	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, "idw", cfg.Interp.Method)
	assert.Equal(t, 4, cfg.Interp.LeafSize)
	assert.True(t, cfg.Interp.FallbackToIDW)
	assert.Equal(t, "+proj=longlat +ellps=WGS84", cfg.Projection.Source)
	assert.Equal(t, "temperature", cfg.Model.Variables.Temp, "unchanged default")
	require.Len(t, cfg.VerticalMigration.Depths, 24)
	assert.Equal(t, 1.0, cfg.VerticalMigration.Depths[0])
	assert.Equal(t, 24.0, cfg.VerticalMigration.Depths[23])
}

func TestLoadINIRejectsUnknownVariable(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "run.ini", "[run]\nspeed = fast\n")
	_, err := Load(path)
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/tmp/fields")
	t.Setenv("DRIFT_INTERP", "nearest")
	t.Setenv("DRIFT_WORKERS", "16")
	t.Setenv("DRIFT_DIRECTION", "backward")
	t.Setenv("OUTPUT_FILE", "run.csv")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fields", cfg.Model.DataDir)
	assert.Equal(t, "nearest", cfg.Interp.Method)
	assert.Equal(t, 16, cfg.Run.Workers)
	assert.Equal(t, domain.Backward, cfg.Direction())
	assert.Equal(t, "run.csv", cfg.Output.File)

	t.Setenv("DRIFT_WORKERS", "many")
	_, err = Load("")
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"dims", func(c *Config) { c.Model.Dims = 4 }},
		{"direction", func(c *Config) { c.Run.Direction = "sideways" }},
		{"method", func(c *Config) { c.Interp.Method = "kriging" }},
		{"timestep", func(c *Config) { c.Run.Timestep = 0 }},
		{"output frequency", func(c *Config) { c.Run.OutputFrequency = 90 * time.Minute }},
		{"workers", func(c *Config) { c.Run.Workers = 0 }},
		{"cache", func(c *Config) { c.Run.CacheSize = 1 }},
		{"leaf size", func(c *Config) { c.Interp.LeafSize = 0 }},
		{"power", func(c *Config) { c.Interp.IDWPower = 0 }},
		{"window", func(c *Config) { c.Model.SearchWindow = 30 * time.Minute }},
		{"extent", func(c *Config) { c.Model.Extent.MinLat = 40 }},
		{"migration in 2-D", func(c *Config) { c.VerticalMigration.Enabled = true }},
		{"bathymetry in 2-D", func(c *Config) { c.Model.Bathymetry = "gebco.nc" }},
		{"migration length", func(c *Config) {
			c.Model.Dims = 3
			c.VerticalMigration.Enabled = true
			c.VerticalMigration.Depths = []float64{1, 2, 3}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())
			tt.modify(cfg)
			assert.True(t, errors.Is(cfg.Validate(), domain.ErrConfig), "expected configuration error")
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg, err := Default()
	require.NoError(t, err)
	cfg.Run.Timestep = 15 * time.Minute
	cfg.Run.OutputFrequency = 30 * time.Minute

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
