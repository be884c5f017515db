// Package config provides configuration loading for drifter runs.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go.ngs.io/drifters/internal/adapter/interp"
	"go.ngs.io/drifters/internal/adapter/projection"
	"go.ngs.io/drifters/internal/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all run configuration parameters.
type Config struct {
	Model             ModelConfig      `yaml:"model"`
	Run               RunConfig        `yaml:"run"`
	Interp            InterpConfig     `yaml:"interp"`
	Projection        ProjectionConfig `yaml:"projection"`
	VerticalMigration MigrationConfig  `yaml:"vertical_migration"`
	Output            OutputConfig     `yaml:"output"`
}

// ModelConfig describes the ocean model data.
type ModelConfig struct {
	Name         string          `yaml:"name"`
	Submodel     string          `yaml:"submodel"`
	DataDir      string          `yaml:"data_dir"`
	Dims         int             `yaml:"dims"`
	ForcingDepth float64         `yaml:"forcing_depth"`
	DataStep     time.Duration   `yaml:"data_step"`
	SearchWindow time.Duration   `yaml:"search_window"`
	Bathymetry   string          `yaml:"bathymetry"`
	Variables    VariablesConfig `yaml:"variables"`
	Extent       ExtentConfig    `yaml:"extent"`
}

// VariablesConfig names the data variables in the model files.
type VariablesConfig struct {
	U    string `yaml:"u"`
	V    string `yaml:"v"`
	W    string `yaml:"w"`
	Temp string `yaml:"temp"`
	Sal  string `yaml:"sal"`
}

// ExtentConfig is the model domain in degrees.
type ExtentConfig struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// RunConfig holds integration settings.
type RunConfig struct {
	Direction       string        `yaml:"direction"`
	Timestep        time.Duration `yaml:"timestep"`
	OutputFrequency time.Duration `yaml:"output_frequency"`
	Workers         int           `yaml:"workers"`
	CacheSize       int           `yaml:"cache_size"`
}

// InterpConfig selects the spatial interpolation.
type InterpConfig struct {
	Method        string  `yaml:"method"`
	LeafSize      int     `yaml:"leaf_size"`
	IDWPower      float64 `yaml:"idw_power"`
	FallbackToIDW bool    `yaml:"fallback_to_idw"`
}

// ProjectionConfig holds PROJ.4 definitions.
type ProjectionConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// MigrationConfig overrides vertical velocity with a daily depth cycle.
type MigrationConfig struct {
	Enabled bool      `yaml:"enabled"`
	Depths  []float64 `yaml:"depths"`
}

// OutputConfig locates trajectory output.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	SQLite string `yaml:"sqlite"`
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load loads configuration from a YAML or INI file merged over the embedded
// defaults, then applies environment overrides. If path is empty, only the
// defaults and environment are used. The result is validated.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ini", ".gcfg", ".cfg":
			if err := readINI(path, cfg); err != nil {
				return nil, err
			}
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			// Only overwrites fields present in the file.
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parsing config file: %v", domain.ErrConfig, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from the environment.
func (c *Config) applyEnv() error {
	c.Model.DataDir = getEnv("DATA_DIR", c.Model.DataDir)
	c.Interp.Method = getEnv("DRIFT_INTERP", c.Interp.Method)
	c.Run.Direction = getEnv("DRIFT_DIRECTION", c.Run.Direction)
	c.Output.File = getEnv("OUTPUT_FILE", c.Output.File)
	c.Output.SQLite = getEnv("OUTPUT_SQLITE", c.Output.SQLite)

	for _, v := range []struct {
		key string
		dst *int
	}{
		{"DRIFT_WORKERS", &c.Run.Workers},
		{"DRIFT_DIMS", &c.Model.Dims},
	} {
		s := os.Getenv(v.key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrConfig, v.key, s)
		}
		*v.dst = n
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Model.Dims != 2 && c.Model.Dims != 3 {
		return fmt.Errorf("%w: model.dims must be 2 or 3, got %d", domain.ErrConfig, c.Model.Dims)
	}
	if c.Model.DataDir == "" {
		return fmt.Errorf("%w: model.data_dir is required", domain.ErrConfig)
	}
	if c.Model.DataStep <= 0 {
		return fmt.Errorf("%w: model.data_step must be positive", domain.ErrConfig)
	}
	if c.Model.SearchWindow < c.Model.DataStep {
		return fmt.Errorf("%w: model.search_window %v is shorter than data_step %v", domain.ErrConfig, c.Model.SearchWindow, c.Model.DataStep)
	}
	e := c.Model.Extent
	if e.MinLat >= e.MaxLat || e.MinLon >= e.MaxLon {
		return fmt.Errorf("%w: model.extent must have min < max", domain.ErrConfig)
	}

	if _, err := domain.ParseDirection(c.Run.Direction); err != nil {
		return err
	}
	if c.Run.Timestep <= 0 {
		return fmt.Errorf("%w: run.timestep must be positive", domain.ErrConfig)
	}
	if c.Run.OutputFrequency == 0 {
		c.Run.OutputFrequency = c.Run.Timestep
	}
	if c.Run.OutputFrequency < 0 || c.Run.OutputFrequency%c.Run.Timestep != 0 {
		return fmt.Errorf("%w: run.output_frequency %v must be a multiple of timestep %v", domain.ErrConfig, c.Run.OutputFrequency, c.Run.Timestep)
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("%w: run.workers must be at least 1", domain.ErrConfig)
	}
	if c.Run.CacheSize < 2 {
		return fmt.Errorf("%w: run.cache_size must hold at least the two bracketing slices", domain.ErrConfig)
	}

	if _, err := interp.ParseMethod(c.Interp.Method); err != nil {
		return err
	}
	if c.Interp.LeafSize < 1 {
		return fmt.Errorf("%w: interp.leaf_size must be at least 1", domain.ErrConfig)
	}
	if c.Interp.IDWPower <= 0 {
		return fmt.Errorf("%w: interp.idw_power must be positive", domain.ErrConfig)
	}

	if c.Projection.Source == "" {
		return fmt.Errorf("%w: projection.source is required", domain.ErrConfig)
	}

	if c.Model.Bathymetry != "" && c.Model.Dims != 3 {
		return fmt.Errorf("%w: model.bathymetry requires a 3-D model", domain.ErrConfig)
	}

	if c.VerticalMigration.Enabled {
		if c.Model.Dims != 3 {
			return fmt.Errorf("%w: vertical migration requires a 3-D model", domain.ErrConfig)
		}
		if n := len(c.VerticalMigration.Depths); n != 24 {
			return fmt.Errorf("%w: vertical_migration.depths must have 24 entries, got %d", domain.ErrConfig, n)
		}
	}
	return nil
}

// Direction returns the parsed integration direction.
func (c *Config) Direction() domain.Direction {
	d, _ := domain.ParseDirection(c.Run.Direction)
	return d
}

// Schema returns the variable bindings for the configured dimensionality.
func (c *Config) Schema() ([]domain.VarBinding, error) {
	v := c.Model.Variables
	return domain.Schema(c.Model.Dims, map[domain.Variable]string{
		domain.VarU:    v.U,
		domain.VarV:    v.V,
		domain.VarW:    v.W,
		domain.VarTemp: v.Temp,
		domain.VarSal:  v.Sal,
	})
}

// Extent returns the model extent.
func (c *Config) Extent() projection.Extent {
	e := c.Model.Extent
	return projection.Extent{MinLat: e.MinLat, MaxLat: e.MaxLat, MinLon: e.MinLon, MaxLon: e.MaxLon}
}

// TargetProjection returns the planar projection, defaulting to a Mercator
// centered on the model extent.
func (c *Config) TargetProjection() string {
	if c.Projection.Target != "" {
		return c.Projection.Target
	}
	return projection.MercatorFor(c.Extent())
}

// WriteYAML saves the configuration as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
