package config

import (
	"fmt"
	"time"

	"gopkg.in/gcfg.v1"

	"go.ngs.io/drifters/internal/domain"
)

// iniFile mirrors Config in gcfg form. Durations are strings ("1h", "30m").
//
//	[model]
//	name = HYCOM
//	data-dir = ./data
//	dims = 3
//
//	[vertical-migration]
//	enabled = true
//	depth = 50
//	depth = 40
//	...
type iniFile struct {
	Model struct {
		Name         string  `gcfg:"name"`
		Submodel     string  `gcfg:"submodel"`
		DataDir      string  `gcfg:"data-dir"`
		Dims         int     `gcfg:"dims"`
		ForcingDepth float64 `gcfg:"forcing-depth"`
		DataStep     string  `gcfg:"data-step"`
		SearchWindow string  `gcfg:"search-window"`
		Bathymetry   string  `gcfg:"bathymetry"`
		MinLat       float64 `gcfg:"min-lat"`
		MaxLat       float64 `gcfg:"max-lat"`
		MinLon       float64 `gcfg:"min-lon"`
		MaxLon       float64 `gcfg:"max-lon"`
	} `gcfg:"model"`

	Variables struct {
		U    string `gcfg:"u"`
		V    string `gcfg:"v"`
		W    string `gcfg:"w"`
		Temp string `gcfg:"temp"`
		Sal  string `gcfg:"sal"`
	} `gcfg:"variables"`

	Run struct {
		Direction       string `gcfg:"direction"`
		Timestep        string `gcfg:"timestep"`
		OutputFrequency string `gcfg:"output-frequency"`
		Workers         int    `gcfg:"workers"`
		CacheSize       int    `gcfg:"cache-size"`
	} `gcfg:"run"`

	Interp struct {
		Method        string  `gcfg:"method"`
		LeafSize      int     `gcfg:"leaf-size"`
		IDWPower      float64 `gcfg:"idw-power"`
		FallbackToIDW bool    `gcfg:"fallback-to-idw"`
	} `gcfg:"interp"`

	Projection struct {
		Source string `gcfg:"source"`
		Target string `gcfg:"target"`
	} `gcfg:"projection"`

	VerticalMigration struct {
		Enabled bool      `gcfg:"enabled"`
		Depth   []float64 `gcfg:"depth"`
	} `gcfg:"vertical-migration"`

	Output struct {
		Dir    string `gcfg:"dir"`
		File   string `gcfg:"file"`
		SQLite string `gcfg:"sqlite"`
	} `gcfg:"output"`
}

// readINI reads a gcfg file over cfg. The file is read into a copy of cfg's
// values, so variables it omits keep their current setting.
func readINI(path string, cfg *Config) error {
	ini := toINI(cfg)
	// Multi-valued variables append; a file listing depths replaces them.
	ini.VerticalMigration.Depth = nil

	if err := gcfg.ReadFileInto(&ini, path); err != nil {
		return fmt.Errorf("%w: parsing config file: %v", domain.ErrConfig, err)
	}
	if ini.VerticalMigration.Depth == nil {
		ini.VerticalMigration.Depth = cfg.VerticalMigration.Depths
	}
	return fromINI(&ini, cfg)
}

func toINI(c *Config) iniFile {
	var f iniFile
	f.Model.Name = c.Model.Name
	f.Model.Submodel = c.Model.Submodel
	f.Model.DataDir = c.Model.DataDir
	f.Model.Dims = c.Model.Dims
	f.Model.ForcingDepth = c.Model.ForcingDepth
	f.Model.DataStep = c.Model.DataStep.String()
	f.Model.SearchWindow = c.Model.SearchWindow.String()
	f.Model.Bathymetry = c.Model.Bathymetry
	f.Model.MinLat = c.Model.Extent.MinLat
	f.Model.MaxLat = c.Model.Extent.MaxLat
	f.Model.MinLon = c.Model.Extent.MinLon
	f.Model.MaxLon = c.Model.Extent.MaxLon

	f.Variables.U = c.Model.Variables.U
	f.Variables.V = c.Model.Variables.V
	f.Variables.W = c.Model.Variables.W
	f.Variables.Temp = c.Model.Variables.Temp
	f.Variables.Sal = c.Model.Variables.Sal

	f.Run.Direction = c.Run.Direction
	f.Run.Timestep = c.Run.Timestep.String()
	f.Run.OutputFrequency = c.Run.OutputFrequency.String()
	f.Run.Workers = c.Run.Workers
	f.Run.CacheSize = c.Run.CacheSize

	f.Interp.Method = c.Interp.Method
	f.Interp.LeafSize = c.Interp.LeafSize
	f.Interp.IDWPower = c.Interp.IDWPower
	f.Interp.FallbackToIDW = c.Interp.FallbackToIDW

	f.Projection.Source = c.Projection.Source
	f.Projection.Target = c.Projection.Target

	f.VerticalMigration.Enabled = c.VerticalMigration.Enabled
	f.VerticalMigration.Depth = c.VerticalMigration.Depths

	f.Output.Dir = c.Output.Dir
	f.Output.File = c.Output.File
	f.Output.SQLite = c.Output.SQLite
	return f
}

func fromINI(f *iniFile, c *Config) error {
	durations := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"model.data-step", f.Model.DataStep, &c.Model.DataStep},
		{"model.search-window", f.Model.SearchWindow, &c.Model.SearchWindow},
		{"run.timestep", f.Run.Timestep, &c.Run.Timestep},
		{"run.output-frequency", f.Run.OutputFrequency, &c.Run.OutputFrequency},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrConfig, d.name, err)
		}
		*d.dst = v
	}

	c.Model.Name = f.Model.Name
	c.Model.Submodel = f.Model.Submodel
	c.Model.DataDir = f.Model.DataDir
	c.Model.Dims = f.Model.Dims
	c.Model.ForcingDepth = f.Model.ForcingDepth
	c.Model.Bathymetry = f.Model.Bathymetry
	c.Model.Extent = ExtentConfig{MinLat: f.Model.MinLat, MaxLat: f.Model.MaxLat, MinLon: f.Model.MinLon, MaxLon: f.Model.MaxLon}
	c.Model.Variables = VariablesConfig{U: f.Variables.U, V: f.Variables.V, W: f.Variables.W, Temp: f.Variables.Temp, Sal: f.Variables.Sal}

	c.Run.Direction = f.Run.Direction
	c.Run.Workers = f.Run.Workers
	c.Run.CacheSize = f.Run.CacheSize

	c.Interp = InterpConfig{
		Method:        f.Interp.Method,
		LeafSize:      f.Interp.LeafSize,
		IDWPower:      f.Interp.IDWPower,
		FallbackToIDW: f.Interp.FallbackToIDW,
	}
	c.Projection = ProjectionConfig{Source: f.Projection.Source, Target: f.Projection.Target}
	c.VerticalMigration = MigrationConfig{Enabled: f.VerticalMigration.Enabled, Depths: f.VerticalMigration.Depth}
	c.Output = OutputConfig{Dir: f.Output.Dir, File: f.Output.File, SQLite: f.Output.SQLite}
	return nil
}
