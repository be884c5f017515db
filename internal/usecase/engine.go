package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.ngs.io/drifters/internal/adapter/grid"
	"go.ngs.io/drifters/internal/adapter/interp"
	"go.ngs.io/drifters/internal/adapter/projection"
	"go.ngs.io/drifters/internal/adapter/store/bathymetry"
	"go.ngs.io/drifters/internal/adapter/store/field"
	"go.ngs.io/drifters/internal/config"
	"go.ngs.io/drifters/internal/domain"
)

// seafloorMargin is the padding in degrees read around the grid from the bathymetry file.
const seafloorMargin = 0.5

// Engine is a configured drifter simulation over one model data directory.
type Engine struct {
	Config     *config.Config
	Projection *projection.Projection
	Grid       *grid.Grid
	Store      *field.Store
	Locator    field.Locator
	Runner     *Runner

	reference string
}

// GridInfo describes the run grid.
type GridInfo struct {
	Model      string    `json:"model"`
	Submodel   string    `json:"submodel"`
	Dims       int       `json:"dims"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference"`
	Projection string    `json:"projection"`
	NLat       int       `json:"n_lat"`
	NLon       int       `json:"n_lon"`
	Depths     []float64 `json:"depths"`
	MinLat     float64   `json:"min_lat"`
	MaxLat     float64   `json:"max_lat"`
	MinLon     float64   `json:"min_lon"`
	MaxLon     float64   `json:"max_lon"`
}

// NewEngine builds the projection, grid, field store and runner for cfg.
// The grid is taken from the first data file in the model directory.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	proj, err := projection.New(cfg.Projection.Source, cfg.TargetProjection())
	if err != nil {
		return nil, err
	}
	schema, err := cfg.Schema()
	if err != nil {
		return nil, err
	}
	method, err := interp.ParseMethod(cfg.Interp.Method)
	if err != nil {
		return nil, err
	}

	store, err := field.NewStore(field.Options{
		Schema:       schema,
		Dims:         cfg.Model.Dims,
		ForcingDepth: cfg.Model.ForcingDepth,
		CacheSize:    cfg.Run.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	ref, err := field.FirstFile(cfg.Model.DataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	sample, err := store.Read(ref, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to read reference grid: %w", err)
	}
	g, err := grid.New(sample.Axes, proj)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid from %s: %w", ref, err)
	}

	in, err := interp.New(method, g, cfg.Model.Dims, interp.Options{
		K:             cfg.Interp.LeafSize,
		Power:         cfg.Interp.IDWPower,
		FallbackToIDW: cfg.Interp.FallbackToIDW,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	locator := field.Locator{
		Resolve:  field.HourlyResolver,
		Model:    cfg.Model.Name,
		Submodel: cfg.Model.Submodel,
		DataDir:  cfg.Model.DataDir,
	}
	sampler := &Sampler{
		Resolver: TemporalResolver{Locator: locator, Step: cfg.Model.DataStep, Window: cfg.Model.SearchWindow},
		Loader:   store,
		Grid:     g,
		Interp:   in,
		Vars:     domain.Variables(schema),
	}
	integrator := Integrator{
		Proj:      proj,
		Timestep:  cfg.Run.Timestep,
		Direction: cfg.Direction(),
		Dims:      cfg.Model.Dims,
		Source:    locator.Path,
	}
	if cfg.VerticalMigration.Enabled {
		integrator.Migration = cfg.VerticalMigration.Depths
	}
	if cfg.Model.Bathymetry != "" {
		minLat, maxLat, minLon, maxLon := g.Bounds()
		seafloor, err := bathymetry.Load(cfg.Model.Bathymetry, bathymetry.Region{
			MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon,
		}, seafloorMargin)
		if err != nil {
			return nil, fmt.Errorf("failed to load bathymetry: %w", err)
		}
		integrator.Seafloor = seafloor
		logger.Info("seafloor bound enabled", "path", seafloor.Path())
	}

	nDepth, nLat, nLon := g.Dims()
	logger.Info("grid ready",
		"reference", ref,
		"nodes", nLat*nLon,
		"levels", nDepth,
		"method", method,
		"projection", proj.Target())

	return &Engine{
		Config:     cfg,
		Projection: proj,
		Grid:       g,
		Store:      store,
		Locator:    locator,
		Runner: &Runner{
			Sampler:         sampler,
			Integrator:      integrator,
			Proj:            proj,
			Timestep:        cfg.Run.Timestep,
			OutputFrequency: cfg.Run.OutputFrequency,
			Workers:         cfg.Run.Workers,
			Source:          locator.Path,
			Logger:          logger,
		},
		reference: ref,
	}, nil
}

// Run simulates every release.
func (e *Engine) Run(ctx context.Context, releases []domain.Release) []domain.Trajectory {
	return e.Runner.Run(ctx, releases)
}

// GridInfo returns the run grid metadata.
func (e *Engine) GridInfo() GridInfo {
	minLat, maxLat, minLon, maxLon := e.Grid.Bounds()
	_, nLat, nLon := e.Grid.Dims()
	return GridInfo{
		Model:      e.Config.Model.Name,
		Submodel:   e.Config.Model.Submodel,
		Dims:       e.Config.Model.Dims,
		Method:     e.Config.Interp.Method,
		Reference:  e.reference,
		Projection: e.Projection.Target(),
		NLat:       nLat,
		NLon:       nLon,
		Depths:     e.Grid.Axes.Depths,
		MinLat:     minLat,
		MaxLat:     maxLat,
		MinLon:     minLon,
		MaxLon:     maxLon,
	}
}
