// Package main runs a batch of drifter releases from a release file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.ngs.io/drifters/internal/adapter/store"
	"go.ngs.io/drifters/internal/adapter/store/release"
	"go.ngs.io/drifters/internal/adapter/store/trajectory"
	"go.ngs.io/drifters/internal/config"
	"go.ngs.io/drifters/internal/usecase"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "YAML or INI run configuration (default: built-in defaults)")
	releasePath := flag.String("release", "release.csv", "Release CSV (particle_id,start_lat,start_lon,start_depth,start_time,days)")
	outDir := flag.String("out", "", "Output directory (overrides output.dir)")
	sqlitePath := flag.String("sqlite", "", "Also write trajectories to this SQLite database (overrides output.sqlite)")
	saveConfig := flag.String("save-config", "", "Write the effective configuration as YAML and exit")
	verbose := flag.Bool("v", false, "Log every particle")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("drift version %s\n", version)
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *sqlitePath != "" {
		cfg.Output.SQLite = *sqlitePath
	}
	if *saveConfig != "" {
		if err := cfg.WriteYAML(*saveConfig); err != nil {
			log.Fatalf("Failed to save configuration: %v", err)
		}
		log.Printf("Configuration written to %s", *saveConfig)
		return
	}

	releases, err := release.ReadFile(*releasePath)
	if err != nil {
		log.Fatalf("Failed to read releases: %v", err)
	}
	log.Printf("Releases: %d from %s", len(releases), *releasePath)
	log.Printf("Model: %s %s (%d-D), data in %s", cfg.Model.Name, cfg.Model.Submodel, cfg.Model.Dims, cfg.Model.DataDir)
	log.Printf("Direction: %s, timestep %v, interpolation %s", cfg.Direction(), cfg.Run.Timestep, cfg.Interp.Method)

	engine, err := usecase.NewEngine(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}

	writers, err := openWriters(cfg)
	if err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}
	defer func() {
		for _, w := range writers {
			if err := w.Close(); err != nil {
				log.Printf("Failed to close output: %v", err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trajectories := engine.Run(ctx, releases)

	failed := 0
	for _, tr := range trajectories {
		if !tr.Complete() {
			failed++
			log.Printf("Particle %s stopped after %d records: %v", tr.ParticleID, len(tr.Records), tr.Err)
		}
		if len(tr.Records) == 0 {
			continue
		}
		for _, w := range writers {
			// Partial runs are still saved after an interrupt.
			if err := w.Write(context.Background(), tr); err != nil {
				log.Printf("Failed to write particle %s: %v", tr.ParticleID, err)
			}
		}
	}
	log.Printf("Done: %d complete, %d stopped early", len(trajectories)-failed, failed)
}

func openWriters(cfg *config.Config) ([]store.TrajectoryWriter, error) {
	csvWriter, err := trajectory.NewCSVWriter(cfg.Output.Dir, cfg.Output.File)
	if err != nil {
		return nil, err
	}
	writers := []store.TrajectoryWriter{csvWriter}
	log.Printf("Output: %s", csvWriter.Path("<particle>"))

	if cfg.Output.SQLite != "" {
		db, err := trajectory.OpenSQLite(cfg.Output.SQLite)
		if err != nil {
			return nil, err
		}
		writers = append(writers, db)
		log.Printf("Output: %s (sqlite)", cfg.Output.SQLite)
	}
	return writers, nil
}
