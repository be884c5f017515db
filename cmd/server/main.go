// Package main provides the drifter trajectory HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"go.ngs.io/drifters/internal/config"
	httpHandler "go.ngs.io/drifters/internal/http"
	"go.ngs.io/drifters/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("drifters version %s\n", version)
		return
	}

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	configPath := getEnv("CONFIG_FILE", "")
	maxParticles, err := strconv.Atoi(getEnv("MAX_PARTICLES", "100"))
	if err != nil {
		log.Fatalf("Invalid MAX_PARTICLES: %v", err)
	}
	logger := newLogger(getEnv("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting drifter server...")
	log.Printf("Port: %s", port)
	log.Printf("Model: %s %s (%d-D)", cfg.Model.Name, cfg.Model.Submodel, cfg.Model.Dims)
	log.Printf("Data directory: %s", cfg.Model.DataDir)
	log.Printf("Interpolation: %s", cfg.Interp.Method)

	// Initialize engine. Building the grid reads the first data file.
	engine, err := usecase.NewEngine(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}

	// Initialize use case.
	simulationUC := usecase.NewSimulationUseCase(engine, cfg.Direction(), maxParticles)

	// Setup router.
	router := httpHandler.SetupRouter(simulationUC)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost:%s/health", port)
	log.Printf("API endpoints:")
	log.Printf("  - POST /v1/trajectories")
	log.Printf("  - GET /v1/grid")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newLogger creates a text logger at the named level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Drifter Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  drifters-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  CONFIG_FILE             YAML or INI run configuration (default: built-in defaults)")
	fmt.Println("  DATA_DIR                Model data directory (overrides model.data_dir)")
	fmt.Println("  DRIFT_INTERP            Interpolation method: idw, nearest, linear, spline")
	fmt.Println("  DRIFT_DIRECTION         forward or backward")
	fmt.Println("  DRIFT_WORKERS           Particles integrated concurrently")
	fmt.Println("  DRIFT_DIMS              Model dimensionality, 2 or 3")
	fmt.Println("  MAX_PARTICLES           Releases accepted per request (default: 100)")
	fmt.Println("  LOG_LEVEL               debug, info, warn or error (default: info)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server over a HYCOM extract")
	fmt.Println("  DATA_DIR=/srv/hycom drifters-server")
	fmt.Println()
	fmt.Println("  # Start server on custom port")
	fmt.Println("  PORT=3000 CONFIG_FILE=run.yaml drifters-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                   Health check")
	fmt.Println("  GET  /v1/grid                  Run grid metadata")
	fmt.Println("  POST /v1/trajectories          Simulate drifter releases")
	fmt.Println()
}
