// Package main generates synthetic hourly model files for testing drifter runs.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/drifters/internal/adapter/store/field"
	"go.ngs.io/drifters/internal/config"
	"go.ngs.io/drifters/internal/domain"
)

// RegionalGrid defines the geographic bounds and resolution
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

// Current describes the synthetic velocity field.
type Current struct {
	Pattern string  // uniform or gyre
	U       float64 // m/s, uniform pattern
	V       float64
	Speed   float64 // m/s at the gyre edge
	W       float64 // m/s, 3-D only
}

func main() {
	configPath := flag.String("config", "", "Run configuration supplying model name, variables and extent")
	outDir := flag.String("out", "", "Output directory (default: model.data_dir)")
	region := flag.String("region", "model", "Region: model (configured extent) or custom")
	latMin := flag.Float64("lat-min", 26.0, "Minimum latitude (custom region)")
	latMax := flag.Float64("lat-max", 28.0, "Maximum latitude (custom region)")
	lonMin := flag.Float64("lon-min", -91.0, "Minimum longitude (custom region)")
	lonMax := flag.Float64("lon-max", -89.0, "Maximum longitude (custom region)")
	resolution := flag.Float64("resolution", 0.04, "Grid resolution in degrees")
	startStr := flag.String("start", "2016-06-01T00:00:00Z", "First file time (RFC3339)")
	hours := flag.Int("hours", 48, "Number of files to write")
	step := flag.Duration("step", time.Hour, "Spacing between files")
	skip := flag.String("skip", "", "Comma-separated file indices to leave out (simulates data gaps)")
	depths := flag.String("depths", "0,10,20,50", "Depth levels for 3-D models (meters)")
	pattern := flag.String("pattern", "uniform", "Current pattern: uniform or gyre")
	u := flag.Float64("u", 0.2, "Eastward velocity (m/s, uniform pattern)")
	v := flag.Float64("v", 0.05, "Northward velocity (m/s, uniform pattern)")
	speed := flag.Float64("speed", 0.5, "Edge speed (m/s, gyre pattern)")
	w := flag.Float64("w", 0, "Vertical velocity (m/s, 3-D models)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outDir == "" {
		*outDir = cfg.Model.DataDir
	}

	// Define grid based on region
	var grid RegionalGrid
	switch *region {
	case "model":
		e := cfg.Model.Extent
		grid = RegionalGrid{LatMin: e.MinLat, LatMax: e.MaxLat, LonMin: e.MinLon, LonMax: e.MaxLon, Resolution: *resolution}
	case "custom":
		grid = RegionalGrid{LatMin: *latMin, LatMax: *latMax, LonMin: *lonMin, LonMax: *lonMax, Resolution: *resolution}
	default:
		log.Fatalf("Unknown region: %s (use model or custom)", *region)
	}

	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		log.Fatalf("Invalid start time: %v", err)
	}
	skipped, err := parseInts(*skip)
	if err != nil {
		log.Fatalf("Invalid -skip: %v", err)
	}

	levels := []float64{cfg.Model.ForcingDepth}
	if cfg.Model.Dims == 3 {
		if levels, err = parseFloats(*depths); err != nil {
			log.Fatalf("Invalid -depths: %v", err)
		}
	}

	schema, err := cfg.Schema()
	if err != nil {
		log.Fatalf("Invalid variable schema: %v", err)
	}
	current := Current{Pattern: *pattern, U: *u, V: *v, Speed: *speed, W: *w}
	if current.Pattern != "uniform" && current.Pattern != "gyre" {
		log.Fatalf("Unknown pattern: %s (use uniform or gyre)", current.Pattern)
	}

	log.Printf("Generating %d %s files for %s %s (%d-D)", *hours, current.Pattern, cfg.Model.Name, cfg.Model.Submodel, cfg.Model.Dims)
	log.Printf("Grid: %.2f°-%.2f°N, %.2f°-%.2f°E, resolution: %.2f°",
		grid.LatMin, grid.LatMax, grid.LonMin, grid.LonMax, grid.Resolution)

	// Create output directory
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	axes := grid.Axes(levels)
	written := 0
	for i := 0; i < *hours; i++ {
		if skipped[i] {
			continue
		}
		t := start.Add(time.Duration(i) * *step)
		path := field.HourlyResolver(t, cfg.Model.Name, cfg.Model.Submodel, *outDir)
		sample, err := generateSample(t, path, axes, current, float64(i)*step.Hours())
		if err != nil {
			log.Fatalf("Failed to generate %s: %v", path, err)
		}
		if err := field.WriteSample(path, sample, schema); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		written++
	}

	// Print summary
	log.Printf("=== Generation Complete ===")
	log.Printf("Files created in: %s (%d written, %d skipped)", *outDir, written, *hours-written)
	log.Printf("Grid size: %d × %d × %d points", len(axes.Depths), len(axes.Lats), len(axes.Lons))
}

// Axes returns the grid axes at the given depth levels.
func (g RegionalGrid) Axes(depths []float64) domain.Axes {
	nLat := int(math.Round((g.LatMax-g.LatMin)/g.Resolution)) + 1
	nLon := int(math.Round((g.LonMax-g.LonMin)/g.Resolution)) + 1

	lats := make([]float64, nLat)
	for i := range lats {
		lats[i] = g.LatMin + float64(i)*g.Resolution
	}
	lons := make([]float64, nLon)
	for j := range lons {
		lons[j] = g.LonMin + float64(j)*g.Resolution
	}
	return domain.Axes{Lats: lats, Lons: lons, Depths: depths}
}

// generateSample fills every variable for one time slice. The gyre rotates
// clockwise around the grid center and its speed grows linearly with radius.
// Temperature and salinity drift slowly with time and decrease with depth.
func generateSample(t time.Time, path string, axes domain.Axes, c Current, hour float64) (*domain.FieldSample, error) {
	nDepth, nLat, nLon := axes.Shape()
	size := axes.Size()
	u := make([]float64, 0, size)
	v := make([]float64, 0, size)
	w := make([]float64, 0, size)
	temp := make([]float64, 0, size)
	sal := make([]float64, 0, size)

	latC := (axes.Lats[0] + axes.Lats[nLat-1]) / 2
	lonC := (axes.Lons[0] + axes.Lons[nLon-1]) / 2
	radius := math.Max(axes.Lats[nLat-1]-latC, axes.Lons[nLon-1]-lonC)

	for k := 0; k < nDepth; k++ {
		decay := math.Exp(-axes.Depths[k] / 200)
		for i := 0; i < nLat; i++ {
			for j := 0; j < nLon; j++ {
				dy := axes.Lats[i] - latC
				dx := axes.Lons[j] - lonC

				switch c.Pattern {
				case "gyre":
					u = append(u, c.Speed*decay*dy/radius)
					v = append(v, -c.Speed*decay*dx/radius)
				default:
					u = append(u, c.U*decay)
					v = append(v, c.V*decay)
				}
				w = append(w, c.W)
				temp = append(temp, 28-0.05*axes.Depths[k]-0.3*dy+0.1*math.Sin(2*math.Pi*hour/24))
				sal = append(sal, 36+0.002*axes.Depths[k]+0.05*dx)
			}
		}
	}

	return domain.NewFieldSample(t, path, axes, map[domain.Variable][]float64{
		domain.VarU:    u,
		domain.VarV:    v,
		domain.VarW:    w,
		domain.VarTemp: temp,
		domain.VarSal:  sal,
	})
}

func parseInts(s string) (map[int]bool, error) {
	out := make(map[int]bool)
	for _, f := range splitList(s) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[n] = true
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range splitList(s) {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid depth %q: %w", f, err)
		}
		out = append(out, x)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no depths given")
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
