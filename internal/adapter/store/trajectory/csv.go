// Package trajectory persists particle trajectories as CSV files or SQLite rows.
package trajectory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"go.ngs.io/drifters/internal/domain"
)

// TimeLayout is the timestamp format of trajectory rows.
const TimeLayout = "2006-01-02 15:04:05"

// Row is one trajectory CSV line. W is empty for 2-D models.
type Row struct {
	Timestamp string  `csv:"timestamp"`
	Lat       float64 `csv:"lat"`
	Lon       float64 `csv:"lon"`
	Depth     float64 `csv:"depth"`
	U         float64 `csv:"u"`
	V         float64 `csv:"v"`
	W         string  `csv:"w"`
	Temp      float64 `csv:"temp"`
	Sal       float64 `csv:"sal"`
}

// NewRow converts a record to its CSV form.
func NewRow(r domain.Record) Row {
	row := Row{
		Timestamp: r.Time.UTC().Format(TimeLayout),
		Lat:       r.Lat,
		Lon:       r.Lon,
		Depth:     r.Depth,
		U:         r.U,
		V:         r.V,
		Temp:      r.Temp,
		Sal:       r.Sal,
	}
	if !domain.IsAbsent(r.W) {
		row.W = strconv.FormatFloat(r.W, 'g', -1, 64)
	}
	return row
}

// Record converts a row back to a record of particle id.
func (row Row) Record(id string) (domain.Record, error) {
	ts, err := time.Parse(TimeLayout, row.Timestamp)
	if err != nil {
		return domain.Record{}, fmt.Errorf("invalid timestamp %q: %w", row.Timestamp, err)
	}
	w := domain.Absent
	if row.W != "" {
		if w, err = strconv.ParseFloat(row.W, 64); err != nil {
			return domain.Record{}, fmt.Errorf("invalid w %q: %w", row.W, err)
		}
	}
	return domain.Record{
		ParticleID: id,
		Time:       ts,
		Lat:        row.Lat,
		Lon:        row.Lon,
		Depth:      row.Depth,
		U:          row.U,
		V:          row.V,
		W:          w,
		Temp:       row.Temp,
		Sal:        row.Sal,
	}, nil
}

// CSVWriter writes one file per particle named <particle_id>_<base> in dir.
type CSVWriter struct {
	dir  string
	base string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir, base string) (*CSVWriter, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: output file name is required", domain.ErrConfig)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &CSVWriter{dir: dir, base: base}, nil
}

// Path returns the output file of a particle.
func (w *CSVWriter) Path(particleID string) string {
	return filepath.Join(w.dir, particleID+"_"+w.base)
}

// Write writes the trajectory, replacing any previous file for the particle.
// Particles write distinct files, so concurrent calls do not interfere.
func (w *CSVWriter) Write(_ context.Context, tr domain.Trajectory) error {
	rows := make([]Row, len(tr.Records))
	for i, r := range tr.Records {
		rows[i] = NewRow(r)
	}

	f, err := os.Create(w.Path(tr.ParticleID))
	if err != nil {
		return fmt.Errorf("creating trajectory file: %w", err)
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing trajectory %s: %w", tr.ParticleID, err)
	}
	return f.Close()
}

func (w *CSVWriter) Close() error { return nil }

// ReadCSV reads a trajectory file written by CSVWriter.
func ReadCSV(path, particleID string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var rows []Row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("reading trajectory file %s: %w", path, err)
	}
	records := make([]domain.Record, len(rows))
	for i, row := range rows {
		if records[i], err = row.Record(particleID); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
	}
	return records, nil
}
