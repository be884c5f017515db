// Package release reads particle release tables.
package release

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"go.ngs.io/drifters/internal/domain"
)

// Row is one line of a release file.
type Row struct {
	ParticleID string  `csv:"particle_id"`
	StartLat   float64 `csv:"start_lat"`
	StartLon   float64 `csv:"start_lon"`
	StartDepth float64 `csv:"start_depth"`
	StartTime  string  `csv:"start_time"`
	Days       float64 `csv:"days"`
}

// timeLayouts are the accepted start_time formats, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseTime parses a release start time. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized start time %q", s)
}

// Release converts the row to a validated release.
func (r Row) Release() (domain.Release, error) {
	start, err := ParseTime(r.StartTime)
	if err != nil {
		return domain.Release{}, err
	}
	rel := domain.Release{
		ParticleID: strings.TrimSpace(r.ParticleID),
		Lat:        r.StartLat,
		Lon:        r.StartLon,
		Depth:      r.StartDepth,
		Start:      start,
		Duration:   time.Duration(r.Days * float64(24*time.Hour)),
	}
	if err := rel.Validate(); err != nil {
		return domain.Release{}, err
	}
	return rel, nil
}

// Read decodes releases from CSV with header
// particle_id,start_lat,start_lon,start_depth,start_time,days.
func Read(r io.Reader) ([]domain.Release, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read release CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no releases found")
	}

	releases := make([]domain.Release, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		rel, err := row.Release()
		if err != nil {
			return nil, fmt.Errorf("invalid release on line %d: %w", i+2, err)
		}
		if seen[rel.ParticleID] {
			return nil, fmt.Errorf("duplicate particle id %s on line %d", rel.ParticleID, i+2)
		}
		seen[rel.ParticleID] = true
		releases = append(releases, rel)
	}
	return releases, nil
}

// ReadFile reads a release CSV file.
func ReadFile(path string) ([]domain.Release, error) {
	//nolint:gosec // G304: Release path comes from the command line.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open release file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}
