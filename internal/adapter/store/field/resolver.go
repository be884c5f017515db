package field

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Resolver maps a timestamp to the expected path of its backing file.
type Resolver func(t time.Time, model, submodel, dataDir string) string

// HourlyResolver names files <model>_<submodel>_<YYYYMMDDHH>.nc, with slashes
// in the submodel replaced by underscores.
func HourlyResolver(t time.Time, model, submodel, dataDir string) string {
	name := fmt.Sprintf("%s_%s_%s.nc", model, strings.ReplaceAll(submodel, "/", "_"), t.UTC().Format("2006010215"))
	return filepath.Join(dataDir, name)
}

// Locator resolves and checks backing files for one model in one data directory.
type Locator struct {
	Resolve  Resolver
	Model    string
	Submodel string
	DataDir  string
}

// Path returns the expected file for t.
func (l Locator) Path(t time.Time) string {
	resolve := l.Resolve
	if resolve == nil {
		resolve = HourlyResolver
	}
	return resolve(t, l.Model, l.Submodel, l.DataDir)
}

// Lookup returns the file for t and whether it exists.
func (l Locator) Lookup(t time.Time) (string, bool) {
	path := l.Path(t)
	info, err := os.Stat(path)
	return path, err == nil && !info.IsDir()
}

// FirstFile returns the lexically first NetCDF file under dataDir,
// used as the reference for the run grid.
func FirstFile(dataDir string) (string, error) {
	if _, err := os.Stat(dataDir); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("data directory does not exist: %s", dataDir)
	}

	matches, err := filepath.Glob(filepath.Join(dataDir, "*.nc"))
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dataDir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no NetCDF files found in %s", dataDir)
	}
	sort.Strings(matches)
	return matches[0], nil
}
