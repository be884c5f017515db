package usecase

import (
	"fmt"
	"time"

	"go.ngs.io/drifters/internal/domain"
)

// FileLocator reports the backing file for a time and whether it exists.
type FileLocator interface {
	Lookup(t time.Time) (path string, ok bool)
}

// Resolution is the outcome of a bracket search.
// An exact resolution has Before == After.
type Resolution struct {
	Exact  bool
	Before domain.Bracket
	After  domain.Bracket
}

// TemporalResolver finds the files that bracket a query time.
type TemporalResolver struct {
	Locator FileLocator
	Step    time.Duration // Spacing of the data files.
	Window  time.Duration // Search limit on each side.
}

// ResolveBrackets returns the file for t when t falls on the data step and the
// file exists. Otherwise it searches backward from t truncated to the step and
// forward from the following step, at most Window/Step files on each side.
func (r TemporalResolver) ResolveBrackets(t time.Time) (Resolution, error) {
	base := t.Truncate(r.Step)
	if base.Equal(t) {
		if path, ok := r.Locator.Lookup(t); ok {
			b := domain.Bracket{Time: t, Path: path}
			return Resolution{Exact: true, Before: b, After: b}, nil
		}
	}

	n := int(r.Window / r.Step)
	var res Resolution

	found := false
	for i := 0; i < n; i++ {
		ts := base.Add(-time.Duration(i) * r.Step)
		if path, ok := r.Locator.Lookup(ts); ok {
			res.Before = domain.Bracket{Time: ts, Path: path}
			found = true
			break
		}
	}
	if !found {
		return Resolution{}, fmt.Errorf("%w: no file at or before %s within %v", domain.ErrDataGap, t.Format(time.RFC3339), r.Window)
	}

	found = false
	for i := 1; i < n; i++ {
		ts := base.Add(time.Duration(i) * r.Step)
		if path, ok := r.Locator.Lookup(ts); ok {
			res.After = domain.Bracket{Time: ts, Path: path}
			found = true
			break
		}
	}
	if !found {
		return Resolution{}, fmt.Errorf("%w: no file after %s within %v", domain.ErrDataGap, t.Format(time.RFC3339), r.Window)
	}

	return res, nil
}
