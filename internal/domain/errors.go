package domain

import "errors"

var (
	// ErrConfig reports an invalid run configuration. It is fatal at construction.
	ErrConfig = errors.New("invalid configuration")

	// ErrDataGap reports that no backing file exists within the temporal search window.
	ErrDataGap = errors.New("data gap exceeds search window")

	// ErrOutOfBounds reports a regular-grid query outside the grid's coordinate bounds.
	ErrOutOfBounds = errors.New("query point outside grid bounds")

	// ErrMaskedValue reports that interpolation only reached masked (land or fill) nodes.
	ErrMaskedValue = errors.New("interpolation reached only masked values")

	// ErrGridMismatch reports a field sample whose geometry differs from the run grid.
	ErrGridMismatch = errors.New("field sample grid differs from run grid")
)
