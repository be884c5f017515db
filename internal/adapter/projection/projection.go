// Package projection converts between geographic and planar coordinates using PROJ.4 definitions.
package projection

import (
	"fmt"

	"github.com/ctessum/geom/proj"

	"go.ngs.io/drifters/internal/domain"
)

// Geographic is the default source coordinate reference (lon/lat degrees on WGS84).
const Geographic = "+proj=longlat +ellps=WGS84 +no_defs"

// Projection converts between a geographic source and a planar target reference.
// It is immutable and safe for concurrent use.
type Projection struct {
	source  string
	target  string
	forward proj.Transformer
	inverse proj.Transformer
}

var _ domain.Projector = (*Projection)(nil)

// New parses the source and target PROJ.4 definitions.
// Invalid definitions are configuration errors.
func New(source, target string) (*Projection, error) {
	srcSR, err := proj.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse source projection %q: %v", domain.ErrConfig, source, err)
	}
	dstSR, err := proj.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse target projection %q: %v", domain.ErrConfig, target, err)
	}

	forward, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create forward transform: %v", domain.ErrConfig, err)
	}
	inverse, err := dstSR.NewTransform(srcSR)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create inverse transform: %v", domain.ErrConfig, err)
	}

	// Unknown projection names only fail once a point is transformed.
	x, y, err := forward(0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot transform %q to %q: %v", domain.ErrConfig, source, target, err)
	}
	if _, _, err := inverse(x, y); err != nil {
		return nil, fmt.Errorf("%w: cannot transform %q to %q: %v", domain.ErrConfig, target, source, err)
	}

	return &Projection{
		source:  source,
		target:  target,
		forward: forward,
		inverse: inverse,
	}, nil
}

// MercatorFor returns a Mercator definition centered on the given extent.
func MercatorFor(e Extent) string {
	return fmt.Sprintf("+proj=merc +ellps=WGS84 +lon_0=%g +lat_ts=0 +x_0=0 +y_0=0 +units=m +no_defs", e.CenterLon())
}

// Extent is a geographic bounding box in degrees.
type Extent struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// CenterLon returns the central longitude of the extent.
func (e Extent) CenterLon() float64 {
	return (e.MinLon + e.MaxLon) / 2
}

// Target returns the target definition.
func (p *Projection) Target() string {
	return p.target
}

// ToPlanar projects a geographic position to planar meters.
func (p *Projection) ToPlanar(lat, lon float64) (float64, float64, error) {
	x, y, err := p.forward(lon, lat)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to project (%.6f, %.6f): %w", lat, lon, err)
	}
	return x, y, nil
}

// ToGeographic converts a planar position back to latitude and longitude.
func (p *Projection) ToGeographic(x, y float64) (float64, float64, error) {
	lon, lat, err := p.inverse(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to unproject (%.3f, %.3f): %w", x, y, err)
	}
	return lat, lon, nil
}

// ToPlanarAll projects paired latitude and longitude arrays.
func (p *Projection) ToPlanarAll(lats, lons []float64) ([]float64, []float64, error) {
	if len(lats) != len(lons) {
		return nil, nil, fmt.Errorf("latitude and longitude arrays differ in length: %d vs %d", len(lats), len(lons))
	}
	xs := make([]float64, len(lats))
	ys := make([]float64, len(lats))
	for i := range lats {
		x, y, err := p.ToPlanar(lats[i], lons[i])
		if err != nil {
			return nil, nil, err
		}
		xs[i], ys[i] = x, y
	}
	return xs, ys, nil
}
