package projection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/drifters/internal/domain"
)

func gulfProjection(t *testing.T) *Projection {
	t.Helper()
	extent := Extent{MinLat: 18.091648, MaxLat: 31.960648, MinLon: -98, MaxLon: -76.4}
	p, err := New(Geographic, MercatorFor(extent))
	require.NoError(t, err)
	return p
}

func TestRoundTrip(t *testing.T) {
	p := gulfProjection(t)

	points := []struct{ lat, lon float64 }{
		{28.0, -88.0},
		{18.1, -98.0},
		{31.96, -76.4},
		{25.5, -87.2},
		{0.0, -87.2},
		{-45.0, 10.0},
	}
	for _, pt := range points {
		x, y, err := p.ToPlanar(pt.lat, pt.lon)
		require.NoError(t, err)
		lat, lon, err := p.ToGeographic(x, y)
		require.NoError(t, err)
		assert.InDelta(t, pt.lat, lat, 1e-7, "lat round trip at %v", pt)
		assert.InDelta(t, pt.lon, lon, 1e-7, "lon round trip at %v", pt)
	}
}

func TestCentralMeridianMapsToZero(t *testing.T) {
	p := gulfProjection(t)
	x, y, err := p.ToPlanar(0, -87.2)
	require.NoError(t, err)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestPlanarAxesAreMonotonic(t *testing.T) {
	p := gulfProjection(t)
	lats := []float64{20, 20, 21}
	lons := []float64{-90, -89, -90}
	xs, ys, err := p.ToPlanarAll(lats, lons)
	require.NoError(t, err)
	assert.Greater(t, xs[1], xs[0], "x grows eastward")
	assert.Greater(t, ys[2], ys[0], "y grows northward")
	assert.InDelta(t, ys[0], ys[1], 1e-9, "y depends only on latitude")
}

func TestToPlanarAllLengthMismatch(t *testing.T) {
	p := gulfProjection(t)
	_, _, err := p.ToPlanarAll([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestInvalidDefinition(t *testing.T) {
	tests := []struct {
		name           string
		source, target string
	}{
		{"unknown target", Geographic, "+proj=nonsense"},
		{"unknown source", "+proj=nonsense", MercatorFor(Extent{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.source, tt.target)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfig))
		})
	}
}
