package domain

import (
	"fmt"
	"time"
)

// Projector converts between geographic and planar coordinates.
type Projector interface {
	ToPlanar(lat, lon float64) (x, y float64, err error)
	ToGeographic(x, y float64) (lat, lon float64, err error)
}

// Particle is a simulated drifter.
//
// X and Y are always the projected image of Lat and Lon. Positions are only
// changed through NewParticle and MoveTo, which keep both pairs consistent.
type Particle struct {
	ID     string
	Lat    float64
	Lon    float64
	Depth  float64
	X      float64
	Y      float64
	Time   time.Time
	Fields Fields
	Source string // Expected backing file for Time.
}

// NewParticle creates a particle at a geographic position.
func NewParticle(id string, lat, lon, depth float64, t time.Time, proj Projector) (*Particle, error) {
	x, y, err := proj.ToPlanar(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed to project release position (%.4f, %.4f): %w", lat, lon, err)
	}
	return &Particle{
		ID:     id,
		Lat:    lat,
		Lon:    lon,
		Depth:  depth,
		X:      x,
		Y:      y,
		Time:   t,
		Fields: NewFields(),
	}, nil
}

// MoveTo sets the planar position and recomputes the geographic position.
// On error the particle is left unchanged.
func (p *Particle) MoveTo(x, y float64, proj Projector) error {
	lat, lon, err := proj.ToGeographic(x, y)
	if err != nil {
		return fmt.Errorf("failed to back-project (%.1f, %.1f): %w", x, y, err)
	}
	p.X, p.Y = x, y
	p.Lat, p.Lon = lat, lon
	return nil
}

// Record captures the particle's current state as a trajectory record.
func (p *Particle) Record() Record {
	return Record{
		ParticleID: p.ID,
		Time:       p.Time,
		Lat:        p.Lat,
		Lon:        p.Lon,
		Depth:      p.Depth,
		U:          p.Fields.U,
		V:          p.Fields.V,
		W:          p.Fields.W,
		Temp:       p.Fields.Temp,
		Sal:        p.Fields.Sal,
	}
}
