// Package galaxy provides the read-only sector directory. Sector metadata
// is display-only; the simulation only consumes the habitability field,
// which scales the colonist seed at genesis.
package galaxy

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Sector is display metadata for one region of the galaxy grid.
type Sector struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Region       string  `json:"region"`
	Q            int     `json:"q"`
	R            int     `json:"r"`
	Habitability float64 `json:"habitability"` // 0.0-1.0
}

// Directory holds sector metadata generated deterministically from a seed.
type Directory struct {
	sectors map[uint64]*Sector
}

// GenConfig holds galaxy generation parameters.
type GenConfig struct {
	Radius int   // grid radius in sectors
	Seed   int64 // deterministic galaxy seed
}

// DefaultGenConfig returns the standard galaxy layout.
func DefaultGenConfig() GenConfig {
	return GenConfig{Radius: 10, Seed: 2102}
}

var regionNames = [...]string{"Core Worlds", "Inner Rim", "Expanse", "Outer Rim", "Frontier"}

// Generate builds the sector directory. Habitability comes from layered
// simplex noise over sector coordinates, so the same seed always yields
// the same galaxy.
func Generate(cfg GenConfig) *Directory {
	noise := opensimplex.NewNormalized(cfg.Seed)
	detail := opensimplex.NewNormalized(cfg.Seed + 1)

	d := &Directory{sectors: make(map[uint64]*Sector)}

	id := uint64(1)
	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			// Cartesian projection for noise sampling.
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			hab := 0.7*noise.Eval2(x*0.15, y*0.15) + 0.3*detail.Eval2(x*0.6, y*0.6)

			dist := math.Sqrt(x*x + y*y)
			region := regionIndex(dist, float64(cfg.Radius))

			d.sectors[id] = &Sector{
				ID:           id,
				Name:         fmt.Sprintf("Sector %d-%s", id, regionCode(region)),
				Region:       regionNames[region],
				Q:            q,
				R:            r,
				Habitability: hab,
			}
			id++
		}
	}
	return d
}

func regionIndex(dist, radius float64) int {
	if radius <= 0 {
		return 0
	}
	idx := int(dist / radius * float64(len(regionNames)))
	if idx >= len(regionNames) {
		idx = len(regionNames) - 1
	}
	return idx
}

func regionCode(region int) string {
	return string(rune('A' + region))
}

// Lookup returns sector metadata, or false when the sector is unknown.
func (d *Directory) Lookup(id uint64) (*Sector, bool) {
	s, ok := d.sectors[id]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// Habitability returns the habitability for a sector, defaulting to a
// neutral 0.5 for unknown sectors so genesis never fails on directory
// gaps (the directory is not required for simulation correctness).
func (d *Directory) Habitability(id uint64) float64 {
	if s, ok := d.sectors[id]; ok {
		return s.Habitability
	}
	return 0.5
}

// Count returns the number of known sectors.
func (d *Directory) Count() int {
	return len(d.sectors)
}
