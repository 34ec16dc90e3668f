// Region generation using layered simplex noise.
// Regions are spaced around a ring in noise space; temperature, rainfall and
// elevation are sampled at each position and turned into hazard exposure.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// DefaultRegions is the continent catalogue used when no regions are configured.
var DefaultRegions = []string{
	"North America",
	"Europe",
	"Asia",
	"South America",
	"Africa",
	"Oceania",
}

// GenConfig holds region generation parameters.
type GenConfig struct {
	Seed    int64
	Regions []string // Region names in assignment order
	Radius  float64  // Ring radius in noise space
	Spread  float64  // Exposure range around 1.0 (0.3 gives [0.7, 1.3])
}

// DefaultGenConfig returns the six-continent catalogue.
func DefaultGenConfig(seed int64) GenConfig {
	return GenConfig{
		Seed:    seed,
		Regions: DefaultRegions,
		Radius:  12,
		Spread:  0.3,
	}
}

// Generate creates the region catalogue. Generation is a pure function of
// the config and never touches the simulation's random stream.
func Generate(cfg GenConfig) (*Map, error) {
	names := cfg.Regions
	if len(names) == 0 {
		names = DefaultRegions
	}
	radius := cfg.Radius
	if radius <= 0 {
		radius = 12
	}

	// Three noise generators for independent layers.
	tempNoise := opensimplex.NewNormalized(cfg.Seed)
	rainNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	elevNoise := opensimplex.NewNormalized(cfg.Seed + 2)

	m := NewMap()
	for i, name := range names {
		angle := 2 * math.Pi * float64(i) / float64(len(names))
		x := radius * math.Cos(angle)
		y := radius * math.Sin(angle)

		temp := octaveNoise(tempNoise, x, y, 3, 0.05, 0.5)
		rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)
		elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)

		r := &Region{
			Name: name,
			X:    x,
			Y:    y,
			Exposure: map[Hazard]float64{
				HazardHeat:    scaleExposure(temp, cfg.Spread),
				HazardDrought: scaleExposure(temp*(1-rain)*2, cfg.Spread),
				HazardFlood:   scaleExposure(rain*(1-elev)*2, cfg.Spread),
				// Low-lying regions take the brunt of storms.
				HazardStorm: scaleExposure(1-elev, cfg.Spread),
			},
		}
		if err := m.Add(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// scaleExposure maps a [0,1] noise sample onto [1-spread, 1+spread].
func scaleExposure(v, spread float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return 1 - spread + 2*spread*v
}

// octaveNoise samples multi-octave simplex noise, normalized to [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
