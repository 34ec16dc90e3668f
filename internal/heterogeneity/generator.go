package heterogeneity

import (
	"fmt"

	"github.com/talgya/climate-net/internal/entropy"
	"github.com/talgya/climate-net/internal/world"
)

// TraitParams parameterizes a normally distributed trait.
type TraitParams struct {
	Base      float64 `json:"base" yaml:"base"`
	Variation float64 `json:"variation" yaml:"variation"`
}

// Config controls trait sampling.
type Config struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Traits overrides base/variation per trait.
	Traits map[Trait]TraitParams `json:"traits,omitempty" yaml:"traits,omitempty"`

	// Vulnerability multipliers keyed by agent type or location name.
	// Missing keys count as 1.0.
	VulnerabilityProductivity map[string]float64 `json:"climate_vulnerability_productivity,omitempty" yaml:"climate_vulnerability_productivity,omitempty"`
	VulnerabilityOverhead     map[string]float64 `json:"climate_vulnerability_overhead,omitempty" yaml:"climate_vulnerability_overhead,omitempty"`

	// VulnerabilityJitter is the half-width of the uniform noise factor
	// applied to vulnerability (0.2 gives U(0.8, 1.2)).
	VulnerabilityJitter float64 `json:"vulnerability_jitter" yaml:"vulnerability_jitter"`

	// GeographicAdaptation is the per-hazard base keyed by location.
	GeographicAdaptation map[world.Hazard]map[string]float64 `json:"geographic_adaptation,omitempty" yaml:"geographic_adaptation,omitempty"`

	// AdaptationJitter is the half-width of the noise factor on adaptation.
	AdaptationJitter float64 `json:"adaptation_jitter" yaml:"adaptation_jitter"`

	// TerrainAdaptation takes the adaptation base from the region's hazard
	// exposure when no explicit base is configured.
	TerrainAdaptation bool `json:"terrain_adaptation" yaml:"terrain_adaptation"`

	Bounds map[Family]Bounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// DefaultConfig returns heterogeneity enabled with the standard parameters.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		Traits:              DefaultTraits(),
		VulnerabilityJitter: 0.2,
		AdaptationJitter:    0.2,
		Bounds:              DefaultBounds(),
	}
}

// DefaultTraits returns the base/variation of every normal trait.
func DefaultTraits() map[Trait]TraitParams {
	return map[Trait]TraitParams{
		ProductionEfficiency:  {Base: 1.0, Variation: 0.2},
		OverheadEfficiency:    {Base: 1.0, Variation: 0.2},
		RiskTolerance:         {Base: 1.0, Variation: 0.3},
		DebtWillingness:       {Base: 1.0, Variation: 0.3},
		ConsumptionPreference: {Base: 1.0, Variation: 0.3},
		NetworkConnectivity:   {Base: 1.0, Variation: 0.2},
		TradePreference:       {Base: 1.0, Variation: 0.2},
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	for t, p := range c.Traits {
		if FamilyOf(t) == "" {
			return fmt.Errorf("unknown trait %q", t)
		}
		if p.Variation < 0 {
			return fmt.Errorf("trait %s: variation must be >= 0, got %v", t, p.Variation)
		}
	}
	for f, b := range c.Bounds {
		if b.Min > b.Max {
			return fmt.Errorf("bounds %s: min %v > max %v", f, b.Min, b.Max)
		}
	}
	for h := range c.GeographicAdaptation {
		if !knownHazard(h) {
			return fmt.Errorf("unknown hazard %q", h)
		}
	}
	if c.VulnerabilityJitter < 0 || c.VulnerabilityJitter >= 1 {
		return fmt.Errorf("vulnerability_jitter must be in [0, 1), got %v", c.VulnerabilityJitter)
	}
	if c.AdaptationJitter < 0 || c.AdaptationJitter >= 1 {
		return fmt.Errorf("adaptation_jitter must be in [0, 1), got %v", c.AdaptationJitter)
	}
	return nil
}

func knownHazard(h world.Hazard) bool {
	for _, k := range world.Hazards {
		if k == h {
			return true
		}
	}
	return false
}

// Generator samples trait vectors from the shared stream.
type Generator struct {
	cfg     Config
	bounds  map[Family]Bounds
	traits  map[Trait]TraitParams
	rng     *entropy.Stream
	regions *world.Map
}

// NewGenerator creates a generator. regions may be nil when terrain
// adaptation is off.
func NewGenerator(cfg Config, rng *entropy.Stream, regions *world.Map) *Generator {
	bounds := DefaultBounds()
	for f, b := range cfg.Bounds {
		bounds[f] = b
	}
	traits := DefaultTraits()
	for t, p := range cfg.Traits {
		traits[t] = p
	}
	return &Generator{
		cfg:     cfg,
		bounds:  bounds,
		traits:  traits,
		rng:     rng,
		regions: regions,
	}
}

// Bounds returns the effective clamping interval of a family.
func (g *Generator) Bounds(f Family) Bounds {
	return g.bounds[f]
}

// Sample draws a trait vector for an agent of the given type at the given
// location. Draw order: productivity vulnerability, overhead vulnerability,
// the seven normal traits in declaration order, then adaptation for each
// hazard. A disabled generator returns Identity without drawing.
func (g *Generator) Sample(agentType, location string) Vector {
	if !g.cfg.Enabled {
		return Identity()
	}

	var v Vector
	vb := g.bounds[FamilyVulnerability]
	v.VulnerabilityProductivity = vb.Clamp(g.vulnerability(g.cfg.VulnerabilityProductivity, agentType, location))
	v.VulnerabilityOverhead = vb.Clamp(g.vulnerability(g.cfg.VulnerabilityOverhead, agentType, location))

	for _, t := range normalTraits {
		p := g.traits[t]
		v.set(t, g.bounds[FamilyOf(t)].Clamp(g.rng.Normal(p.Base, p.Variation)))
	}

	ab := g.bounds[FamilyAdaptation]
	j := g.cfg.AdaptationJitter
	v.Adaptation = make(map[world.Hazard]float64, len(world.Hazards))
	for _, h := range world.Hazards {
		base := g.adaptationBase(h, location)
		v.Adaptation[h] = ab.Clamp(base * g.rng.Uniform(1-j, 1+j))
	}
	return v
}

func (g *Generator) vulnerability(table map[string]float64, agentType, location string) float64 {
	j := g.cfg.VulnerabilityJitter
	return lookup(table, agentType) * lookup(table, location) * g.rng.Uniform(1-j, 1+j)
}

func (g *Generator) adaptationBase(h world.Hazard, location string) float64 {
	if byLoc, ok := g.cfg.GeographicAdaptation[h]; ok {
		if v, ok := byLoc[location]; ok {
			return v
		}
	}
	if g.cfg.TerrainAdaptation && g.regions != nil {
		return g.regions.Exposure(location, h)
	}
	return 1.0
}

func lookup(table map[string]float64, key string) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return 1.0
}
