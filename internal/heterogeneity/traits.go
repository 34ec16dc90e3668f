// Package heterogeneity samples the per-agent trait vector: climate
// vulnerability, efficiency, behavioral, network and geographic adaptation
// traits. Every draw comes from the simulation's shared stream in a fixed
// order, and every value is clamped into its family's bounds.
package heterogeneity

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/talgya/climate-net/internal/world"
)

// Trait names a normally distributed trait.
type Trait string

const (
	ProductionEfficiency  Trait = "production_efficiency"
	OverheadEfficiency    Trait = "overhead_efficiency"
	RiskTolerance         Trait = "risk_tolerance"
	DebtWillingness       Trait = "debt_willingness"
	ConsumptionPreference Trait = "consumption_preference"
	NetworkConnectivity   Trait = "network_connectivity"
	TradePreference       Trait = "trade_preference"
)

// Family groups traits that share clamping bounds.
type Family string

const (
	FamilyVulnerability Family = "vulnerability"
	FamilyEfficiency    Family = "efficiency"
	FamilyBehavioral    Family = "behavioral"
	FamilyNetwork       Family = "network"
	FamilyAdaptation    Family = "adaptation"
)

// normalTraits is the sampling order of the normally distributed traits.
var normalTraits = [...]Trait{
	ProductionEfficiency,
	OverheadEfficiency,
	RiskTolerance,
	DebtWillingness,
	ConsumptionPreference,
	NetworkConnectivity,
	TradePreference,
}

// FamilyOf returns the bounds family of a trait.
func FamilyOf(t Trait) Family {
	switch t {
	case ProductionEfficiency, OverheadEfficiency:
		return FamilyEfficiency
	case RiskTolerance, DebtWillingness, ConsumptionPreference:
		return FamilyBehavioral
	case NetworkConnectivity, TradePreference:
		return FamilyNetwork
	}
	return ""
}

// Bounds is an inclusive clamping interval.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Clamp limits v to the interval.
func (b Bounds) Clamp(v float64) float64 {
	return clamp(v, b.Min, b.Max)
}

// DefaultBounds returns the clamping interval for every family.
func DefaultBounds() map[Family]Bounds {
	return map[Family]Bounds{
		FamilyVulnerability: {Min: 0.1, Max: 3.0},
		FamilyEfficiency:    {Min: 0.5, Max: 2.0},
		FamilyBehavioral:    {Min: 0.3, Max: 2.5},
		FamilyNetwork:       {Min: 0.5, Max: 2.0},
		FamilyAdaptation:    {Min: 0.1, Max: 3.0},
	}
}

// Vector is an agent's immutable trait sample.
type Vector struct {
	VulnerabilityProductivity float64 `json:"vulnerability_productivity"`
	VulnerabilityOverhead     float64 `json:"vulnerability_overhead"`
	ProductionEfficiency      float64 `json:"production_efficiency"`
	OverheadEfficiency        float64 `json:"overhead_efficiency"`
	RiskTolerance             float64 `json:"risk_tolerance"`
	DebtWillingness           float64 `json:"debt_willingness"`
	ConsumptionPreference     float64 `json:"consumption_preference"`
	NetworkConnectivity       float64 `json:"network_connectivity"`
	TradePreference           float64 `json:"trade_preference"`

	Adaptation map[world.Hazard]float64 `json:"adaptation"`
}

// Identity returns the vector used when heterogeneity is disabled.
func Identity() Vector {
	v := Vector{
		VulnerabilityProductivity: 1,
		VulnerabilityOverhead:     1,
		ProductionEfficiency:      1,
		OverheadEfficiency:        1,
		RiskTolerance:             1,
		DebtWillingness:           1,
		ConsumptionPreference:     1,
		NetworkConnectivity:       1,
		TradePreference:           1,
		Adaptation:                make(map[world.Hazard]float64, len(world.Hazards)),
	}
	for _, h := range world.Hazards {
		v.Adaptation[h] = 1
	}
	return v
}

// Get returns a normally distributed trait by name.
func (v Vector) Get(t Trait) float64 {
	switch t {
	case ProductionEfficiency:
		return v.ProductionEfficiency
	case OverheadEfficiency:
		return v.OverheadEfficiency
	case RiskTolerance:
		return v.RiskTolerance
	case DebtWillingness:
		return v.DebtWillingness
	case ConsumptionPreference:
		return v.ConsumptionPreference
	case NetworkConnectivity:
		return v.NetworkConnectivity
	case TradePreference:
		return v.TradePreference
	}
	panic(fmt.Sprintf("heterogeneity: unknown trait %q", t))
}

func (v *Vector) set(t Trait, val float64) {
	switch t {
	case ProductionEfficiency:
		v.ProductionEfficiency = val
	case OverheadEfficiency:
		v.OverheadEfficiency = val
	case RiskTolerance:
		v.RiskTolerance = val
	case DebtWillingness:
		v.DebtWillingness = val
	case ConsumptionPreference:
		v.ConsumptionPreference = val
	case NetworkConnectivity:
		v.NetworkConnectivity = val
	case TradePreference:
		v.TradePreference = val
	}
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
