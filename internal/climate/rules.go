// Package climate applies chronic and acute climate stress to agents.
//
// Chronic rules compound every round they are active. Acute rules fire with
// a probability and last until the end of the round, when ResetAcute
// restores every agent to its chronic-only values.
package climate

import (
	"errors"
	"fmt"
	"slices"
)

// Kind distinguishes compounding stress from one-round shocks.
type Kind string

const (
	KindChronic Kind = "chronic"
	KindAcute   Kind = "acute"
)

// All is the wildcard accepted in target lists.
const All = "all"

// Rule is a stress rule. Rules are immutable once loaded.
type Rule struct {
	Name            string   `json:"name" yaml:"name"`
	Kind            Kind     `json:"kind" yaml:"-"`
	TargetTypes     []string `json:"agent_types" yaml:"agent_types"`
	TargetLocations []string `json:"continents" yaml:"continents"`

	// Probability applies to acute rules only.
	Probability float64 `json:"probability" yaml:"probability"`

	// Absent factors leave the corresponding quantity untouched.
	ProductivityFactor *float64 `json:"productivity_stress_factor,omitempty" yaml:"productivity_stress_factor,omitempty"`
	OverheadFactor     *float64 `json:"overhead_stress_factor,omitempty" yaml:"overhead_stress_factor,omitempty"`

	// Activity window. EndRound 0 leaves the window open; Interval 0 means
	// every round.
	StartRound int `json:"start_round,omitempty" yaml:"start_round,omitempty"`
	EndRound   int `json:"end_round,omitempty" yaml:"end_round,omitempty"`
	Interval   int `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// Validate checks a rule once at load time.
func (r *Rule) Validate() error {
	var errs []error
	if r.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch r.Kind {
	case KindChronic, KindAcute:
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", r.Kind))
	}
	if r.Kind == KindAcute && (r.Probability < 0 || r.Probability > 1) {
		errs = append(errs, fmt.Errorf("probability must be in [0, 1], got %v", r.Probability))
	}
	if r.ProductivityFactor == nil && r.OverheadFactor == nil {
		errs = append(errs, errors.New("at least one of productivity_stress_factor or overhead_stress_factor is required"))
	}
	if f := r.ProductivityFactor; f != nil && *f < 0 {
		errs = append(errs, fmt.Errorf("productivity_stress_factor must be >= 0, got %v", *f))
	}
	if f := r.OverheadFactor; f != nil && *f < 0 {
		errs = append(errs, fmt.Errorf("overhead_stress_factor must be >= 0, got %v", *f))
	}
	if r.StartRound < 0 || r.EndRound < 0 || r.Interval < 0 {
		errs = append(errs, errors.New("start_round, end_round and interval must be >= 0"))
	}
	if r.EndRound > 0 && r.EndRound < r.StartRound {
		errs = append(errs, fmt.Errorf("end_round %d before start_round %d", r.EndRound, r.StartRound))
	}
	return errors.Join(errs...)
}

// ActiveAt reports whether the rule runs in the given round.
func (r *Rule) ActiveAt(round int) bool {
	if round < r.StartRound {
		return false
	}
	if r.EndRound > 0 && round > r.EndRound {
		return false
	}
	if r.Interval > 1 && (round-r.StartRound)%r.Interval != 0 {
		return false
	}
	return true
}

// AllTypes reports whether the rule targets every agent type.
func (r *Rule) AllTypes() bool {
	return len(r.TargetTypes) == 0 || slices.Contains(r.TargetTypes, All)
}

// AllLocations reports whether the rule targets every location.
func (r *Rule) AllLocations() bool {
	return len(r.TargetLocations) == 0 || slices.Contains(r.TargetLocations, All)
}

// Matches reports whether an agent of the given type and location is a target.
func (r *Rule) Matches(agentType, location string) bool {
	return (r.AllTypes() || slices.Contains(r.TargetTypes, agentType)) &&
		(r.AllLocations() || slices.Contains(r.TargetLocations, location))
}

// Factor is a convenience for building rules in code.
func Factor(v float64) *float64 {
	return &v
}
