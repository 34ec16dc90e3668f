package climate

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/entropy"
)

// Config holds the stress rules of a run.
type Config struct {
	StressEnabled bool   `json:"stress_enabled" yaml:"stress_enabled"`
	ChronicRules  []Rule `json:"chronic_rules,omitempty" yaml:"chronic_rules,omitempty"`
	ShockRules    []Rule `json:"shock_rules,omitempty" yaml:"shock_rules,omitempty"`
}

// Rules returns chronic then acute rules with their kinds set.
func (c Config) Rules() []Rule {
	rules := make([]Rule, 0, len(c.ChronicRules)+len(c.ShockRules))
	for _, r := range c.ChronicRules {
		r.Kind = KindChronic
		rules = append(rules, r)
	}
	for _, r := range c.ShockRules {
		r.Kind = KindAcute
		rules = append(rules, r)
	}
	return rules
}

// Validate checks every rule.
func (c Config) Validate() error {
	seen := make(map[string]bool)
	for _, r := range c.Rules() {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s rule %q: %w", r.Kind, r.Name, err)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Event records one rule application.
type Event struct {
	Round              int              `json:"round"`
	Rule               string           `json:"rule"`
	Kind               Kind             `json:"kind"`
	TargetTypes        []string         `json:"agent_types"`
	TargetLocations    []string         `json:"continents"`
	Agents             []agents.AgentID `json:"agents"`
	ProductivityFactor *float64         `json:"productivity_stress_factor,omitempty"`
	OverheadFactor     *float64         `json:"overhead_stress_factor,omitempty"`
}

// TargetMissingError reports a rule naming a type or location that no
// live agent has. The rule is skipped for the round.
type TargetMissingError struct {
	Rule      string
	Round     int
	Types     []string
	Locations []string
}

func (e *TargetMissingError) Error() string {
	var parts []string
	if len(e.Types) > 0 {
		parts = append(parts, "types "+strings.Join(e.Types, ", "))
	}
	if len(e.Locations) > 0 {
		parts = append(parts, "locations "+strings.Join(e.Locations, ", "))
	}
	return fmt.Sprintf("rule %q round %d: no agents for %s", e.Rule, e.Round, strings.Join(parts, "; "))
}

// Engine applies stress rules to a population.
type Engine struct {
	enabled bool
	chronic []Rule
	acute   []Rule
	rng     *entropy.Stream
	history []Event
}

// NewEngine creates a shock engine drawing acute firings from rng.
func NewEngine(cfg Config, rng *entropy.Stream) *Engine {
	e := &Engine{enabled: cfg.StressEnabled, rng: rng}
	for _, r := range cfg.Rules() {
		if r.Kind == KindChronic {
			e.chronic = append(e.chronic, r)
		} else {
			e.acute = append(e.acute, r)
		}
	}
	return e
}

// ApplyRound applies chronic rules, then acute rules, in configuration
// order. Each active acute rule takes exactly one draw from the stream,
// before its targets are resolved. Returns the events of the round.
func (e *Engine) ApplyRound(round int, pop *agents.Population) []Event {
	if !e.enabled {
		return nil
	}
	var events []Event

	for i := range e.chronic {
		r := &e.chronic[i]
		if !r.ActiveAt(round) {
			continue
		}
		targets, ev, ok := e.resolve(r, round, pop)
		if !ok {
			continue
		}
		for _, a := range targets {
			applyChronic(a, r)
		}
		events = append(events, ev)
	}

	for i := range e.acute {
		r := &e.acute[i]
		if !r.ActiveAt(round) {
			continue
		}
		if !e.rng.Bernoulli(r.Probability) {
			continue
		}
		targets, ev, ok := e.resolve(r, round, pop)
		if !ok {
			continue
		}
		for _, a := range targets {
			applyAcute(a, r)
		}
		slog.Info("acute shock", "round", round, "rule", r.Name, "agents", len(targets))
		events = append(events, ev)
	}

	e.history = append(e.history, events...)
	return events
}

// resolve finds a rule's targets. A rule naming a missing type or location
// is logged and skipped.
func (e *Engine) resolve(r *Rule, round int, pop *agents.Population) ([]*agents.Agent, Event, bool) {
	missing := &TargetMissingError{Rule: r.Name, Round: round}
	if !r.AllTypes() {
		for _, t := range r.TargetTypes {
			if !pop.HasType(t) {
				missing.Types = append(missing.Types, t)
			}
		}
	}
	if !r.AllLocations() {
		for _, loc := range r.TargetLocations {
			if !pop.HasLocation(loc) {
				missing.Locations = append(missing.Locations, loc)
			}
		}
	}
	if len(missing.Types) > 0 || len(missing.Locations) > 0 {
		slog.Warn("shock target missing", "err", missing)
		return nil, Event{}, false
	}

	var targets []*agents.Agent
	var types, locations []string
	for _, a := range pop.Agents() {
		if !r.Matches(a.Type, a.Location) {
			continue
		}
		targets = append(targets, a)
		if !slices.Contains(types, a.Type) {
			types = append(types, a.Type)
		}
		if !slices.Contains(locations, a.Location) {
			locations = append(locations, a.Location)
		}
	}
	slices.Sort(locations)

	ids := make([]agents.AgentID, len(targets))
	for i, a := range targets {
		ids[i] = a.ID
	}
	return targets, Event{
		Round:              round,
		Rule:               r.Name,
		Kind:               r.Kind,
		TargetTypes:        types,
		TargetLocations:    locations,
		Agents:             ids,
		ProductivityFactor: r.ProductivityFactor,
		OverheadFactor:     r.OverheadFactor,
	}, true
}

// applyChronic compounds the chronic multipliers and recomputes current
// values from them.
func applyChronic(a *agents.Agent, r *Rule) {
	if f := r.ProductivityFactor; f != nil {
		a.Climate.ChronicProductivity *= *f * a.Traits.VulnerabilityProductivity
		a.CurrentOutput = a.BaseOutput * a.Climate.ChronicProductivity
	}
	if f := r.OverheadFactor; f != nil {
		a.Climate.ChronicOverhead *= *f * a.Traits.VulnerabilityOverhead
		a.CurrentOverhead = a.BaseOverhead * a.Climate.ChronicOverhead
	}
}

// applyAcute stresses the agent for the rest of the round. A later acute
// rule on the same agent overwrites an earlier one.
func applyAcute(a *agents.Agent, r *Rule) {
	a.Climate.AcuteStressed = true
	if f := r.ProductivityFactor; f != nil {
		a.CurrentOutput = a.BaseOutput * *f * a.Traits.VulnerabilityProductivity * a.Climate.ChronicProductivity
	}
	if f := r.OverheadFactor; f != nil {
		a.CurrentOverhead = a.BaseOverhead * *f * a.Traits.VulnerabilityOverhead * a.Climate.ChronicOverhead
	}
}

// ResetAcute clears acute stress: current values return to exactly base
// times the chronic multiplier for every agent.
func (e *Engine) ResetAcute(pop *agents.Population) {
	for _, a := range pop.Agents() {
		a.Climate.AcuteStressed = false
		a.CurrentOutput = a.BaseOutput * a.Climate.ChronicProductivity
		a.CurrentOverhead = a.BaseOverhead * a.Climate.ChronicOverhead
	}
}

// History returns every event so far.
func (e *Engine) History() []Event {
	return slices.Clone(e.history)
}

// Rules returns the loaded rules, chronic first.
func (e *Engine) Rules() []Rule {
	return append(slices.Clone(e.chronic), e.acute...)
}
