package engine

import (
	"maps"
	"slices"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/climate"
	"github.com/talgya/climate-net/internal/network"
)

// Aggregate sums one round over a set of agents. Production, consumption,
// trades and overhead are deltas for the round.
type Aggregate struct {
	Population  int     `json:"population"`
	Wealth      float64 `json:"wealth"`
	Production  float64 `json:"production"`
	Consumption float64 `json:"consumption"`
	Trades      int     `json:"trades"`
	Overhead    float64 `json:"overhead"`
	Stressed    int     `json:"stressed"` // Acute-stressed at capture
}

func (g *Aggregate) add(a *agents.Agent) {
	g.Population++
	g.Wealth += a.Money
	g.Production += a.Round.Produced
	g.Consumption += a.Round.Consumed
	g.Trades += a.Round.Trades
	g.Overhead += a.Round.Overhead
	if a.Climate.AcuteStressed {
		g.Stressed++
	}
}

// RoundSnapshot is captured once per round, after the last phase and
// before acute stress is reset.
type RoundSnapshot struct {
	Round               int                  `json:"round"`
	FiredShocks         []string             `json:"fired_shocks"`
	ChronicApplied      []string             `json:"chronic_applied"`
	Total               Aggregate            `json:"total"`
	ByType              map[string]Aggregate `json:"by_type"`
	Bankruptcies        int                  `json:"bankruptcies"`
	Replacements        int                  `json:"replacements"`
	ReplacementFailures int                  `json:"replacement_failures"`
	PhaseFailures       int                  `json:"phase_failures"`
	StressedBeforeSweep int                  `json:"stressed_before_sweep"`
}

// Clone returns a deep copy.
func (s RoundSnapshot) Clone() RoundSnapshot {
	s.FiredShocks = slices.Clone(s.FiredShocks)
	s.ChronicApplied = slices.Clone(s.ChronicApplied)
	s.ByType = maps.Clone(s.ByType)
	return s
}

// NodeSummary describes one node of the final network.
type NodeSummary struct {
	ID       agents.AgentID `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Location string         `json:"location"`
	Degree   int            `json:"degree"`
}

// NetworkSummary is the exported view of the graph.
type NetworkSummary struct {
	Strategy network.Strategy `json:"strategy"`
	Stats    network.Stats    `json:"stats"`
	Nodes    []NodeSummary    `json:"nodes"`
	Edges    []network.Edge   `json:"edges"`
}

// Results is everything a run produces.
type Results struct {
	RunID       string               `json:"run_id"`
	Seed        int64                `json:"seed"`
	Rounds      []RoundSnapshot      `json:"rounds"`
	Shocks      []climate.Event      `json:"shocks"`
	Network     NetworkSummary       `json:"network"`
	Performance []agents.Performance `json:"performance"` // Live and retired, by ID
}

// Observer is notified twice per round: with the snapshot while acute
// stress is still applied, and again after it has been reset.
type Observer interface {
	RoundCaptured(snap RoundSnapshot) error
	RoundReset(round int, pop *agents.Population) error
}
