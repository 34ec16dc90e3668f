// Population lifecycle: bankrupt agents leave, replacements of the same
// type arrive with a fresh location and fresh traits.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/network"
)

var errNoTemplate = errors.New("no template for agent type")

// Replacement pairs a retired agent with its successor.
type Replacement struct {
	Retired agents.AgentID `json:"retired"`
	Born    agents.AgentID `json:"born"`
	Type    string         `json:"type"`
}

// SweepReport is the outcome of one lifecycle sweep.
type SweepReport struct {
	Round        int                `json:"round"`
	Bankrupt     []agents.AgentID   `json:"bankrupt"`
	Replacements []Replacement      `json:"replacements"`
	Failures     []ReplacementError `json:"-"`
}

// Lifecycle replaces insolvent agents between overhead payment and
// production.
type Lifecycle struct {
	templates map[string]*agents.Template
	regions   []string
	spawner   *agents.Spawner
	topology  *network.Generator
	replace   bool
	retired   []agents.Performance
}

// NewLifecycle creates a lifecycle manager. Templates are looked up by type
// name; regions is the catalogue replacements draw locations from.
func NewLifecycle(templates map[string]*agents.Template, regions []string, spawner *agents.Spawner, topology *network.Generator, replace bool) *Lifecycle {
	return &Lifecycle{
		templates: templates,
		regions:   regions,
		spawner:   spawner,
		topology:  topology,
		replace:   replace,
	}
}

// Retired returns the final performance of every agent removed so far.
func (l *Lifecycle) Retired() []agents.Performance {
	return slices.Clone(l.retired)
}

// Sweep removes every agent flagged bankrupt and, when replacement is on,
// inserts one fresh agent of the same type for each. Graph changes are
// staged and committed as whole-graph swaps. A replacement that cannot be
// built is logged and reported; the population shrinks. A graph that no
// longer matches the population is fatal.
func (l *Lifecycle) Sweep(round int, pop *agents.Population, g *network.Graph) (SweepReport, error) {
	report := SweepReport{Round: round}
	flagged := pop.Bankrupt()
	if len(flagged) > 0 {
		if err := l.retire(round, flagged, pop, g, &report); err != nil {
			return report, err
		}
		if l.replace {
			for _, old := range flagged {
				if err := l.replaceAgent(round, old, pop, g, &report); err != nil {
					return report, err
				}
			}
		}
		slog.Debug("lifecycle sweep", "round", round,
			"bankrupt", len(report.Bankrupt),
			"replaced", len(report.Replacements),
			"failed", len(report.Failures),
		)
	}
	if err := CheckConsistency(pop, g); err != nil {
		return report, err
	}
	return report, nil
}

func (l *Lifecycle) retire(round int, flagged []*agents.Agent, pop *agents.Population, g *network.Graph, report *SweepReport) error {
	batch := g.Stage()
	ids := make([]agents.AgentID, len(flagged))
	for i, a := range flagged {
		ids[i] = a.ID
		batch.RemoveNode(a.ID)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: remove bankrupt agents: %v", ErrGraphConsistency, err)
	}
	for _, a := range flagged {
		perf := a.Performance()
		perf.RetiredRound = round
		l.retired = append(l.retired, perf)
		slog.Debug("agent retired", "round", round, "agent", a.Name, "money", a.Money)
	}
	pop.Remove(ids)
	report.Bankrupt = ids
	return nil
}

func (l *Lifecycle) replaceAgent(round int, old *agents.Agent, pop *agents.Population, g *network.Graph, report *SweepReport) error {
	fail := func(err error) {
		rerr := ReplacementError{Agent: old.ID, Type: old.Type, Err: err}
		slog.Warn("replacement failed", "round", round, "err", &rerr)
		report.Failures = append(report.Failures, rerr)
	}

	t := l.templates[old.Type]
	if t == nil {
		fail(errNoTemplate)
		return nil
	}
	loc, err := l.spawner.DrawLocation(t.AllowedRegions(l.regions))
	if err != nil {
		fail(err)
		return nil
	}

	existing := make([]network.Node, 0, pop.Len())
	for _, a := range pop.Agents() {
		existing = append(existing, network.NodeOf(a))
	}

	a := l.spawner.Spawn(t, round)
	l.spawner.Settle(a, loc)
	pop.Add(a)

	batch := g.Stage()
	batch.AddNode(a.ID)
	for _, e := range l.topology.Attach(g, network.NodeOf(a), existing) {
		batch.AddEdge(e)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: add replacement %d: %v", ErrGraphConsistency, a.ID, err)
	}

	report.Replacements = append(report.Replacements, Replacement{Retired: old.ID, Born: a.ID, Type: a.Type})
	slog.Debug("agent replaced", "round", round, "retired", old.Name, "born", a.Name, "location", loc)
	return nil
}

// CheckConsistency verifies that the graph holds exactly the population.
func CheckConsistency(pop *agents.Population, g *network.Graph) error {
	if g.NodeCount() != pop.Len() {
		return fmt.Errorf("%w: %d nodes, %d agents", ErrGraphConsistency, g.NodeCount(), pop.Len())
	}
	for _, id := range pop.IDs() {
		if !g.HasNode(id) {
			return fmt.Errorf("%w: agent %d has no node", ErrGraphConsistency, id)
		}
	}
	return nil
}
