// Package agents provides the agent record, per-type templates, the
// population arena and the phase callback contract.
package agents

import (
	"maps"
	"sort"

	"github.com/talgya/climate-net/internal/heterogeneity"
)

// AgentID is a unique identifier for an agent. IDs are never reused.
type AgentID uint64

// Agent is one participant in the simulation.
type Agent struct {
	ID       AgentID   `json:"id"`
	Name     string    `json:"name"` // <type>_<serial>, unique within type
	Type     string    `json:"type"`
	Location string    `json:"location"`
	Template *Template `json:"-"`

	Money     float64   `json:"money"` // May dip below zero until insolvency is declared
	Inventory Inventory `json:"inventory"`

	// Base values are fixed for the agent's lifetime; current values are
	// the climate-adjusted figures behaviors actually use.
	BaseOutput      float64 `json:"base_output"`
	BaseOverhead    float64 `json:"base_overhead"`
	CurrentOutput   float64 `json:"current_output"`
	CurrentOverhead float64 `json:"current_overhead"`

	Climate ClimateState         `json:"climate"`
	Traits  heterogeneity.Vector `json:"traits"`

	// Neighbors is a read-only snapshot of graph adjacency, refreshed by
	// the simulation after setup and after every lifecycle sweep.
	Neighbors []AgentID `json:"-"`

	// Labor market state, reset every round.
	LaborOffered float64 `json:"-"`
	LaborHired   float64 `json:"-"`

	Bankrupt  bool `json:"bankrupt"`
	BornRound int  `json:"born_round"`

	Round  Counters `json:"-"`
	Totals Counters `json:"totals"`
}

// ClimateState tracks compounding chronic stress and this round's acute flag.
type ClimateState struct {
	ChronicProductivity float64 `json:"chronic_productivity"`
	ChronicOverhead     float64 `json:"chronic_overhead"`
	AcuteStressed       bool    `json:"acute_stressed"`
}

// NewClimateState returns an unstressed state.
func NewClimateState() ClimateState {
	return ClimateState{ChronicProductivity: 1, ChronicOverhead: 1}
}

// Counters accumulate an agent's economic activity.
type Counters struct {
	Produced  float64 `json:"produced"`
	Consumed  float64 `json:"consumed"`
	Trades    int     `json:"trades"`    // Sales, one per transaction
	Purchases int     `json:"purchases"` // Buying side of a transaction
	Revenue   float64 `json:"revenue"`
	Costs     float64 `json:"costs"`
	Overhead  float64 `json:"overhead"`
}

func (c *Counters) add(o Counters) {
	c.Produced += o.Produced
	c.Consumed += o.Consumed
	c.Trades += o.Trades
	c.Purchases += o.Purchases
	c.Revenue += o.Revenue
	c.Costs += o.Costs
	c.Overhead += o.Overhead
}

// BeginRound clears the per-round counters and labor state.
func (a *Agent) BeginRound() {
	a.Round = Counters{}
	a.LaborOffered = 0
	a.LaborHired = 0
}

// Record adds activity to both the round and lifetime counters.
func (a *Agent) Record(c Counters) {
	a.Round.add(c)
	a.Totals.add(c)
}

// DeclareBankrupt flags the agent for removal at the next sweep.
func (a *Agent) DeclareBankrupt() {
	a.Bankrupt = true
}

// IsNeighbor reports whether id is in the adjacency snapshot.
func (a *Agent) IsNeighbor(id AgentID) bool {
	i := sort.Search(len(a.Neighbors), func(i int) bool { return a.Neighbors[i] >= id })
	return i < len(a.Neighbors) && a.Neighbors[i] == id
}

// Inventory maps good names to non-negative quantities.
type Inventory map[string]float64

// Get returns the quantity held of a good.
func (inv Inventory) Get(good string) float64 {
	return inv[good]
}

// Add increases a good. Non-positive quantities are ignored.
func (inv Inventory) Add(good string, qty float64) {
	if qty <= 0 {
		return
	}
	inv[good] += qty
}

// Remove takes up to qty of a good and returns how much was removed.
// Quantities never go below zero.
func (inv Inventory) Remove(good string, qty float64) float64 {
	have := inv[good]
	if qty <= 0 || have <= 0 {
		return 0
	}
	if qty > have {
		qty = have
	}
	inv[good] = have - qty
	return qty
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	return maps.Clone(inv)
}

// Performance is the exported end-of-run view of an agent.
type Performance struct {
	ID           AgentID              `json:"id"`
	Name         string               `json:"name"`
	Type         string               `json:"type"`
	Location     string               `json:"location"`
	Money        float64              `json:"money"`
	Inventory    Inventory            `json:"inventory"`
	Totals       Counters             `json:"totals"`
	Climate      ClimateState         `json:"climate"`
	Traits       heterogeneity.Vector `json:"traits"`
	Degree       int                  `json:"degree"`
	BornRound    int                  `json:"born_round"`
	RetiredRound int                  `json:"retired_round"` // -1 while alive
	Bankrupt     bool                 `json:"bankrupt"`
}

// Performance snapshots the agent. Degree comes from the neighbor snapshot.
func (a *Agent) Performance() Performance {
	return Performance{
		ID:           a.ID,
		Name:         a.Name,
		Type:         a.Type,
		Location:     a.Location,
		Money:        a.Money,
		Inventory:    a.Inventory.Clone(),
		Totals:       a.Totals,
		Climate:      a.Climate,
		Traits:       a.Traits,
		Degree:       len(a.Neighbors),
		BornRound:    a.BornRound,
		RetiredRound: -1,
		Bankrupt:     a.Bankrupt,
	}
}
