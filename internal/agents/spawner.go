// Agent spawning: creates agents from templates, settles them in a region
// and gives them a freshly sampled trait vector.
package agents

import (
	"fmt"

	"github.com/talgya/climate-net/internal/entropy"
	"github.com/talgya/climate-net/internal/heterogeneity"
)

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *entropy.Stream
	traits *heterogeneity.Generator
	nextID AgentID
	serial map[string]int // Per-type name counter
}

// NewSpawner creates an agent spawner drawing from the shared stream.
func NewSpawner(rng *entropy.Stream, traits *heterogeneity.Generator) *Spawner {
	return &Spawner{
		rng:    rng,
		traits: traits,
		nextID: 1,
		serial: make(map[string]int),
	}
}

// SpawnPopulation creates Count agents for a template. Agents are not yet
// settled: they have no location and identity traits.
func (s *Spawner) SpawnPopulation(t *Template, round int) []*Agent {
	agents := make([]*Agent, 0, t.Count)
	for i := 0; i < t.Count; i++ {
		agents = append(agents, s.Spawn(t, round))
	}
	return agents
}

// Spawn creates one unsettled agent with a new ID.
func (s *Spawner) Spawn(t *Template, round int) *Agent {
	id := s.nextID
	s.nextID++

	serial := s.serial[t.Name]
	s.serial[t.Name]++

	inv := make(Inventory, len(t.InitialInventory))
	for good, q := range t.InitialInventory {
		inv.Add(good, q)
	}

	a := &Agent{
		ID:        id,
		Name:      fmt.Sprintf("%s_%d", t.Name, serial),
		Type:      t.Name,
		Template:  t,
		Money:     t.InitialMoney,
		Inventory: inv,
		Traits:    heterogeneity.Identity(),
		BornRound: round,
	}
	a.settleValues()
	return a
}

// Settle places an agent in a region and samples its traits there. Base
// output and overhead absorb the efficiency traits; climate state starts
// unstressed.
func (s *Spawner) Settle(a *Agent, location string) {
	a.Location = location
	a.Traits = s.traits.Sample(a.Type, location)
	a.settleValues()
}

// DrawLocation picks a region uniformly from the allowed set.
func (s *Spawner) DrawLocation(allowed []string) (string, error) {
	if len(allowed) == 0 {
		return "", fmt.Errorf("no regions to draw from")
	}
	return allowed[s.rng.IntN(len(allowed))], nil
}

func (a *Agent) settleValues() {
	p := a.Template.Production
	a.BaseOutput = p.BaseOutput * a.Traits.ProductionEfficiency
	a.BaseOverhead = p.BaseOverhead * a.Traits.OverheadEfficiency
	a.CurrentOutput = a.BaseOutput
	a.CurrentOverhead = a.BaseOverhead
	a.Climate = NewClimateState()
}
