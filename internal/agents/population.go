package agents

import "slices"

// Population is the arena owning every live agent. Iteration order is
// insertion order, which makes every per-agent loop deterministic.
// Removal builds a new slice and swaps it in, so slices handed out by
// Agents stay valid for the caller.
type Population struct {
	agents []*Agent
	index  map[AgentID]*Agent
	types  []string // Types in first-seen order
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	return &Population{index: make(map[AgentID]*Agent)}
}

// Add inserts an agent at the end of the iteration order.
func (p *Population) Add(a *Agent) {
	p.agents = append(p.agents, a)
	p.index[a.ID] = a
	if !slices.Contains(p.types, a.Type) {
		p.types = append(p.types, a.Type)
	}
}

// Get returns the agent with the given ID, or nil.
func (p *Population) Get(id AgentID) *Agent {
	return p.index[id]
}

// Len returns the number of live agents.
func (p *Population) Len() int {
	return len(p.agents)
}

// Agents returns a copy of the agent list in iteration order.
func (p *Population) Agents() []*Agent {
	return slices.Clone(p.agents)
}

// IDs returns agent IDs in iteration order.
func (p *Population) IDs() []AgentID {
	ids := make([]AgentID, len(p.agents))
	for i, a := range p.agents {
		ids[i] = a.ID
	}
	return ids
}

// Types returns every agent type seen, in first-seen order. Types whose
// agents were all removed stay listed.
func (p *Population) Types() []string {
	return slices.Clone(p.types)
}

// CountByType returns live agents per type.
func (p *Population) CountByType() map[string]int {
	counts := make(map[string]int, len(p.types))
	for _, a := range p.agents {
		counts[a.Type]++
	}
	return counts
}

// HasType reports whether any live agent has the type.
func (p *Population) HasType(t string) bool {
	for _, a := range p.agents {
		if a.Type == t {
			return true
		}
	}
	return false
}

// HasLocation reports whether any live agent is at the location.
func (p *Population) HasLocation(loc string) bool {
	for _, a := range p.agents {
		if a.Location == loc {
			return true
		}
	}
	return false
}

// Bankrupt returns flagged agents in iteration order.
func (p *Population) Bankrupt() []*Agent {
	var out []*Agent
	for _, a := range p.agents {
		if a.Bankrupt {
			out = append(out, a)
		}
	}
	return out
}

// Remove drops the given agents and returns those actually removed.
func (p *Population) Remove(ids []AgentID) []*Agent {
	drop := make(map[AgentID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]*Agent, 0, len(p.agents))
	var removed []*Agent
	for _, a := range p.agents {
		if drop[a.ID] {
			removed = append(removed, a)
			delete(p.index, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	p.agents = kept
	return removed
}
