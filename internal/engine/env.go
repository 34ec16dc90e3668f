package engine

import (
	"fmt"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/entropy"
)

// phaseEnv is what behaviors see during a phase. Every counterparty must be
// live and adjacent in the current neighbor snapshot.
type phaseEnv struct {
	round int
	rng   *entropy.Stream
	pop   *agents.Population
}

var _ agents.Env = (*phaseEnv)(nil)

func (e *phaseEnv) Round() int { return e.round }

func (e *phaseEnv) Rand() *entropy.Stream { return e.rng }

func (e *phaseEnv) Neighbors(a *agents.Agent) []*agents.Agent {
	out := make([]*agents.Agent, 0, len(a.Neighbors))
	for _, id := range a.Neighbors {
		if n := e.pop.Get(id); n != nil && !n.Bankrupt {
			out = append(out, n)
		}
	}
	return out
}

func (e *phaseEnv) check(from, to *agents.Agent) error {
	if e.pop.Get(from.ID) != from || e.pop.Get(to.ID) != to {
		return fmt.Errorf("agent %d or %d is not live", from.ID, to.ID)
	}
	if !from.IsNeighbor(to.ID) {
		return fmt.Errorf("%d -> %d: %w", from.ID, to.ID, ErrNotAdjacent)
	}
	return nil
}

func (e *phaseEnv) Transfer(from, to *agents.Agent, good string, qty float64) (float64, error) {
	if qty < 0 {
		return 0, fmt.Errorf("negative quantity %v", qty)
	}
	if err := e.check(from, to); err != nil {
		return 0, err
	}
	moved := from.Inventory.Remove(good, qty)
	to.Inventory.Add(good, moved)
	return moved, nil
}

func (e *phaseEnv) Pay(from, to *agents.Agent, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative payment %v", amount)
	}
	if err := e.check(from, to); err != nil {
		return err
	}
	from.Money -= amount
	to.Money += amount
	return nil
}
