package economy

import (
	"fmt"
	"log/slog"

	"github.com/talgya/climate-net/internal/agents"
)

// Generic is the reference behavior for every configured agent type. It
// holds no per-agent state; everything lives on the agent record.
type Generic struct {
	// InsolvencyFloor is the money level below which an agent declares
	// bankruptcy after paying overhead.
	InsolvencyFloor float64

	// SellFraction is the share of an output good offered per trade.
	SellFraction float64
}

// NewGeneric returns the reference behavior.
func NewGeneric(insolvencyFloor float64) *Generic {
	return &Generic{InsolvencyFloor: insolvencyFloor, SellFraction: 0.3}
}

var _ agents.Behavior = (*Generic)(nil)

// LaborSupply adds this round's labor to inventory.
func (g *Generic) LaborSupply(a *agents.Agent, env agents.Env) error {
	l := a.Template.Labor
	if l == nil || l.Endowment <= 0 {
		return nil
	}
	qty := l.Endowment * a.Traits.TradePreference
	a.Inventory.Add(GoodLabor, qty)
	a.LaborOffered = qty
	return nil
}

// LaborContracting hires labor from adjacent workers at the worker's wage.
func (g *Generic) LaborContracting(a *agents.Agent, env agents.Env) error {
	needed := Requirement(a, GoodLabor) - a.Inventory.Get(GoodLabor)
	if needed <= 0 {
		return nil
	}
	for _, worker := range env.Neighbors(a) {
		if needed <= 0 {
			break
		}
		if worker.Template.Labor == nil {
			continue
		}
		avail := worker.Inventory.Get(GoodLabor)
		if avail <= 0 {
			continue
		}
		qty := min(needed, avail)
		payment := qty * worker.Template.Labor.Wage
		if a.Money < payment {
			continue
		}
		if err := env.Pay(a, worker, payment); err != nil {
			return fmt.Errorf("pay worker %d: %w", worker.ID, err)
		}
		moved, err := env.Transfer(worker, a, GoodLabor, qty)
		if err != nil {
			return fmt.Errorf("hire from %d: %w", worker.ID, err)
		}
		a.Record(agents.Counters{Costs: payment})
		worker.Record(agents.Counters{Revenue: payment})
		a.LaborHired += moved
		needed -= moved
	}
	return nil
}

// OverheadPayment pays the climate-adjusted overhead and declares
// bankruptcy when money falls below the floor.
func (g *Generic) OverheadPayment(a *agents.Agent, env agents.Env) error {
	cost := a.CurrentOverhead
	a.Money -= cost
	a.Record(agents.Counters{Overhead: cost, Costs: cost})
	if a.Money < g.InsolvencyFloor {
		slog.Debug("agent insolvent", "round", env.Round(), "agent", a.Name, "money", a.Money)
		a.DeclareBankrupt()
	}
	return nil
}

// Production turns inputs into outputs up to the current output level.
func (g *Generic) Production(a *agents.Agent, env agents.Env) error {
	outputs := a.Template.Production.Outputs
	if len(outputs) == 0 {
		return nil
	}
	units := Capacity(a)
	if units <= 0 {
		return nil
	}
	for good, perUnit := range a.Template.Production.Inputs {
		a.Inventory.Remove(good, units*perUnit)
	}
	for _, good := range outputs {
		a.Inventory.Add(good, units)
	}
	a.Record(agents.Counters{Produced: units * float64(len(outputs))})
	return nil
}

// Trading offers output goods to adjacent agents. Each neighbor is
// approached with probability connectivity/len(neighbors), capped at one.
func (g *Generic) Trading(a *agents.Agent, env agents.Env) error {
	neighbors := env.Neighbors(a)
	if len(neighbors) == 0 {
		return nil
	}
	p := min(1.0, a.Traits.NetworkConnectivity/float64(len(neighbors)))
	for _, buyer := range neighbors {
		if !env.Rand().Bernoulli(p) {
			continue
		}
		if err := g.sellTo(a, buyer, env); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generic) sellTo(seller, buyer *agents.Agent, env agents.Env) error {
	for _, good := range seller.Template.Production.Outputs {
		if good == GoodLabor {
			continue
		}
		qty := seller.Inventory.Get(good) * g.SellFraction
		if qty <= 0 || !Wants(buyer, good) {
			continue
		}
		total := qty * UnitPrice(seller)
		if buyer.Money < total {
			continue
		}
		moved, err := env.Transfer(seller, buyer, good, qty)
		if err != nil {
			return fmt.Errorf("sell %s to %d: %w", good, buyer.ID, err)
		}
		total = moved * UnitPrice(seller)
		if err := env.Pay(buyer, seller, total); err != nil {
			return fmt.Errorf("collect from %d: %w", buyer.ID, err)
		}
		seller.Record(agents.Counters{Trades: 1, Revenue: total})
		buyer.Record(agents.Counters{Purchases: 1, Costs: total})
	}
	return nil
}

// Consumption eats the preferred good: survival minimum plus a share of
// the money-scaled budget, limited by what is in stock.
func (g *Generic) Consumption(a *agents.Agent, env agents.Env) error {
	c := a.Template.Consumption
	if c == nil || c.Preference == "" {
		return nil
	}
	budget := max(a.Money, 0) * c.ConsumptionFraction
	desired := (c.MinimumSurvival + budget*c.BudgetScaling) * a.Traits.ConsumptionPreference
	eaten := a.Inventory.Remove(c.Preference, desired)
	if eaten > 0 {
		a.Record(agents.Counters{Consumed: eaten})
	}
	return nil
}
