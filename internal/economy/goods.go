// Package economy provides the reference participant behavior: labor
// supply and contracting, overhead, production, bilateral trade over the
// network and household consumption.
package economy

import "github.com/talgya/climate-net/internal/agents"

// GoodLabor is the labor service good. Labor is contracted, never traded.
const GoodLabor = "labor"

// UnitPrice is the asking price of one unit of a seller's output: its
// climate-adjusted unit cost plus the profit margin.
func UnitPrice(seller *agents.Agent) float64 {
	t := seller.Template
	unit := t.UnitCost()
	if seller.CurrentOutput > 0 {
		unit = seller.CurrentOverhead / seller.CurrentOutput
	}
	return unit * (1 + t.Production.ProfitMargin)
}

// Requirement is how much of a good the agent needs for a full production
// run at its current output.
func Requirement(a *agents.Agent, good string) float64 {
	perUnit, ok := a.Template.Production.Inputs[good]
	if !ok {
		return 0
	}
	return perUnit * a.CurrentOutput
}

// Wants reports whether a buyer has a use for a good: it is their
// consumption preference, or a production input they are short of.
func Wants(buyer *agents.Agent, good string) bool {
	if c := buyer.Template.Consumption; c != nil && c.Preference == good {
		return true
	}
	if !buyer.Template.Needs(good) {
		return false
	}
	return buyer.Inventory.Get(good) < Requirement(buyer, good)
}

// Capacity is how many units the agent can make from its inventory,
// capped at its current output.
func Capacity(a *agents.Agent) float64 {
	capacity := a.CurrentOutput
	for good, perUnit := range a.Template.Production.Inputs {
		if perUnit <= 0 {
			continue
		}
		if c := a.Inventory.Get(good) / perUnit; c < capacity {
			capacity = c
		}
	}
	if capacity < 0 {
		return 0
	}
	return capacity
}
