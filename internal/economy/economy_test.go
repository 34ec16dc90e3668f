package economy

import (
	"math"
	"testing"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/entropy"
	"github.com/talgya/climate-net/internal/heterogeneity"
)

// fakeEnv wires agents together without a graph.
type fakeEnv struct {
	rng *entropy.Stream
	nb  map[agents.AgentID][]*agents.Agent
}

func (e *fakeEnv) Round() int            { return 0 }
func (e *fakeEnv) Rand() *entropy.Stream { return e.rng }
func (e *fakeEnv) Neighbors(a *agents.Agent) []*agents.Agent { return e.nb[a.ID] }

func (e *fakeEnv) Transfer(from, to *agents.Agent, good string, qty float64) (float64, error) {
	moved := from.Inventory.Remove(good, qty)
	to.Inventory.Add(good, moved)
	return moved, nil
}

func (e *fakeEnv) Pay(from, to *agents.Agent, amount float64) error {
	from.Money -= amount
	to.Money += amount
	return nil
}

func link(env *fakeEnv, a, b *agents.Agent) {
	env.nb[a.ID] = append(env.nb[a.ID], b)
	env.nb[b.ID] = append(env.nb[b.ID], a)
}

var (
	firm = &agents.Template{
		Name: "firm",
		Production: agents.ProductionSpec{
			BaseOutput:   10,
			BaseOverhead: 5,
			ProfitMargin: 0.2,
			Inputs:       map[string]float64{"commodity": 1, GoodLabor: 0.2},
			Outputs:      []string{"goods"},
		},
	}
	household = &agents.Template{
		Name: "household",
		Production: agents.ProductionSpec{
			BaseOverhead: 1,
			Inputs:       map[string]float64{},
			Outputs:      []string{GoodLabor},
		},
		Consumption: &agents.ConsumptionSpec{
			Preference:          "goods",
			ConsumptionFraction: 0.5,
			MinimumSurvival:     0.5,
			BudgetScaling:       0.05,
		},
		Labor: &agents.LaborSpec{Endowment: 1, Wage: 2},
	}
)

func newAgent(id agents.AgentID, t *agents.Template, money float64) *agents.Agent {
	return &agents.Agent{
		ID:              id,
		Type:            t.Name,
		Template:        t,
		Money:           money,
		Inventory:       make(agents.Inventory),
		BaseOutput:      t.Production.BaseOutput,
		BaseOverhead:    t.Production.BaseOverhead,
		CurrentOutput:   t.Production.BaseOutput,
		CurrentOverhead: t.Production.BaseOverhead,
		Climate:         agents.NewClimateState(),
		Traits:          heterogeneity.Identity(),
	}
}

func newEnv() *fakeEnv {
	return &fakeEnv{rng: entropy.New(1), nb: make(map[agents.AgentID][]*agents.Agent)}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLaborMarket(t *testing.T) {
	g := NewGeneric(0)
	env := newEnv()
	f := newAgent(1, firm, 100)
	w1 := newAgent(2, household, 10)
	w2 := newAgent(3, household, 10)
	link(env, f, w1)
	link(env, f, w2)

	for _, w := range []*agents.Agent{w1, w2} {
		if err := g.LaborSupply(w, env); err != nil {
			t.Fatal(err)
		}
		if w.Inventory.Get(GoodLabor) != 1 || w.LaborOffered != 1 {
			t.Fatalf("worker %d labor = %v", w.ID, w.Inventory.Get(GoodLabor))
		}
	}
	if err := g.LaborSupply(f, env); err != nil || f.Inventory.Get(GoodLabor) != 0 {
		t.Fatalf("firm without labor spec supplied labor")
	}

	if err := g.LaborContracting(f, env); err != nil {
		t.Fatal(err)
	}
	// Needs 0.2 per unit at output 10.
	if !near(f.LaborHired, 2) || !near(f.Inventory.Get(GoodLabor), 2) {
		t.Errorf("hired %v, inventory %v, want 2", f.LaborHired, f.Inventory.Get(GoodLabor))
	}
	if !near(f.Money, 96) || !near(w1.Money, 12) || !near(w2.Money, 12) {
		t.Errorf("money after wages: firm %v workers %v %v", f.Money, w1.Money, w2.Money)
	}
	if !near(f.Round.Costs, 4) || !near(w1.Round.Revenue, 2) {
		t.Errorf("counters: firm costs %v worker revenue %v", f.Round.Costs, w1.Round.Revenue)
	}
}

func TestLaborContractingNeedsMoney(t *testing.T) {
	g := NewGeneric(0)
	env := newEnv()
	f := newAgent(1, firm, 0.5)
	w := newAgent(2, household, 0)
	link(env, f, w)
	w.Inventory.Add(GoodLabor, 1)

	if err := g.LaborContracting(f, env); err != nil {
		t.Fatal(err)
	}
	if f.LaborHired != 0 || w.Inventory.Get(GoodLabor) != 1 {
		t.Errorf("broke firm hired %v", f.LaborHired)
	}
}

func TestOverheadPayment(t *testing.T) {
	tests := []struct {
		name     string
		money    float64
		floor    float64
		bankrupt bool
	}{
		{"solvent", 10, 0, false},
		{"exactly at floor", 5, 0, false},
		{"insolvent", 3, 0, true},
		{"negative floor allows debt", 3, -10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAgent(1, firm, tt.money)
			a.CurrentOverhead = 5
			if err := NewGeneric(tt.floor).OverheadPayment(a, newEnv()); err != nil {
				t.Fatal(err)
			}
			if !near(a.Money, tt.money-5) || !near(a.Round.Overhead, 5) {
				t.Errorf("money %v overhead %v", a.Money, a.Round.Overhead)
			}
			if a.Bankrupt != tt.bankrupt {
				t.Errorf("bankrupt = %v, want %v", a.Bankrupt, tt.bankrupt)
			}
		})
	}
}

func TestProductionLimitedByInputs(t *testing.T) {
	a := newAgent(1, firm, 0)
	a.Inventory.Add("commodity", 4)
	a.Inventory.Add(GoodLabor, 5)

	if err := NewGeneric(0).Production(a, newEnv()); err != nil {
		t.Fatal(err)
	}
	if !near(a.Inventory.Get("goods"), 4) || a.Inventory.Get("commodity") != 0 {
		t.Errorf("goods %v commodity %v", a.Inventory.Get("goods"), a.Inventory.Get("commodity"))
	}
	if !near(a.Inventory.Get(GoodLabor), 4.2) || !near(a.Round.Produced, 4) {
		t.Errorf("labor left %v produced %v", a.Inventory.Get(GoodLabor), a.Round.Produced)
	}

	// Stressed output caps production below input capacity.
	b := newAgent(2, firm, 0)
	b.Inventory.Add("commodity", 100)
	b.Inventory.Add(GoodLabor, 100)
	b.CurrentOutput = 6
	if err := NewGeneric(0).Production(b, newEnv()); err != nil {
		t.Fatal(err)
	}
	if !near(b.Inventory.Get("goods"), 6) {
		t.Errorf("stressed production = %v, want 6", b.Inventory.Get("goods"))
	}
}

func TestTradingSellsToWillingNeighbor(t *testing.T) {
	env := newEnv()
	seller := newAgent(1, firm, 0)
	buyer := newAgent(2, household, 100)
	link(env, seller, buyer)
	seller.Inventory.Add("goods", 10)

	if err := NewGeneric(0).Trading(seller, env); err != nil {
		t.Fatal(err)
	}
	// 30% of stock at overhead/output * (1 + margin) = 0.6 per unit.
	if !near(buyer.Inventory.Get("goods"), 3) || !near(seller.Inventory.Get("goods"), 7) {
		t.Errorf("goods moved: buyer %v seller %v", buyer.Inventory.Get("goods"), seller.Inventory.Get("goods"))
	}
	if !near(seller.Money, 1.8) || !near(buyer.Money, 98.2) {
		t.Errorf("money: seller %v buyer %v", seller.Money, buyer.Money)
	}
	if seller.Round.Trades != 1 || buyer.Round.Purchases != 1 {
		t.Errorf("trade counters: %+v %+v", seller.Round, buyer.Round)
	}

	// Labor is contracted, never traded.
	buyer.Inventory.Add(GoodLabor, 5)
	if err := NewGeneric(0).Trading(buyer, env); err != nil {
		t.Fatal(err)
	}
	if seller.Inventory.Get(GoodLabor) != 0 {
		t.Error("labor was sold in the trading phase")
	}
}

func TestTradingSkipsUninterestedBuyer(t *testing.T) {
	env := newEnv()
	seller := newAgent(1, firm, 0)
	other := newAgent(2, firm, 100)
	link(env, seller, other)
	seller.Inventory.Add("goods", 10)

	if err := NewGeneric(0).Trading(seller, env); err != nil {
		t.Fatal(err)
	}
	if other.Inventory.Get("goods") != 0 {
		t.Error("sold goods to a firm that does not use them")
	}
}

func TestConsumption(t *testing.T) {
	a := newAgent(1, household, 100)
	a.Inventory.Add("goods", 2)
	if err := NewGeneric(0).Consumption(a, newEnv()); err != nil {
		t.Fatal(err)
	}
	// Desired 0.5 + 100*0.5*0.05 = 3, limited by stock.
	if a.Inventory.Get("goods") != 0 || !near(a.Round.Consumed, 2) {
		t.Errorf("left %v consumed %v", a.Inventory.Get("goods"), a.Round.Consumed)
	}

	b := newAgent(2, household, 0)
	b.Inventory.Add("goods", 2)
	if err := NewGeneric(0).Consumption(b, newEnv()); err != nil {
		t.Fatal(err)
	}
	if !near(b.Inventory.Get("goods"), 1.5) {
		t.Errorf("broke household ate %v, want survival minimum 0.5", 2-b.Inventory.Get("goods"))
	}
}

func TestUnitPriceFollowsStress(t *testing.T) {
	a := newAgent(1, firm, 0)
	if p := UnitPrice(a); !near(p, 0.6) {
		t.Errorf("unstressed price = %v, want 0.6", p)
	}
	a.CurrentOutput = 5
	if p := UnitPrice(a); !near(p, 1.2) {
		t.Errorf("stressed price = %v, want 1.2", p)
	}
	a.CurrentOutput = 0
	if p := UnitPrice(a); !near(p, 0.6) {
		t.Errorf("zero-output price = %v, want template unit cost 0.6", p)
	}
}
