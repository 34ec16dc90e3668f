package agents

import (
	"errors"
	"fmt"
	"slices"
)

// Template is the validated, per-type configuration every agent of a type
// is built from. Templates are immutable once loaded.
type Template struct {
	Name string `json:"name" yaml:"-"`

	Count            int                `json:"count" yaml:"count"`
	InitialMoney     float64            `json:"initial_money" yaml:"initial_money"`
	InitialInventory map[string]float64 `json:"initial_inventory,omitempty" yaml:"initial_inventory,omitempty"`

	Production  ProductionSpec   `json:"production" yaml:"production"`
	Consumption *ConsumptionSpec `json:"consumption,omitempty" yaml:"consumption,omitempty"`
	Labor       *LaborSpec       `json:"labor,omitempty" yaml:"labor,omitempty"`

	// Regions restricts where agents of this type live. Empty or "all"
	// means every region.
	Regions []string `json:"geographical_distribution,omitempty" yaml:"geographical_distribution,omitempty"`
}

// ProductionSpec describes what a type makes and what it needs.
type ProductionSpec struct {
	BaseOutput   float64            `json:"base_output_quantity" yaml:"base_output_quantity"`
	BaseOverhead float64            `json:"base_overhead" yaml:"base_overhead"`
	ProfitMargin float64            `json:"profit_margin" yaml:"profit_margin"`
	Inputs       map[string]float64 `json:"inputs" yaml:"inputs"`   // good -> quantity per unit of output
	Outputs      []string           `json:"outputs" yaml:"outputs"` // goods produced
}

// ConsumptionSpec describes household-style consumption.
type ConsumptionSpec struct {
	Preference          string  `json:"preference" yaml:"preference"` // good consumed
	ConsumptionFraction float64 `json:"consumption_fraction" yaml:"consumption_fraction"`
	MinimumSurvival     float64 `json:"minimum_survival_consumption" yaml:"minimum_survival_consumption"`
	BudgetScaling       float64 `json:"budget_scaling" yaml:"budget_scaling"`
}

// LaborSpec describes labor supply.
type LaborSpec struct {
	Endowment float64 `json:"endowment" yaml:"endowment"`
	Wage      float64 `json:"wage" yaml:"wage"`
}

// Validate checks the template once at load time.
func (t *Template) Validate() error {
	var errs []error
	if t.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if t.Count < 0 {
		errs = append(errs, fmt.Errorf("count must be >= 0, got %d", t.Count))
	}
	p := t.Production
	if p.BaseOutput < 0 {
		errs = append(errs, fmt.Errorf("production.base_output_quantity must be >= 0, got %v", p.BaseOutput))
	}
	if p.BaseOverhead < 0 {
		errs = append(errs, fmt.Errorf("production.base_overhead must be >= 0, got %v", p.BaseOverhead))
	}
	if p.ProfitMargin < 0 {
		errs = append(errs, fmt.Errorf("production.profit_margin must be >= 0, got %v", p.ProfitMargin))
	}
	for good, q := range p.Inputs {
		if q < 0 {
			errs = append(errs, fmt.Errorf("production.inputs[%s] must be >= 0, got %v", good, q))
		}
	}
	for good, q := range t.InitialInventory {
		if q < 0 {
			errs = append(errs, fmt.Errorf("initial_inventory[%s] must be >= 0, got %v", good, q))
		}
	}
	if c := t.Consumption; c != nil {
		if c.ConsumptionFraction < 0 || c.ConsumptionFraction > 1 {
			errs = append(errs, fmt.Errorf("consumption.consumption_fraction must be in [0, 1], got %v", c.ConsumptionFraction))
		}
		if c.MinimumSurvival < 0 {
			errs = append(errs, fmt.Errorf("consumption.minimum_survival_consumption must be >= 0, got %v", c.MinimumSurvival))
		}
	}
	if l := t.Labor; l != nil && (l.Endowment < 0 || l.Wage < 0) {
		errs = append(errs, errors.New("labor.endowment and labor.wage must be >= 0"))
	}
	return errors.Join(errs...)
}

// Needs reports whether the type takes a good as a production input.
func (t *Template) Needs(good string) bool {
	_, ok := t.Production.Inputs[good]
	return ok
}

// Supplies reports whether some output of t is an input of other.
func (t *Template) Supplies(other *Template) bool {
	for _, good := range t.Production.Outputs {
		if other.Needs(good) {
			return true
		}
	}
	return false
}

// UnitCost is the overhead-based cost of one unit of output.
func (t *Template) UnitCost() float64 {
	if t.Production.BaseOutput <= 0 {
		return t.Production.BaseOverhead
	}
	return t.Production.BaseOverhead / t.Production.BaseOutput
}

// AllowedRegions resolves the template's regions against the catalogue.
func (t *Template) AllowedRegions(catalogue []string) []string {
	if len(t.Regions) == 0 || slices.Contains(t.Regions, "all") {
		return catalogue
	}
	return t.Regions
}
