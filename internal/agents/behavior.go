package agents

import "github.com/talgya/climate-net/internal/entropy"

// Phase is one step of a simulation round.
type Phase uint8

const (
	PhaseLaborSupply Phase = iota
	PhaseLaborContracting
	PhaseOverheadPayment
	PhaseProduction
	PhaseTrading
	PhaseConsumption
)

// Phases lists every phase in execution order. The bankruptcy sweep runs
// between overhead payment and production.
var Phases = [...]Phase{
	PhaseLaborSupply,
	PhaseLaborContracting,
	PhaseOverheadPayment,
	PhaseProduction,
	PhaseTrading,
	PhaseConsumption,
}

var phaseNames = [...]string{
	PhaseLaborSupply:      "labor_supply",
	PhaseLaborContracting: "labor_contracting",
	PhaseOverheadPayment:  "overhead_payment",
	PhaseProduction:       "production",
	PhaseTrading:          "trading",
	PhaseConsumption:      "consumption",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Behavior is what an agent does in each phase. Implementations mutate only
// the agent they are given, and reach neighbors through Env.
// Insolvency is signalled with Agent.DeclareBankrupt.
type Behavior interface {
	LaborSupply(a *Agent, env Env) error
	LaborContracting(a *Agent, env Env) error
	OverheadPayment(a *Agent, env Env) error
	Production(a *Agent, env Env) error
	Trading(a *Agent, env Env) error
	Consumption(a *Agent, env Env) error
}

var phaseMethods = [...]func(Behavior, *Agent, Env) error{
	PhaseLaborSupply:      Behavior.LaborSupply,
	PhaseLaborContracting: Behavior.LaborContracting,
	PhaseOverheadPayment:  Behavior.OverheadPayment,
	PhaseProduction:       Behavior.Production,
	PhaseTrading:          Behavior.Trading,
	PhaseConsumption:      Behavior.Consumption,
}

// Invoke calls the behavior's method for the phase.
func (p Phase) Invoke(b Behavior, a *Agent, env Env) error {
	return phaseMethods[p](b, a, env)
}

// Env is the view of the world a behavior gets during a phase.
type Env interface {
	// Round returns the current round number.
	Round() int

	// Rand returns the shared random stream.
	Rand() *entropy.Stream

	// Neighbors returns live, non-bankrupt agents adjacent to a, in ID order.
	Neighbors(a *Agent) []*Agent

	// Transfer moves up to qty of a good from one agent to an adjacent one
	// and returns the amount moved.
	Transfer(from, to *Agent, good string, qty float64) (float64, error)

	// Pay moves money between adjacent agents.
	Pay(from, to *Agent, amount float64) error
}
