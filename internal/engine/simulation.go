// Simulation ties together all systems and runs them each round.
package engine

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/climate"
	"github.com/talgya/climate-net/internal/config"
	"github.com/talgya/climate-net/internal/economy"
	"github.com/talgya/climate-net/internal/entropy"
	"github.com/talgya/climate-net/internal/heterogeneity"
	"github.com/talgya/climate-net/internal/network"
	"github.com/talgya/climate-net/internal/world"
)

// Simulation holds the complete run state and wires systems together.
type Simulation struct {
	Config     *config.Config
	Regions    *world.Map
	Population *agents.Population
	Graph      *network.Graph
	Engine     *Engine

	templates []*agents.Template // Document order
	byName    map[string]*agents.Template

	rng       *entropy.Stream
	traits    *heterogeneity.Generator
	spawner   *agents.Spawner
	topology  *network.Generator
	shocks    *climate.Engine
	lifecycle *Lifecycle
	env       *phaseEnv

	behaviors map[string]agents.Behavior
	fallback  agents.Behavior
	observers []Observer
	snapshots []RoundSnapshot
}

// NewSimulation validates the configuration and builds every component
// around one random stream seeded from it.
func NewSimulation(cfg *config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gen := world.DefaultGenConfig(cfg.Simulation.Seed)
	gen.Regions = cfg.Regions
	regions, err := world.Generate(gen)
	if err != nil {
		return nil, &config.ValidationError{Field: "regions", Err: err}
	}

	rng := entropy.New(cfg.Simulation.Seed)
	traits := heterogeneity.NewGenerator(cfg.Heterogeneity, rng, regions)
	pop := agents.NewPopulation()
	s := &Simulation{
		Config:     cfg,
		Regions:    regions,
		Population: pop,
		Engine:     NewEngine(),
		byName:     make(map[string]*agents.Template),
		rng:        rng,
		traits:     traits,
		spawner:    agents.NewSpawner(rng, traits),
		topology:   network.NewGenerator(cfg.Network, rng),
		shocks:     climate.NewEngine(cfg.Climate, rng),
		env:        &phaseEnv{rng: rng, pop: pop},
		behaviors:  make(map[string]agents.Behavior),
		fallback:   economy.NewGeneric(cfg.Simulation.InsolvencyFloor),
	}
	s.lifecycle = NewLifecycle(s.byName, regions.Names(), s.spawner, s.topology, cfg.Simulation.ReplaceBankrupt)
	s.Engine.OnRound = s.step
	return s, nil
}

// SetBehavior overrides the behavior for one agent type. Types without an
// override use economy.Generic.
func (s *Simulation) SetBehavior(agentType string, b agents.Behavior) {
	s.behaviors[agentType] = b
}

// AddObserver registers an observer for round snapshots.
func (s *Simulation) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Rand returns the simulation's random stream.
func (s *Simulation) Rand() *entropy.Stream {
	return s.rng
}

// LoadAgentTypes validates and registers agent type templates. Each
// template is validated once here; nothing is re-checked per round.
func (s *Simulation) LoadAgentTypes(types []agents.Template) error {
	if len(s.templates) > 0 {
		return errors.New("agent types already loaded")
	}
	if len(types) == 0 {
		return &config.ValidationError{Field: "agents", Err: errors.New("at least one agent type is required")}
	}
	catalogue := s.Regions.Names()
	var errs []error
	for i := range types {
		t := types[i]
		field := "agents." + t.Name
		if err := t.Validate(); err != nil {
			errs = append(errs, &config.ValidationError{Field: field, Err: err})
			continue
		}
		if _, dup := s.byName[t.Name]; dup {
			errs = append(errs, &config.ValidationError{Field: field, Err: errors.New("duplicate agent type")})
			continue
		}
		for _, r := range t.AllowedRegions(catalogue) {
			if !s.Regions.Has(r) {
				errs = append(errs, &config.ValidationError{Field: field + ".geographical_distribution", Err: fmt.Errorf("unknown region %q", r)})
			}
		}
		s.templates = append(s.templates, &t)
		s.byName[t.Name] = &t
	}
	if err := errors.Join(errs...); err != nil {
		s.templates = nil
		clear(s.byName)
		return err
	}
	slog.Info("agent types loaded", "types", len(s.templates))
	return nil
}

// AssignLocations creates the initial population. Agents of each type are
// spread round-robin over the type's allowed regions, then sample their
// traits there, in population order.
func (s *Simulation) AssignLocations() error {
	if len(s.templates) == 0 {
		return errors.New("no agent types loaded")
	}
	if s.Population.Len() > 0 {
		return errors.New("locations already assigned")
	}
	catalogue := s.Regions.Names()
	for _, t := range s.templates {
		allowed := t.AllowedRegions(catalogue)
		for i, a := range s.spawner.SpawnPopulation(t, 0) {
			s.spawner.Settle(a, allowed[i%len(allowed)])
			s.Population.Add(a)
		}
	}
	slog.Info("population assigned", "agents", s.Population.Len(), "regions", len(catalogue))
	return nil
}

// GenerateNetwork builds the initial topology over the population.
func (s *Simulation) GenerateNetwork() error {
	if s.Population.Len() == 0 {
		return errors.New("no agents to connect")
	}
	nodes := make([]network.Node, 0, s.Population.Len())
	for _, a := range s.Population.Agents() {
		nodes = append(nodes, network.NodeOf(a))
	}
	g, err := s.topology.Build(nodes)
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	s.Graph = g
	s.syncNeighbors()

	st := g.Stats()
	slog.Info("network generated",
		"strategy", s.topology.Config().Strategy,
		"nodes", st.Nodes,
		"edges", st.Edges,
		"mean_out_degree", fmt.Sprintf("%.2f", st.MeanOutDegree),
	)
	return nil
}

// Setup loads the configured agent types, assigns locations and builds the
// network. Steps that already completed are skipped, so a failed Setup can
// be retried.
func (s *Simulation) Setup() error {
	if len(s.templates) == 0 {
		if err := s.LoadAgentTypes(s.Config.Agents); err != nil {
			return err
		}
	}
	if s.Population.Len() == 0 {
		if err := s.AssignLocations(); err != nil {
			return err
		}
	}
	if s.Graph == nil {
		return s.GenerateNetwork()
	}
	return nil
}

// Run executes rounds rounds, running Setup first if needed.
func (s *Simulation) Run(rounds int) (*Results, error) {
	if rounds < 0 {
		return nil, fmt.Errorf("rounds must be >= 0, got %d", rounds)
	}
	if s.Graph == nil {
		if err := s.Setup(); err != nil {
			return nil, err
		}
	}
	if err := s.Engine.Run(rounds); err != nil {
		return nil, err
	}
	return s.Results(), nil
}

// step runs one round: shocks, phases with the bankruptcy sweep after
// overhead payment, snapshot, then acute reset.
func (s *Simulation) step(round int) error {
	s.env.round = round
	for _, a := range s.Population.Agents() {
		a.BeginRound()
	}

	snap := RoundSnapshot{Round: round}
	for _, ev := range s.shocks.ApplyRound(round, s.Population) {
		if ev.Kind == climate.KindAcute {
			snap.FiredShocks = append(snap.FiredShocks, ev.Rule)
		} else {
			snap.ChronicApplied = append(snap.ChronicApplied, ev.Rule)
		}
	}

	for _, p := range agents.Phases {
		snap.PhaseFailures += s.runPhase(p, round)
		if p != agents.PhaseOverheadPayment {
			continue
		}
		snap.StressedBeforeSweep = countStressed(s.Population)
		report, err := s.lifecycle.Sweep(round, s.Population, s.Graph)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		snap.Bankruptcies = len(report.Bankrupt)
		snap.Replacements = len(report.Replacements)
		snap.ReplacementFailures = len(report.Failures)
		s.syncNeighbors()
	}

	snap.Total, snap.ByType = s.aggregate()
	s.snapshots = append(s.snapshots, snap)
	for _, o := range s.observers {
		if err := o.RoundCaptured(snap.Clone()); err != nil {
			return fmt.Errorf("round %d observer: %w", round, err)
		}
	}

	s.shocks.ResetAcute(s.Population)
	for _, o := range s.observers {
		if err := o.RoundReset(round, s.Population); err != nil {
			return fmt.Errorf("round %d observer: %w", round, err)
		}
	}

	slog.Info("round complete",
		"round", round,
		"agents", snap.Total.Population,
		"wealth", fmt.Sprintf("%.2f", snap.Total.Wealth),
		"production", fmt.Sprintf("%.2f", snap.Total.Production),
		"trades", snap.Total.Trades,
		"shocks", len(snap.FiredShocks),
		"bankruptcies", snap.Bankruptcies,
	)
	return nil
}

// runPhase invokes one phase for every live agent and returns how many
// callbacks failed. Trading visits agents in shuffled order.
func (s *Simulation) runPhase(p agents.Phase, round int) int {
	list := s.Population.Agents()
	if p == agents.PhaseTrading {
		s.rng.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	}
	failures := 0
	for _, a := range list {
		if a.Bankrupt {
			continue
		}
		if err := s.invoke(p, round, a); err != nil {
			failures++
			slog.Warn("phase callback failed", "err", err)
		}
	}
	return failures
}

func (s *Simulation) invoke(p agents.Phase, round int, a *agents.Agent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PhaseError{Round: round, Phase: p, Agent: a.ID, Type: a.Type, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if cerr := p.Invoke(s.behaviorFor(a.Type), a, s.env); cerr != nil {
		return &PhaseError{Round: round, Phase: p, Agent: a.ID, Type: a.Type, Err: cerr}
	}
	return nil
}

func (s *Simulation) behaviorFor(agentType string) agents.Behavior {
	if b, ok := s.behaviors[agentType]; ok {
		return b
	}
	return s.fallback
}

// syncNeighbors refreshes every agent's neighbor snapshot from the graph.
func (s *Simulation) syncNeighbors() {
	for _, a := range s.Population.Agents() {
		a.Neighbors = s.Graph.Neighbors(a.ID)
	}
}

func (s *Simulation) aggregate() (Aggregate, map[string]Aggregate) {
	var total Aggregate
	byType := make(map[string]Aggregate)
	for _, t := range s.Population.Types() {
		byType[t] = Aggregate{}
	}
	for _, a := range s.Population.Agents() {
		total.add(a)
		agg := byType[a.Type]
		agg.add(a)
		byType[a.Type] = agg
	}
	return total, byType
}

func countStressed(pop *agents.Population) int {
	n := 0
	for _, a := range pop.Agents() {
		if a.Climate.AcuteStressed {
			n++
		}
	}
	return n
}

// Snapshots returns copies of the round snapshots taken so far.
func (s *Simulation) Snapshots() []RoundSnapshot {
	out := make([]RoundSnapshot, len(s.snapshots))
	for i, snap := range s.snapshots {
		out[i] = snap.Clone()
	}
	return out
}

// NetworkSummary describes the current graph.
func (s *Simulation) NetworkSummary() NetworkSummary {
	sum := NetworkSummary{Strategy: s.topology.Config().Strategy}
	if s.Graph == nil {
		return sum
	}
	sum.Stats = s.Graph.Stats()
	sum.Edges = s.Graph.Edges()
	for _, a := range s.Population.Agents() {
		sum.Nodes = append(sum.Nodes, NodeSummary{
			ID:       a.ID,
			Name:     a.Name,
			Type:     a.Type,
			Location: a.Location,
			Degree:   s.Graph.Degree(a.ID),
		})
	}
	return sum
}

// Performance returns every agent that ever existed, live and retired,
// ordered by ID.
func (s *Simulation) Performance() []agents.Performance {
	perf := s.lifecycle.Retired()
	for _, a := range s.Population.Agents() {
		perf = append(perf, a.Performance())
	}
	slices.SortFunc(perf, func(a, b agents.Performance) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return perf
}

// RunID derives a stable identifier from the seed and configuration.
func (s *Simulation) RunID() string {
	name := fmt.Sprintf("%d:%s", s.rng.Seed(), s.Config.Digest())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Results gathers everything the run has produced so far.
func (s *Simulation) Results() *Results {
	return &Results{
		RunID:       s.RunID(),
		Seed:        s.rng.Seed(),
		Rounds:      s.Snapshots(),
		Shocks:      s.shocks.History(),
		Network:     s.NetworkSummary(),
		Performance: s.Performance(),
	}
}
