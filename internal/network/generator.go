package network

import (
	"fmt"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/entropy"
)

// Strategy selects how the topology is built.
type Strategy string

const (
	StrategyRandom      Strategy = "random"
	StrategySupplyChain Strategy = "supply_chain"
	StrategySmallWorld  Strategy = "small_world"
	StrategyScaleFree   Strategy = "scale_free"
)

// Config parameterizes topology generation.
type Config struct {
	Strategy               Strategy `json:"connection_type" yaml:"connection_type"`
	ConnectionProbability  float64  `json:"connection_probability" yaml:"connection_probability"`
	MaxConnections         int      `json:"max_connections_per_agent" yaml:"max_connections_per_agent"`
	SupplyChainProbability float64  `json:"supply_chain_probability" yaml:"supply_chain_probability"`
	SmallWorldK            int      `json:"small_world_k" yaml:"small_world_k"`
	SmallWorldP            float64  `json:"small_world_p" yaml:"small_world_p"`
	ScaleFreeM             int      `json:"scale_free_m" yaml:"scale_free_m"`
	WeightMin              float64  `json:"weight_min" yaml:"weight_min"`
	WeightMax              float64  `json:"weight_max" yaml:"weight_max"`
}

// DefaultConfig returns a sparse random topology.
func DefaultConfig() Config {
	return Config{
		Strategy:               StrategyRandom,
		ConnectionProbability:  0.3,
		MaxConnections:         5,
		SupplyChainProbability: 0.7,
		SmallWorldK:            4,
		SmallWorldP:            0.1,
		ScaleFreeM:             2,
		WeightMin:              0.1,
		WeightMax:              1.0,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyRandom, StrategySupplyChain, StrategySmallWorld, StrategyScaleFree:
	default:
		return fmt.Errorf("unknown connection_type %q", c.Strategy)
	}
	if c.ConnectionProbability < 0 || c.ConnectionProbability > 1 {
		return fmt.Errorf("connection_probability must be in [0, 1], got %v", c.ConnectionProbability)
	}
	if c.SupplyChainProbability < 0 || c.SupplyChainProbability > 1 {
		return fmt.Errorf("supply_chain_probability must be in [0, 1], got %v", c.SupplyChainProbability)
	}
	if c.SmallWorldP < 0 || c.SmallWorldP > 1 {
		return fmt.Errorf("small_world_p must be in [0, 1], got %v", c.SmallWorldP)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max_connections_per_agent must be >= 0, got %d", c.MaxConnections)
	}
	if c.SmallWorldK < 0 {
		return fmt.Errorf("small_world_k must be >= 0, got %d", c.SmallWorldK)
	}
	if c.Strategy == StrategyScaleFree && c.ScaleFreeM < 1 {
		return fmt.Errorf("scale_free_m must be >= 1, got %d", c.ScaleFreeM)
	}
	if c.WeightMin <= 0 || c.WeightMax < c.WeightMin {
		return fmt.Errorf("weight range [%v, %v] invalid: need 0 < weight_min <= weight_max", c.WeightMin, c.WeightMax)
	}
	return nil
}

// Node is what the generator needs to know about an agent.
type Node struct {
	ID       agents.AgentID
	Type     string
	Template *agents.Template
}

// NodeOf builds a Node from an agent.
func NodeOf(a *agents.Agent) Node {
	return Node{ID: a.ID, Type: a.Type, Template: a.Template}
}

// Generator builds topologies from the shared stream.
type Generator struct {
	cfg Config
	rng *entropy.Stream
}

// NewGenerator creates a topology generator.
func NewGenerator(cfg Config, rng *entropy.Stream) *Generator {
	return &Generator{cfg: cfg, rng: rng}
}

// Config returns the generator's parameters.
func (gen *Generator) Config() Config {
	return gen.cfg
}

// Build creates the initial graph over the nodes.
func (gen *Generator) Build(nodes []Node) (*Graph, error) {
	ids := make([]agents.AgentID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	g, err := New(ids)
	if err != nil {
		return nil, err
	}

	switch gen.cfg.Strategy {
	case StrategyRandom:
		err = gen.buildRandom(g, nodes)
	case StrategySupplyChain:
		err = gen.buildSupplyChain(g, nodes)
	case StrategySmallWorld:
		err = gen.buildSmallWorld(g, nodes)
	case StrategyScaleFree:
		err = gen.buildScaleFree(g, nodes)
	default:
		err = fmt.Errorf("unknown connection_type %q", gen.cfg.Strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s topology: %w", gen.cfg.Strategy, err)
	}
	return g, nil
}

func (gen *Generator) weight() float64 {
	return gen.rng.Uniform(gen.cfg.WeightMin, gen.cfg.WeightMax)
}

// outDegree draws min(Poisson(p*n), max_connections).
func (gen *Generator) outDegree(n int) int {
	k := gen.rng.Poisson(gen.cfg.ConnectionProbability * float64(n))
	if k > gen.cfg.MaxConnections {
		k = gen.cfg.MaxConnections
	}
	return k
}

func (gen *Generator) buildRandom(g *Graph, nodes []Node) error {
	n := len(nodes)
	for i, src := range nodes {
		k := gen.outDegree(n)
		// Sample over the n-1 other nodes, skipping i.
		for _, j := range gen.rng.Sample(n-1, k) {
			if j >= i {
				j++
			}
			if err := g.AddEdge(src.ID, nodes[j].ID, gen.weight()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (gen *Generator) buildSupplyChain(g *Graph, nodes []Node) error {
	for _, src := range nodes {
		for _, dst := range nodes {
			if src.ID == dst.ID || src.Type == dst.Type {
				continue
			}
			if !src.Template.Supplies(dst.Template) {
				continue
			}
			if !gen.rng.Bernoulli(gen.cfg.SupplyChainProbability) {
				continue
			}
			if err := g.AddEdge(src.ID, dst.ID, gen.weight()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (gen *Generator) buildSmallWorld(g *Graph, nodes []Node) error {
	n := len(nodes)
	half := gen.cfg.SmallWorldK / 2
	var lattice []Edge
	for i := range nodes {
		for j := 1; j <= half; j++ {
			t := (i + j) % n
			if t == i || g.HasEdge(nodes[i].ID, nodes[t].ID) {
				continue
			}
			e := Edge{From: nodes[i].ID, To: nodes[t].ID, Weight: gen.weight()}
			if err := g.AddEdge(e.From, e.To, e.Weight); err != nil {
				return err
			}
			lattice = append(lattice, e)
		}
	}

	for _, e := range lattice {
		if !gen.rng.Bernoulli(gen.cfg.SmallWorldP) {
			continue
		}
		var candidates []agents.AgentID
		for _, c := range nodes {
			if c.ID != e.From && !g.HasEdge(e.From, c.ID) {
				candidates = append(candidates, c.ID)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		target := candidates[gen.rng.IntN(len(candidates))]
		g.RemoveEdge(e.From, e.To)
		if err := g.AddEdge(e.From, target, gen.weight()); err != nil {
			return err
		}
	}
	return nil
}

func (gen *Generator) buildScaleFree(g *Graph, nodes []Node) error {
	m := gen.cfg.ScaleFreeM
	seed := min(m+1, len(nodes))
	for i := 0; i < seed; i++ {
		for j := i + 1; j < seed; j++ {
			if err := g.AddEdge(nodes[i].ID, nodes[j].ID, gen.weight()); err != nil {
				return err
			}
		}
	}
	for v := seed; v < len(nodes); v++ {
		for _, t := range gen.preferential(g, nodes[:v], m) {
			if err := g.AddEdge(nodes[v].ID, t, gen.weight()); err != nil {
				return err
			}
		}
	}
	return nil
}

// preferential picks up to m distinct targets with probability
// proportional to current degree. Degree-zero pools fall back to uniform.
func (gen *Generator) preferential(g *Graph, pool []Node, m int) []agents.AgentID {
	weights := make([]float64, len(pool))
	for i, n := range pool {
		weights[i] = float64(g.Degree(n.ID))
	}
	picks := make([]agents.AgentID, 0, m)
	for len(picks) < m && len(picks) < len(pool) {
		i := gen.rng.Weighted(weights)
		if i < 0 {
			// Only zero-degree candidates remain.
			var rest []int
			for j, w := range weights {
				if w >= 0 {
					rest = append(rest, j)
				}
			}
			i = rest[gen.rng.IntN(len(rest))]
		}
		picks = append(picks, pool[i].ID)
		weights[i] = -1 // Exclude from later picks
	}
	return picks
}

// Attach returns the edges wiring a newly added node to the existing
// nodes, using the same strategy parameters as Build. The node itself must
// not be in existing. Edges are returned rather than applied so callers
// can stage them.
func (gen *Generator) Attach(g *Graph, node Node, existing []Node) []Edge {
	if len(existing) == 0 {
		return nil
	}
	var edges []Edge
	switch gen.cfg.Strategy {
	case StrategySupplyChain:
		for _, e := range existing {
			if e.Type == node.Type {
				continue
			}
			if node.Template.Supplies(e.Template) && gen.rng.Bernoulli(gen.cfg.SupplyChainProbability) {
				edges = append(edges, Edge{From: node.ID, To: e.ID, Weight: gen.weight()})
			}
			if e.Template.Supplies(node.Template) && gen.rng.Bernoulli(gen.cfg.SupplyChainProbability) {
				edges = append(edges, Edge{From: e.ID, To: node.ID, Weight: gen.weight()})
			}
		}
	case StrategySmallWorld:
		for _, i := range gen.rng.Sample(len(existing), gen.cfg.SmallWorldK/2) {
			edges = append(edges, Edge{From: node.ID, To: existing[i].ID, Weight: gen.weight()})
		}
	case StrategyScaleFree:
		for _, t := range gen.preferential(g, existing, gen.cfg.ScaleFreeM) {
			edges = append(edges, Edge{From: node.ID, To: t, Weight: gen.weight()})
		}
	default:
		k := gen.outDegree(len(existing) + 1)
		for _, i := range gen.rng.Sample(len(existing), k) {
			edges = append(edges, Edge{From: node.ID, To: existing[i].ID, Weight: gen.weight()})
		}
	}
	return edges
}
