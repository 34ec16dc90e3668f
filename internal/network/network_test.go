package network

import (
	"math"
	"sort"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/climate-net/internal/agents"
	"github.com/talgya/climate-net/internal/entropy"
)

func uniformNodes(n int) []Node {
	tmpl := &agents.Template{Name: "trader"}
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i] = Node{ID: agents.AgentID(i + 1), Type: tmpl.Name, Template: tmpl}
	}
	return nodes
}

func supplyChainNodes() []Node {
	farm := &agents.Template{Name: "farm", Production: agents.ProductionSpec{
		Inputs: map[string]float64{"labor": 1}, Outputs: []string{"grain"}}}
	mill := &agents.Template{Name: "mill", Production: agents.ProductionSpec{
		Inputs: map[string]float64{"grain": 2}, Outputs: []string{"flour"}}}
	household := &agents.Template{Name: "household", Production: agents.ProductionSpec{
		Inputs: map[string]float64{"flour": 1}, Outputs: []string{"labor"}}}
	var nodes []Node
	id := agents.AgentID(1)
	for _, tmpl := range []*agents.Template{farm, mill, household} {
		for i := 0; i < 6; i++ {
			nodes = append(nodes, Node{ID: id, Type: tmpl.Name, Template: tmpl})
			id++
		}
	}
	return nodes
}

func build(t *testing.T, cfg Config, seed int64, nodes []Node) *Graph {
	t.Helper()
	g, err := NewGenerator(cfg, entropy.New(seed)).Build(nodes)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func checkSimple(t *testing.T, g *Graph) {
	t.Helper()
	seen := make(map[[2]agents.AgentID]bool)
	for _, e := range g.Edges() {
		if e.From == e.To {
			t.Fatalf("self loop on %d", e.From)
		}
		key := [2]agents.AgentID{e.From, e.To}
		if seen[key] {
			t.Fatalf("parallel edge %d->%d", e.From, e.To)
		}
		seen[key] = true
		if e.Weight < 0.1 || e.Weight > 1.0 {
			t.Fatalf("weight %v outside [0.1, 1.0]", e.Weight)
		}
	}
	if len(seen) != g.EdgeCount() {
		t.Fatalf("edge count %d, listed %d", g.EdgeCount(), len(seen))
	}
}

func TestRandomDegreeConvergesToPN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionProbability = 0.05
	cfg.MaxConnections = 1000
	const n = 400
	var means []float64
	for seed := int64(1); seed <= 5; seed++ {
		g := build(t, cfg, seed, uniformNodes(n))
		checkSimple(t, g)
		means = append(means, g.Stats().MeanOutDegree)
	}
	want := cfg.ConnectionProbability * n
	if got := stat.Mean(means, nil); math.Abs(got-want) > 0.5 {
		t.Errorf("mean out-degree = %.3f, want ~%.1f", got, want)
	}
}

func TestRandomRespectsMaxConnections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionProbability = 0.5
	cfg.MaxConnections = 3
	g := build(t, cfg, 42, uniformNodes(50))
	for _, id := range g.Nodes() {
		if d := g.OutDegree(id); d > 3 {
			t.Fatalf("node %d out-degree %d exceeds max", id, d)
		}
	}
}

// topDecileShare is the share of total degree held by the top 10% of nodes.
func topDecileShare(g *Graph) float64 {
	var degrees []int
	total := 0
	for _, id := range g.Nodes() {
		d := g.Degree(id)
		degrees = append(degrees, d)
		total += d
	}
	sort.Sort(sort.Reverse(sort.IntSlice(degrees)))
	top := 0
	for _, d := range degrees[:len(degrees)/10] {
		top += d
	}
	return float64(top) / float64(total)
}

func TestScaleFreeHeavierTailThanRandom(t *testing.T) {
	const n = 300
	sf := DefaultConfig()
	sf.Strategy = StrategyScaleFree
	sf.ScaleFreeM = 2

	rnd := DefaultConfig()
	rnd.ConnectionProbability = 2.0 / n
	rnd.MaxConnections = n

	var sfShare, rndShare []float64
	for seed := int64(1); seed <= 5; seed++ {
		g := build(t, sf, seed, uniformNodes(n))
		checkSimple(t, g)
		sfShare = append(sfShare, topDecileShare(g))
		rndShare = append(rndShare, topDecileShare(build(t, rnd, seed, uniformNodes(n))))
	}
	s, r := stat.Mean(sfShare, nil), stat.Mean(rndShare, nil)
	if s <= r {
		t.Errorf("scale-free top-decile share %.3f not above random %.3f", s, r)
	}
}

func TestScaleFreeEdgeCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyScaleFree
	cfg.ScaleFreeM = 3
	g := build(t, cfg, 9, uniformNodes(40))
	// Clique over m+1 nodes, then m edges per remaining node.
	want := 4*3/2 + (40-4)*3
	if g.EdgeCount() != want {
		t.Errorf("edges = %d, want %d", g.EdgeCount(), want)
	}
}

func TestSupplyChainEdgesMatchGoods(t *testing.T) {
	nodes := supplyChainNodes()
	byID := make(map[agents.AgentID]Node)
	for _, n := range nodes {
		byID[n.ID] = n
	}
	cfg := DefaultConfig()
	cfg.Strategy = StrategySupplyChain
	g := build(t, cfg, 42, nodes)
	checkSimple(t, g)
	if g.EdgeCount() == 0 {
		t.Fatal("supply chain produced no edges")
	}
	for _, e := range g.Edges() {
		from, to := byID[e.From], byID[e.To]
		if from.Type == to.Type {
			t.Errorf("edge %d->%d joins the same type %s", e.From, e.To, from.Type)
		}
		if !from.Template.Supplies(to.Template) {
			t.Errorf("edge %s->%s has no shared good", from.Type, to.Type)
		}
	}
}

func TestSupplyChainProbabilityOneConnectsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategySupplyChain
	cfg.SupplyChainProbability = 1
	g := build(t, cfg, 1, supplyChainNodes())
	// farm->mill, mill->household, household->farm: 3 pairs of 6x6.
	if g.EdgeCount() != 3*36 {
		t.Errorf("edges = %d, want %d", g.EdgeCount(), 3*36)
	}
}

func TestSmallWorld(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategySmallWorld
	cfg.SmallWorldK = 4

	t.Run("no rewiring is a ring lattice", func(t *testing.T) {
		cfg := cfg
		cfg.SmallWorldP = 0
		g := build(t, cfg, 3, uniformNodes(10))
		if g.EdgeCount() != 20 {
			t.Fatalf("edges = %d, want 20", g.EdgeCount())
		}
		if !g.HasEdge(10, 1) || !g.HasEdge(10, 2) || !g.HasEdge(1, 3) {
			t.Error("missing lattice edge")
		}
	})
	t.Run("rewiring keeps edge count", func(t *testing.T) {
		cfg := cfg
		cfg.SmallWorldP = 0.5
		g := build(t, cfg, 3, uniformNodes(30))
		checkSimple(t, g)
		if g.EdgeCount() != 60 {
			t.Fatalf("edges = %d, want 60", g.EdgeCount())
		}
	})
}

func TestBuildDeterministic(t *testing.T) {
	for _, s := range []Strategy{StrategyRandom, StrategySupplyChain, StrategySmallWorld, StrategyScaleFree} {
		t.Run(string(s), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = s
			a := build(t, cfg, 42, supplyChainNodes()).Edges()
			b := build(t, cfg, 42, supplyChainNodes()).Edges()
			if len(a) != len(b) {
				t.Fatalf("edge counts differ: %d vs %d", len(a), len(b))
			}
			for i := range a {
				if a[i] != b[i] {
					t.Fatalf("edge %d differs: %+v vs %+v", i, a[i], b[i])
				}
			}
		})
	}
}

func TestBatchCommit(t *testing.T) {
	g, err := New([]agents.AgentID{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []Edge{{1, 2, 0.5}, {2, 3, 0.5}, {3, 1, 0.5}, {4, 2, 0.5}} {
		if err := g.AddEdge(e.From, e.To, e.Weight); err != nil {
			t.Fatal(err)
		}
	}
	before := g.Nodes()

	b := g.Stage()
	b.RemoveNode(2)
	b.AddNode(5)
	b.AddEdge(Edge{From: 5, To: 1, Weight: 0.3})
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if g.HasNode(2) {
		t.Error("node 2 still present")
	}
	for _, id := range g.Nodes() {
		for _, nb := range g.Neighbors(id) {
			if nb == 2 {
				t.Errorf("node %d still adjacent to removed node", id)
			}
		}
	}
	if g.EdgeCount() != 2 || !g.HasEdge(3, 1) || !g.HasEdge(5, 1) {
		t.Errorf("edges after commit = %v", g.Edges())
	}
	if len(before) != 4 {
		t.Error("earlier node snapshot changed")
	}

	bad := g.Stage()
	bad.AddEdge(Edge{From: 1, To: 42, Weight: 1})
	if err := bad.Commit(); err == nil {
		t.Error("commit with unknown endpoint should fail")
	}
	if g.NodeCount() != 4 || g.EdgeCount() != 2 {
		t.Error("failed commit modified the graph")
	}
}

func TestAttachWiresToExisting(t *testing.T) {
	tests := []Strategy{StrategyRandom, StrategySupplyChain, StrategySmallWorld, StrategyScaleFree}
	for _, s := range tests {
		t.Run(string(s), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = s
			cfg.SupplyChainProbability = 1
			cfg.ConnectionProbability = 0.5
			nodes := supplyChainNodes()
			gen := NewGenerator(cfg, entropy.New(8))
			g, err := gen.Build(nodes[:len(nodes)-1])
			if err != nil {
				t.Fatal(err)
			}
			newcomer := nodes[len(nodes)-1]
			edges := gen.Attach(g, newcomer, nodes[:len(nodes)-1])
			if len(edges) == 0 {
				t.Fatal("newcomer got no edges")
			}
			b := g.Stage()
			b.AddNode(newcomer.ID)
			for _, e := range edges {
				if e.From != newcomer.ID && e.To != newcomer.ID {
					t.Errorf("edge %+v does not touch the newcomer", e)
				}
				b.AddEdge(e)
			}
			if err := b.Commit(); err != nil {
				t.Fatalf("Commit: %v", err)
			}
			checkSimple(t, g)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"unknown strategy", func(c *Config) { c.Strategy = "hypercube" }, true},
		{"probability above one", func(c *Config) { c.ConnectionProbability = 1.5 }, true},
		{"scale free without m", func(c *Config) { c.Strategy = StrategyScaleFree; c.ScaleFreeM = 0 }, true},
		{"inverted weights", func(c *Config) { c.WeightMin, c.WeightMax = 1, 0.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
