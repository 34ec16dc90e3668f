// Package network holds the agent interaction graph and the topology
// strategies that build it.
//
// The graph stores node IDs in a dense slot array with adjacency lists
// indexed by slot. Outside initial construction, changes are staged in a
// Batch and committed in one step: the commit builds fresh arrays and swaps
// them in, so no adjacency list is mutated while it is being read.
package network

import (
	"fmt"
	"slices"

	"github.com/talgya/climate-net/internal/agents"
)

// Edge is a directed, weighted link.
type Edge struct {
	From   agents.AgentID `json:"from"`
	To     agents.AgentID `json:"to"`
	Weight float64        `json:"weight"`
}

type arc struct {
	to     int
	weight float64
}

// Graph is a directed graph without self loops or parallel edges.
type Graph struct {
	ids   []agents.AgentID
	slot  map[agents.AgentID]int
	out   [][]arc
	in    [][]int
	edges int
}

// New creates a graph with the given nodes and no edges.
func New(ids []agents.AgentID) (*Graph, error) {
	g := &Graph{
		ids:  make([]agents.AgentID, 0, len(ids)),
		slot: make(map[agents.AgentID]int, len(ids)),
	}
	for _, id := range ids {
		if _, dup := g.slot[id]; dup {
			return nil, fmt.Errorf("duplicate node %d", id)
		}
		g.slot[id] = len(g.ids)
		g.ids = append(g.ids, id)
	}
	g.out = make([][]arc, len(g.ids))
	g.in = make([][]int, len(g.ids))
	return g, nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Nodes returns node IDs in slot order.
func (g *Graph) Nodes() []agents.AgentID {
	return slices.Clone(g.ids)
}

// HasNode reports whether id is a node.
func (g *Graph) HasNode(id agents.AgentID) bool {
	_, ok := g.slot[id]
	return ok
}

// AddEdge adds from->to, replacing the weight of an existing edge.
func (g *Graph) AddEdge(from, to agents.AgentID, weight float64) error {
	fs, ts, err := g.endpoints(from, to)
	if err != nil {
		return err
	}
	if weight <= 0 {
		return fmt.Errorf("edge %d->%d: weight must be positive, got %v", from, to, weight)
	}
	for i := range g.out[fs] {
		if g.out[fs][i].to == ts {
			g.out[fs][i].weight = weight
			return nil
		}
	}
	g.out[fs] = append(g.out[fs], arc{to: ts, weight: weight})
	g.in[ts] = append(g.in[ts], fs)
	g.edges++
	return nil
}

// RemoveEdge deletes from->to if present.
func (g *Graph) RemoveEdge(from, to agents.AgentID) bool {
	fs, ts, err := g.endpoints(from, to)
	if err != nil {
		return false
	}
	i := slices.IndexFunc(g.out[fs], func(a arc) bool { return a.to == ts })
	if i < 0 {
		return false
	}
	g.out[fs] = slices.Delete(g.out[fs], i, i+1)
	j := slices.Index(g.in[ts], fs)
	g.in[ts] = slices.Delete(g.in[ts], j, j+1)
	g.edges--
	return true
}

func (g *Graph) endpoints(from, to agents.AgentID) (int, int, error) {
	if from == to {
		return 0, 0, fmt.Errorf("self loop on %d", from)
	}
	fs, ok := g.slot[from]
	if !ok {
		return 0, 0, fmt.Errorf("unknown node %d", from)
	}
	ts, ok := g.slot[to]
	if !ok {
		return 0, 0, fmt.Errorf("unknown node %d", to)
	}
	return fs, ts, nil
}

// HasEdge reports whether from->to exists.
func (g *Graph) HasEdge(from, to agents.AgentID) bool {
	_, ok := g.Weight(from, to)
	return ok
}

// Weight returns the weight of from->to.
func (g *Graph) Weight(from, to agents.AgentID) (float64, bool) {
	fs, ts, err := g.endpoints(from, to)
	if err != nil {
		return 0, false
	}
	for _, a := range g.out[fs] {
		if a.to == ts {
			return a.weight, true
		}
	}
	return 0, false
}

// OutDegree returns the number of outgoing edges.
func (g *Graph) OutDegree(id agents.AgentID) int {
	s, ok := g.slot[id]
	if !ok {
		return 0
	}
	return len(g.out[s])
}

// InDegree returns the number of incoming edges.
func (g *Graph) InDegree(id agents.AgentID) int {
	s, ok := g.slot[id]
	if !ok {
		return 0
	}
	return len(g.in[s])
}

// Degree returns in-degree plus out-degree.
func (g *Graph) Degree(id agents.AgentID) int {
	return g.InDegree(id) + g.OutDegree(id)
}

// Neighbors returns the undirected neighborhood of id sorted by ID.
func (g *Graph) Neighbors(id agents.AgentID) []agents.AgentID {
	s, ok := g.slot[id]
	if !ok {
		return nil
	}
	nb := make([]agents.AgentID, 0, len(g.out[s])+len(g.in[s]))
	for _, a := range g.out[s] {
		nb = append(nb, g.ids[a.to])
	}
	for _, src := range g.in[s] {
		nb = append(nb, g.ids[src])
	}
	slices.Sort(nb)
	return slices.Compact(nb)
}

// Edges returns every edge, grouped by source in slot order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for s, arcs := range g.out {
		for _, a := range arcs {
			edges = append(edges, Edge{From: g.ids[s], To: g.ids[a.to], Weight: a.weight})
		}
	}
	return edges
}

// Batch stages node and edge changes for a single commit.
type Batch struct {
	g           *Graph
	removeNodes map[agents.AgentID]bool
	addNodes    []agents.AgentID
	addEdges    []Edge
}

// Stage starts a batch against the graph.
func (g *Graph) Stage() *Batch {
	return &Batch{g: g, removeNodes: make(map[agents.AgentID]bool)}
}

// RemoveNode stages removal of a node and all its edges.
func (b *Batch) RemoveNode(id agents.AgentID) { b.removeNodes[id] = true }

// AddNode stages a new node.
func (b *Batch) AddNode(id agents.AgentID) { b.addNodes = append(b.addNodes, id) }

// AddEdge stages a new edge. Endpoints may be staged nodes.
func (b *Batch) AddEdge(e Edge) { b.addEdges = append(b.addEdges, e) }

// Commit applies the batch by building a new graph and swapping it in.
// On error the original graph is untouched.
func (b *Batch) Commit() error {
	old := b.g
	ids := make([]agents.AgentID, 0, len(old.ids)+len(b.addNodes))
	for _, id := range old.ids {
		if !b.removeNodes[id] {
			ids = append(ids, id)
		}
	}
	for id := range b.removeNodes {
		if !old.HasNode(id) {
			return fmt.Errorf("remove unknown node %d", id)
		}
	}
	ids = append(ids, b.addNodes...)

	next, err := New(ids)
	if err != nil {
		return err
	}
	for s, arcs := range old.out {
		from := old.ids[s]
		if b.removeNodes[from] {
			continue
		}
		for _, a := range arcs {
			to := old.ids[a.to]
			if b.removeNodes[to] {
				continue
			}
			if err := next.AddEdge(from, to, a.weight); err != nil {
				return err
			}
		}
	}
	for _, e := range b.addEdges {
		if err := next.AddEdge(e.From, e.To, e.Weight); err != nil {
			return err
		}
	}

	*old = *next
	b.removeNodes = make(map[agents.AgentID]bool)
	b.addNodes = nil
	b.addEdges = nil
	return nil
}

// Stats summarizes the graph's shape.
type Stats struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	MeanOutDegree float64 `json:"mean_out_degree"`
	MaxDegree     int     `json:"max_degree"`
	Density       float64 `json:"density"`
}

// Stats computes summary statistics.
func (g *Graph) Stats() Stats {
	st := Stats{Nodes: len(g.ids), Edges: g.edges}
	if st.Nodes == 0 {
		return st
	}
	st.MeanOutDegree = float64(g.edges) / float64(st.Nodes)
	if st.Nodes > 1 {
		st.Density = float64(g.edges) / float64(st.Nodes*(st.Nodes-1))
	}
	for s := range g.ids {
		if d := len(g.out[s]) + len(g.in[s]); d > st.MaxDegree {
			st.MaxDegree = d
		}
	}
	return st
}
