package systems

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
)

// Network errors.
var (
	ErrSelfEdge      = errors.New("self edge")
	ErrDuplicateEdge = errors.New("duplicate edge")
	ErrUnknownNode   = errors.New("unknown node")
)

// Edge is one undirected contact with its peership weight. A < B.
type Edge struct {
	A, B   int64
	Weight float64
}

// Network is the undirected weighted contact graph between agents.
// Degree counters follow every add and remove, so Degree always equals the
// number of incident edges.
type Network struct {
	g      *simple.WeightedUndirectedGraph
	degree map[int64]int
	edges  int
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	n := &Network{}
	n.Clear()
	return n
}

// Clear removes all nodes and edges.
func (n *Network) Clear() {
	n.g = simple.NewWeightedUndirectedGraph(0, 0)
	n.degree = make(map[int64]int)
	n.edges = 0
}

// AddNode registers an agent. Adding an existing node is a no-op.
func (n *Network) AddNode(id int64) {
	if n.g.Node(id) != nil {
		return
	}
	n.g.AddNode(simple.Node(id))
	n.degree[id] = 0
}

// HasNode reports whether the agent is in the network.
func (n *Network) HasNode(id int64) bool {
	return n.g.Node(id) != nil
}

// AddEdge links a and b with the given weight.
func (n *Network) AddEdge(a, b int64, weight float64) error {
	if a == b {
		return fmt.Errorf("add edge %d-%d: %w", a, b, ErrSelfEdge)
	}
	if !n.HasNode(a) || !n.HasNode(b) {
		return fmt.Errorf("add edge %d-%d: %w", a, b, ErrUnknownNode)
	}
	if n.g.HasEdgeBetween(a, b) {
		return fmt.Errorf("add edge %d-%d: %w", a, b, ErrDuplicateEdge)
	}
	n.g.SetWeightedEdge(n.g.NewWeightedEdge(simple.Node(a), simple.Node(b), weight))
	n.degree[a]++
	n.degree[b]++
	n.edges++
	return nil
}

// RemoveEdge unlinks a and b if they are linked.
func (n *Network) RemoveEdge(a, b int64) {
	if !n.g.HasEdgeBetween(a, b) {
		return
	}
	n.g.RemoveEdge(a, b)
	n.degree[a]--
	n.degree[b]--
	n.edges--
}

// RemoveEdges drops every edge incident to id.
func (n *Network) RemoveEdges(id int64) {
	for _, other := range n.Neighbors(id) {
		n.RemoveEdge(id, other)
	}
}

// Neighbors returns the ids linked to id in ascending order.
func (n *Network) Neighbors(id int64) []int64 {
	if !n.HasNode(id) {
		return nil
	}
	it := n.g.From(id)
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

// Weight returns the peership weight of the edge between a and b.
func (n *Network) Weight(a, b int64) (float64, bool) {
	e := n.g.WeightedEdge(a, b)
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// Degree returns the maintained edge counter for id.
func (n *Network) Degree(id int64) int {
	return n.degree[id]
}

// IncidentCount counts the live edges at id directly from the graph.
func (n *Network) IncidentCount(id int64) int {
	if !n.HasNode(id) {
		return 0
	}
	return n.g.From(id).Len()
}

// EdgeCount returns the number of edges.
func (n *Network) EdgeCount() int { return n.edges }

// Edges returns every edge ordered by (A, B).
func (n *Network) Edges() []Edge {
	out := make([]Edge, 0, n.edges)
	it := n.g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		a, b := e.From().ID(), e.To().ID()
		if a > b {
			a, b = b, a
		}
		out = append(out, Edge{A: a, B: b, Weight: e.Weight()})
	}
	slices.SortFunc(out, func(x, y Edge) int {
		if x.A != y.A {
			if x.A < y.A {
				return -1
			}
			return 1
		}
		if x.B < y.B {
			return -1
		}
		if x.B > y.B {
			return 1
		}
		return 0
	})
	return out
}

// Rewire drops every edge of ego, then offers a new edge to each other agent
// in population order. A peer is accepted when a uniform draw falls below
// AttachProbability of the pair's current combined degree; accepted edges
// take their weight from the next draw. Ego itself is skipped without a draw.
// The gate reads live degree counters, which drop as ego's old edges are
// removed, so trajectories differ from a gate fed counters that only grow.
func (n *Network) Rewire(ego int64, population []int64, lambda float64, rng Source) {
	n.RemoveEdges(ego)
	for _, other := range population {
		if other == ego {
			continue
		}
		p := AttachProbability(n.Degree(ego)+n.Degree(other), lambda)
		if rng.Float64() < p {
			// ego has no edges left from before, and each peer is visited
			// once, so this cannot collide.
			_ = n.AddEdge(ego, other, rng.Float64())
		}
	}
}

// ChangeNetwork rewires ego with probability promiscuity and returns ego's
// degree counted from the live edge set.
func (n *Network) ChangeNetwork(ego int64, population []int64, lambda, promiscuity float64, rng Source) (degree int, rewired bool) {
	if rng.Float64() < promiscuity {
		n.Rewire(ego, population, lambda, rng)
		rewired = true
	}
	return n.IncidentCount(ego), rewired
}
