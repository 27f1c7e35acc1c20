package dag

import (
	"container/heap"
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	n := &node{
		id:         id,
		order:      len(g.nodes),
		deps:       make(map[int]struct{}),
		dependents: make(map[int]struct{}),
	}
	g.index[id] = n.order
	g.nodes = append(g.nodes, n)
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist; a self-referential edge is reported as a
// one-node *CycleError.
func (g *Graph) AddEdge(fromID, toID string) error {
	fromIdx, ok := g.index[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toIdx, ok := g.index[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	if fromIdx == toIdx {
		return &CycleError{Path: []string{fromID, fromID}}
	}

	g.nodes[toIdx].deps[fromIdx] = struct{}{}
	g.nodes[fromIdx].dependents[toIdx] = struct{}{}
	return nil
}

func sortedOrders(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Ints(out)
	return out
}

// TopologicalOrder returns every node ID such that each node appears after
// all of its dependencies. Among nodes that are ready at the same time the
// one added first wins, so the order is a pure function of the insertion
// order and the edges.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indeg := make([]int, len(g.nodes))
	ready := &orderHeap{}
	for _, n := range g.nodes {
		indeg[n.order] = len(n.deps)
		if indeg[n.order] == 0 {
			heap.Push(ready, n.order)
		}
	}

	out := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		o := heap.Pop(ready).(int)
		out = append(out, g.nodes[o].id)
		for _, d := range sortedOrders(g.nodes[o].dependents) {
			indeg[d]--
			if indeg[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(out) != len(g.nodes) {
		return nil, &CycleError{Path: g.findCycle()}
	}
	return out, nil
}

// findCycle performs a deterministic DFS along dependency edges and returns
// one cycle witness. It must only be called on a graph known to be cyclic.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.nodes))
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = gray
		for _, v := range sortedOrders(g.nodes[u].deps) {
			switch color[v] {
			case white:
				parent[v] = u
				if visit(v) {
					return true
				}
			case gray:
				// Back edge u -> v: walk parents from u up to v.
				cycle = append(cycle, v)
				for cur := u; cur != v && cur != -1; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.nodes {
		if color[i] == white && visit(i) {
			break
		}
	}

	// cycle was collected against the dependency direction; reverse it so the
	// path reads "a depends on b depends on ... a".
	path := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		path = append(path, g.nodes[cycle[i]].id)
	}
	return path
}

type orderHeap []int

func (h orderHeap) Len() int           { return len(h) }
func (h orderHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h orderHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *orderHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *orderHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
