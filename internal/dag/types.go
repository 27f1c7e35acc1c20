package dag

import (
	"fmt"
	"strings"
)

// Graph is a collection of nodes and their dependencies, representing a DAG.
//
// Nodes remember the order in which they were added; every query that
// returns several nodes returns them in that order so that results never
// depend on map iteration. A Graph is built and consumed by a single
// goroutine and is not safe for concurrent mutation.
type Graph struct {
	// index maps a node ID to its position in nodes.
	index map[string]int
	// nodes stores all nodes in insertion order.
	nodes []*node
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// order is the insertion index, used as the deterministic tie-breaker.
	order int
	// deps holds the orders of the nodes that this node depends on (predecessors).
	deps map[int]struct{}
	// dependents holds the orders of the nodes that depend on this node (successors).
	dependents map[int]struct{}
}

// CycleError reports a dependency cycle. Path lists the participating node
// IDs in dependency order and repeats the first node at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}
