package engine

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

// Node represents a vertex in the step graph.
type Node struct {
	ID         string
	Index      int
	DependsOn  []*Node
	Dependents []*Node
}

// Graph is a directed graph of step names. It is built once per phase and
// not modified after construction.
type Graph struct {
	Nodes map[string]*Node
	order []string
}

// DAGPayload is the JSON-safe description of a graph stored on the blackboard.
type DAGPayload struct {
	Nodes []string            `json:"nodes"`
	Edges map[string][]string `json:"edges"`
	Order []string            `json:"order"`
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a step as a vertex in the graph.
func (g *Graph) AddNode(id string) (*Node, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ilerrors.NewValidationError("steps", "step name cannot be empty", nil)
	}

	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}

	if _, exists := g.Nodes[id]; exists {
		return nil, ilerrors.NewValidationError("steps", fmt.Sprintf("duplicate step %q", id), nil)
	}

	node := &Node{ID: id, Index: len(g.order)}
	g.Nodes[id] = node
	g.order = append(g.order, id)
	return node, nil
}

// AddEdge records that to runs after from.
func (g *Graph) AddEdge(from, to string) error {
	source, ok := g.Nodes[from]
	if !ok {
		return ilerrors.NewValidationError("steps", fmt.Sprintf("unknown edge source %q", from), nil)
	}

	target, ok := g.Nodes[to]
	if !ok {
		return ilerrors.NewValidationError("steps", fmt.Sprintf("unknown edge target %q", to), nil)
	}

	if slices.Contains(source.Dependents, target) {
		return nil
	}

	source.Dependents = append(source.Dependents, target)
	target.DependsOn = append(target.DependsOn, source)
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// IDs returns node names in insertion order.
func (g *Graph) IDs() []string {
	return slices.Clone(g.order)
}

// Edges returns a copy of the adjacency map.
func (g *Graph) Edges() map[string][]string {
	edges := make(map[string][]string, len(g.Nodes))
	for _, id := range g.order {
		node := g.Nodes[id]
		targets := make([]string, 0, len(node.Dependents))
		for _, dep := range node.Dependents {
			targets = append(targets, dep.ID)
		}
		edges[id] = targets
	}
	return edges
}

// TopologicalOrder sorts the graph with Kahn's algorithm. Among nodes that are
// ready at the same time, the one inserted first wins. A cycle yields an error
// wrapping ErrCycleDetected and no partial order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for _, id := range g.order {
		indegree[id] = len(g.Nodes[id].DependsOn)
	}

	var ready []*Node
	for _, id := range g.order {
		if indegree[id] == 0 {
			ready = append(ready, g.Nodes[id])
		}
	}

	order := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node.ID)

		released := false
		for _, dependent := range node.Dependents {
			indegree[dependent.ID]--
			if indegree[dependent.ID] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sort.SliceStable(ready, func(i, j int) bool { return ready[i].Index < ready[j].Index })
		}
	}

	if len(order) != len(g.order) {
		var stuck []string
		for _, id := range g.order {
			if indegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, ilerrors.NewValidationError(
			"steps",
			fmt.Sprintf("cycle detected while sorting graph (involving %s)", strings.Join(stuck, ", ")),
			ilerrors.ErrCycleDetected,
		)
	}

	return order, nil
}

// Validate checks the graph is acyclic.
func (g *Graph) Validate() error {
	_, err := g.TopologicalOrder()
	return err
}

// Payload describes the graph for the blackboard. The order is empty when the
// graph has a cycle.
func (g *Graph) Payload() DAGPayload {
	order, _ := g.TopologicalOrder()
	if order == nil {
		order = []string{}
	}
	return DAGPayload{Nodes: g.IDs(), Edges: g.Edges(), Order: order}
}
