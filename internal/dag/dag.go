// SPDX-License-Identifier: MPL-2.0

// Package dag orders palette modules along their extends links.
//
// An edge from A to B means "A is extended by B": A's contributions must be
// collected before B's so that B can override them. Sorting is deterministic:
// nodes that become ready at the same time keep the order in which they were added.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError reports modules whose extends links form a cycle.
	CycleError struct {
		// Nodes lists every node left unsorted, in insertion order.
		Nodes []string
	}

	// Graph is a directed graph keyed by string node names.
	Graph struct {
		edges   map[string][]string
		nodes   []string
		present map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("extends cycle detected among: %s", strings.Join(e.Nodes, ", "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		edges:   make(map[string][]string),
		present: make(map[string]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.present[name] {
		return
	}
	g.present[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from must come before to. Both nodes are added if missing.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// TopologicalSort returns the nodes so that every edge points forward
// (Kahn's algorithm). It returns a *CycleError when no such order exists.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	pending := make(map[string]int, len(g.nodes))
	for _, targets := range g.edges {
		for _, to := range targets {
			pending[to]++
		}
	}

	ready := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		if pending[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, to := range g.edges[n] {
			pending[to]--
			if pending[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}

	var stuck []string
	for _, n := range g.nodes {
		if pending[n] > 0 {
			stuck = append(stuck, n)
		}
	}
	return nil, &CycleError{Nodes: stuck}
}
