package graph

import (
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// Graph is a compiled, immutable node graph. Run is safe for concurrent use
// as long as each call gets its own state.
type Graph[S any] struct {
	nodes    map[string]*node[S]
	entry    string
	maxSteps int
}

// Run walks the graph from the entry node until End. It returns the names
// of the nodes visited, in order. A node failure stops the run and is
// returned as a *climate.NodeError naming the node; a panicking node is
// reported the same way, wrapping climate.ErrEvaluationPanic.
func (g *Graph[S]) Run(s S) ([]string, error) {
	path := make([]string, 0, 8)
	current := g.entry

	for step := 0; current != End; step++ {
		if step >= g.maxSteps {
			return path, &climate.NodeError{Node: current, Err: ErrMaxSteps}
		}
		n := g.nodes[current]
		path = append(path, n.name)

		if err := runNode(n, s); err != nil {
			return path, &climate.NodeError{Node: n.name, Err: err}
		}

		if n.route == nil {
			current = n.next
			continue
		}
		next, err := routeNode(n, s)
		if err != nil {
			return path, &climate.NodeError{Node: n.name, Err: err}
		}
		current = next
	}
	return path, nil
}

func runNode[S any](n *node[S], s S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", climate.ErrEvaluationPanic, r)
		}
	}()
	return n.run(s)
}

func routeNode[S any](n *node[S], s S) (next string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: router: %v", climate.ErrEvaluationPanic, r)
		}
	}()
	next = n.route(s)
	if !n.targets[next] {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, next)
	}
	return next, nil
}
