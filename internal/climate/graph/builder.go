package graph

import (
	"errors"
	"fmt"
	"sort"
)

// End is the pseudo-node that terminates a run.
const End = "__end__"

// defaultMaxSteps bounds a run so a routing mistake cannot loop forever.
const defaultMaxSteps = 32

var (
	// ErrInvalidGraph is returned by Compile for a malformed graph.
	ErrInvalidGraph = errors.New("graph: invalid graph")

	// ErrMaxSteps is returned when a run visits more nodes than allowed.
	ErrMaxSteps = errors.New("graph: step limit exceeded")

	// ErrUnknownRoute is returned when a router names a target it did not declare.
	ErrUnknownRoute = errors.New("graph: router returned undeclared target")
)

// NodeFunc does one step of work on the run state.
type NodeFunc[S any] func(s S) error

// Router picks the next node from the run state.
type Router[S any] func(s S) string

type node[S any] struct {
	name    string
	run     NodeFunc[S]
	next    string
	route   Router[S]
	targets map[string]bool
}

// Builder assembles a directed graph of nodes. It is not safe for
// concurrent use; build once at start-up and Compile.
type Builder[S any] struct {
	nodes map[string]*node[S]
	order []string
	entry string
	errs  []error
}

// NewBuilder returns an empty builder.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{nodes: make(map[string]*node[S])}
}

// AddNode registers a node. Names must be unique and must not be End.
func (b *Builder[S]) AddNode(name string, fn NodeFunc[S]) *Builder[S] {
	switch {
	case name == "" || name == End:
		b.errs = append(b.errs, fmt.Errorf("reserved or empty node name %q", name))
	case b.nodes[name] != nil:
		b.errs = append(b.errs, fmt.Errorf("duplicate node %q", name))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("node %q has no function", name))
	default:
		b.nodes[name] = &node[S]{name: name, run: fn}
		b.order = append(b.order, name)
	}
	return b
}

// AddEdge adds a fixed edge from one node to the next.
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	n, ok := b.nodes[from]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("edge from unknown node %q", from))
		return b
	}
	if n.next != "" || n.route != nil {
		b.errs = append(b.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}
	n.next = to
	return b
}

// AddConditionalEdge routes from a node to one of targets chosen at run time.
func (b *Builder[S]) AddConditionalEdge(from string, route Router[S], targets ...string) *Builder[S] {
	n, ok := b.nodes[from]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("conditional edge from unknown node %q", from))
		return b
	}
	if n.next != "" || n.route != nil {
		b.errs = append(b.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}
	if route == nil || len(targets) == 0 {
		b.errs = append(b.errs, fmt.Errorf("conditional edge from %q needs a router and targets", from))
		return b
	}
	n.route = route
	n.targets = make(map[string]bool, len(targets))
	for _, t := range targets {
		n.targets[t] = true
	}
	return b
}

// SetEntry names the first node of every run.
func (b *Builder[S]) SetEntry(name string) *Builder[S] {
	b.entry = name
	return b
}

// Compile checks the graph and freezes it.
//
// Every node needs exactly one outgoing edge, every edge target must exist
// (or be End), and every node must be reachable from the entry.
func (b *Builder[S]) Compile() (*Graph[S], error) {
	errs := append([]error(nil), b.errs...)

	if b.nodes[b.entry] == nil {
		errs = append(errs, fmt.Errorf("entry node %q not registered", b.entry))
	}
	for _, name := range b.order {
		n := b.nodes[name]
		if n.next == "" && n.route == nil {
			errs = append(errs, fmt.Errorf("node %q has no outgoing edge", name))
		}
		for _, t := range n.successors() {
			if t != End && b.nodes[t] == nil {
				errs = append(errs, fmt.Errorf("node %q points at unknown node %q", name, t))
			}
		}
	}
	if len(errs) == 0 {
		for _, name := range b.unreachable() {
			errs = append(errs, fmt.Errorf("node %q is unreachable from %q", name, b.entry))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(errs...))
	}

	g := &Graph[S]{nodes: make(map[string]*node[S], len(b.nodes)), entry: b.entry, maxSteps: defaultMaxSteps}
	for name, n := range b.nodes {
		g.nodes[name] = n
	}
	return g, nil
}

func (n *node[S]) successors() []string {
	if n.route == nil {
		return []string{n.next}
	}
	out := make([]string, 0, len(n.targets))
	for t := range n.targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (b *Builder[S]) unreachable() []string {
	seen := map[string]bool{b.entry: true}
	queue := []string{b.entry}
	for len(queue) > 0 {
		n := b.nodes[queue[0]]
		queue = queue[1:]
		for _, t := range n.successors() {
			if t != End && !seen[t] {
				seen[t] = true
				queue = append(queue, t)
			}
		}
	}
	var out []string
	for _, name := range b.order {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}
