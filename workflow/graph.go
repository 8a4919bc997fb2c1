package workflow

import (
	"context"

	"github.com/pkg/errors"
)

// End is the terminal pseudo-node every path must reach.
const End = "__end__"

type (
	// NodeFunc mutates the state for one processing step. Nodes handle
	// their own degraded paths; a returned error is fatal for the turn.
	NodeFunc func(ctx context.Context, st *State) error

	// Selector picks the next node from the current state.
	Selector func(st *State) string

	// Graph is a fixed set of named nodes connected by static or
	// conditional edges, executed sequentially per turn.
	Graph struct {
		entry    string
		nodes    map[string]NodeFunc
		edges    map[string]string
		branches map[string]Selector
	}
)

func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]string),
		branches: make(map[string]Selector),
	}
}

func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	g.nodes[name] = fn
	return g
}

func (g *Graph) SetEntry(name string) *Graph {
	g.entry = name
	return g
}

func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// AddConditionalEdge routes from a node through a selector; the selector
// must return a registered node name or End.
func (g *Graph) AddConditionalEdge(from string, selector Selector) *Graph {
	g.branches[from] = selector
	return g
}

// Invoke runs the graph over st until End. The step bound is a safety net
// against a miswired edge set; a well-formed graph visits each node at most
// once per turn.
func (g *Graph) Invoke(ctx context.Context, st *State) error {
	if g.entry == "" {
		return errors.New("graph has no entry node")
	}

	current := g.entry
	for steps := 0; current != End; steps++ {
		if steps > len(g.nodes) {
			return errors.Errorf("graph exceeded %d steps, edge cycle at %q", len(g.nodes), current)
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "graph invocation cancelled at %q", current)
		default:
		}

		fn, ok := g.nodes[current]
		if !ok {
			return errors.Errorf("unknown node %q", current)
		}

		if err := fn(ctx, st); err != nil {
			return errors.Wrapf(err, "node %q failed", current)
		}

		if selector, ok := g.branches[current]; ok {
			current = selector(st)
			continue
		}
		if next, ok := g.edges[current]; ok {
			current = next
			continue
		}
		current = End
	}

	return nil
}
