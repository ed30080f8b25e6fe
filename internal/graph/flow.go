package graph

import (
	"slices"

	"github.com/dpolishuk/codeflow/internal/models"
)

const (
	// MaxFlowChains caps how many chains are returned.
	MaxFlowChains = 10
	// DefaultMaxSteps caps how many edges one reconstruction may explore.
	DefaultMaxSteps = 10000
)

// flowLevels lists the edge types accepted at each hop of a chain:
// element -> handler -> api node -> backend handler.
var flowLevels = [][]models.RelationType{
	{models.RelHandlesEvent},
	{models.RelCallsEndpoint, models.RelCallsRoute},
	{models.RelHandlesEndpoint},
}

type Budget struct {
	MaxSteps int
}

type chainWalker struct {
	out       map[string][]models.GraphEdge
	maxSteps  int
	steps     int
	truncated bool
	chain     []string
	chains    []models.FlowChain
}

// BuildFlowChains finds complete UI-to-backend paths by depth-first search
// with backtracking from every button, element or input node. Chains come
// back in discovery order, at most MaxFlowChains of them. The second
// result reports whether the step budget stopped the search early.
func BuildFlowChains(nodes []models.GraphNode, edges []models.GraphEdge, budget Budget) ([]models.FlowChain, bool) {
	w := &chainWalker{
		out:      make(map[string][]models.GraphEdge),
		maxSteps: budget.MaxSteps,
	}
	if w.maxSteps <= 0 {
		w.maxSteps = DefaultMaxSteps
	}
	for _, e := range edges {
		w.out[e.Source] = append(w.out[e.Source], e)
	}

	for _, n := range nodes {
		if !isBindable(n.Type) {
			continue
		}
		w.chain = append(w.chain[:0], n.ID)
		if w.walk(0) {
			break
		}
	}
	return w.chains, w.truncated
}

// walk extends the current chain from its last node. It returns true when
// traversal must stop altogether.
func (w *chainWalker) walk(level int) bool {
	if level == len(flowLevels) {
		w.chains = append(w.chains, slices.Clone(models.FlowChain(w.chain)))
		return len(w.chains) >= MaxFlowChains
	}

	last := w.chain[len(w.chain)-1]
	for _, e := range w.out[last] {
		if !slices.Contains(flowLevels[level], e.Type) {
			continue
		}
		w.steps++
		if w.steps > w.maxSteps {
			w.truncated = true
			return true
		}
		if slices.Contains(w.chain, e.Target) {
			continue
		}

		w.chain = append(w.chain, e.Target)
		stop := w.walk(level + 1)
		w.chain = w.chain[:len(w.chain)-1]
		if stop {
			return true
		}
	}
	return false
}
