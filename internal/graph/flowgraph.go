package graph

import (
	"fmt"

	"github.com/dpolishuk/codeflow/internal/models"
)

const (
	DefaultMaxNodes = 200
	DefaultMaxEdges = 800
	DefaultMaxHops  = 2
)

type Limits struct {
	MaxNodes int
	MaxEdges int
	MaxHops  int
	MaxSteps int
}

func (l Limits) withDefaults() Limits {
	if l.MaxNodes <= 0 {
		l.MaxNodes = DefaultMaxNodes
	}
	if l.MaxEdges <= 0 {
		l.MaxEdges = DefaultMaxEdges
	}
	if l.MaxHops <= 0 {
		l.MaxHops = DefaultMaxHops
	}
	if l.MaxSteps <= 0 {
		l.MaxSteps = DefaultMaxSteps
	}
	return l
}

// Orient returns the flow-direction endpoints of a relation. calls_route
// is discovered from the route side but points from the caller to the
// route; every other relation points from base to related.
func Orient(edge models.RelationEdge) (source, target string) {
	if edge.Type == models.RelCallsRoute {
		return edge.TargetID, edge.SourceID
	}
	return edge.SourceID, edge.TargetID
}

type flowAssembly struct {
	limits    Limits
	nodes     []models.GraphNode
	entities  map[string]*models.CodeEntity
	edges     []models.GraphEdge
	edgeSeen  map[string]bool
	truncated bool
}

func (a *flowAssembly) addNode(e *models.CodeEntity) bool {
	key := e.Key()
	if _, ok := a.entities[key]; ok {
		return true
	}
	if len(a.nodes) >= a.limits.MaxNodes {
		a.truncated = true
		return false
	}
	a.entities[key] = e
	a.nodes = append(a.nodes, models.GraphNode{
		ID:        key,
		Label:     e.Name,
		Type:      e.Type,
		Tier:      models.TierOf(e),
		FilePath:  e.FilePath,
		StartLine: e.StartLine,
	})
	return true
}

func (a *flowAssembly) addEdge(rel models.RelationEdge) {
	src, dst := Orient(rel)
	id := fmt.Sprintf("%s->%s:%s", src, dst, rel.Type)
	if a.edgeSeen[id] {
		return
	}
	if len(a.edges) >= a.limits.MaxEdges {
		a.truncated = true
		return
	}
	a.edgeSeen[id] = true
	a.edges = append(a.edges, models.GraphEdge{
		ID:       id,
		Source:   src,
		Target:   dst,
		Type:     rel.Type,
		Strength: rel.Strength,
	})
}

// BuildFlowGraph grows a graph breadth-first from the seed entities along
// the relations finder reports, within the node, edge and hop limits, and
// reconstructs the flow chains that run through it.
func BuildFlowGraph(seeds []*models.CodeEntity, all []*models.CodeEntity, finder RelationFinder, limits Limits) models.FlowGraph {
	a := &flowAssembly{
		limits:   limits.withDefaults(),
		entities: make(map[string]*models.CodeEntity),
		edgeSeen: make(map[string]bool),
	}

	type item struct {
		entity *models.CodeEntity
		depth  int
	}
	var queue []item
	for _, s := range seeds {
		if s == nil {
			continue
		}
		if _, dup := a.entities[s.Key()]; dup {
			continue
		}
		if a.addNode(s) {
			queue = append(queue, item{s, 0})
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, r := range finder.FindRelated(cur.entity, all) {
			key := r.Entity.Key()
			if _, known := a.entities[key]; !known {
				if cur.depth >= a.limits.MaxHops || !a.addNode(r.Entity) {
					continue
				}
				queue = append(queue, item{r.Entity, cur.depth + 1})
			}
			a.addEdge(r.Edge)
		}
	}

	chains, stepsExhausted := BuildFlowChains(a.nodes, a.edges, Budget{MaxSteps: a.limits.MaxSteps})
	if chains == nil {
		chains = []models.FlowChain{}
	}

	g := models.FlowGraph{
		Nodes:      a.nodes,
		Edges:      a.edges,
		FlowChains: chains,
	}
	if g.Nodes == nil {
		g.Nodes = []models.GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []models.GraphEdge{}
	}
	g.Stats = computeStats(g, a.truncated || stepsExhausted)
	return g
}

func computeStats(g models.FlowGraph, truncated bool) models.FlowStats {
	stats := models.FlowStats{
		TotalNodes:      len(g.Nodes),
		TotalEdges:      len(g.Edges),
		FlowChainsCount: len(g.FlowChains),
		Truncated:       truncated,
	}
	tiers := make(map[string]models.Tier, len(g.Nodes))
	for _, n := range g.Nodes {
		tiers[n.ID] = n.Tier
		switch n.Tier {
		case models.TierFrontend:
			stats.FrontendNodes++
		case models.TierBackend:
			stats.BackendNodes++
		}
	}
	for _, e := range g.Edges {
		s, t := tiers[e.Source], tiers[e.Target]
		if (s == models.TierFrontend && t == models.TierBackend) || (s == models.TierBackend && t == models.TierFrontend) {
			stats.FrontendBackendConnections++
		}
	}
	return stats
}
