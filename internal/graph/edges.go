package graph

import (
	"github.com/dpolishuk/codeflow/internal/models"
)

// CollectEdges evaluates every entity against the rest and returns the
// distinct relations in flow orientation, in discovery order. It backs the
// graph export; interactive queries use BuildFlowGraph instead.
func CollectEdges(all []*models.CodeEntity, finder RelationFinder) []models.RelationEdge {
	type key struct {
		src, dst string
		t        models.RelationType
	}
	seen := make(map[key]bool)
	var edges []models.RelationEdge
	for _, e := range all {
		if e == nil {
			continue
		}
		for _, r := range finder.FindRelated(e, all) {
			src, dst := Orient(r.Edge)
			k := key{src, dst, r.Edge.Type}
			if seen[k] {
				continue
			}
			seen[k] = true
			edge := r.Edge
			edge.SourceID, edge.TargetID = src, dst
			edges = append(edges, edge)
		}
	}
	return edges
}
