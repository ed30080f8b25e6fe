package graph

import "github.com/dpolishuk/codeflow/internal/models"

const (
	expandBaseLimit    = 10
	expandRelatedLimit = 5
	inResultsBoost     = 1.2

	secondHopSeeds   = 3
	secondHopRelated = 2
	secondHopDecay   = 0.5
)

var strengthScore = map[models.Strength]float64{
	models.StrengthStrong: 0.8,
	models.StrengthMedium: 0.5,
	models.StrengthWeak:   0.2,
}

// RelationFinder is anything that can list the relations of an entity.
type RelationFinder interface {
	FindRelated(base *models.CodeEntity, all []*models.CodeEntity) []models.RelatedEntity
}

// Expander turns base hits into context hits by walking relations.
type Expander struct {
	finder RelationFinder
}

func NewExpander(finder RelationFinder) *Expander {
	return &Expander{finder: finder}
}

// Expand scores the top base hits at 1.2x their base score and their top
// related entities by relation strength. The base boost is not capped;
// the ranker renormalizes. With depth >= 2 the first three related
// entities are expanded once more at half strength.
func (x *Expander) Expand(hits []models.Hit, all []*models.CodeEntity, depth int) []models.Hit {
	var out []models.Hit
	seen := make(map[string]bool)
	var hop1 []*models.CodeEntity

	for _, h := range topDistinct(hits, expandBaseLimit) {
		key := h.Entity.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, models.Hit{Entity: h.Entity, Score: h.Score * inResultsBoost})

		related := x.finder.FindRelated(h.Entity, all)
		for _, r := range related[:min(expandRelatedLimit, len(related))] {
			rk := r.Entity.Key()
			if seen[rk] {
				continue
			}
			seen[rk] = true
			out = append(out, models.Hit{Entity: r.Entity, Score: strengthScore[r.Edge.Strength]})
			hop1 = append(hop1, r.Entity)
		}
	}

	if depth < 2 {
		return out
	}
	for _, e := range hop1[:min(secondHopSeeds, len(hop1))] {
		related := x.finder.FindRelated(e, all)
		added := 0
		for _, r := range related {
			if added >= secondHopRelated {
				break
			}
			rk := r.Entity.Key()
			if seen[rk] {
				continue
			}
			seen[rk] = true
			added++
			out = append(out, models.Hit{Entity: r.Entity, Score: strengthScore[r.Edge.Strength] * secondHopDecay})
		}
	}
	return out
}

// topDistinct returns the first n hits with distinct, non-nil entities.
func topDistinct(hits []models.Hit, n int) []models.Hit {
	out := make([]models.Hit, 0, min(n, len(hits)))
	keys := make(map[string]bool, n)
	for _, h := range hits {
		if len(out) >= n {
			break
		}
		if h.Entity == nil || keys[h.Entity.Key()] {
			continue
		}
		keys[h.Entity.Key()] = true
		out = append(out, h)
	}
	return out
}
