// Package ranker fuses lexical, semantic and graph-context hits into one
// ordered result list.
package ranker

import (
	"sort"

	"github.com/dpolishuk/codeflow/internal/models"
)

// fused accumulates the normalized scores of one entity across signals.
type fused struct {
	entity        *models.CodeEntity
	lex, sem, ctx float64
}

// Combine min-max normalizes each signal, takes the union by entity id
// and orders by the weighted sum. Ties break by id ascending. A missing
// signal contributes 0.
func Combine(lexical, semantic, context []models.Hit, w Weights, topK int) []models.ScoredResult {
	byID := make(map[string]*fused)
	var all []*fused

	merge := func(hits []models.Hit, set func(f *fused, v float64)) {
		for i, v := range normalize(hits) {
			e := hits[i].Entity
			if e == nil {
				continue
			}
			key := e.Key()
			f, ok := byID[key]
			if !ok {
				f = &fused{entity: e}
				byID[key] = f
				all = append(all, f)
			}
			set(f, v)
		}
	}
	merge(lexical, func(f *fused, v float64) { f.lex = max(f.lex, v) })
	merge(semantic, func(f *fused, v float64) { f.sem = max(f.sem, v) })
	merge(context, func(f *fused, v float64) { f.ctx = max(f.ctx, v) })

	results := make([]models.ScoredResult, 0, len(all))
	for _, f := range all {
		results = append(results, models.ScoredResult{
			CodeEntity:      f.entity,
			LexicalScore:    f.lex,
			SemanticScore:   f.sem,
			ContextScore:    f.ctx,
			CombinedScore:   w.Semantic*f.sem + w.Lexical*f.lex + w.Context*f.ctx,
			Description:     f.entity.Describe(),
			HasBackendLink:  len(f.entity.APICalls) > 0 || len(f.entity.Routes) > 0,
			HasFrontendLink: len(f.entity.EventListeners) > 0,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		return a.Key() < b.Key()
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// normalize maps scores to [0, 1] with min-max scaling. A constant list
// maps every member to 1.
func normalize(hits []models.Hit) []float64 {
	if len(hits) == 0 {
		return nil
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		lo = min(lo, h.Score)
		hi = max(hi, h.Score)
	}
	out := make([]float64, len(hits))
	for i, h := range hits {
		if hi == lo {
			out[i] = 1
		} else {
			out[i] = (h.Score - lo) / (hi - lo)
		}
	}
	return out
}
