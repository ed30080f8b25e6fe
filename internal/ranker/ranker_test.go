package ranker

import (
	"fmt"
	"testing"

	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ent(name string) *models.CodeEntity {
	e := &models.CodeEntity{Type: models.EntityFunction, FilePath: "app.py", StartLine: 1, Name: name}
	e.ID = e.Key()
	return e
}

func hits(pairs ...any) []models.Hit {
	var out []models.Hit
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.Hit{Entity: pairs[i].(*models.CodeEntity), Score: pairs[i+1].(float64)})
	}
	return out
}

func find(t *testing.T, rs []models.ScoredResult, e *models.CodeEntity) models.ScoredResult {
	t.Helper()
	for _, r := range rs {
		if r.ID == e.ID {
			return r
		}
	}
	require.Failf(t, "missing result", "%s not in results", e.ID)
	return models.ScoredResult{}
}

func TestNormalize(t *testing.T) {
	a, b, c := ent("a"), ent("b"), ent("c")
	assert.Equal(t, []float64{1, 0, 0.5}, normalize(hits(a, 10.0, b, 2.0, c, 6.0)))
	assert.Equal(t, []float64{1, 1}, normalize(hits(a, 3.0, b, 3.0)))
	assert.Nil(t, normalize(nil))
}

func TestCombine_DisjointSemanticOnly(t *testing.T) {
	a, b, s := ent("a"), ent("b"), ent("s")
	w := Weights{Semantic: 0.6, Lexical: 0.3, Context: 0.1}

	rs := Combine(hits(a, 5.0, b, 1.0), hits(s, 0.9, a, 0.1), nil, w, 10)
	r := find(t, rs, s)
	assert.InDelta(t, 1.0, r.SemanticScore, 1e-9)
	assert.Zero(t, r.LexicalScore)
	assert.Zero(t, r.ContextScore)
	assert.InDelta(t, w.Semantic*r.SemanticScore, r.CombinedScore, 1e-9)
}

func TestCombine_PureSemanticOrder(t *testing.T) {
	a, b, c, d := ent("a"), ent("b"), ent("c"), ent("d")
	sem := hits(c, 0.9, a, 0.7, b, 0.2)
	rs := Combine(hits(b, 9.0, d, 8.0), sem, hits(d, 1.0), Weights{Semantic: 1}, 3)

	require.Len(t, rs, 3)
	// b and d both combine to 0; id order breaks the tie
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{rs[0].ID, rs[1].ID, rs[2].ID})
}

func TestCombine_WeightedSum(t *testing.T) {
	a, b := ent("a"), ent("b")
	w := Weights{Semantic: 0.4, Lexical: 0.2, Context: 0.4}
	rs := Combine(hits(a, 4.0, b, 2.0), hits(b, 0.8, a, 0.4), hits(a, 1.2, b, 0.8), w, 10)

	ra := find(t, rs, a)
	assert.InDelta(t, 0.2*1+0.4*0+0.4*1, ra.CombinedScore, 1e-9)
	rb := find(t, rs, b)
	assert.InDelta(t, 0.4*1, rb.CombinedScore, 1e-9)
	assert.Equal(t, a.ID, rs[0].ID)
}

func TestCombine_TieBreakAndTopK(t *testing.T) {
	var lex []models.Hit
	for _, n := range []string{"delta", "alpha", "charlie", "bravo"} {
		lex = append(lex, models.Hit{Entity: ent(n), Score: 1})
	}
	rs := Combine(lex, nil, nil, Weights{Lexical: 1}, 3)
	require.Len(t, rs, 3)
	for i, n := range []string{"alpha", "bravo", "charlie"} {
		assert.Equal(t, n, rs[i].Name)
		assert.InDelta(t, 1.0, rs[i].CombinedScore, 1e-9)
	}
}

func TestCombine_Empty(t *testing.T) {
	assert.Empty(t, Combine(nil, nil, nil, Weights{Semantic: 1}, 10))
}

func TestCombine_ResultAnnotations(t *testing.T) {
	e := ent("handleSearch")
	e.APICalls = []models.APICall{{Method: "POST", Endpoint: "/api/search"}}
	rs := Combine(hits(e, 1.0), nil, nil, Weights{Lexical: 1}, 1)
	require.Len(t, rs, 1)
	assert.True(t, rs[0].HasBackendLink)
	assert.False(t, rs[0].HasFrontendLink)
	assert.Equal(t, e.Describe(), rs[0].Description)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		intent     query.Intent
		tokens     int
		hasContext bool
		want       Weights
		profile    string
	}{
		{query.IntentGeneral, 1, false, Weights{Semantic: 0.4, Lexical: 0.6}, ProfileShort},
		{query.IntentGeneral, 2, false, Weights{Semantic: 0.4, Lexical: 0.6}, ProfileShort},
		{query.IntentLocation, 4, false, Weights{Semantic: 0.6, Lexical: 0.4}, ProfileMedium},
		{query.IntentGeneral, 5, false, Weights{Semantic: 0.7, Lexical: 0.3}, ProfileLong},
		{query.IntentGeneral, 1, true, Weights{Semantic: 0.6, Lexical: 0.3, Context: 0.1}, "intent:general"},
		{query.IntentFunctionality, 3, true, Weights{Semantic: 0.5, Lexical: 0.2, Context: 0.3}, "intent:functionality"},
		{query.IntentUIInteraction, 3, true, Weights{Semantic: 0.5, Lexical: 0.2, Context: 0.3}, "intent:ui-interaction"},
		{query.IntentLocation, 3, true, Weights{Semantic: 0.4, Lexical: 0.5, Context: 0.1}, "intent:location"},
		{query.IntentConfiguration, 3, true, Weights{Semantic: 0.4, Lexical: 0.5, Context: 0.1}, "intent:configuration"},
		{query.Intent("unknown"), 3, true, Weights{Semantic: 0.6, Lexical: 0.3, Context: 0.1}, "intent:general"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d/%v", tt.intent, tt.tokens, tt.hasContext), func(t *testing.T) {
			w, p := Resolve(tt.intent, tt.tokens, tt.hasContext, nil)
			assert.Equal(t, tt.want, w)
			assert.Equal(t, tt.profile, p)
		})
	}
}

func TestResolve_ExplicitWins(t *testing.T) {
	explicit := &Weights{Semantic: 1}
	w, p := Resolve(query.IntentFunctionality, 1, true, explicit)
	assert.Equal(t, *explicit, w)
	assert.Equal(t, ProfileExplicit, p)
}

func TestResolve_SearchQueryIsShort(t *testing.T) {
	a := query.Analyze("search")
	w, p := Resolve(a.Intent, len(a.Tokens), false, nil)
	assert.Equal(t, ProfileShort, p)
	assert.Equal(t, 0.4, w.Semantic)
	assert.Equal(t, 0.6, w.Lexical)
}
