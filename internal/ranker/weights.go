package ranker

import (
	"fmt"

	"github.com/dpolishuk/codeflow/internal/query"
)

// Weights blends the three normalized signals:
// combined = Semantic*sem + Lexical*lex + Context*ctx.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Lexical  float64 `json:"lexical"`
	Context  float64 `json:"context"`
}

func (w Weights) String() string {
	return fmt.Sprintf("(sem=%.2f, lex=%.2f, ctx=%.2f)", w.Semantic, w.Lexical, w.Context)
}

// Profile names reported alongside the weights that were used.
const (
	ProfileExplicit = "explicit"
	ProfileShort    = "short-query"
	ProfileMedium   = "medium-query"
	ProfileLong     = "long-query"
)

var intentProfiles = map[query.Intent]Weights{
	query.IntentGeneral:       {Semantic: 0.6, Lexical: 0.3, Context: 0.1},
	query.IntentFunctionality: {Semantic: 0.5, Lexical: 0.2, Context: 0.3},
	query.IntentUIInteraction: {Semantic: 0.5, Lexical: 0.2, Context: 0.3},
	query.IntentLocation:      {Semantic: 0.4, Lexical: 0.5, Context: 0.1},
	query.IntentConfiguration: {Semantic: 0.4, Lexical: 0.5, Context: 0.1},
}

// Resolve picks the weights for one search. First match wins: explicit
// weights, then the intent profile when a context signal exists, then the
// query-length profile.
func Resolve(intent query.Intent, tokenCount int, hasContext bool, explicit *Weights) (Weights, string) {
	if explicit != nil {
		return *explicit, ProfileExplicit
	}
	if hasContext {
		w, ok := intentProfiles[intent]
		if !ok {
			intent = query.IntentGeneral
			w = intentProfiles[intent]
		}
		return w, "intent:" + string(intent)
	}
	switch {
	case tokenCount <= 2:
		return Weights{Semantic: 0.4, Lexical: 0.6}, ProfileShort
	case tokenCount <= 4:
		return Weights{Semantic: 0.6, Lexical: 0.4}, ProfileMedium
	default:
		return Weights{Semantic: 0.7, Lexical: 0.3}, ProfileLong
	}
}
