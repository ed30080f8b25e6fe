package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"How does the Search-Button work?", "how does the search button work"},
		{"  where   is\tlogin_form ", "where is login_form"},
		{"/api/search!!", "api search"},
		{"Ünïcode café", "ünïcode café"},
		{"", ""},
		{"?!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"How does the Search-Button work?",
		"POST /api/search?x=1",
		"  multiple   spaces\n\tand tabs ",
		"where is X",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"where", "is", "search"}, Tokenize("where is a search"))
	assert.Empty(t, Tokenize("a b c"))
}

func TestExpand(t *testing.T) {
	got := Expand([]string{"search", "button", "find"})
	assert.Equal(t, []string{"search", "find", "query", "button", "btn", "trigger"}, got)

	assert.Equal(t, []string{"login", "auth", "authenticate"}, Expand([]string{"login"}))
	assert.Equal(t, []string{"unknown"}, Expand([]string{"unknown"}))
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"where is X", IntentLocation},
		{"where is the search handler", IntentLocation},
		{"how does search work", IntentFunctionality},
		{"database settings", IntentConfiguration},
		{"submit button click", IntentUIInteraction},
		{"search", IntentGeneral},
		{"handler", IntentFunctionality},
		{"endpoint", IntentFunctionality},
		{"btn", IntentUIInteraction},
		// "ui" matches inside "build", so the phrase pass already decides
		{"build", IntentUIInteraction},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			a := Analyze(tt.query)
			assert.Equal(t, tt.want, a.Intent)
		})
	}
}

func TestDetectIntent_Deterministic(t *testing.T) {
	first := Analyze("how do I configure the login form").Intent
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Analyze("how do I configure the login form").Intent)
	}
}

func TestDetectIntent_TieGoesToFirstCategory(t *testing.T) {
	// one functionality phrase ("explain") and one location phrase ("locate")
	assert.Equal(t, IntentFunctionality, Analyze("explain locate").Intent)
}

func TestAnalyze(t *testing.T) {
	a := Analyze("Search API!")
	assert.Equal(t, "Search API!", a.Original)
	assert.Equal(t, "search api", a.Normalized)
	assert.Equal(t, []string{"search", "api"}, a.Tokens)
	assert.Equal(t, "search find query api endpoint route", a.Expanded)
	assert.Equal(t, IntentFunctionality, a.Intent)
}
