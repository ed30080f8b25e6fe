// Package query turns raw question text into normalized tokens, a
// synonym-expanded form for lexical matching, and a coarse intent.
package query

import (
	"regexp"
	"slices"
	"strings"
)

type Intent string

const (
	IntentFunctionality Intent = "functionality"
	IntentLocation      Intent = "location"
	IntentConfiguration Intent = "configuration"
	IntentUIInteraction Intent = "ui-interaction"
	IntentGeneral       Intent = "general"
)

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

var synonyms = map[string][]string{
	"search":   {"find", "query", "lookup", "seek"},
	"button":   {"btn", "trigger", "click", "element"},
	"function": {"func", "method", "procedure", "handler"},
	"api":      {"endpoint", "route", "url", "request"},
	"login":    {"auth", "authenticate", "signin"},
	"error":    {"exception", "fail", "issue", "problem"},
	"database": {"db", "sql", "data", "storage"},
	"config":   {"configuration", "settings", "options"},
}

type intentPatterns struct {
	intent  Intent
	phrases []string
}

// Declaration order breaks ties.
var patterns = []intentPatterns{
	{IntentFunctionality, []string{"how", "how does", "how do", "how is", "how are", "what does", "what is", "explain", "describe", "work", "works"}},
	{IntentLocation, []string{"where", "where is", "where are", "find", "locate", "which file", "which function", "in which"}},
	{IntentConfiguration, []string{"config", "configuration", "settings", "options", "define", "defined", "path", "url", "database"}},
	{IntentUIInteraction, []string{"button", "click", "form", "input", "ui", "interface", "frontend", "user", "interaction"}},
}

var fallbackKeywords = []intentPatterns{
	{IntentFunctionality, []string{"function", "func", "method", "def", "procedure", "handler"}},
	{IntentFunctionality, []string{"api", "endpoint", "route", "url", "request"}},
	{IntentUIInteraction, []string{"button", "btn", "click", "element", "form", "input", "ui"}},
	{IntentConfiguration, []string{"config", "configuration", "settings", "path", "database"}},
}

type Analysis struct {
	Original   string   `json:"original"`
	Normalized string   `json:"normalized"`
	Tokens     []string `json:"tokens"`
	Expanded   string   `json:"expanded"`
	Intent     Intent   `json:"intent"`
}

func Analyze(q string) Analysis {
	normalized := Normalize(q)
	tokens := Tokenize(normalized)
	return Analysis{
		Original:   q,
		Normalized: normalized,
		Tokens:     tokens,
		Expanded:   strings.Join(Expand(tokens), " "),
		Intent:     DetectIntent(normalized, tokens),
	}
}

// Normalize lowercases, turns punctuation into spaces and collapses runs
// of whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func Tokenize(normalized string) []string {
	var tokens []string
	for _, w := range strings.Fields(normalized) {
		if len([]rune(w)) > 1 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// Expand appends the first two synonyms after each known token and drops
// duplicates, keeping first-seen order.
func Expand(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range tokens {
		add(t)
		syns := synonyms[t]
		for _, s := range syns[:min(2, len(syns))] {
			add(s)
		}
	}
	return out
}

// DetectIntent counts phrase hits per category and returns the category
// with the strictly highest nonzero count, falling back to keyword sets.
func DetectIntent(normalized string, tokens []string) Intent {
	best, bestScore := IntentGeneral, 0
	for _, p := range patterns {
		score := 0
		for _, phrase := range p.phrases {
			if strings.Contains(normalized, phrase) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = p.intent, score
		}
	}
	if bestScore > 0 {
		return best
	}

	for _, kw := range fallbackKeywords {
		for _, t := range tokens {
			if slices.Contains(kw.phrases, t) {
				return kw.intent
			}
		}
	}
	return IntentGeneral
}
