package search

import (
	"fmt"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/query"
)

// resultGroups buckets results the way the summary talks about them.
type resultGroups struct {
	html, scripts, python, golang, routes []models.ScoredResult
}

func group(results []models.ScoredResult) resultGroups {
	var g resultGroups
	for _, r := range results {
		switch r.Type {
		case models.EntityButton, models.EntityElement, models.EntityForm:
			g.html = append(g.html, r)
		case models.EntityRoute:
			g.routes = append(g.routes, r)
		}
		switch r.Language {
		case "javascript", "typescript":
			g.scripts = append(g.scripts, r)
		case "python":
			g.python = append(g.python, r)
		case "go":
			g.golang = append(g.golang, r)
		}
	}
	return g
}

// Summarize renders the templated answer used when no Explainer is
// configured or the Explainer fails.
func Summarize(q string, intent query.Intent, results []models.ScoredResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for '%s'", q)
	}
	g := group(results)
	backend := append(append([]models.ScoredResult{}, g.python...), g.golang...)

	var parts []string
	switch intent {
	case query.IntentFunctionality:
		if len(g.html) > 0 && len(g.scripts) > 0 && (len(g.routes) > 0 || len(backend) > 0) {
			target := ""
			if len(g.routes) > 0 {
				target = g.routes[0].Name
			} else {
				target = backend[0].Name
			}
			parts = append(parts, fmt.Sprintf("The %s triggers %s() which calls %s handled in the backend",
				g.html[0].Name, g.scripts[0].Name, target))
		} else {
			parts = append(parts, fmt.Sprintf("Found %d components related to '%s'", len(results), q))
		}
	case query.IntentLocation:
		var locs []string
		for _, r := range results[:min(3, len(results))] {
			locs = append(locs, fmt.Sprintf("%s (line %d)", r.FilePath, r.StartLine))
		}
		parts = append(parts, "Found in: "+strings.Join(locs, ", "))
	case query.IntentConfiguration:
		var names []string
		for _, r := range results[:min(3, len(results))] {
			names = append(names, r.Name)
		}
		parts = append(parts, "Configuration items: "+strings.Join(names, ", "))
	default:
		parts = append(parts, fmt.Sprintf("Found %d relevant components", len(results)))
	}

	counts := []struct {
		n     int
		label string
	}{
		{len(g.html), "UI element(s)"},
		{len(g.scripts), "JavaScript function(s)"},
		{len(g.python), "Python function(s)"},
		{len(g.golang), "Go function(s)"},
		{len(g.routes), "API route(s)"},
	}
	for _, c := range counts {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.label))
		}
	}
	return strings.Join(parts, ". ") + "."
}

// HasFlow reports whether results span a button or element, a JavaScript
// or TypeScript entity and a backend entity. Backend covers any server
// language the extractor knows, not only Python.
func HasFlow(results []models.ScoredResult) bool {
	var ui, script, backend bool
	for _, r := range results {
		if r.CodeEntity == nil {
			continue
		}
		switch {
		case r.Type == models.EntityButton || r.Type == models.EntityElement:
			ui = true
		case r.Language == "javascript" || r.Language == "typescript":
			script = true
		case models.TierOf(r.CodeEntity) == models.TierBackend:
			backend = true
		}
	}
	return ui && script && backend
}
