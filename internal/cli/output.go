package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/scan"
	"github.com/dpolishuk/codeflow/internal/search"
)

// print writes v as indented JSON, or through text for the text format.
func (g *globals) print(w io.Writer, v any, text func(io.Writer)) error {
	switch g.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatText, "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", g.format)
	}
}

func printScan(w io.Writer, res *scan.Result) {
	fmt.Fprintf(w, "Indexed %s\n", res.Source)
	if res.Commit != "" {
		fmt.Fprintf(w, "  commit:    %s\n", res.Commit)
	}
	fmt.Fprintf(w, "  snapshot:  %s\n", res.SnapshotID)
	fmt.Fprintf(w, "  files:     %d\n", res.FilesProcessed)
	fmt.Fprintf(w, "  entities:  %d (%d embedded)\n", res.EntitiesFound, res.Status.Embedded)
	if res.Repository != nil {
		fmt.Fprintf(w, "  neo4j:     repository %s\n", res.Repository.ID)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  skipped:   %s\n", e)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning:   %s\n", warn)
	}
	fmt.Fprintf(w, "  took:      %s\n", res.Took)
}

func printSearch(w io.Writer, resp *search.Response) {
	fmt.Fprintf(w, "%s\n\n", resp.Summary)
	if len(resp.Results) == 0 {
		return
	}
	fmt.Fprintf(w, "%d results (intent %s, weights %s)\n", resp.TotalMatches, resp.Intent, resp.Weights)
	for i, r := range resp.Results {
		fmt.Fprintf(w, "%2d. %-6.3f %s\n", i+1, r.CombinedScore, r.Description)
		fmt.Fprintf(w, "    %s:%d  [%s]\n", r.FilePath, r.StartLine, r.ID)
	}
	if resp.HasFlow {
		fmt.Fprintln(w, "\nThese results span UI, script and backend; try `codeflow flow` for the chain.")
	}
}

func printRelated(w io.Writer, id string, related []models.RelatedEntity) {
	if len(related) == 0 {
		fmt.Fprintf(w, "No relations found for %s\n", id)
		return
	}
	fmt.Fprintf(w, "%d entities related to %s\n", len(related), id)
	for _, r := range related {
		line := fmt.Sprintf("  %-8s %-20s %s", r.Edge.Strength, r.Edge.Type, r.Entity.ID)
		if r.Edge.EndpointMatch != "" {
			line += "  (" + r.Edge.EndpointMatch + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printFlow(w io.Writer, g *models.FlowGraph) {
	s := g.Stats
	fmt.Fprintf(w, "Flow graph for %q: %d nodes (%d frontend, %d backend), %d edges, %d cross-tier\n",
		g.Query, s.TotalNodes, s.FrontendNodes, s.BackendNodes, s.TotalEdges, s.FrontendBackendConnections)
	if s.Truncated {
		fmt.Fprintln(w, "  (truncated at the configured limits)")
	}
	if len(g.FlowChains) == 0 {
		fmt.Fprintln(w, "No complete UI -> handler -> API -> backend chains found.")
		return
	}
	labels := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = n.Label
	}
	fmt.Fprintf(w, "%d flow chains:\n", len(g.FlowChains))
	for i, chain := range g.FlowChains {
		steps := make([]string, len(chain))
		for j, id := range chain {
			if l := labels[id]; l != "" {
				steps[j] = l
			} else {
				steps[j] = id
			}
		}
		fmt.Fprintf(w, "%2d. %s\n", i+1, strings.Join(steps, " -> "))
	}
}
