package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dpolishuk/codeflow/internal/api"
	"github.com/dpolishuk/codeflow/internal/config"
	"github.com/dpolishuk/codeflow/internal/embedding"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/search"
	"github.com/dpolishuk/codeflow/internal/store"
)

func newEncoder(cfg *config.Config, logger *slog.Logger) (embedding.Encoder, error) {
	return embedding.New(embedding.Options{
		Provider:    cfg.EmbeddingProvider,
		TEIURL:      cfg.TEIURL,
		OllamaURL:   cfg.OllamaURL,
		OllamaModel: cfg.OllamaModel,
	}, logger)
}

// openPipeline restores the newest snapshot from the store and builds a
// search pipeline over it. The store is closed before returning since the
// snapshot lives in memory.
func openPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*search.Pipeline, error) {
	encoder, err := newEncoder(cfg, logger)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.SnapshotPath, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	manager := index.NewManager(encoder, logger)
	if err := api.Restore(ctx, st, manager, logger); err != nil {
		return nil, err
	}
	return search.New(manager,
		search.WithLogger(logger),
		search.WithEncoder(manager.Encoder()),
		search.WithExpandDepth(cfg.Tuning.Search.ExpandDepth),
		search.WithFlowLimits(cfg.Tuning.Limits()),
	), nil
}

func newSearchCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			p, err := openPipeline(cmd.Context(), cfg, g.logger(cfg))
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Tuning.Search.TopK
			}
			resp, err := p.Search(cmd.Context(), args[0], limit, nil)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), resp, func(w io.Writer) { printSearch(w, resp) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default: search.topK)")
	return cmd
}

func newRelatedCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "related <entity-id>",
		Short: "List the entities related to an entity",
		Long: `List the entities related to an entity, strongest relations first.
Entity ids have the form file_path::name::start_line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			p, err := openPipeline(cmd.Context(), cfg, g.logger(cfg))
			if err != nil {
				return err
			}
			related, err := p.FindRelated(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), related, func(w io.Writer) { printRelated(w, args[0], related) })
		},
	}
}

func newFlowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "flow <query>",
		Short: "Trace UI-to-backend flows around the matches of a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			p, err := openPipeline(cmd.Context(), cfg, g.logger(cfg))
			if err != nil {
				return err
			}
			fg, err := p.BuildFlowGraph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), fg, func(w io.Writer) { printFlow(w, fg) })
		},
	}
}
