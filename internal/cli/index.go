package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dpolishuk/codeflow/internal/config"
	"github.com/dpolishuk/codeflow/internal/db"
	"github.com/dpolishuk/codeflow/internal/git"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/scan"
	"github.com/dpolishuk/codeflow/internal/store"
)

func newIndexCmd(g *globals) *cobra.Command {
	var (
		branch      string
		exportNeo4j bool
	)
	cmd := &cobra.Command{
		Use:   "index <dir|git-url>",
		Short: "Index a source tree and save the snapshot",
		Long: `Index a local directory, or clone a git URL first, then save the snapshot
to the snapshot database. With --neo4j (or NEO4J_EXPORT=true) the entities and
their relations are also exported to Neo4j.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("neo4j") {
				cfg.Neo4jExport = exportNeo4j
			}
			logger := g.logger(cfg)

			in := models.ScanInput{Path: args[0], Branch: branch}
			if git.IsRemoteURL(args[0]) {
				in = models.ScanInput{URL: args[0], Branch: branch}
			}
			res, err := runIndex(cmd.Context(), cfg, in, logger)
			if res == nil {
				return err
			}
			if perr := g.print(cmd.OutOrStdout(), res, func(w io.Writer) { printScan(w, res) }); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to clone when indexing a git URL")
	cmd.Flags().BoolVar(&exportNeo4j, "neo4j", false, "Export the snapshot to Neo4j (default: NEO4J_EXPORT)")
	return cmd
}

func runIndex(ctx context.Context, cfg *config.Config, in models.ScanInput, logger *slog.Logger) (*scan.Result, error) {
	encoder, err := newEncoder(cfg, logger)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.SnapshotPath, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	opts := []scan.Option{
		scan.WithLogger(logger),
		scan.WithStore(st),
		scan.WithGit(git.NewGitService(cfg.ReposPath, logger)),
	}
	if cfg.Neo4jExport {
		client, err := db.NewNeo4jClient(ctx, db.Neo4jConfig{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPass,
		})
		if err != nil {
			return nil, err
		}
		defer client.Close()
		opts = append(opts, scan.WithExporter(db.NewExporter(client, logger)))
	}

	manager := index.NewManager(encoder, logger)
	res, err := scan.New(manager, opts...).Scan(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(res.Warnings) > 0 {
		return res, fmt.Errorf("index built with warnings: %v", res.Warnings)
	}
	return res, nil
}
