// Package search orchestrates query understanding, lexical and semantic
// retrieval, graph expansion and ranking over the live index snapshot.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/graph"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/query"
	"github.com/dpolishuk/codeflow/internal/ranker"
)

const (
	DefaultTopK        = 10
	MaxTopK            = 100
	DefaultExpandDepth = 1
	flowSearchTopK     = 10
)

// Explainer writes a natural-language summary of search results.
type Explainer interface {
	Explain(ctx context.Context, query string, results []models.ScoredResult) (string, error)
}

// GraphAware lists the entities related to a base entity.
type GraphAware interface {
	FindRelated(base *models.CodeEntity, all []*models.CodeEntity) []models.RelatedEntity
}

// QueryEncoder embeds the query text for semantic search.
type QueryEncoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// SnapshotSource yields the live snapshot; *index.Manager satisfies it.
type SnapshotSource interface {
	Current() *index.Snapshot
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrDefault(l) }
}

// WithEncoder enables semantic search. A nil encoder disables it.
func WithEncoder(e QueryEncoder) Option {
	return func(p *Pipeline) { p.encoder = e }
}

// WithExplainer replaces the templated summary.
func WithExplainer(e Explainer) Option {
	return func(p *Pipeline) { p.explainer = e }
}

// WithGraph sets the relation source. nil disables context expansion;
// FindRelated and BuildFlowGraph then fall back to the default builder.
func WithGraph(g GraphAware) Option {
	return func(p *Pipeline) {
		p.graph = g
		p.graphSet = true
	}
}

func WithExpandDepth(depth int) Option {
	return func(p *Pipeline) { p.expandDepth = depth }
}

func WithFlowLimits(l graph.Limits) Option {
	return func(p *Pipeline) { p.flowLimits = l }
}

type Pipeline struct {
	source      SnapshotSource
	encoder     QueryEncoder
	explainer   Explainer
	graph       GraphAware
	graphSet    bool
	builder     *graph.Builder
	expandDepth int
	flowLimits  graph.Limits
	logger      *slog.Logger
}

// New builds a pipeline over source. By default relations come from a
// graph.Builder, there is no encoder and summaries are templated.
func New(source SnapshotSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:      source,
		expandDepth: DefaultExpandDepth,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.builder = graph.NewBuilder(p.logger)
	if !p.graphSet {
		p.graph = p.builder
	}
	if p.expandDepth <= 0 {
		p.expandDepth = DefaultExpandDepth
	}
	return p
}

// Signals counts the hits each retrieval stage contributed.
type Signals struct {
	Lexical  int `json:"lexical"`
	Semantic int `json:"semantic"`
	Context  int `json:"context"`
}

type Response struct {
	Query        string                `json:"query"`
	Intent       query.Intent          `json:"intent"`
	Summary      string                `json:"summary"`
	Results      []models.ScoredResult `json:"results"`
	TotalMatches int                   `json:"totalMatches"`
	HasFlow      bool                  `json:"hasFlow"`
	Signals      Signals               `json:"signals"`
	Weights      ranker.Weights        `json:"weights"`
	Profile      string                `json:"profile"`
}

// Search answers q with at most topK ranked results. weights overrides
// the resolved weight profile when non-nil.
func (p *Pipeline) Search(ctx context.Context, q string, topK int, weights *ranker.Weights) (*Response, error) {
	if strings.TrimSpace(q) == "" {
		return nil, errors.New(errors.EmptyQuery, "query is empty")
	}
	snap := p.source.Current()
	if snap.Empty() {
		return nil, errors.New(errors.NotIndexed, "no index loaded; scan a repository first")
	}
	return p.search(ctx, snap, q, topK, weights)
}

func (p *Pipeline) search(ctx context.Context, snap *index.Snapshot, q string, topK int, weights *ranker.Weights) (*Response, error) {
	analysis := query.Analyze(q)
	if analysis.Normalized == "" {
		return nil, errors.New(errors.EmptyQuery, "query has no searchable terms")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	topK = min(topK, MaxTopK)

	lexText := analysis.Expanded
	if lexText == "" {
		lexText = analysis.Normalized
	}
	lex := snap.Lexical(lexText, topK*2)
	sem := p.semantic(ctx, snap, analysis.Normalized, topK*2)

	var ctxHits []models.Hit
	if p.graph != nil {
		base := sem
		if len(base) == 0 {
			base = lex
		}
		ctxHits = graph.NewExpander(p.graph).Expand(base, snap.All(), p.expandDepth)
	}

	w, profile := ranker.Resolve(analysis.Intent, len(analysis.Tokens), len(ctxHits) > 0, weights)
	results := ranker.Combine(lex, sem, ctxHits, w, topK)

	p.logger.Debug("search ranked",
		"query", q, "intent", analysis.Intent, "profile", profile,
		"lexical", len(lex), "semantic", len(sem), "context", len(ctxHits), "results", len(results))

	return &Response{
		Query:        q,
		Intent:       analysis.Intent,
		Summary:      p.summarize(ctx, q, analysis.Intent, results),
		Results:      results,
		TotalMatches: len(results),
		HasFlow:      HasFlow(results),
		Signals:      Signals{Lexical: len(lex), Semantic: len(sem), Context: len(ctxHits)},
		Weights:      w,
		Profile:      profile,
	}, nil
}

// semantic returns no hits, rather than an error, when the encoder is
// missing or fails.
func (p *Pipeline) semantic(ctx context.Context, snap *index.Snapshot, text string, k int) []models.Hit {
	if p.encoder == nil || !snap.HasEmbeddings() {
		return nil
	}
	vec, err := p.encoder.Encode(ctx, text)
	if err != nil {
		p.logger.Warn("semantic search degraded", "code", errors.EncodingFailure, "err", err)
		return nil
	}
	return snap.Semantic(vec, k)
}

func (p *Pipeline) summarize(ctx context.Context, q string, intent query.Intent, results []models.ScoredResult) string {
	if p.explainer != nil && len(results) > 0 {
		s, err := p.explainer.Explain(ctx, q, results)
		if err == nil {
			return s
		}
		p.logger.Warn("explainer failed, using template summary", "err", err)
	}
	return Summarize(q, intent, results)
}

// relations returns the configured relation source, or the default
// builder when context expansion is disabled.
func (p *Pipeline) relations() GraphAware {
	if p.graph != nil {
		return p.graph
	}
	return p.builder
}

// FindRelated lists the entities related to the entity with id.
func (p *Pipeline) FindRelated(ctx context.Context, id string) ([]models.RelatedEntity, error) {
	snap := p.source.Current()
	if snap.Empty() {
		return nil, errors.New(errors.NotIndexed, "no index loaded; scan a repository first")
	}
	e, ok := snap.Get(id)
	if !ok {
		return nil, errors.New(errors.EntityNotFound, "entity "+id+" not found")
	}
	related := p.relations().FindRelated(e, snap.All())
	if related == nil {
		related = []models.RelatedEntity{}
	}
	return related, nil
}

// BuildFlowGraph searches for q and grows the flow graph around the hits.
func (p *Pipeline) BuildFlowGraph(ctx context.Context, q string) (*models.FlowGraph, error) {
	if strings.TrimSpace(q) == "" {
		return nil, errors.New(errors.EmptyQuery, "query is empty")
	}
	snap := p.source.Current()
	if snap.Empty() {
		return nil, errors.New(errors.NotIndexed, "no index loaded; scan a repository first")
	}
	resp, err := p.search(ctx, snap, q, flowSearchTopK, nil)
	if err != nil {
		return nil, err
	}

	seeds := make([]*models.CodeEntity, len(resp.Results))
	for i, r := range resp.Results {
		seeds[i] = r.CodeEntity
	}
	g := graph.BuildFlowGraph(seeds, snap.All(), p.relations(), p.flowLimits)
	g.Query = q
	if g.Stats.Truncated {
		p.logger.Info("flow graph truncated", "query", q, "nodes", g.Stats.TotalNodes, "edges", g.Stats.TotalEdges)
	}
	return &g, nil
}
