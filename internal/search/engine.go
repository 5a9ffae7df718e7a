package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pensieve-kb/pensieve/internal/chunk"
	"github.com/pensieve-kb/pensieve/internal/embed"
	perrs "github.com/pensieve-kb/pensieve/internal/errors"
)

// oversampleFactor over-fetches candidates from each path before
// fusion, so results that rank mid-list in both paths can still reach
// the fused top-k.
const oversampleFactor = 4

// Options configures the hybrid engine.
type Options struct {
	BM25K1      float64
	BM25B       float64
	RRFConstant int
	MaxResults  int // default top-k when the caller passes k <= 0
	MinScore    float64
}

// DefaultOptions returns standard retrieval parameters.
func DefaultOptions() Options {
	return Options{
		BM25K1:      DefaultBM25K1,
		BM25B:       DefaultBM25B,
		RRFConstant: DefaultRRFConstant,
		MaxResults:  6,
		MinScore:    0,
	}
}

// Engine runs hybrid retrieval over an explicit chunk scope: a dense
// pass against the vector store and an ephemeral BM25 pass over the
// scope's texts, merged with RRF.
type Engine struct {
	embedder embed.Embedder
	vectors  VectorSearcher
	fusion   *RRFFusion
	opts     Options
	logger   *slog.Logger
}

// NewEngine creates a hybrid search engine. The embedder and vector
// store are injected; the engine never owns their lifecycle.
func NewEngine(embedder embed.Embedder, vectors VectorSearcher, opts Options, logger *slog.Logger) *Engine {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultOptions().MaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder: embedder,
		vectors:  vectors,
		fusion:   NewRRFFusionWithK(opts.RRFConstant),
		opts:     opts,
		logger:   logger,
	}
}

// Search returns the top-k chunks from scope for the query. An empty
// scope or a query matching nothing yields an empty result, not an
// error.
func (e *Engine) Search(ctx context.Context, query string, k int, scope []chunk.Chunk) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, perrs.New(perrs.ErrCodeEmptyQuery, "search query is empty", nil)
	}
	if len(scope) == 0 {
		return []Result{}, nil
	}
	if k <= 0 {
		k = e.opts.MaxResults
	}
	fetchK := k * oversampleFactor

	byID := make(map[string]chunk.Chunk, len(scope))
	ids := make([]string, len(scope))
	texts := make([]string, len(scope))
	for i, ch := range scope {
		byID[ch.ID] = ch
		ids[i] = ch.ID
		texts[i] = ch.Text
	}

	start := time.Now()
	var bm25Results, vecResults []RankedResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx := NewBM25Index(e.opts.BM25K1, e.opts.BM25B)
		idx.Fit(ids, texts)
		bm25Results = idx.Search(query, fetchK)
		return nil
	})
	g.Go(func() error {
		var err error
		vecResults, err = e.searchDense(gctx, query, fetchK, byID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := e.fusion.Fuse(bm25Results, vecResults)

	results := make([]Result, 0, k)
	for _, fr := range fused {
		ch, ok := byID[fr.ChunkID]
		if !ok {
			continue
		}
		results = append(results, Result{Chunk: ch, FusedResult: *fr})
		if len(results) == k {
			break
		}
	}

	e.logger.Debug("hybrid search complete",
		slog.String("query", query),
		slog.Int("scope_chunks", len(scope)),
		slog.Int("bm25_candidates", len(bm25Results)),
		slog.Int("vector_candidates", len(vecResults)),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))

	return results, nil
}

// searchDense embeds the query and searches the vector store, filtered
// to the scope and the minimum similarity floor.
func (e *Engine) searchDense(ctx context.Context, query string, fetchK int, scope map[string]chunk.Chunk) ([]RankedResult, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := e.vectors.SearchVector(ctx, vec, fetchK, func(chunkID string) bool {
		_, ok := scope[chunkID]
		return ok
	})
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeVectorSearch, "vector search failed", err)
	}

	if e.opts.MinScore <= 0 {
		return candidates, nil
	}
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Score >= e.opts.MinScore {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}
