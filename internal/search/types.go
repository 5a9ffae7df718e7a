// Package search provides hybrid retrieval combining BM25 lexical
// search with dense vector search, merged via Reciprocal Rank Fusion.
package search

import (
	"context"

	"github.com/pensieve-kb/pensieve/internal/chunk"
)

// RankedResult is one entry of a single-path ranking, ordered by the
// path's own score.
type RankedResult struct {
	ChunkID string
	Score   float64
}

// FusedResult is a single result after RRF fusion of the lexical and
// dense rankings.
type FusedResult struct {
	ChunkID     string
	RRFScore    float64
	BM25Score   float64 // original lexical score, 0 if absent
	BM25Rank    int     // 1-indexed, 0 if absent
	VecScore    float64 // original dense similarity, 0 if absent
	VecRank     int     // 1-indexed, 0 if absent
	InBothLists bool
}

// Result is a fused result resolved back to its chunk.
type Result struct {
	Chunk chunk.Chunk
	FusedResult
}

// VectorSearcher is the dense retrieval path. Implementations return
// up to k results ordered by similarity descending; the filter, when
// non-nil, restricts candidates by chunk id.
type VectorSearcher interface {
	SearchVector(ctx context.Context, vector []float32, k int, filter func(chunkID string) bool) ([]RankedResult, error)
}
