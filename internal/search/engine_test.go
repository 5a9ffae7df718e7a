package search

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve-kb/pensieve/internal/chunk"
	"github.com/pensieve-kb/pensieve/internal/embed"
	perrs "github.com/pensieve-kb/pensieve/internal/errors"
)

// bruteForceVectors is a VectorSearcher backed by an in-memory map,
// scoring by dot product.
type bruteForceVectors struct {
	vectors map[string][]float32
	err     error
}

func (b *bruteForceVectors) SearchVector(_ context.Context, vector []float32, k int, filter func(string) bool) ([]RankedResult, error) {
	if b.err != nil {
		return nil, b.err
	}

	var results []RankedResult
	for id, vec := range b.vectors {
		if filter != nil && !filter(id) {
			continue
		}
		var score float64
		for i := range vec {
			score += float64(vec[i]) * float64(vector[i])
		}
		results = append(results, RankedResult{ChunkID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// buildScope embeds texts with the static embedder and returns chunks
// plus a matching vector store.
func buildScope(t *testing.T, texts map[string]string) ([]chunk.Chunk, *bruteForceVectors, embed.Embedder) {
	t.Helper()
	e := embed.NewStaticEmbedder()
	store := &bruteForceVectors{vectors: make(map[string][]float32)}

	var ids []string
	for id := range texts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var scope []chunk.Chunk
	for _, id := range ids {
		vec, err := e.Embed(context.Background(), texts[id])
		require.NoError(t, err)
		store.vectors[id] = vec
		scope = append(scope, chunk.Chunk{ID: id, Text: texts[id], Embedding: vec})
	}
	return scope, store, e
}

func TestEngine_EmptyQueryFails(t *testing.T) {
	scope, store, e := buildScope(t, map[string]string{"c1": "some content"})
	engine := NewEngine(e, store, DefaultOptions(), nil)

	_, err := engine.Search(context.Background(), "   ", 5, scope)
	require.Error(t, err)
	assert.Equal(t, perrs.ErrCodeEmptyQuery, perrs.GetCode(err))
}

func TestEngine_EmptyScopeIsEmptyResult(t *testing.T) {
	_, store, e := buildScope(t, map[string]string{"c1": "some content"})
	engine := NewEngine(e, store, DefaultOptions(), nil)

	results, err := engine.Search(context.Background(), "query", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_FindsKeywordMatch(t *testing.T) {
	scope, store, e := buildScope(t, map[string]string{
		"c1": "the refund policy allows returns within thirty days",
		"c2": "shipping rates depend on destination and weight",
		"c3": "warranty claims require the original receipt",
	})
	engine := NewEngine(e, store, DefaultOptions(), nil)

	results, err := engine.Search(context.Background(), "refund policy returns", 2, scope)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.True(t, results[0].InBothLists)
}

func TestEngine_RespectsK(t *testing.T) {
	texts := make(map[string]string)
	for i := 0; i < 10; i++ {
		texts[fmt.Sprintf("c%02d", i)] = fmt.Sprintf("document %d mentions testing and coverage", i)
	}
	scope, store, e := buildScope(t, texts)
	engine := NewEngine(e, store, DefaultOptions(), nil)

	results, err := engine.Search(context.Background(), "testing coverage", 3, scope)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestEngine_NoMatchesIsEmptyNotError(t *testing.T) {
	scope, store, e := buildScope(t, map[string]string{
		"c1": "alpha beta gamma delta",
	})
	// Force the dense path empty too via a high similarity floor.
	opts := DefaultOptions()
	opts.MinScore = 2.0
	engine := NewEngine(e, store, opts, nil)

	results, err := engine.Search(context.Background(), "zzzqqq xxyyzz", 5, scope)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_VectorStoreFailureSurfaces(t *testing.T) {
	scope, store, e := buildScope(t, map[string]string{"c1": "content here"})
	store.err = fmt.Errorf("index corrupt")
	engine := NewEngine(e, store, DefaultOptions(), nil)

	_, err := engine.Search(context.Background(), "content", 5, scope)
	require.Error(t, err)
	assert.Equal(t, perrs.ErrCodeVectorSearch, perrs.GetCode(err))
}

func TestEngine_ScopeFilterExcludesOtherChunks(t *testing.T) {
	all, store, e := buildScope(t, map[string]string{
		"in1":  "refund policy details for members",
		"out1": "refund policy details for partners",
	})
	engine := NewEngine(e, store, DefaultOptions(), nil)

	// Scope contains only in1; out1 stays in the vector store but must
	// never surface.
	scope := all[:1]
	require.Equal(t, "in1", scope[0].ID)

	results, err := engine.Search(context.Background(), "refund policy", 5, scope)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "in1", r.Chunk.ID)
	}
}
