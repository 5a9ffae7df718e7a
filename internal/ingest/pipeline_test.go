package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve-kb/pensieve/internal/chunk"
	"github.com/pensieve-kb/pensieve/internal/embed"
	"github.com/pensieve-kb/pensieve/internal/store"
	"github.com/pensieve-kb/pensieve/internal/temporal"
)

func newTestPipeline(t *testing.T) (*Pipeline, *temporal.Manager, store.VectorStore) {
	t.Helper()

	reg, err := store.OpenRegistry("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	vectors, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: embed.StaticDimensions})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	manager := temporal.NewManager(reg, nil)
	chunker := chunk.NewSemanticChunker(embed.NewStaticEmbedder(), chunk.Options{
		BreakpointPercentile: 85,
		MinChunkWords:        10,
		MaxChunkWords:        100,
		WindowSize:           2,
	}, nil)

	p := NewPipeline(chunker, manager, vectors, t.TempDir(), "", nil)
	return p, manager, vectors
}

func docText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d describes the subject matter at hand. ", i)
	}
	return b.String()
}

func TestIngest_NewDocument(t *testing.T) {
	p, manager, vectors := newTestPipeline(t)
	ctx := context.Background()

	outcome, err := p.Ingest(ctx, Document{Filename: "notes.txt", RawText: docText(8)})
	require.NoError(t, err)

	assert.True(t, outcome.IsNew)
	assert.Equal(t, 1, outcome.VersionNum)
	assert.Greater(t, outcome.ChunkCount, 0)
	assert.Equal(t, outcome.ChunkCount, vectors.Count(), "every chunk vector indexed")

	cur, err := manager.Current(ctx, outcome.DocID)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "notes.txt", cur.Filename)
}

func TestIngest_UnchangedContentSkipsIndexing(t *testing.T) {
	p, _, vectors := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Ingest(ctx, Document{Filename: "notes.txt", RawText: docText(8)})
	require.NoError(t, err)
	countAfterFirst := vectors.Count()

	second, err := p.Ingest(ctx, Document{Filename: "notes.txt", RawText: docText(8)})
	require.NoError(t, err)

	assert.True(t, second.NoOp)
	assert.Equal(t, first.DocID, second.DocID)
	assert.Equal(t, countAfterFirst, vectors.Count())
}

func TestIngest_NewVersionReplacesVectors(t *testing.T) {
	p, manager, vectors := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Ingest(ctx, Document{Filename: "notes.txt", RawText: docText(8)})
	require.NoError(t, err)

	second, err := p.Ingest(ctx, Document{Filename: "notes_v2.txt", RawText: docText(12)})
	require.NoError(t, err)

	assert.Equal(t, first.DocID, second.DocID)
	assert.Equal(t, 2, second.VersionNum)
	assert.NotEmpty(t, second.DiffSummary)

	// Only current-version chunks are live in the vector store.
	scope, err := manager.ScopeChunks(ctx, []string{second.DocID})
	require.NoError(t, err)
	assert.Equal(t, len(scope), vectors.Count())
	for _, ch := range scope {
		assert.True(t, vectors.Contains(ch.ID))
	}
}

func TestIngest_EmptyDocumentFails(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	_, err := p.Ingest(context.Background(), Document{Filename: "empty.txt", RawText: "  "})
	assert.Error(t, err)
}

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	outcomes := p.IngestBatch(context.Background(), []Document{
		{Filename: "good.txt", RawText: docText(6)},
		{Filename: "bad.txt", RawText: ""},
		{Filename: "also-good.txt", RawText: docText(6)},
	})

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.NoError(t, outcomes[2].Err)
	assert.True(t, outcomes[2].IsNew)
}
