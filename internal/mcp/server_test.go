package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve-kb/pensieve/internal/chunk"
	"github.com/pensieve-kb/pensieve/internal/embed"
	"github.com/pensieve-kb/pensieve/internal/ingest"
	"github.com/pensieve-kb/pensieve/internal/search"
	"github.com/pensieve-kb/pensieve/internal/store"
	"github.com/pensieve-kb/pensieve/internal/temporal"
)

func newTestServer(t *testing.T) (*Server, *ingest.Pipeline) {
	t.Helper()

	reg, err := store.OpenRegistry("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	vectors, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: embed.StaticDimensions})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	embedder := embed.NewStaticEmbedder()
	manager := temporal.NewManager(reg, nil)
	chunker := chunk.NewSemanticChunker(embedder, chunk.Options{
		BreakpointPercentile: 85,
		MinChunkWords:        10,
		MaxChunkWords:        100,
		WindowSize:           2,
	}, nil)
	pipeline := ingest.NewPipeline(chunker, manager, vectors, t.TempDir(), "", nil)

	engine := search.NewEngine(embedder, vectors, search.DefaultOptions(), nil)
	srv, err := NewServer(engine, manager, nil)
	require.NoError(t, err)

	return srv, pipeline
}

func seedDocuments(t *testing.T, p *ingest.Pipeline) {
	t.Helper()
	ctx := context.Background()

	_, err := p.Ingest(ctx, ingest.Document{
		Filename: "networking.txt",
		RawText: "The gateway routes all inbound traffic through the firewall cluster. " +
			"Packet filtering rules are evaluated in priority order before forwarding. " +
			"Dropped packets are logged to the central collector for later audit. " +
			"Routing tables refresh every thirty seconds from the control plane.",
	})
	require.NoError(t, err)

	_, err = p.Ingest(ctx, ingest.Document{
		Filename: "recipes.txt",
		RawText: "Whisk the eggs with sugar until the mixture turns pale and fluffy. " +
			"Fold the flour in gently so the batter keeps its trapped air. " +
			"Bake the sponge at a moderate temperature until golden on top. " +
			"Let the cake cool completely before spreading any frosting.",
	})
	require.NoError(t, err)
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, nil, nil)
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := newTestServer(t)

	tools := srv.ListTools()
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "list_documents")
	assert.Contains(t, names, "document_history")
	assert.Contains(t, names, "temporal_context")
}

func TestSearchTool_FindsRelevantChunks(t *testing.T) {
	srv, pipeline := newTestServer(t)
	seedDocuments(t, pipeline)

	_, out, err := srv.searchHandler(context.Background(), nil, SearchInput{
		Query: "firewall packet filtering rules",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)

	top := out.Results[0]
	assert.Contains(t, strings.ToLower(top.Text), "packet")
	assert.Equal(t, temporal.DocID("networking.txt"), top.DocID)
	assert.Equal(t, "networking.txt", top.Filename)
	assert.Equal(t, 1, top.Version)
	assert.NotEmpty(t, top.UploadedAt, "results carry the version upload time")
	assert.Greater(t, top.TokenCount, 0)
	assert.Greater(t, top.Score, 0.0)
}

func TestSearchTool_EmptyQueryRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.searchHandler(context.Background(), nil, SearchInput{Query: "   "})
	require.Error(t, err)

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeInvalidParams, pe.Code)
}

func TestSearchTool_ScopedToOneDocument(t *testing.T) {
	srv, pipeline := newTestServer(t)
	seedDocuments(t, pipeline)

	_, out, err := srv.searchHandler(context.Background(), nil, SearchInput{
		Query:     "bake the sponge cake",
		Documents: []string{"recipes.txt"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)

	want := temporal.DocID("recipes.txt")
	for _, r := range out.Results {
		assert.Equal(t, want, r.DocID)
	}
}

func TestSearchTool_EmptyLibraryReturnsNoResults(t *testing.T) {
	srv, _ := newTestServer(t)

	_, out, err := srv.searchHandler(context.Background(), nil, SearchInput{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
}

func TestListDocumentsTool(t *testing.T) {
	srv, pipeline := newTestServer(t)
	seedDocuments(t, pipeline)

	_, out, err := srv.listDocumentsHandler(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)
	require.Len(t, out.Documents, 2)

	byName := make(map[string]DocumentOutput)
	for _, d := range out.Documents {
		byName[d.Filename] = d
	}
	require.Contains(t, byName, "networking.txt")
	assert.Equal(t, 1, byName["networking.txt"].CurrentVersion)
	assert.Equal(t, 1, byName["networking.txt"].VersionCount)
	assert.NotEmpty(t, byName["networking.txt"].LastUploaded)
}

func TestDocumentHistoryTool_ResolvesFilenameVariants(t *testing.T) {
	srv, pipeline := newTestServer(t)
	seedDocuments(t, pipeline)

	_, err := pipeline.Ingest(context.Background(), ingest.Document{
		Filename: "networking_v2.txt",
		RawText: "The gateway routes all inbound traffic through the firewall cluster. " +
			"Packet filtering rules are evaluated in strict priority order before forwarding. " +
			"Routing tables refresh every ten seconds from the control plane now.",
	})
	require.NoError(t, err)

	// The v2 suffix normalizes away, so both names hit the same history.
	_, out, err := srv.documentHistoryHandler(context.Background(), nil, DocumentHistoryInput{
		Document: "networking.txt",
	})
	require.NoError(t, err)
	require.Len(t, out.Versions, 2)

	assert.True(t, out.Versions[0].IsCurrent)
	assert.Equal(t, 2, out.Versions[0].Version)
	assert.Equal(t, "networking_v2.txt", out.Versions[0].Filename)
	assert.NotEmpty(t, out.Versions[0].DiffSummary)
	assert.False(t, out.Versions[1].IsCurrent)
}

func TestDocumentHistoryTool_UnknownDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.documentHistoryHandler(context.Background(), nil, DocumentHistoryInput{
		Document: "nothing-here.txt",
	})
	require.Error(t, err)

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeDocumentNotFound, pe.Code)
}

func TestTemporalContextTool(t *testing.T) {
	srv, pipeline := newTestServer(t)
	seedDocuments(t, pipeline)

	_, out, err := srv.temporalContextHandler(context.Background(), nil, TemporalContextInput{})
	require.NoError(t, err)

	assert.Contains(t, out.Context, "Document temporal context:")
	assert.Contains(t, out.Context, "networking.txt")
	assert.Contains(t, out.Context, "recipes.txt")
}

func TestResolveDocRef(t *testing.T) {
	assert.Equal(t, "0123456789ab", resolveDocRef("0123456789ab"), "bare doc IDs pass through")
	assert.Equal(t, temporal.DocID("report.pdf"), resolveDocRef("report_v2.pdf"))
}

func TestDocIDOfChunk(t *testing.T) {
	assert.Equal(t, "abc123def456", docIDOfChunk("abc123def456_chunk_0003"))
	assert.Equal(t, "plain", docIDOfChunk("plain"))
}
