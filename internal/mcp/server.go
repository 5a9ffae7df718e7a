// Package mcp implements the Model Context Protocol server for
// Pensieve. It exposes the hybrid search engine and the version
// history to AI clients over stdio.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pensieve-kb/pensieve/internal/search"
	"github.com/pensieve-kb/pensieve/internal/temporal"
	"github.com/pensieve-kb/pensieve/pkg/version"
)

const serverName = "Pensieve"

// docIDPattern matches a bare document ID (12 hex chars). Anything
// else passed as a document reference is treated as a filename.
var docIDPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// Server is the MCP server for Pensieve. It bridges AI clients with
// the hybrid search engine and the temporal version manager.
type Server struct {
	mcp     *mcp.Server
	engine  *search.Engine
	manager *temporal.Manager
	logger  *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates an MCP server over the given engine and manager.
func NewServer(engine *search.Engine, manager *temporal.Manager, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if manager == nil {
		return nil, errors.New("temporal manager is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:  engine,
		manager: manager,
		logger:  logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "search",
			Description: "Hybrid keyword + semantic search over the tracked documents. Returns the best-matching chunks from the current version of each document.",
		},
		{
			Name:        "list_documents",
			Description: "List all tracked documents with their version counts and latest filenames.",
		},
		{
			Name:        "document_history",
			Description: "Full version history of one document: upload times, change summaries, and which version is current.",
		},
		{
			Name:        "temporal_context",
			Description: "Human-readable freshness block for documents: version numbers, upload ages, and latest changes. Prepend it to answers that cite these documents.",
		},
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid keyword + semantic search over the tracked documents. Returns the best-matching chunks from the current version of each document.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all tracked documents with their version counts and latest filenames.",
	}, s.listDocumentsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "document_history",
		Description: "Full version history of one document: upload times, change summaries, and which version is current.",
	}, s.documentHistoryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "temporal_context",
		Description: "Human-readable freshness block for documents: version numbers, upload ages, and latest changes. Prepend it to answers that cite these documents.",
	}, s.temporalContextHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", 4))
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"the search query to execute"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 6"`
	Documents []string `json:"documents,omitempty" jsonschema:"restrict search to these documents (filenames or document IDs); empty searches everything"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"list of search results, best first"`
}

// SearchResultOutput is a single search result.
type SearchResultOutput struct {
	ChunkID     string  `json:"chunk_id" jsonschema:"stable chunk identifier"`
	DocID       string  `json:"doc_id" jsonschema:"owning document identifier"`
	Filename    string  `json:"filename" jsonschema:"filename of the document version the chunk comes from"`
	Version     int     `json:"version" jsonschema:"version number of the source document"`
	UploadedAt  string  `json:"uploaded_at" jsonschema:"RFC 3339 upload time of the source version"`
	Text        string  `json:"text" jsonschema:"chunk text"`
	TokenCount  int     `json:"token_count" jsonschema:"word count of the chunk text"`
	Score       float64 `json:"score" jsonschema:"fused relevance score"`
	InBothLists bool    `json:"in_both_lists,omitempty" jsonschema:"true if the chunk ranked in both keyword and semantic lists"`
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	start := time.Now()

	docIDs, err := s.resolveDocuments(ctx, input.Documents)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	scope, err := s.manager.ScopeChunks(ctx, docIDs)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	results, err := s.engine.Search(ctx, input.Query, input.Limit, scope)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, SearchResultOutput{
			ChunkID:     r.Chunk.ID,
			DocID:       docIDOfChunk(r.Chunk.ID),
			Filename:    r.Chunk.Filename,
			Version:     r.Chunk.VersionNum,
			UploadedAt:  r.Chunk.UploadedAt.Format(time.RFC3339),
			Text:        r.Chunk.Text,
			TokenCount:  r.Chunk.TokenCount,
			Score:       r.RRFScore,
			InBothLists: r.InBothLists,
		})
	}

	s.logger.Info("search completed",
		slog.String("query", input.Query),
		slog.Int("results", len(output.Results)),
		slog.Duration("duration", time.Since(start)))

	return nil, output, nil
}

// ListDocumentsInput defines the input schema for list_documents.
type ListDocumentsInput struct{}

// ListDocumentsOutput defines the output schema for list_documents.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents" jsonschema:"all tracked documents"`
}

// DocumentOutput is one tracked document. Documents are listed most
// recently uploaded first.
type DocumentOutput struct {
	DocID          string `json:"doc_id" jsonschema:"stable document identifier"`
	Filename       string `json:"filename" jsonschema:"most recent filename seen for this document"`
	CurrentVersion int    `json:"current_version" jsonschema:"version number of the current content"`
	VersionCount   int    `json:"version_count" jsonschema:"how many versions are tracked"`
	FirstSeen      string `json:"first_seen" jsonschema:"RFC 3339 time the document was first ingested"`
	LastUploaded   string `json:"last_uploaded" jsonschema:"RFC 3339 upload time of the current version"`
}

func (s *Server) listDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (
	*mcp.CallToolResult,
	ListDocumentsOutput,
	error,
) {
	docs, err := s.manager.Documents(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}

	output := ListDocumentsOutput{Documents: make([]DocumentOutput, 0, len(docs))}
	for _, d := range docs {
		output.Documents = append(output.Documents, DocumentOutput{
			DocID:          d.DocID,
			Filename:       d.LatestFilename,
			CurrentVersion: d.CurrentVersion,
			VersionCount:   d.VersionCount,
			FirstSeen:      d.FirstSeen.Format(time.RFC3339),
			LastUploaded:   d.LastUploaded.Format(time.RFC3339),
		})
	}

	return nil, output, nil
}

// DocumentHistoryInput defines the input schema for document_history.
type DocumentHistoryInput struct {
	Document string `json:"document" jsonschema:"filename or document ID"`
}

// DocumentHistoryOutput defines the output schema for document_history.
type DocumentHistoryOutput struct {
	DocID    string          `json:"doc_id" jsonschema:"stable document identifier"`
	Versions []VersionOutput `json:"versions" jsonschema:"all versions, newest first"`
}

// VersionOutput is one tracked version of a document.
type VersionOutput struct {
	Version     int    `json:"version" jsonschema:"version number, 1-based"`
	Filename    string `json:"filename" jsonschema:"filename this version arrived under"`
	UploadedAt  string `json:"uploaded_at" jsonschema:"RFC 3339 upload time"`
	UploadedAge string `json:"uploaded_age" jsonschema:"human-readable age, e.g. 2h ago"`
	IsCurrent   bool   `json:"is_current" jsonschema:"true for the live version"`
	WordCount   int    `json:"word_count" jsonschema:"word count of this version"`
	DiffSummary string `json:"diff_summary,omitempty" jsonschema:"changes relative to the previous version"`
}

func (s *Server) documentHistoryHandler(ctx context.Context, _ *mcp.CallToolRequest, input DocumentHistoryInput) (
	*mcp.CallToolResult,
	DocumentHistoryOutput,
	error,
) {
	if strings.TrimSpace(input.Document) == "" {
		return nil, DocumentHistoryOutput{}, NewInvalidParamsError("document parameter is required")
	}

	docID := resolveDocRef(input.Document)
	versions, err := s.manager.History(ctx, docID)
	if err != nil {
		return nil, DocumentHistoryOutput{}, MapError(err)
	}
	if len(versions) == 0 {
		return nil, DocumentHistoryOutput{}, NewDocumentNotFoundError(input.Document)
	}

	output := DocumentHistoryOutput{
		DocID:    docID,
		Versions: make([]VersionOutput, 0, len(versions)),
	}
	for _, v := range versions {
		output.Versions = append(output.Versions, VersionOutput{
			Version:     v.VersionNum,
			Filename:    v.Filename,
			UploadedAt:  v.UploadedAt.Format(time.RFC3339),
			UploadedAge: temporal.AgeLabel(v.UploadedAt),
			IsCurrent:   v.IsCurrent,
			WordCount:   v.WordCount,
			DiffSummary: v.DiffSummary,
		})
	}

	return nil, output, nil
}

// TemporalContextInput defines the input schema for temporal_context.
type TemporalContextInput struct {
	Documents []string `json:"documents,omitempty" jsonschema:"documents to describe (filenames or document IDs); empty describes everything"`
}

// TemporalContextOutput defines the output schema for temporal_context.
type TemporalContextOutput struct {
	Context string `json:"context" jsonschema:"freshness block to prepend to generated answers"`
}

func (s *Server) temporalContextHandler(ctx context.Context, _ *mcp.CallToolRequest, input TemporalContextInput) (
	*mcp.CallToolResult,
	TemporalContextOutput,
	error,
) {
	docIDs, err := s.resolveDocuments(ctx, input.Documents)
	if err != nil {
		return nil, TemporalContextOutput{}, MapError(err)
	}

	block, err := s.manager.TemporalContext(ctx, docIDs)
	if err != nil {
		return nil, TemporalContextOutput{}, MapError(err)
	}

	return nil, TemporalContextOutput{Context: block}, nil
}

// resolveDocuments maps document references to document IDs. Empty
// input means every tracked document.
func (s *Server) resolveDocuments(ctx context.Context, refs []string) ([]string, error) {
	if len(refs) == 0 {
		docs, err := s.manager.Documents(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.DocID)
		}
		return ids, nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, resolveDocRef(ref))
	}
	return ids, nil
}

// resolveDocRef turns a filename or bare document ID into a document
// ID. Filenames go through the same stem normalization as ingestion,
// so "report_v2.pdf" resolves to the same document as "report.pdf".
func resolveDocRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if docIDPattern.MatchString(ref) {
		return ref
	}
	return temporal.DocID(ref)
}

// docIDOfChunk recovers the owning document ID from a chunk ID.
func docIDOfChunk(chunkID string) string {
	if i := strings.LastIndex(chunkID, "_chunk_"); i >= 0 {
		return chunkID[:i]
	}
	return chunkID
}

// Serve runs the server over stdio until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
