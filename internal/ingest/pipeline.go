// Package ingest runs the document ingestion pipeline: segment, chunk,
// register a version, and index the chunk vectors.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/pensieve-kb/pensieve/internal/chunk"
	perrs "github.com/pensieve-kb/pensieve/internal/errors"
	"github.com/pensieve-kb/pensieve/internal/store"
	"github.com/pensieve-kb/pensieve/internal/temporal"
)

// lockRetryInterval is how often a blocked pipeline re-tries the
// ingest lock.
const lockRetryInterval = 100 * time.Millisecond

// Document is one ingestion input.
type Document struct {
	Filename string
	RawText  string
}

// Outcome reports one document's ingestion result. Err is set when
// this document failed; siblings in a batch are unaffected.
type Outcome struct {
	Filename    string
	DocID       string
	VersionNum  int
	IsNew       bool
	NoOp        bool
	DiffSummary string
	ChunkCount  int
	Err         error
}

// Chunker produces the chunk set for a document.
type Chunker interface {
	Chunk(ctx context.Context, docID, text string) ([]chunk.Chunk, error)
}

// Pipeline wires the chunker, version manager, and vector store into
// one ingestion flow. A file lock serializes pipelines across
// processes; within a process calls are already serialized by the
// lock too.
type Pipeline struct {
	chunker    Chunker
	manager    *temporal.Manager
	vectors    store.VectorStore
	vectorPath string // where to persist the vector store, empty to skip
	lock       *flock.Flock
	logger     *slog.Logger
}

// NewPipeline creates an ingestion pipeline. dataDir hosts the ingest
// lock file and, when vectorPath is non-empty, the persisted vector
// index.
func NewPipeline(chunker Chunker, manager *temporal.Manager, vectors store.VectorStore, dataDir, vectorPath string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:    chunker,
		manager:    manager,
		vectors:    vectors,
		vectorPath: vectorPath,
		lock:       flock.New(filepath.Join(dataDir, "ingest.lock")),
		logger:     logger,
	}
}

// Ingest processes one document end to end. Chunking and version
// registration only commit state at the final persist step, so a
// failure before that point leaves no partial record.
func (p *Pipeline) Ingest(ctx context.Context, doc Document) (Outcome, error) {
	if err := os.MkdirAll(filepath.Dir(p.lock.Path()), 0o755); err != nil {
		return Outcome{}, perrs.New(perrs.ErrCodeRegistryWrite, "failed to create data directory", err)
	}

	locked, err := p.lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to acquire ingest lock: %w", err)
	}
	if !locked {
		return Outcome{}, fmt.Errorf("ingest lock unavailable")
	}
	defer func() { _ = p.lock.Unlock() }()

	return p.ingestLocked(ctx, doc)
}

func (p *Pipeline) ingestLocked(ctx context.Context, doc Document) (Outcome, error) {
	start := time.Now()
	docID := temporal.DocID(doc.Filename)

	chunks, err := p.chunker.Chunk(ctx, docID, doc.RawText)
	if err != nil {
		return Outcome{}, fmt.Errorf("chunking %s: %w", doc.Filename, err)
	}

	res, err := p.manager.Register(ctx, doc.Filename, doc.RawText, chunks)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		Filename:    doc.Filename,
		DocID:       res.DocID,
		VersionNum:  res.VersionNum,
		IsNew:       res.IsNew,
		NoOp:        res.NoOp,
		DiffSummary: res.DiffSummary,
		ChunkCount:  len(chunks),
	}

	if res.NoOp {
		p.logger.Info("document unchanged, skipping index",
			slog.String("doc_id", res.DocID),
			slog.String("filename", doc.Filename))
		return outcome, nil
	}

	if len(res.RemovedChunkIDs) > 0 {
		if err := p.vectors.Delete(ctx, res.RemovedChunkIDs); err != nil {
			return Outcome{}, perrs.New(perrs.ErrCodeIndexWrite, "failed to tombstone superseded vectors", err)
		}
	}

	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		vecs[i] = ch.Embedding
	}
	if err := p.vectors.Add(ctx, ids, vecs); err != nil {
		return Outcome{}, perrs.New(perrs.ErrCodeIndexWrite, "failed to index chunk vectors", err)
	}

	if p.vectorPath != "" {
		if err := p.vectors.Save(p.vectorPath); err != nil {
			return Outcome{}, perrs.New(perrs.ErrCodeIndexWrite, "failed to persist vector index", err)
		}
	}

	p.logger.Info("ingested document",
		slog.String("doc_id", res.DocID),
		slog.String("filename", doc.Filename),
		slog.Int("version", res.VersionNum),
		slog.Bool("is_new", res.IsNew),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", time.Since(start)))

	return outcome, nil
}

// IngestBatch processes documents independently: each entry of the
// returned slice reports its own outcome, and one failure never aborts
// the siblings.
func (p *Pipeline) IngestBatch(ctx context.Context, docs []Document) []Outcome {
	outcomes := make([]Outcome, 0, len(docs))
	for _, doc := range docs {
		outcome, err := p.Ingest(ctx, doc)
		if err != nil {
			outcome = Outcome{Filename: doc.Filename, Err: err}
			p.logger.Error("document ingestion failed",
				slog.String("filename", doc.Filename),
				slog.String("error", err.Error()))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
