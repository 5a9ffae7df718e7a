// Package store provides the persistent layers: an HNSW vector store
// for chunk embeddings and a SQLite registry for documents, versions,
// raw texts, and chunk metadata.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pensieve-kb/pensieve/internal/search"
)

// VectorStoreConfig configures the HNSW vector store.
type VectorStoreConfig struct {
	Dimensions int
	Metric     string // "cos" (default) or "l2"
	M          int    // HNSW connectivity
	EfSearch   int    // HNSW search expansion factor
}

// VectorStore stores and searches chunk embeddings.
type VectorStore interface {
	search.VectorSearcher

	// Add inserts vectors with their chunk IDs. Existing IDs are
	// replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Delete tombstones vectors by ID. Tombstoned vectors never
	// surface in results; physical removal is deferred.
	Delete(ctx context.Context, ids []string) error

	// Contains reports whether id is live in the store.
	Contains(id string) bool

	// Count returns the number of live vectors.
	Count() int

	// Save persists the store to disk atomically.
	Save(path string) error

	// Load restores the store from disk.
	Load(path string) error

	// Close releases resources.
	Close() error
}

// ErrDimensionMismatch indicates a vector of the wrong dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Document is a registry row describing one logical document.
type Document struct {
	DocID          string
	NormalizedStem string
	LatestFilename string
	FirstSeen      time.Time
	LastUploaded   time.Time // upload time of the current version
	VersionCount   int
	CurrentVersion int
}

// Version is one content version of a document. Versions are
// append-only; exactly one per document is current.
type Version struct {
	DocID        string
	VersionNum   int
	Filename     string
	ContentHash  string
	WordCount    int
	UploadedAt   time.Time
	SupersededAt *time.Time
	IsCurrent    bool
	DiffSummary  string
	RawText      string
}

// ChunkRecord is persisted chunk metadata for one version's chunks.
// Filename and UploadedAt live on the owning version row; reads join
// them in, writes ignore them.
type ChunkRecord struct {
	ChunkID            string
	DocID              string
	VersionNum         int
	Position           int
	Text               string
	StartSentence      int
	EndSentence        int
	TokenCount         int
	BoundarySimilarity float64
	Filename           string
	UploadedAt         time.Time
}

// Stats summarizes registry contents.
type Stats struct {
	Documents     int
	Versions      int
	CurrentChunks int
	TotalWords    int
}
