package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pensieve-kb/pensieve/internal/chunk"
	perrs "github.com/pensieve-kb/pensieve/internal/errors"
	"github.com/pensieve-kb/pensieve/internal/store"
)

// wordDeltaWarnFactor flags filename collisions that look like two
// unrelated documents: a new version whose word count differs from the
// current one by more than this factor is logged, not rejected.
const wordDeltaWarnFactor = 5

// RegisterResult reports the outcome of one registration.
type RegisterResult struct {
	DocID       string
	VersionNum  int
	IsNew       bool   // first version of this document
	NoOp        bool   // identical content resubmitted, nothing written
	DiffSummary string // empty for first versions and no-ops

	// RemovedChunkIDs are the superseded version's chunk ids; the
	// caller tombstones their vectors.
	RemovedChunkIDs []string
}

// Manager gives documents a stable identity across re-uploads and
// tracks every content version. All state lives in the registry; the
// manager itself is stateless between calls.
type Manager struct {
	registry *store.Registry
	logger   *slog.Logger
}

// NewManager creates a version manager over the given registry.
func NewManager(registry *store.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{registry: registry, logger: logger}
}

// Register records a document upload. Identical content is a no-op;
// changed content appends exactly one new version and supersedes the
// previous one. State is only committed at the final persist step, so
// a failure anywhere earlier leaves no partial record.
func (m *Manager) Register(ctx context.Context, filename, rawText string, chunks []chunk.Chunk) (RegisterResult, error) {
	if strings.TrimSpace(rawText) == "" {
		return RegisterResult{}, perrs.New(perrs.ErrCodeEmptyContent,
			fmt.Sprintf("document %s has no content", filename), nil)
	}

	docID := DocID(filename)
	contentHash := ContentHash(rawText)

	current, err := m.registry.CurrentVersion(ctx, docID)
	if err != nil {
		return RegisterResult{}, err
	}

	if current != nil && current.ContentHash == contentHash {
		m.logger.Debug("identical content resubmitted",
			slog.String("doc_id", docID),
			slog.String("filename", filename))
		return RegisterResult{DocID: docID, VersionNum: current.VersionNum, NoOp: true}, nil
	}

	diffSummary := ""
	if current != nil {
		diffSummary = DiffSummary(current.RawText, rawText)
		m.warnOnSuspiciousCollision(filename, current, rawText)
	}

	doc, err := m.registry.GetDocument(ctx, docID)
	if err != nil {
		return RegisterResult{}, err
	}
	versionNum := 1
	if doc != nil {
		versionNum = doc.VersionCount + 1
	}

	wordCount := len(strings.Fields(rawText))
	version := store.Version{
		DocID:       docID,
		VersionNum:  versionNum,
		Filename:    filename,
		ContentHash: contentHash,
		WordCount:   wordCount,
		UploadedAt:  time.Now().UTC(),
		DiffSummary: diffSummary,
		RawText:     rawText,
	}

	records := make([]store.ChunkRecord, len(chunks))
	for i, ch := range chunks {
		records[i] = store.ChunkRecord{
			ChunkID:            ch.ID,
			DocID:              docID,
			VersionNum:         versionNum,
			Position:           i,
			Text:               ch.Text,
			StartSentence:      ch.StartSentence,
			EndSentence:        ch.EndSentence,
			TokenCount:         ch.TokenCount,
			BoundarySimilarity: ch.BoundarySimilarity,
		}
	}

	removed, err := m.registry.AddVersion(ctx, NormalizeStem(filename), version, records)
	if err != nil {
		return RegisterResult{}, err
	}

	m.logger.Info("registered document version",
		slog.String("doc_id", docID),
		slog.String("filename", filename),
		slog.Int("version", versionNum),
		slog.Int("chunks", len(chunks)),
		slog.Int("words", wordCount),
		slog.String("diff", diffSummary))

	return RegisterResult{
		DocID:           docID,
		VersionNum:      versionNum,
		IsNew:           versionNum == 1,
		DiffSummary:     diffSummary,
		RemovedChunkIDs: removed,
	}, nil
}

// warnOnSuspiciousCollision logs when a "new version" looks like an
// unrelated document that happens to share a normalized stem.
func (m *Manager) warnOnSuspiciousCollision(filename string, current *store.Version, rawText string) {
	newWords := len(strings.Fields(rawText))
	oldWords := current.WordCount
	if oldWords == 0 || newWords == 0 {
		return
	}
	ratio := float64(newWords) / float64(oldWords)
	if ratio > wordDeltaWarnFactor || ratio < 1.0/wordDeltaWarnFactor {
		m.logger.Warn("possible filename collision: new version differs drastically in size",
			slog.String("filename", filename),
			slog.String("previous_filename", current.Filename),
			slog.Int("previous_words", oldWords),
			slog.Int("new_words", newWords))
	}
}

// Current returns a document's current version, or nil if unknown.
func (m *Manager) Current(ctx context.Context, docID string) (*store.Version, error) {
	return m.registry.CurrentVersion(ctx, docID)
}

// History returns a document's full ordered version history.
func (m *Manager) History(ctx context.Context, docID string) ([]store.Version, error) {
	return m.registry.History(ctx, docID)
}

// Documents returns all tracked documents.
func (m *Manager) Documents(ctx context.Context) ([]store.Document, error) {
	return m.registry.ListDocuments(ctx)
}

// Delete removes a document entirely, returning the chunk ids whose
// vectors the caller must tombstone.
func (m *Manager) Delete(ctx context.Context, docID string) ([]string, error) {
	removed, err := m.registry.DeleteDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	m.logger.Info("deleted document",
		slog.String("doc_id", docID),
		slog.Int("chunks_removed", len(removed)))
	return removed, nil
}

// ScopeChunks returns the current-version chunks of the given
// documents (all documents when docIDs is empty) as retrieval scope.
func (m *Manager) ScopeChunks(ctx context.Context, docIDs []string) ([]chunk.Chunk, error) {
	records, err := m.registry.CurrentChunks(ctx, docIDs)
	if err != nil {
		return nil, err
	}

	chunks := make([]chunk.Chunk, len(records))
	for i, rec := range records {
		chunks[i] = chunk.Chunk{
			ID:                 rec.ChunkID,
			Text:               rec.Text,
			StartSentence:      rec.StartSentence,
			EndSentence:        rec.EndSentence,
			TokenCount:         rec.TokenCount,
			BoundarySimilarity: rec.BoundarySimilarity,
			Filename:           rec.Filename,
			VersionNum:         rec.VersionNum,
			UploadedAt:         rec.UploadedAt,
		}
	}
	return chunks, nil
}

// TemporalContext builds a natural-language block describing the
// temporal state of the given documents, for injection into an
// external answer-generation step. Unknown ids are skipped; an empty
// result means no context is available.
func (m *Manager) TemporalContext(ctx context.Context, docIDs []string) (string, error) {
	var lines []string
	for _, docID := range docIDs {
		current, err := m.registry.CurrentVersion(ctx, docID)
		if err != nil {
			return "", err
		}
		if current == nil {
			continue
		}
		history, err := m.registry.History(ctx, docID)
		if err != nil {
			return "", err
		}

		line := fmt.Sprintf("• %s (v%d, uploaded %s)",
			current.Filename, current.VersionNum, AgeLabel(current.UploadedAt))
		if len(history) > 1 {
			line += fmt.Sprintf(" — %d versions tracked", len(history))
		}
		if current.DiffSummary != "" {
			line += "\n  Latest changes: " + current.DiffSummary
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return "", nil
	}
	return "Document temporal context:\n" + strings.Join(lines, "\n"), nil
}
