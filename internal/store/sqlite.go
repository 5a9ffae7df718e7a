package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	perrs "github.com/pensieve-kb/pensieve/internal/errors"
)

// Registry persists documents, versions, raw texts, and chunk metadata
// in SQLite. WAL mode with a single writer connection keeps writes
// serialized while reads stay concurrent.
type Registry struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

const registrySchema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id          TEXT PRIMARY KEY,
	normalized_stem TEXT NOT NULL,
	latest_filename TEXT NOT NULL,
	first_seen      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	doc_id        TEXT NOT NULL REFERENCES documents(doc_id),
	version_num   INTEGER NOT NULL,
	filename      TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	word_count    INTEGER NOT NULL,
	uploaded_at   TIMESTAMP NOT NULL,
	superseded_at TIMESTAMP,
	is_current    INTEGER NOT NULL DEFAULT 0,
	diff_summary  TEXT NOT NULL DEFAULT '',
	raw_text      TEXT NOT NULL,
	PRIMARY KEY (doc_id, version_num)
);

CREATE INDEX IF NOT EXISTS idx_versions_current ON versions(doc_id, is_current);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id            TEXT PRIMARY KEY,
	doc_id              TEXT NOT NULL REFERENCES documents(doc_id),
	version_num         INTEGER NOT NULL,
	position            INTEGER NOT NULL,
	text                TEXT NOT NULL,
	start_sentence      INTEGER NOT NULL,
	end_sentence        INTEGER NOT NULL,
	token_count         INTEGER NOT NULL,
	boundary_similarity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id, version_num);
`

// OpenRegistry opens (or creates) the registry at path. An empty path
// opens an in-memory registry for testing.
func OpenRegistry(path string) (*Registry, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to open registry", err)
	}

	// Single writer prevents SQLITE_BUSY under the one-pipeline model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to set pragma", err)
		}
	}

	if _, err := db.Exec(registrySchema); err != nil {
		_ = db.Close()
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to create schema", err)
	}

	return &Registry{db: db, path: path}, nil
}

// GetDocument returns the document row, or nil if unknown.
func (r *Registry) GetDocument(ctx context.Context, docID string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// AddVersion writes the document row and its current version in one
	// transaction, so the inner join never drops a document.
	row := r.db.QueryRowContext(ctx, `
		SELECT d.doc_id, d.normalized_stem, d.latest_filename, d.first_seen,
		       cv.uploaded_at, cv.version_num,
		       (SELECT COUNT(*) FROM versions v WHERE v.doc_id = d.doc_id)
		FROM documents d
		JOIN versions cv ON cv.doc_id = d.doc_id AND cv.is_current = 1
		WHERE d.doc_id = ?`, docID)

	var doc Document
	err := row.Scan(&doc.DocID, &doc.NormalizedStem, &doc.LatestFilename,
		&doc.FirstSeen, &doc.LastUploaded, &doc.CurrentVersion, &doc.VersionCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents, most recently uploaded first.
func (r *Registry) ListDocuments(ctx context.Context) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT d.doc_id, d.normalized_stem, d.latest_filename, d.first_seen,
		       cv.uploaded_at, cv.version_num,
		       (SELECT COUNT(*) FROM versions v WHERE v.doc_id = d.doc_id)
		FROM documents d
		JOIN versions cv ON cv.doc_id = d.doc_id AND cv.is_current = 1
		ORDER BY cv.uploaded_at DESC, d.latest_filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.DocID, &doc.NormalizedStem, &doc.LatestFilename,
			&doc.FirstSeen, &doc.LastUploaded, &doc.CurrentVersion, &doc.VersionCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CurrentVersion returns the current version of a document, or nil.
// RawText is included.
func (r *Registry) CurrentVersion(ctx context.Context, docID string) (*Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.scanVersion(r.db.QueryRowContext(ctx, `
		SELECT doc_id, version_num, filename, content_hash, word_count,
		       uploaded_at, superseded_at, is_current, diff_summary, raw_text
		FROM versions WHERE doc_id = ? AND is_current = 1`, docID))
}

func (r *Registry) scanVersion(row *sql.Row) (*Version, error) {
	var v Version
	var superseded sql.NullTime
	var current int
	err := row.Scan(&v.DocID, &v.VersionNum, &v.Filename, &v.ContentHash,
		&v.WordCount, &v.UploadedAt, &superseded, &current, &v.DiffSummary, &v.RawText)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}
	if superseded.Valid {
		t := superseded.Time
		v.SupersededAt = &t
	}
	v.IsCurrent = current == 1
	return &v, nil
}

// History returns all versions of a document, oldest first.
func (r *Registry) History(ctx context.Context, docID string) ([]Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT doc_id, version_num, filename, content_hash, word_count,
		       uploaded_at, superseded_at, is_current, diff_summary, raw_text
		FROM versions WHERE doc_id = ? ORDER BY version_num`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []Version
	for rows.Next() {
		var v Version
		var superseded sql.NullTime
		var current int
		if err := rows.Scan(&v.DocID, &v.VersionNum, &v.Filename, &v.ContentHash,
			&v.WordCount, &v.UploadedAt, &superseded, &current, &v.DiffSummary, &v.RawText); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		if superseded.Valid {
			t := superseded.Time
			v.SupersededAt = &t
		}
		v.IsCurrent = current == 1
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// AddVersion appends a new version and its chunks in one transaction:
// the previous current version is superseded, the new version becomes
// current, and the old current chunks are replaced. Returns the chunk
// IDs that were removed so the caller can tombstone their vectors.
func (r *Registry) AddVersion(ctx context.Context, stem string, v Version, chunks []ChunkRecord) (removed []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Upsert the document row.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, normalized_stem, latest_filename, first_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET latest_filename = excluded.latest_filename`,
		v.DocID, stem, v.Filename, v.UploadedAt)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to upsert document", err)
	}

	// Supersede the old current version.
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE versions SET is_current = 0, superseded_at = ?
		WHERE doc_id = ? AND is_current = 1`, now, v.DocID)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to supersede version", err)
	}

	// Collect chunk IDs being replaced.
	rows, err := tx.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE doc_id = ?`, v.DocID)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to query old chunks", err)
	}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to scan chunk id", err)
		}
		removed = append(removed, id)
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to iterate old chunks", err)
	}
	_ = rows.Close()

	if _, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, v.DocID); err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to delete old chunks", err)
	}

	// Insert the new version.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (doc_id, version_num, filename, content_hash, word_count,
			uploaded_at, superseded_at, is_current, diff_summary, raw_text)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 1, ?, ?)`,
		v.DocID, v.VersionNum, v.Filename, v.ContentHash, v.WordCount,
		v.UploadedAt, v.DiffSummary, v.RawText)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to insert version", err)
	}

	for _, ch := range chunks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (chunk_id, doc_id, version_num, position, text,
				start_sentence, end_sentence, token_count, boundary_similarity)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ch.ChunkID, ch.DocID, ch.VersionNum, ch.Position, ch.Text,
			ch.StartSentence, ch.EndSentence, ch.TokenCount, ch.BoundarySimilarity)
		if err != nil {
			return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to insert chunk", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to commit version", err)
	}
	return removed, nil
}

// CurrentChunks returns chunk records for the current versions of the
// given documents; with no docIDs, for every document. Ordered by doc
// then position.
func (r *Registry) CurrentChunks(ctx context.Context, docIDs []string) ([]ChunkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT c.chunk_id, c.doc_id, c.version_num, c.position, c.text,
		       c.start_sentence, c.end_sentence, c.token_count, c.boundary_similarity,
		       v.filename, v.uploaded_at
		FROM chunks c
		JOIN versions v ON v.doc_id = c.doc_id AND v.version_num = c.version_num
		WHERE v.is_current = 1`
	args := make([]any, 0, len(docIDs))
	if len(docIDs) > 0 {
		query += ` AND c.doc_id IN (?` + repeatPlaceholder(len(docIDs)-1) + `)`
		for _, id := range docIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY c.doc_id, c.position`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []ChunkRecord
	for rows.Next() {
		var ch ChunkRecord
		if err := rows.Scan(&ch.ChunkID, &ch.DocID, &ch.VersionNum, &ch.Position,
			&ch.Text, &ch.StartSentence, &ch.EndSentence, &ch.TokenCount,
			&ch.BoundarySimilarity, &ch.Filename, &ch.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		records = append(records, ch)
	}
	return records, rows.Err()
}

// DeleteDocument removes a document with all versions and chunks,
// returning the deleted chunk IDs for vector tombstoning.
func (r *Registry) DeleteDocument(ctx context.Context, docID string) (removed []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to query chunks", err)
	}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to scan chunk id", err)
		}
		removed = append(removed, id)
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to iterate chunks", err)
	}
	_ = rows.Close()

	for _, stmt := range []string{
		`DELETE FROM chunks WHERE doc_id = ?`,
		`DELETE FROM versions WHERE doc_id = ?`,
		`DELETE FROM documents WHERE doc_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, docID); err != nil {
			return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to delete document", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, perrs.New(perrs.ErrCodeRegistryWrite, "failed to commit delete", err)
	}
	return removed, nil
}

// Stats summarizes registry contents.
func (r *Registry) GetStats(ctx context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM versions),
			(SELECT COUNT(*) FROM chunks c JOIN versions v
				ON v.doc_id = c.doc_id AND v.version_num = c.version_num
				WHERE v.is_current = 1),
			(SELECT COALESCE(SUM(word_count), 0) FROM versions WHERE is_current = 1)`).
		Scan(&s.Documents, &s.Versions, &s.CurrentChunks, &s.TotalWords)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

// repeatPlaceholder returns n copies of ",?".
func repeatPlaceholder(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ',', '?')
	}
	return string(out)
}
