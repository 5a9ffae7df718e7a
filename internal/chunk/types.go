// Package chunk groups sentences into topic-coherent chunks using
// embedding similarity between adjacent sentence windows.
package chunk

import (
	"fmt"
	"strings"
	"time"
)

// Chunk is an immutable retrieval unit: a contiguous run of sentences
// from one document.
type Chunk struct {
	// ID has the form {doc_id}_chunk_0000, strictly increasing within
	// a document.
	ID string `json:"chunk_id"`

	// Text is the chunk's sentences joined by single spaces.
	Text string `json:"text"`

	// Sentences are the chunk's sentences in document order.
	Sentences []string `json:"sentences"`

	// StartSentence and EndSentence are inclusive indices into the
	// document's sentence sequence.
	StartSentence int `json:"start_sentence_idx"`
	EndSentence   int `json:"end_sentence_idx"`

	// TokenCount is the whitespace word count of Text.
	TokenCount int `json:"token_count"`

	// BoundarySimilarity is the smoothed similarity between this chunk's
	// last sentence and the next chunk's first. 1.0 for the final chunk.
	BoundarySimilarity float64 `json:"boundary_similarity"`

	// Embedding is the unit-length vector for Text.
	Embedding []float32 `json:"-"`

	// Filename, VersionNum, and UploadedAt identify the document
	// version the chunk belongs to. They are filled when chunks are
	// read back from the registry; the chunker leaves them zero
	// because version numbers are assigned at registration.
	Filename   string    `json:"filename,omitempty"`
	VersionNum int       `json:"version,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// newChunk builds a chunk from a sentence run.
func newChunk(docID string, idx int, sentences []string, start, end int, similarity float64) Chunk {
	text := strings.Join(sentences, " ")
	return Chunk{
		ID:                 ChunkID(docID, idx),
		Text:               text,
		Sentences:          sentences,
		StartSentence:      start,
		EndSentence:        end,
		TokenCount:         len(strings.Fields(text)),
		BoundarySimilarity: similarity,
	}
}

// ChunkID formats a chunk identifier.
func ChunkID(docID string, idx int) string {
	return fmt.Sprintf("%s_chunk_%04d", docID, idx)
}
