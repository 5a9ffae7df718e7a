package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/pensieve-kb/pensieve/internal/embed"
	"github.com/pensieve-kb/pensieve/internal/segment"
)

// Options configures the semantic chunker.
type Options struct {
	// BreakpointPercentile controls split sensitivity (0-100). A
	// boundary becomes a breakpoint when its smoothed similarity falls
	// below the (100 - percentile)th percentile of all boundaries.
	BreakpointPercentile float64

	// MinChunkWords merges smaller segments forward.
	MinChunkWords int

	// MaxChunkWords splits larger segments in half recursively.
	MaxChunkWords int

	// WindowSize is the number of sentences averaged on each side of a
	// boundary when computing smoothed similarity.
	WindowSize int
}

// DefaultOptions returns the standard chunking parameters.
func DefaultOptions() Options {
	return Options{
		BreakpointPercentile: 85,
		MinChunkWords:        80,
		MaxChunkWords:        400,
		WindowSize:           2,
	}
}

// SemanticChunker splits documents into topic-coherent chunks.
//
// The pipeline: segment into sentences, embed each sentence, compute
// windowed similarity across each boundary, pick breakpoints below the
// percentile threshold, partition, enforce size bounds, then embed the
// final chunk texts.
type SemanticChunker struct {
	opts     Options
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewSemanticChunker creates a chunker using the given embedder.
func NewSemanticChunker(embedder embed.Embedder, opts Options, logger *slog.Logger) *SemanticChunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticChunker{opts: opts, embedder: embedder, logger: logger}
}

// Chunk splits text into chunks for docID. An embedding failure aborts
// the whole call; no partial chunk set is ever returned.
func (c *SemanticChunker) Chunk(ctx context.Context, docID, text string) ([]Chunk, error) {
	sentences := segment.Sentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	if len(sentences) == 1 {
		return c.finalize(ctx, docID, []Chunk{
			newChunk(docID, 0, sentences, 0, 0, 1.0),
		})
	}

	embeddings, err := c.embedder.EmbedBatch(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sentences: %w", err)
	}

	similarities := c.windowedSimilarities(embeddings)
	breakpoints := c.detectBreakpoints(similarities)

	chunks := c.buildChunks(docID, sentences, breakpoints, similarities)
	chunks = c.mergeSmall(docID, chunks)
	chunks = c.splitLarge(docID, chunks)
	renumber(docID, chunks)

	c.logger.Debug("chunked document",
		slog.String("doc_id", docID),
		slog.Int("sentences", len(sentences)),
		slog.Int("breakpoints", len(breakpoints)),
		slog.Int("chunks", len(chunks)))

	return c.finalize(ctx, docID, chunks)
}

// windowedSimilarities computes, for each sentence boundary i|i+1, the
// cosine similarity between the mean embedding of up to WindowSize
// sentences before the boundary and the mean of up to WindowSize after.
func (c *SemanticChunker) windowedSimilarities(embeddings [][]float32) []float64 {
	n := len(embeddings)
	w := c.opts.WindowSize
	similarities := make([]float64, 0, n-1)

	for i := 0; i < n-1; i++ {
		start := i - w + 1
		if start < 0 {
			start = 0
		}
		end := i + w + 1
		if end > n {
			end = n
		}
		left := meanVector(embeddings[start : i+1])
		right := meanVector(embeddings[i+1 : end])
		similarities = append(similarities, cosineSimilarity(left, right))
	}
	return similarities
}

// detectBreakpoints returns sentence indices where a new chunk starts.
func (c *SemanticChunker) detectBreakpoints(similarities []float64) []int {
	if len(similarities) == 0 {
		return nil
	}
	threshold := percentile(similarities, 100-c.opts.BreakpointPercentile)

	var breakpoints []int
	for i, s := range similarities {
		if s < threshold {
			breakpoints = append(breakpoints, i+1)
		}
	}
	return breakpoints
}

// buildChunks partitions sentences into contiguous segments between
// breakpoints.
func (c *SemanticChunker) buildChunks(docID string, sentences []string, breakpoints []int, similarities []float64) []Chunk {
	var segments [][2]int
	prev := 0
	for _, bp := range breakpoints {
		segments = append(segments, [2]int{prev, bp})
		prev = bp
	}
	segments = append(segments, [2]int{prev, len(sentences)})

	chunks := make([]Chunk, 0, len(segments))
	for idx, seg := range segments {
		start, end := seg[0], seg[1]
		sim := 1.0
		if end-1 < len(similarities) {
			sim = similarities[end-1]
		}
		chunks = append(chunks, newChunk(docID, idx, sentences[start:end], start, end-1, sim))
	}
	return chunks
}

// mergeSmall merges chunks under MinChunkWords forward into the next
// chunk until acceptable. A trailing under-min run merges backward into
// the last emitted chunk, so only a single-chunk document may end up
// under the minimum.
func (c *SemanticChunker) mergeSmall(docID string, chunks []Chunk) []Chunk {
	var merged []Chunk
	var pending []string
	pendingStart := 0

	flushInto := func(next Chunk) Chunk {
		combined := append(append([]string{}, pending...), next.Sentences...)
		out := newChunk(docID, len(merged), combined, pendingStart, next.EndSentence, next.BoundarySimilarity)
		pending = nil
		return out
	}

	for _, ch := range chunks {
		if len(pending) > 0 {
			ch = flushInto(ch)
		}
		if ch.TokenCount < c.opts.MinChunkWords {
			pending = ch.Sentences
			pendingStart = ch.StartSentence
			continue
		}
		merged = append(merged, ch)
	}

	if len(pending) > 0 {
		if len(merged) > 0 {
			last := merged[len(merged)-1]
			combined := append(append([]string{}, last.Sentences...), pending...)
			merged[len(merged)-1] = newChunk(docID, len(merged)-1, combined,
				last.StartSentence, pendingStart+len(pending)-1, 1.0)
		} else {
			merged = append(merged, newChunk(docID, 0, pending,
				pendingStart, pendingStart+len(pending)-1, 1.0))
		}
	}

	return merged
}

// splitLarge splits chunks over MaxChunkWords in half by sentence
// count, recursively. A single over-long sentence cannot be split and
// is kept as-is.
func (c *SemanticChunker) splitLarge(docID string, chunks []Chunk) []Chunk {
	var final []Chunk
	var split func(ch Chunk)
	split = func(ch Chunk) {
		if ch.TokenCount <= c.opts.MaxChunkWords || len(ch.Sentences) <= 1 {
			final = append(final, ch)
			return
		}
		mid := len(ch.Sentences) / 2
		left := newChunk(docID, 0, ch.Sentences[:mid],
			ch.StartSentence, ch.StartSentence+mid-1, ch.BoundarySimilarity)
		right := newChunk(docID, 0, ch.Sentences[mid:],
			ch.StartSentence+mid, ch.EndSentence, ch.BoundarySimilarity)
		split(left)
		split(right)
	}

	for _, ch := range chunks {
		split(ch)
	}
	return final
}

// renumber reassigns strictly increasing chunk IDs after merging and
// splitting.
func renumber(docID string, chunks []Chunk) {
	for i := range chunks {
		chunks[i].ID = ChunkID(docID, i)
	}
}

// finalize embeds the final chunk texts and attaches the vectors.
func (c *SemanticChunker) finalize(ctx context.Context, docID string, chunks []Chunk) ([]Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	embeddings, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks for %s: %w", docID, err)
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return chunks, nil
}

// meanVector averages a set of vectors component-wise.
func meanVector(vecs [][]float32) []float64 {
	mean := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		for i, val := range v {
			mean[i] += float64(val)
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vecs))
	}
	return mean
}

// cosineSimilarity computes cosine similarity with a small epsilon to
// guard zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-9)
}

// percentile computes the p-th percentile with linear interpolation,
// matching the conventional definition over a sorted copy.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
