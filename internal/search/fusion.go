package search

import (
	"sort"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI
// Search, OpenSearch, and others).
const DefaultRRFConstant = 60

// RRFFusion combines lexical and dense rankings using Reciprocal Rank
// Fusion:
//
//	RRF_score(c) = Σ over every list containing c of 1/(K + rank)
//
// with rank 1-indexed. Chunks absent from a list simply contribute
// nothing for it, so appearing in both lists always scores strictly
// higher than appearing in either alone. Rank-based merging sidesteps
// calibrating two incomparable score scales.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates an RRF fusion instance with default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates an RRF fusion with a custom k.
// Non-positive k falls back to the default.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse merges the two rankings. Both empty yields an empty slice, not
// an error: it signals "no relevant content".
//
// Results sort by RRFScore (desc), then InBothLists (true first), then
// BM25Score (desc), then ChunkID (asc) for determinism.
func (f *RRFFusion) Fuse(bm25, vec []RankedResult) []*FusedResult {
	if len(bm25) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}

	scores := make(map[string]*FusedResult, len(bm25)+len(vec))

	for rank, r := range bm25 {
		fr := f.getOrCreate(scores, r.ChunkID)
		fr.BM25Score = r.Score
		fr.BM25Rank = rank + 1
		fr.RRFScore += 1 / float64(f.K+rank+1)
	}

	for rank, r := range vec {
		fr := f.getOrCreate(scores, r.ChunkID)
		fr.VecScore = r.Score
		fr.VecRank = rank + 1
		fr.RRFScore += 1 / float64(f.K+rank+1)

		if fr.BM25Rank > 0 {
			fr.InBothLists = true
		}
	}

	results := make([]*FusedResult, 0, len(scores))
	for _, r := range scores {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.less(results[i], results[j])
	})

	return results
}

// less implements the deterministic result ordering.
func (f *RRFFusion) less(a, b *FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}
	if a.BM25Score != b.BM25Score {
		return a.BM25Score > b.BM25Score
	}
	return a.ChunkID < b.ChunkID
}

func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{ChunkID: id}
	m[id] = r
	return r
}
