package search

import (
	"math"
	"sort"
)

// Standard Okapi BM25 defaults.
const (
	DefaultBM25K1 = 1.5
	DefaultBM25B  = 0.75
)

// BM25Index is an ephemeral lexical index over one retrieval scope.
// It is rebuilt per query from the scope's chunk texts rather than
// maintained incrementally, which keeps lexical and dense results
// consistent under per-query filtering. At personal-library scale the
// rebuild cost is negligible.
type BM25Index struct {
	k1 float64
	b  float64

	ids   []string
	tf    []map[string]float64
	df    map[string]int
	avgDL float64
	n     int
}

// NewBM25Index creates an empty index with the given parameters.
// Non-positive k1 and out-of-range b fall back to the defaults.
func NewBM25Index(k1, b float64) *BM25Index {
	if k1 <= 0 {
		k1 = DefaultBM25K1
	}
	if b < 0 || b > 1 {
		b = DefaultBM25B
	}
	return &BM25Index{k1: k1, b: b, df: make(map[string]int)}
}

// Fit indexes the scope: one entry per chunk, ids[i] labeling texts[i].
// Any previous contents are discarded.
func (idx *BM25Index) Fit(ids, texts []string) {
	idx.ids = ids
	idx.n = len(texts)
	idx.tf = make([]map[string]float64, 0, len(texts))
	idx.df = make(map[string]int)

	totalLen := 0
	for _, text := range texts {
		tokens := Tokenize(text)
		totalLen += len(tokens)

		freq := make(map[string]float64, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		idx.tf = append(idx.tf, freq)
		for tok := range freq {
			idx.df[tok]++
		}
	}

	if idx.n > 0 {
		idx.avgDL = float64(totalLen) / float64(idx.n)
	}
}

// Search returns up to k chunks ranked by BM25 score descending.
// Only positive scores are returned: a non-match yields no entry, not
// a zero-score entry. Ties break lexicographically by chunk id.
func (idx *BM25Index) Search(query string, k int) []RankedResult {
	if idx.n == 0 {
		return nil
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var results []RankedResult
	for i, tfMap := range idx.tf {
		var dl float64
		for _, f := range tfMap {
			dl += f
		}

		var score float64
		for _, tok := range queryTokens {
			tf, ok := tfMap[tok]
			if !ok {
				continue
			}
			df := float64(idx.df[tok])
			idf := math.Log((float64(idx.n)-df+0.5)/(df+0.5) + 1)
			score += idf * tf * (idx.k1 + 1) / (tf + idx.k1*(1-idx.b+idx.b*dl/idx.avgDL))
		}

		if score > 0 {
			results = append(results, RankedResult{ChunkID: idx.ids[i], Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
