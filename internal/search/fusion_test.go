package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse_BothEmptyIsEmpty(t *testing.T) {
	f := NewRRFFusion()
	results := f.Fuse(nil, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFuse_BothListsScoreStrictlyHigher(t *testing.T) {
	f := NewRRFFusion()

	bm25 := []RankedResult{{ChunkID: "both", Score: 5}, {ChunkID: "lex-only", Score: 3}}
	vec := []RankedResult{{ChunkID: "both", Score: 0.9}, {ChunkID: "dense-only", Score: 0.8}}

	fused := f.Fuse(bm25, vec)
	require.Len(t, fused, 3)

	byID := make(map[string]*FusedResult)
	for _, r := range fused {
		byID[r.ChunkID] = r
	}

	bothAloneLex := f.Fuse(bm25, nil)
	bothAloneDense := f.Fuse(nil, vec)
	assert.Greater(t, byID["both"].RRFScore, bothAloneLex[0].RRFScore)
	assert.Greater(t, byID["both"].RRFScore, bothAloneDense[0].RRFScore)

	assert.Equal(t, "both", fused[0].ChunkID)
	assert.True(t, byID["both"].InBothLists)
	assert.False(t, byID["lex-only"].InBothLists)
}

func TestFuse_SingleListPreservesOrder(t *testing.T) {
	f := NewRRFFusion()

	vec := []RankedResult{
		{ChunkID: "first", Score: 0.9},
		{ChunkID: "second", Score: 0.7},
		{ChunkID: "third", Score: 0.5},
	}

	fused := f.Fuse(nil, vec)
	require.Len(t, fused, 3)
	assert.Equal(t, "first", fused[0].ChunkID)
	assert.Equal(t, "second", fused[1].ChunkID)
	assert.Equal(t, "third", fused[2].ChunkID)
}

func TestFuse_ScoreFormula(t *testing.T) {
	f := NewRRFFusionWithK(60)

	bm25 := []RankedResult{{ChunkID: "c1", Score: 2}}
	vec := []RankedResult{{ChunkID: "c2", Score: 0.5}, {ChunkID: "c1", Score: 0.4}}

	fused := f.Fuse(bm25, vec)
	byID := make(map[string]*FusedResult)
	for _, r := range fused {
		byID[r.ChunkID] = r
	}

	// c1: rank 1 lexical + rank 2 dense.
	assert.InDelta(t, 1.0/61+1.0/62, byID["c1"].RRFScore, 1e-12)
	// c2: rank 1 dense only.
	assert.InDelta(t, 1.0/61, byID["c2"].RRFScore, 1e-12)
}

func TestFuse_PreservesOriginalScoresAndRanks(t *testing.T) {
	f := NewRRFFusion()

	bm25 := []RankedResult{{ChunkID: "c1", Score: 4.2}}
	vec := []RankedResult{{ChunkID: "c1", Score: 0.83}}

	fused := f.Fuse(bm25, vec)
	require.Len(t, fused, 1)
	assert.Equal(t, 4.2, fused[0].BM25Score)
	assert.Equal(t, 1, fused[0].BM25Rank)
	assert.Equal(t, 0.83, fused[0].VecScore)
	assert.Equal(t, 1, fused[0].VecRank)
}

func TestFuse_DeterministicTieBreak(t *testing.T) {
	f := NewRRFFusion()

	// Same rank in opposite lists: identical RRF score, neither in both.
	bm25 := []RankedResult{{ChunkID: "zeta", Score: 1}}
	vec := []RankedResult{{ChunkID: "alpha", Score: 1}}

	fused := f.Fuse(bm25, vec)
	require.Len(t, fused, 2)
	// BM25 score breaks the tie before chunk id.
	assert.Equal(t, "zeta", fused[0].ChunkID)
}

func TestNewRRFFusionWithK_FallsBack(t *testing.T) {
	assert.Equal(t, DefaultRRFConstant, NewRRFFusionWithK(0).K)
	assert.Equal(t, 30, NewRRFFusionWithK(30).K)
}
