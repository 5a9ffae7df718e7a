package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/pensieve-kb/pensieve/internal/search"
)

// HNSWStore implements VectorStore on coder/hnsw (pure Go, no CGO).
//
// Deletion is lazy: removing an ID only drops its key mapping, leaving
// an orphan node in the graph that can never surface in results.
// Orphans are reclaimed when the store is next rebuilt from scratch.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorStoreConfig

	idMap   map[string]uint64 // chunk ID -> internal key
	keyMap  map[uint64]string // internal key -> chunk ID
	nextKey uint64

	closed bool
}

var _ VectorStore = (*HNSWStore)(nil)

// hnswMetadata is the gob sidecar persisted next to the graph.
type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  VectorStoreConfig
}

// NewHNSWStore creates an empty HNSW vector store.
func NewHNSWStore(cfg VectorStoreConfig) (*HNSWStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWStore{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}, nil
}

// Add inserts vectors with their IDs. An existing ID is replaced via
// lazy deletion of the old node.
func (s *HNSWStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		if existingKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if s.config.Metric == "cos" {
			normalizeInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}

	return nil
}

// SearchVector finds up to k nearest live vectors. The filter, when
// non-nil, restricts results by chunk ID; the graph is over-searched
// until k survivors are found or the graph is exhausted, so tombstoned
// and filtered-out nodes never shrink the result set prematurely.
func (s *HNSWStore) SearchVector(ctx context.Context, query []float32, k int, filter func(chunkID string) bool) ([]search.RankedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if s.graph.Len() == 0 || k <= 0 {
		return []search.RankedResult{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	if s.config.Metric == "cos" {
		normalizeInPlace(normalized)
	}

	fetchK := k
	for {
		nodes := s.graph.Search(normalized, fetchK)

		results := make([]search.RankedResult, 0, k)
		for _, node := range nodes {
			id, live := s.keyMap[node.Key]
			if !live {
				continue // tombstoned
			}
			if filter != nil && !filter(id) {
				continue
			}
			distance := s.graph.Distance(normalized, node.Value)
			results = append(results, search.RankedResult{
				ChunkID: id,
				Score:   distanceToScore(distance, s.config.Metric),
			})
			if len(results) == k {
				return results, nil
			}
		}

		if fetchK >= s.graph.Len() {
			return results, nil
		}
		fetchK *= 2
	}
}

// Delete tombstones vectors by ID.
func (s *HNSWStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}
	return nil
}

// Contains reports whether id is live.
func (s *HNSWStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	_, exists := s.idMap[id]
	return exists
}

// Count returns the number of live vectors.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// HNSWStats reports live versus orphaned graph nodes.
type HNSWStats struct {
	LiveIDs    int
	GraphNodes int
	Orphans    int
}

// Stats returns store statistics. A high orphan count suggests the
// store is due for a rebuild.
func (s *HNSWStore) Stats() HNSWStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return HNSWStats{}
	}
	return HNSWStats{
		LiveIDs:    len(s.idMap),
		GraphNodes: s.graph.Len(),
		Orphans:    s.graph.Len() - len(s.idMap),
	}
}

// Save persists the graph and its ID-mapping sidecar atomically
// (temp file + rename).
func (s *HNSWStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	return s.saveMetadata(path + ".meta")
}

func (s *HNSWStore) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}

	meta := hnswMetadata{
		IDMap:   s.idMap,
		NextKey: s.nextKey,
		Config:  s.config,
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores the graph and sidecar from disk.
func (s *HNSWStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if err := s.loadMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}
	return nil
}

func (s *HNSWStore) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	s.idMap = meta.IDMap
	s.nextKey = meta.NextKey
	s.config = meta.Config
	s.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return nil
}

// Close releases resources.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// ReadStoredDimensions reads the dimension from an existing store's
// sidecar. Returns 0 when no sidecar exists (fresh start).
func ReadStoredDimensions(vectorPath string) (int, error) {
	file, err := os.Open(vectorPath + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer func() { _ = file.Close() }()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return 0, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return meta.Config.Dimensions, nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore converts distance to a 0-1 similarity score.
func distanceToScore(distance float32, metric string) float64 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + float64(distance))
	default:
		// Cosine distance ranges 0 (identical) to 2 (opposite).
		return 1.0 - float64(distance)/2.0
	}
}
