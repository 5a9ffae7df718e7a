package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pensieve-kb/pensieve/internal/chunk"
	"github.com/pensieve-kb/pensieve/internal/config"
	"github.com/pensieve-kb/pensieve/internal/embed"
	"github.com/pensieve-kb/pensieve/internal/ingest"
	"github.com/pensieve-kb/pensieve/internal/search"
	"github.com/pensieve-kb/pensieve/internal/store"
	"github.com/pensieve-kb/pensieve/internal/temporal"
)

// Library file names inside the data directory.
const (
	registryFile = "registry.db"
	vectorFile   = "vectors.hnsw"
)

// app wires the full stack for one command invocation: config,
// embedder, registry, vector index, and the services on top of them.
type app struct {
	cfg      *config.Config
	embedder embed.Embedder
	registry *store.Registry
	vectors  *store.HNSWStore
	manager  *temporal.Manager
	engine   *search.Engine
	pipeline *ingest.Pipeline
	logger   *slog.Logger
}

// loadConfig resolves configuration from .pensieve.yaml, environment,
// and the --data-dir flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.Library.DataDir = flagDataDir
	}
	return cfg, nil
}

// openApp builds the full application stack. The caller must Close it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dataDir := cfg.Library.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	logger := slog.Default()

	embedder, err := embed.New(ctx, embed.Options{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.Host,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	vectorPath := filepath.Join(dataDir, vectorFile)
	vectors, err := openVectors(vectorPath, embedder.Dimensions())
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	registry, err := store.OpenRegistry(filepath.Join(dataDir, registryFile))
	if err != nil {
		_ = vectors.Close()
		_ = embedder.Close()
		return nil, err
	}

	manager := temporal.NewManager(registry, logger)
	chunker := chunk.NewSemanticChunker(embedder, chunk.Options{
		BreakpointPercentile: cfg.Chunking.BreakpointPercentile,
		MinChunkWords:        cfg.Chunking.MinChunkWords,
		MaxChunkWords:        cfg.Chunking.MaxChunkWords,
		WindowSize:           cfg.Chunking.WindowSize,
	}, logger)

	engine := search.NewEngine(embedder, vectors, search.Options{
		BM25K1:      cfg.Search.BM25K1,
		BM25B:       cfg.Search.BM25B,
		RRFConstant: cfg.Search.RRFConstant,
		MaxResults:  cfg.Search.MaxResults,
		MinScore:    cfg.Search.MinScore,
	}, logger)

	pipeline := ingest.NewPipeline(chunker, manager, vectors, dataDir, vectorPath, logger)

	return &app{
		cfg:      cfg,
		embedder: embedder,
		registry: registry,
		vectors:  vectors,
		manager:  manager,
		engine:   engine,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// openVectors loads the persisted vector index, or starts an empty one
// on first run. A dimension mismatch means the index was built with a
// different embedding model and cannot be reused.
func openVectors(path string, dims int) (*store.HNSWStore, error) {
	vectors, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: dims})
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(path); statErr != nil {
		return vectors, nil // first run
	}

	stored, err := store.ReadStoredDimensions(path)
	if err != nil {
		_ = vectors.Close()
		return nil, fmt.Errorf("vector index %s is unreadable: %w", path, err)
	}
	if stored != dims {
		_ = vectors.Close()
		return nil, fmt.Errorf(
			"vector index %s was built with %d-dimension embeddings but the current embedder produces %d; delete the index and re-add your documents",
			path, stored, dims)
	}

	if err := vectors.Load(path); err != nil {
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to load vector index %s: %w", path, err)
	}
	return vectors, nil
}

// vectorPath returns where this app persists its vector index.
func (a *app) vectorPath() string {
	return filepath.Join(a.cfg.Library.DataDir, vectorFile)
}

// Close releases all resources in reverse dependency order.
func (a *app) Close() {
	if a.registry != nil {
		_ = a.registry.Close()
	}
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}

// watchDebounce parses the configured debounce window.
func (a *app) watchDebounce() time.Duration {
	d, err := time.ParseDuration(a.cfg.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
