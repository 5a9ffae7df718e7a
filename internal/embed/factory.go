package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Options selects and configures an embedding provider.
type Options struct {
	// Provider is "ollama", "static", or "" for auto-detection.
	Provider   string
	Model      string
	Host       string
	Dimensions int
	BatchSize  int
	CacheSize  int
	Timeout    time.Duration
}

// New creates an Embedder per the options, wrapped in an LRU cache.
// With an empty provider it auto-detects: Ollama when reachable,
// otherwise the static embedder.
func New(ctx context.Context, opts Options) (Embedder, error) {
	inner, err := newProvider(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, opts.CacheSize), nil
}

func newProvider(ctx context.Context, opts Options) (Embedder, error) {
	switch strings.ToLower(opts.Provider) {
	case "static":
		return NewStaticEmbedder(), nil

	case "ollama":
		return NewOllamaEmbedder(ctx, ollamaConfig(opts))

	case "":
		ollama, err := NewOllamaEmbedder(ctx, ollamaConfig(opts))
		if err == nil {
			slog.Info("using ollama embedder",
				slog.String("model", ollama.ModelName()),
				slog.Int("dimensions", ollama.Dimensions()))
			return ollama, nil
		}
		slog.Warn("ollama unavailable, falling back to static embedder",
			slog.String("error", err.Error()))
		return NewStaticEmbedder(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}

func ollamaConfig(opts Options) OllamaConfig {
	return OllamaConfig{
		Host:       opts.Host,
		Model:      opts.Model,
		Dimensions: opts.Dimensions,
		BatchSize:  opts.BatchSize,
		Timeout:    opts.Timeout,
	}
}
