package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	perrs "github.com/pensieve-kb/pensieve/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"

	// OllamaConnectTimeout bounds the initial reachability probe.
	OllamaConnectTimeout = 5 * time.Second

	// OllamaPoolSize is the HTTP connection pool size.
	OllamaPoolSize = 4
)

// FallbackOllamaModels are tried, in order, when the configured model
// is not installed.
var FallbackOllamaModels = []string{
	"nomic-embed-text",
	"mxbai-embed-large",
	"all-minilm",
}

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host            string
	Model           string
	Dimensions      int // 0 = auto-detect from first embedding
	BatchSize       int
	Timeout         time.Duration
	MaxRetries      int
	SkipHealthCheck bool // testing only
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	modelName string
	dims      int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// ollamaEmbedRequest is the /api/embed request body.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the /api/embed response body.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaModelInfo describes one installed model.
type ollamaModelInfo struct {
	Name string `json:"name"`
}

// ollamaModelListResponse is the /api/tags response body.
type ollamaModelListResponse struct {
	Models []ollamaModelInfo `json:"models"`
}

// NewOllamaEmbedder creates a new Ollama embedder, verifying the server
// is reachable and an embedding model is installed.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	transport := &http.Transport{
		MaxIdleConns:        OllamaPoolSize,
		MaxIdleConnsPerHost: OllamaPoolSize,
		MaxConnsPerHost:     OllamaPoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	// No client-level timeout: per-request context timeouts are used so
	// a slow batch does not inherit the connect probe's deadline.
	e := &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		modelName, err := e.findAvailableModel(checkCtx)
		if err != nil {
			transport.CloseIdleConnections()
			return nil, fmt.Errorf("failed to connect to Ollama or find model: %w", err)
		}
		e.modelName = modelName

		if cfg.Dimensions == 0 {
			dims, err := e.detectDimensions(checkCtx)
			if err != nil {
				transport.CloseIdleConnections()
				return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
			}
			e.dims = dims
		}
	}

	if e.dims == 0 {
		e.dims = DefaultDimensions
	}

	return e, nil
}

// findAvailableModel returns the configured model if installed, else
// the first installed fallback.
func (e *OllamaEmbedder) findAvailableModel(ctx context.Context) (string, error) {
	models, err := e.listModels(ctx)
	if err != nil {
		return "", err
	}

	available := make(map[string]string) // normalized -> actual
	for _, m := range models {
		name := strings.ToLower(m.Name)
		available[name] = m.Name
		base := strings.Split(name, ":")[0]
		if _, exists := available[base]; !exists {
			available[base] = m.Name
		}
	}

	candidates := append([]string{e.config.Model}, FallbackOllamaModels...)
	for _, c := range candidates {
		lower := strings.ToLower(c)
		if actual, ok := available[lower]; ok {
			if !strings.EqualFold(actual, e.config.Model) {
				slog.Warn("configured embedding model not installed, using fallback",
					slog.String("configured", e.config.Model),
					slog.String("using", actual))
			}
			return actual, nil
		}
		base := strings.Split(lower, ":")[0]
		if actual, ok := available[base]; ok {
			return actual, nil
		}
	}

	return "", fmt.Errorf("no embedding model installed (tried %s and fallbacks)", e.config.Model)
}

// listModels gets installed models from Ollama.
func (e *OllamaEmbedder) listModels(ctx context.Context) ([]ollamaModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result ollamaModelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Models, nil
}

// detectDimensions embeds a probe string and reads the vector length.
func (e *OllamaEmbedder) detectDimensions(ctx context.Context) (int, error) {
	vecs, err := e.doEmbed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("empty embedding in probe response")
	}
	return len(vecs[0]), nil
}

// Embed generates an embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting the
// input into configured batch sizes.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := e.doEmbedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, vecs...)
	}

	return results, nil
}

// doEmbedWithRetry retries transient failures with exponential backoff.
func (e *OllamaEmbedder) doEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			slog.Debug("retrying embedding request",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		vecs, err := e.doEmbed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		// Context cancellation from the caller is not retryable.
		if ctx.Err() != nil {
			break
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, perrs.New(perrs.ErrCodeEmbeddingTimeout,
			fmt.Sprintf("embedding request timed out after %d attempts", e.config.MaxRetries), lastErr)
	}
	return nil, perrs.New(perrs.ErrCodeEmbeddingFailed,
		fmt.Sprintf("embedding request failed after %d attempts", e.config.MaxRetries), lastErr)
}

// doEmbed performs one /api/embed call for a batch of texts.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.modelName, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, vec := range result.Embeddings {
		if e.dims != 0 && len(vec) != e.dims {
			return nil, perrs.New(perrs.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected %d dimensions, got %d", e.dims, len(vec)), nil)
		}
		out[i] = normalizeVector(vec)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the resolved model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.modelName
}

// Available checks if the Ollama server is reachable.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	probeCtx, cancel := context.WithTimeout(ctx, OllamaConnectTimeout)
	defer cancel()

	_, err := e.listModels(probeCtx)
	return err == nil
}

// Close releases HTTP resources.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
