// Package errors provides structured error handling for Pensieve.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Input errors (empty or unsupported content)
//   - 2XX: External capability errors (embedding, vector search)
//   - 3XX: Persistence errors (registry, raw text, index files)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryInput indicates bad caller input; nothing was committed.
	CategoryInput Category = "INPUT"
	// CategoryExternal indicates an external capability failed (embedder, vector store).
	CategoryExternal Category = "EXTERNAL"
	// CategoryPersistence indicates registry or blob persistence failed.
	CategoryPersistence Category = "PERSISTENCE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Input errors (100-199)
	ErrCodeEmptyContent = "ERR_101_EMPTY_CONTENT"
	ErrCodeInvalidInput = "ERR_102_INVALID_INPUT"
	ErrCodeEmptyQuery   = "ERR_103_EMPTY_QUERY"

	// External capability errors (200-299)
	ErrCodeEmbeddingFailed   = "ERR_201_EMBEDDING_FAILED"
	ErrCodeEmbeddingTimeout  = "ERR_202_EMBEDDING_TIMEOUT"
	ErrCodeVectorSearch      = "ERR_203_VECTOR_SEARCH_FAILED"
	ErrCodeDimensionMismatch = "ERR_204_DIMENSION_MISMATCH"

	// Persistence errors (300-399)
	ErrCodeRegistryWrite = "ERR_301_REGISTRY_WRITE"
	ErrCodeRawTextWrite  = "ERR_302_RAW_TEXT_WRITE"
	ErrCodeIndexWrite    = "ERR_303_INDEX_WRITE"
	ErrCodeStoreCorrupt  = "ERR_304_STORE_CORRUPT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from the numeric portion of an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryInput
	case '2':
		return CategoryExternal
	case '3':
		return CategoryPersistence
	default:
		return CategoryInternal
	}
}

// isRetryableCode checks if an error code represents a retryable error.
// External capability failures are retryable; a timeout is a retryable
// failure, not corruption (nothing is committed before the final persist).
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeEmbeddingTimeout, ErrCodeVectorSearch:
		return true
	default:
		return false
	}
}
