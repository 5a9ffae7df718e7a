package mcp

import (
	"errors"
	"fmt"

	perrs "github.com/pensieve-kb/pensieve/internal/errors"
)

// JSON-RPC error codes surfaced to MCP clients.
const (
	// ErrCodeDocumentNotFound indicates the requested document is not tracked.
	ErrCodeDocumentNotFound = -32001

	// ErrCodeEmbeddingFailed indicates the embedding provider failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeStorageFailed indicates the registry or vector index failed.
	ErrCodeStorageFailed = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// ProtocolError is an MCP protocol error with a JSON-RPC code.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an error for invalid tool parameters.
func NewInvalidParamsError(msg string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewDocumentNotFoundError creates an error for an unknown document.
func NewDocumentNotFoundError(ref string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeDocumentNotFound,
		Message: fmt.Sprintf("document not found: %s", ref),
	}
}

// MapError converts internal errors to protocol errors by category, so
// clients see a stable code rather than internal error strings.
func MapError(err error) *ProtocolError {
	if err == nil {
		return nil
	}

	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe
	}

	var ie *perrs.Error
	if errors.As(err, &ie) {
		switch ie.Category {
		case perrs.CategoryInput:
			return &ProtocolError{Code: ErrCodeInvalidParams, Message: ie.Message}
		case perrs.CategoryExternal:
			return &ProtocolError{Code: ErrCodeEmbeddingFailed, Message: ie.Message}
		case perrs.CategoryPersistence:
			return &ProtocolError{Code: ErrCodeStorageFailed, Message: ie.Message}
		}
	}

	return &ProtocolError{Code: ErrCodeInternalError, Message: err.Error()}
}
