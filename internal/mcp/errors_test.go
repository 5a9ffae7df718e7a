package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	perrs "github.com/pensieve-kb/pensieve/internal/errors"
)

func TestMapError_Categories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil stays nil", nil, 0},
		{"input maps to invalid params", perrs.New(perrs.ErrCodeEmptyQuery, "empty", nil), ErrCodeInvalidParams},
		{"external maps to embedding failed", perrs.New(perrs.ErrCodeEmbeddingTimeout, "timeout", nil), ErrCodeEmbeddingFailed},
		{"persistence maps to storage failed", perrs.New(perrs.ErrCodeIndexWrite, "disk", nil), ErrCodeStorageFailed},
		{"unknown maps to internal", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			if tt.err == nil {
				assert.Nil(t, mapped)
				return
			}
			assert.Equal(t, tt.code, mapped.Code)
		})
	}
}

func TestMapError_PassesProtocolErrorsThrough(t *testing.T) {
	orig := NewInvalidParamsError("bad input")
	assert.Same(t, orig, MapError(orig))
}
