package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"input code", ErrCodeEmptyContent, CategoryInput},
		{"external code", ErrCodeEmbeddingFailed, CategoryExternal},
		{"persistence code", ErrCodeRegistryWrite, CategoryPersistence},
		{"internal code", ErrCodeInternal, CategoryInternal},
		{"malformed code", "ERR", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_DerivesRetryableFromCode(t *testing.T) {
	assert.True(t, New(ErrCodeEmbeddingTimeout, "timeout", nil).Retryable,
		"external timeouts are retryable")
	assert.False(t, New(ErrCodeRegistryWrite, "write failed", nil).Retryable,
		"persistence failures are not retryable")
	assert.False(t, New(ErrCodeInvalidInput, "bad input", nil).Retryable)
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCodeRawTextWrite, cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), ErrCodeRawTextWrite)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeEmbeddingFailed, "first", nil)
	b := New(ErrCodeEmbeddingFailed, "second", nil)
	c := New(ErrCodeRegistryWrite, "other", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestIsRetryable_PlainErrorIsNot(t *testing.T) {
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ExternalError("embed failed", nil)))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(InternalError("x", nil)))
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
}
