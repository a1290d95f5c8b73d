package rpgerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ExternalFailure, "embedding request failed")
	require.Error(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "ExternalFailure")
	assert.Contains(t, err.Error(), "boom")
}

func TestWrapNilReturnsNil(t *testing.T) {
	var err error
	wrapped := Wrap(err, StoreFailure, "should not happen")
	assert.Nil(t, wrapped)
}

func TestIsMatchesOnKindOnly(t *testing.T) {
	a := New(NotFound, "node missing")
	b := New(NotFound, "different message, same kind")
	c := New(InvalidInput, "bad path")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind      Kind
		retryable bool
	}{
		{ExternalFailure, true},
		{InvalidInput, false},
		{NotFound, false},
		{ParseFailure, false},
		{StoreFailure, false},
		{SchemaMismatch, false},
	}
	for _, tc := range cases {
		err := New(tc.kind, "msg")
		assert.Equal(t, tc.retryable, err.Retryable(), tc.kind.String())
	}
}

func TestWithContext(t *testing.T) {
	err := New(ParseFailure, "bad syntax").WithContext("file", "a.go").WithContext("line", 42)
	assert.Equal(t, "a.go", err.Context["file"])
	assert.Equal(t, 42, err.Context["line"])
}

func TestKindOf(t *testing.T) {
	k, ok := KindOf(New(SchemaMismatch, "old version"))
	assert.True(t, ok)
	assert.Equal(t, SchemaMismatch, k)

	_, ok = KindOf(errors.New("plain error"))
	assert.False(t, ok)
}
