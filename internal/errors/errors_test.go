package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendErrorUnwrap(t *testing.T) {
	underlying := errors.New("disk full")
	err := NewBackendError("insert_node", underlying)

	assert.Equal(t, KindBackendIO, err.Kind())
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "insert_node")
}

func TestSchemaMismatchError(t *testing.T) {
	err := &SchemaMismatchError{Component: "magellan", Found: 4, Expected: 6}
	assert.Contains(t, err.Error(), "rebuild")
	assert.Equal(t, KindSchemaMismatch, err.Kind())
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("symbol", "pkg::Foo")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "symbol", nf.Entity)
}

func TestMultiErrorFiltersNil(t *testing.T) {
	e1 := errors.New("a")
	merged := NewMultiError([]error{nil, e1, nil})
	require.NotNil(t, merged)
	assert.Len(t, merged.Errors, 1)
	assert.Equal(t, "a", merged.Error())
}

func TestMultiErrorAllNilReturnsNil(t *testing.T) {
	assert.Nil(t, NewMultiError([]error{nil, nil}))
}

func TestMultiErrorMessage(t *testing.T) {
	merged := NewMultiError([]error{errors.New("a"), errors.New("b")})
	assert.Contains(t, merged.Error(), "2 errors")
}
