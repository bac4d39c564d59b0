package execlog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/backend"
)

func TestRecorderRoundTripsThroughNativeBackendKV(t *testing.T) {
	b := backend.NewNativeBackend()
	r := New(b)

	rec, err := r.Start("0.1.0", []string{"magellan", "index", "."}, "/proj", "/proj/.magellan.db")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ExecutionID)

	got, ok, err := r.Get(rec.ExecutionID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, OutcomeRunning, got.Outcome)

	require.NoError(t, r.Finish(rec, OutcomeSuccess, nil, 3, 10, 4))

	got, ok, err = r.Get(rec.ExecutionID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, OutcomeSuccess, got.Outcome)
	require.Equal(t, 3, got.FileCount)
	require.False(t, got.FinishedAt.IsZero())
}

func TestRecorderRecordsFailureOutcomeWithErrorMessage(t *testing.T) {
	b := backend.NewNativeBackend()
	r := New(b)

	rec, err := r.Start("0.1.0", nil, "/proj", "/proj/.magellan.db")
	require.NoError(t, err)

	require.NoError(t, r.Finish(rec, OutcomeFailure, errors.New("parse failed"), 0, 0, 0))

	got, ok, err := r.Get(rec.ExecutionID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, OutcomeFailure, got.Outcome)
	require.Equal(t, "parse failed", got.ErrorMessage)
}

func TestRecorderRoundTripsThroughRelationalBackendTable(t *testing.T) {
	dir := t.TempDir()
	rb, err := backend.OpenRelationalBackend(filepath.Join(dir, "magellan.db"))
	require.NoError(t, err)
	defer rb.Close()

	r := New(rb)
	rec, err := r.Start("0.1.0", []string{"magellan", "query"}, "/proj", "/proj/.magellan.db")
	require.NoError(t, err)

	require.NoError(t, r.Finish(rec, OutcomeSuccess, nil, 1, 2, 3))

	got, ok, err := r.Get(rec.ExecutionID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, OutcomeSuccess, got.Outcome)
	require.Equal(t, []string{"magellan", "query"}, got.Args)
}
