package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/config"
	"github.com/oldnordic/magellan-go/internal/graphops"
	"github.com/oldnordic/magellan-go/internal/ingest"
	"github.com/oldnordic/magellan-go/internal/query"
)

const sampleGo = `package sample

func Helper() int {
	return 1
}

func Caller() int {
	return Helper()
}
`

func testConfig(root string) *config.Config {
	return &config.Config{
		Project: config.Project{Root: root},
		Index:   config.Index{RespectGitignore: false},
		Performance: config.Performance{
			ParallelFileWorkers: 2,
		},
	}
}

func TestDirtySetInsertAndDrainIsSortedAndDeduped(t *testing.T) {
	d := NewDirtySet()
	d.Insert("b.go", "a.go", "b.go")

	select {
	case <-d.Wakeup():
	default:
		t.Fatal("expected wakeup to be signaled")
	}

	require.Equal(t, []string{"a.go", "b.go"}, d.Drain())
	require.Nil(t, d.Drain())
}

func TestReconcilerIndexesThenDeletesFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(sampleGo), 0o644))

	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)
	e := ingest.NewEngine()
	ops := graphops.New(e, cs, testConfig(root), nil)
	q := query.New(b)

	dirty := NewDirtySet()
	var notified []string
	r := New(b, ops, testConfig(root), dirty, func(p string) { notified = append(notified, p) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	dirty.Insert(path)
	require.Eventually(t, func() bool {
		syms, err := q.SymbolsInFile(path, "")
		return err == nil && len(syms) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	dirty.Insert(path)
	require.Eventually(t, func() bool {
		syms, err := q.SymbolsInFile(path, "")
		return err == nil && len(syms) == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.Contains(t, notified, path)

	cancel()
	_ = <-done
}

func TestReconcilerShutdownStopsLoopAfterCurrentBatch(t *testing.T) {
	root := t.TempDir()
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)
	e := ingest.NewEngine()
	ops := graphops.New(e, cs, testConfig(root), nil)

	dirty := NewDirtySet()
	r := New(b, ops, testConfig(root), dirty, nil)

	r.Shutdown()
	require.NoError(t, r.Run(context.Background()))
}
