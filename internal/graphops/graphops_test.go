package graphops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/config"
	"github.com/oldnordic/magellan-go/internal/ingest"
)

func newTestOperations(cfg *config.Config) (*Operations, backend.Backend) {
	b := backend.NewNativeBackend()
	cs := chunkstore.New(b)
	e := ingest.NewEngine()
	return New(e, cs, cfg, nil), b
}

func testConfig() *config.Config {
	return &config.Config{
		Index:   config.Index{MaxFileSize: 10 * 1024 * 1024, RespectGitignore: false},
		Include: []string{},
		Exclude: []string{"**/vendor/**"},
	}
}

const sampleGo = `package sample

func Helper() int {
	return 1
}

func Caller() int {
	return Helper()
}
`

func TestIndexFileAndDeleteFile(t *testing.T) {
	ops, b := newTestOperations(testConfig())

	n, err := ops.IndexFile(b, "sample.go", []byte(sampleGo))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = ops.IndexFile(b, "sample.go", []byte(sampleGo))
	require.NoError(t, err)
	require.Equal(t, 0, n) // unchanged hash: idempotent no-op

	require.NoError(t, ops.DeleteFile(b, "sample.go"))
	ids, err := b.EntityIDs()
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIndexReferencesAndCallsSplit(t *testing.T) {
	ops, b := newTestOperations(testConfig())

	symbols, err := ops.engine.IndexFile(b, ops.chunks, "sample.go", []byte(sampleGo))
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	refs, err := ops.IndexReferences(b, "sample.go", []byte(sampleGo), symbols)
	require.NoError(t, err)
	require.GreaterOrEqual(t, refs, 1)

	calls, err := ops.IndexCalls(b, "sample.go", []byte(sampleGo), symbols)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestScanDirectoryIndexesInLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package sample\n\nfunc B() int { return 1 }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(sampleGo), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "ignored.go"), []byte("package vendored\n"), 0o644))

	ops, b := newTestOperations(testConfig())

	var seen []string
	result, err := ops.ScanDirectory(b, dir, func(path string, symbols int) {
		seen = append(seen, path)
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesScanned)
	require.Equal(t, []string{"a.go", "b.go"}, seen)
	require.GreaterOrEqual(t, result.Calls, 1)
}

func TestScanDirectoryHonorsIncludeGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.go"), []byte(sampleGo), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.go"), []byte("package sample\n\nfunc Skip() int { return 1 }\n"), 0o644))

	cfg := testConfig()
	cfg.Include = []string{"keep.go"}
	ops, b := newTestOperations(cfg)

	result, err := ops.ScanDirectory(b, dir, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesScanned)
}
