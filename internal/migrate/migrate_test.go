package migrate

import (
	"os"
	"path/filepath"
	"testing"

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

// sampleUnicode exercises the UTF-8-byte-identical chunk requirement with
// CJK text and an emoji, both of which are multi-byte in UTF-8.
const sampleUnicode = `package sample

// 你好 says hello. 🎉
func 你好() string {
	return "你好 🎉"
}
`

func buildSource(t *testing.T, root string) backend.Backend {
	t.Helper()
	src := backend.NewNativeBackend()
	cs := chunkstore.New(src)
	e := ingest.NewEngine()
	ops := graphops.New(e, cs, &config.Config{Project: config.Project{Root: root}}, nil)

	goPath := filepath.Join(root, "sample.go")
	require.NoError(t, os.WriteFile(goPath, []byte(sampleGo), 0o644))
	_, err := ops.IndexFile(src, goPath, []byte(sampleGo))
	require.NoError(t, err)

	q := query.New(src)
	syms, err := q.SymbolsInFile(goPath, "")
	require.NoError(t, err)
	_, _, err = ops.IndexReferencesAndCalls(src, goPath, []byte(sampleGo), syms)
	require.NoError(t, err)

	uniPath := filepath.Join(root, "unicode.go")
	require.NoError(t, os.WriteFile(uniPath, []byte(sampleUnicode), 0o644))
	_, err = ops.IndexFile(src, uniPath, []byte(sampleUnicode))
	require.NoError(t, err)

	return src
}

func TestCopyPreservesEntitiesEdgesAndKVIndex(t *testing.T) {
	root := t.TempDir()
	src := buildSource(t, root)
	dst := backend.NewNativeBackend()

	sum, err := Copy(src, dst)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Files)
	require.Equal(t, 3, sum.Symbols)
	require.Greater(t, sum.Calls, 0)

	srcQ := query.New(src)
	dstQ := query.New(dst)

	srcFiles, err := srcQ.CountFiles()
	require.NoError(t, err)
	dstFiles, err := dstQ.CountFiles()
	require.NoError(t, err)
	require.Equal(t, srcFiles, dstFiles)

	srcSyms, err := srcQ.CountSymbols()
	require.NoError(t, err)
	dstSyms, err := dstQ.CountSymbols()
	require.NoError(t, err)
	require.Equal(t, srcSyms, dstSyms)

	goPath := filepath.Join(root, "sample.go")
	dstSymbols, err := dstQ.SymbolsInFile(goPath, "")
	require.NoError(t, err)
	require.Len(t, dstSymbols, 2)

	var callerID, helperID string
	for _, s := range dstSymbols {
		switch s.Name {
		case "Caller":
			callerID = s.SymbolID
		case "Helper":
			helperID = s.SymbolID
		}
	}
	require.NotEmpty(t, callerID)
	require.NotEmpty(t, helperID)

	callers, err := dstQ.CallersOfSymbol(helperID)
	require.NoError(t, err)
	require.Contains(t, callers, callerID)
}

func TestCopyPreservesChunkContentByteIdentical(t *testing.T) {
	root := t.TempDir()
	src := buildSource(t, root)
	dst := backend.NewNativeBackend()

	_, err := Copy(src, dst)
	require.NoError(t, err)

	srcChunks := chunkstore.New(src)
	dstChunks := chunkstore.New(dst)

	uniPath := filepath.Join(root, "unicode.go")
	want, err := srcChunks.ForFile(uniPath)
	require.NoError(t, err)
	require.NotEmpty(t, want)

	got, err := dstChunks.ForFile(uniPath)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		require.Equal(t, want[i].Content, got[i].Content)
		require.Equal(t, want[i].ContentHash, got[i].ContentHash)
	}
}
