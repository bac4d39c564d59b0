// Package graphops implements the end-to-end graph operations spec §4.6
// builds on top of internal/ingest: idempotent per-file indexing, cascading
// deletion, the separately-named reference/call passes, and a determinstic
// recursive directory scan honoring gitignore and include/exclude globs,
// with deterministic lexicographic file ordering.
package graphops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/config"
	"github.com/oldnordic/magellan-go/internal/ingest"
	"github.com/oldnordic/magellan-go/internal/types"
)

// Operations wires an ingest.Engine, a chunkstore.Store and a Config's
// filtering rules into the operations spec §4.6 names. It holds no backend
// of its own: every call takes the Backend explicit, since the reconciler
// (internal/reconcile) and the CLI share one long-lived Backend across many
// Operations calls.
type Operations struct {
	engine    *ingest.Engine
	chunks    *chunkstore.Store
	cfg       *config.Config
	gitignore *config.GitignoreParser
}

// New builds Operations over engine/chunks, applying cfg's Include/Exclude
// globs and, when cfg.Index.RespectGitignore is set, gi's loaded patterns.
// gi may be nil when gitignore-awareness is off.
func New(engine *ingest.Engine, chunks *chunkstore.Store, cfg *config.Config, gi *config.GitignoreParser) *Operations {
	return &Operations{engine: engine, chunks: chunks, cfg: cfg, gitignore: gi}
}

// IndexFile runs pass 1 of the ingest pipeline (spec §4.4) and returns the
// number of symbols indexed. An unchanged file (same content hash) returns
// 0 with no error, per IndexFile's own idempotence contract.
func (o *Operations) IndexFile(b backend.Backend, path string, content []byte) (int, error) {
	symbols, err := o.engine.IndexFile(b, o.chunks, path, content)
	if err != nil {
		return 0, err
	}
	return len(symbols), nil
}

// DeleteFile cascades removal of path's File node and everything DEFINES
// derives from it (Symbols, AstNodes, CfgBlocks), via internal/ingest.
func (o *Operations) DeleteFile(b backend.Backend, path string) error {
	return o.engine.DeleteFile(b, path)
}

// IndexReferences runs pass 2 against fileSymbols (the symbols IndexFile
// just returned, or re-extracted by the caller) and returns the number of
// references resolved. It shares one tree-sitter walk with IndexCalls; a
// caller needing both counts from a single file should call
// IndexReferencesAndCalls instead to avoid walking the file twice.
func (o *Operations) IndexReferences(b backend.Backend, path string, content []byte, fileSymbols []types.Symbol) (int, error) {
	refCount, _, err := o.engine.IndexReferencesAndCalls(b, path, content, fileSymbols)
	return refCount, err
}

// IndexCalls runs pass 2 against fileSymbols and returns the number of
// caller/callee pairs resolved. See IndexReferences's note on the shared
// walk.
func (o *Operations) IndexCalls(b backend.Backend, path string, content []byte, fileSymbols []types.Symbol) (int, error) {
	_, callCount, err := o.engine.IndexReferencesAndCalls(b, path, content, fileSymbols)
	return callCount, err
}

// IndexReferencesAndCalls runs pass 2 once and returns both counts, for
// callers (graphops.ScanDirectory, internal/reconcile) that want both
// without a second parse.
func (o *Operations) IndexReferencesAndCalls(b backend.Backend, path string, content []byte, fileSymbols []types.Symbol) (refCount, callCount int, err error) {
	return o.engine.IndexReferencesAndCalls(b, path, content, fileSymbols)
}

// ProgressFunc is called once per file scan_directory processes, after its
// pass-1 IndexFile completes, in the lexicographic processing order.
type ProgressFunc func(path string, symbolsIndexed int)

// ScanResult summarizes a completed scan_directory call.
type ScanResult struct {
	FilesScanned   int
	SymbolsIndexed int
	References     int
	Calls          int
	Skipped        []string // paths over MaxFileSize or that failed to read, for diagnostics
}

// ScanDirectory walks root recursively, honoring the gitignore predicate
// and cfg's Include/Exclude globs, and indexes every surviving file in
// lexicographic path order for determinism (spec §4.6). Pass 1 (IndexFile)
// runs for every discovered file first; pass 2 (IndexReferencesAndCalls)
// then runs for every file that pass 1 actually indexed, so cross-file FQN
// lookups see a complete symbol table (spec §4.4.2's two-pass ordering).
// progress, if non-nil, is invoked after each file's pass 1 completes.
func (o *Operations) ScanDirectory(b backend.Backend, root string, progress ProgressFunc) (ScanResult, error) {
	paths, skipped, err := o.discoverFiles(root)
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{Skipped: skipped}
	type pending struct {
		path    string
		content []byte
		symbols []types.Symbol
	}
	var batch []pending

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			result.Skipped = append(result.Skipped, path)
			continue
		}
		rel := path
		if r, err := filepath.Rel(root, path); err == nil {
			rel = filepath.ToSlash(r)
		}

		symbols, err := o.engine.IndexFile(b, o.chunks, rel, content)
		if err != nil {
			return result, fmt.Errorf("index %s: %w", rel, err)
		}
		result.FilesScanned++
		result.SymbolsIndexed += len(symbols)
		if progress != nil {
			progress(rel, len(symbols))
		}
		if symbols != nil {
			batch = append(batch, pending{path: rel, content: content, symbols: symbols})
		}
	}

	for _, p := range batch {
		refs, calls, err := o.engine.IndexReferencesAndCalls(b, p.path, p.content, p.symbols)
		if err != nil {
			return result, fmt.Errorf("resolve references in %s: %w", p.path, err)
		}
		result.References += refs
		result.Calls += calls
	}

	return result, nil
}

// discoverFiles walks root and returns every regular file path (absolute,
// OS-native separators) that survives the gitignore/include/exclude
// filters, sorted lexicographically by its root-relative slash path.
func (o *Operations) discoverFiles(root string) (paths []string, skipped []string, err error) {
	type found struct{ abs, rel string }
	var all []found

	walkErr := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 && !o.cfg.Index.FollowSymlinks {
			return nil
		}
		if o.cfg.Index.MaxFileSize > 0 && info.Size() > o.cfg.Index.MaxFileSize {
			skipped = append(skipped, p)
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)

		if !o.shouldIndex(rel, p, info.IsDir()) {
			return nil
		}
		if _, ok := o.engine.LanguageFor(extOf(rel)); !ok {
			return nil
		}

		all = append(all, found{abs: p, rel: rel})
		return nil
	})
	if walkErr != nil {
		return nil, skipped, walkErr
	}

	sort.Slice(all, func(i, j int) bool { return all[i].rel < all[j].rel })
	for _, f := range all {
		paths = append(paths, f.abs)
	}
	return paths, skipped, nil
}

// shouldIndex applies, in order: gitignore (if enabled), Exclude globs,
// then Include globs (everything passes when Include is empty), cheapest
// checks first.
func (o *Operations) shouldIndex(rel, abs string, isDir bool) bool {
	if o.gitignore != nil && o.cfg.Index.RespectGitignore && o.gitignore.ShouldIgnore(rel, isDir) {
		return false
	}
	for _, pattern := range o.cfg.Exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return false
		}
	}
	if len(o.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range o.cfg.Include {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func extOf(path string) string {
	ext := filepath.Ext(path)
	return ext
}
