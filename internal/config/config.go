package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// SearchRankingScoreConstants defines scoring constants for search ranking
// configuration. These values are used as defaults in both code and
// configuration parsing.
const (
	DefaultCodeFileBoost    = 50.0
	DefaultDocFilePenalty   = -20.0
	DefaultConfigFileBoost  = 10.0
	DefaultNonSymbolPenalty = -30.0
	RequireSymbolPenalty    = -1000.0

	DefaultMaxFileSize     = 10 * 1024 * 1024
	DefaultMaxTotalSizeMB  = 500
	DefaultMaxFileCount    = 50000
	DefaultWatchDebounceMs = 300
)

// Config is Magellan's project configuration (spec §4's [AMBIENT] config
// section): which backend to open, which files to index, and how the
// watcher/reconciler should behave.
type Config struct {
	Version     int
	Project     Project
	Index       Index
	Performance Performance
	Search      Search
	Backend     Backend
	Include     []string
	Exclude     []string
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	MaxFileSize      int64
	MaxTotalSizeMB   int64
	MaxFileCount     int
	FollowSymlinks   bool
	RespectGitignore bool // process .gitignore files for additional exclusions
	WatchMode        bool // enable file system watching for automatic reindexing
	WatchDebounceMs  int  // debounce window for the reconciler's dirty batch
}

type Performance struct {
	MaxGoroutines       int // max goroutines for parallel file ingest
	ParallelFileWorkers int // 0 = auto-detect (NumCPU)
	IndexingTimeoutSec  int // timeout for a single reconcile pass
}

// Backend selects and configures the storage backend (spec §4.1): native
// in-memory KV+graph, or the relational SQLite-backed implementation.
type Backend struct {
	Kind string // "native" or "relational"
	DSN  string // path to the sqlite file, when Kind == "relational"
}

// SearchRanking controls file type and symbol preference in search results.
type SearchRanking struct {
	Enabled bool

	CodeFileBoost   float64
	DocFilePenalty  float64
	ConfigFileBoost float64

	RequireSymbol    bool
	NonSymbolPenalty float64

	ExtensionWeights map[string]float64
}

// Validate checks that SearchRanking values are within reasonable ranges.
func (r SearchRanking) Validate() error {
	if r.CodeFileBoost > 1000 || r.CodeFileBoost < -1000 {
		return fmt.Errorf("CodeFileBoost must be between -1000 and 1000, got %v", r.CodeFileBoost)
	}
	if r.DocFilePenalty > 0 || r.DocFilePenalty < -1000 {
		return fmt.Errorf("DocFilePenalty must be between -1000 and 0, got %v", r.DocFilePenalty)
	}
	if r.ConfigFileBoost > 1000 || r.ConfigFileBoost < -1000 {
		return fmt.Errorf("ConfigFileBoost must be between -1000 and 1000, got %v", r.ConfigFileBoost)
	}
	if r.NonSymbolPenalty > 0 || r.NonSymbolPenalty < -1000 {
		return fmt.Errorf("NonSymbolPenalty must be between -1000 and 0, got %v", r.NonSymbolPenalty)
	}
	for ext, weight := range r.ExtensionWeights {
		if weight > 1000 || weight < -1000 {
			return fmt.Errorf("ExtensionWeights[%s] must be between -1000 and 1000, got %v", ext, weight)
		}
	}
	return nil
}

type Search struct {
	DefaultContextLines int
	MaxResults           int
	EnableFuzzy          bool
	Ranking              SearchRanking
}

// Load reads project configuration from the directory holding path, trying
// .magellan.kdl first and falling back to .magellan.toml, then falling back
// to built-in defaults if neither file is present. Only path's directory is
// used; the file names looked up there are always those two.
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	} else if path != "" {
		searchDir = filepath.Dir(path)
	}

	if kdlCfg, err := LoadKDL(searchDir); err != nil {
		return nil, err
	} else if kdlCfg != nil {
		kdlCfg.EnrichExclusionsWithBuildArtifacts()
		return kdlCfg, nil
	}

	if tomlCfg, err := LoadTOML(searchDir); err != nil {
		return nil, err
	} else if tomlCfg != nil {
		tomlCfg.EnrichExclusionsWithBuildArtifacts()
		return tomlCfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	if searchDir != "." {
		cwd = searchDir
	}

	cfg := defaultConfig(cwd)
	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

func defaultConfig(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Index: Index{
			MaxFileSize:      DefaultMaxFileSize,
			MaxTotalSizeMB:   DefaultMaxTotalSizeMB,
			MaxFileCount:     DefaultMaxFileCount,
			FollowSymlinks:   false,
			RespectGitignore: true,
			WatchMode:        true,
			WatchDebounceMs:  DefaultWatchDebounceMs,
		},
		Performance: Performance{
			MaxGoroutines:       runtime.NumCPU(),
			ParallelFileWorkers: 0,
			IndexingTimeoutSec:  120,
		},
		Backend: Backend{
			Kind: "native",
		},
		Search: Search{
			DefaultContextLines: 0,
			MaxResults:          100,
			EnableFuzzy:         true,
			Ranking: SearchRanking{
				Enabled:          true,
				CodeFileBoost:    DefaultCodeFileBoost,
				DocFilePenalty:   DefaultDocFilePenalty,
				ConfigFileBoost:  DefaultConfigFileBoost,
				RequireSymbol:    false,
				NonSymbolPenalty: DefaultNonSymbolPenalty,
			},
		},
		Include: []string{},
		Exclude: defaultExclusions(),
	}
}

// defaultExclusions lists language-agnostic patterns that are never useful
// to index: VCS metadata, dependency trees, build output, and common binary
// formats. Build-artifact detection and .gitignore processing add more on
// top of this baseline.
func defaultExclusions() []string {
	return []string{
		"**/.git/**",
		"**/.*/**",

		"**/node_modules/**",
		"**/vendor/**",
		"**/bower_components/**",

		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/target/**",
		"**/bin/**",
		"**/obj/**",
		"**/*.min.js",
		"**/*.min.css",

		"**/__pycache__/**",
		"**/*.pyc",

		"**/*.avif",
		"**/*.webp",
		"**/*.wasm",
		"**/*.woff",
		"**/*.woff2",

		"**/*.mp4",
		"**/*.mp3",
		"**/*.zip",
		"**/*.tar.gz",

		"**/Thumbs.db",
		"**/desktop.ini",
		"**/*.swp",
		"**/*.swo",
		"**/*~",

		"**/logs/**",
		"**/*.log",
	}
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from
// language-specific project files and adds them to the exclusion list.
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}

	detector := NewBuildArtifactDetector(c.Project.Root)
	detectedPatterns := detector.DetectOutputDirectories()

	if len(detectedPatterns) > 0 {
		c.Exclude = append(c.Exclude, detectedPatterns...)
		c.Exclude = DeduplicatePatterns(c.Exclude)
	}
}
