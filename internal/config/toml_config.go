package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors Config's shape using plain field names so go-toml/v2
// can decode a .magellan.toml document without struct tags on Config
// itself (Config is also built programmatically by defaultConfig/parseKDL,
// where tags would be dead weight).
type tomlConfig struct {
	Project struct {
		Root string
		Name string
	}
	Index struct {
		MaxFileSize      int64
		MaxTotalSizeMB   int64
		MaxFileCount     int
		FollowSymlinks   bool
		RespectGitignore bool
		WatchMode        bool
		WatchDebounceMs  int
	}
	Performance struct {
		MaxGoroutines       int
		ParallelFileWorkers int
		IndexingTimeoutSec  int
	}
	Backend struct {
		Kind string
		DSN  string
	}
	Search struct {
		DefaultContextLines int
		MaxResults          int
		EnableFuzzy         bool
	}
	Include []string
	Exclude []string
}

// LoadTOML attempts to load configuration from a .magellan.toml file in
// projectRoot, for environments that prefer TOML over KDL. Returns
// (nil, nil) if the file does not exist.
func LoadTOML(projectRoot string) (*Config, error) {
	tomlPath := filepath.Join(projectRoot, ".magellan.toml")

	content, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read .magellan.toml: %w", err)
	}

	var doc tomlConfig
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := defaultConfig(projectRoot)
	applyTOMLOverrides(cfg, &doc)
	resolveProjectRoot(cfg, projectRoot)

	if len(doc.Exclude) > 0 {
		cfg.Exclude = doc.Exclude
	}
	if len(doc.Include) > 0 {
		cfg.Include = doc.Include
	}

	return cfg, nil
}

func applyTOMLOverrides(cfg *Config, doc *tomlConfig) {
	if doc.Project.Root != "" {
		cfg.Project.Root = doc.Project.Root
	}
	if doc.Project.Name != "" {
		cfg.Project.Name = doc.Project.Name
	}

	if doc.Index.MaxFileSize != 0 {
		cfg.Index.MaxFileSize = doc.Index.MaxFileSize
	}
	if doc.Index.MaxTotalSizeMB != 0 {
		cfg.Index.MaxTotalSizeMB = doc.Index.MaxTotalSizeMB
	}
	if doc.Index.MaxFileCount != 0 {
		cfg.Index.MaxFileCount = doc.Index.MaxFileCount
	}
	cfg.Index.FollowSymlinks = doc.Index.FollowSymlinks
	cfg.Index.RespectGitignore = doc.Index.RespectGitignore
	cfg.Index.WatchMode = doc.Index.WatchMode
	if doc.Index.WatchDebounceMs != 0 {
		cfg.Index.WatchDebounceMs = doc.Index.WatchDebounceMs
	}

	if doc.Performance.MaxGoroutines != 0 {
		cfg.Performance.MaxGoroutines = doc.Performance.MaxGoroutines
	}
	cfg.Performance.ParallelFileWorkers = doc.Performance.ParallelFileWorkers
	if doc.Performance.IndexingTimeoutSec != 0 {
		cfg.Performance.IndexingTimeoutSec = doc.Performance.IndexingTimeoutSec
	}

	if doc.Backend.Kind != "" {
		cfg.Backend.Kind = doc.Backend.Kind
	}
	if doc.Backend.DSN != "" {
		cfg.Backend.DSN = doc.Backend.DSN
	}

	if doc.Search.MaxResults != 0 {
		cfg.Search.MaxResults = doc.Search.MaxResults
	}
	cfg.Search.DefaultContextLines = doc.Search.DefaultContextLines
	cfg.Search.EnableFuzzy = doc.Search.EnableFuzzy
}
