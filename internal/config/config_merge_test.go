package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithRoot_ProjectKDLConfig(t *testing.T) {
	tmpProject := t.TempDir()

	projectConfig := `
project {
    root "."
    name "test-project"
}

exclude {
    "**/dist/**"
}

backend {
    kind "relational"
    dsn "magellan.db"
}
`
	err := os.WriteFile(filepath.Join(tmpProject, ".magellan.kdl"), []byte(projectConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Contains(t, cfg.Exclude, "**/dist/**")
	assert.Equal(t, "test-project", cfg.Project.Name)
	assert.Equal(t, "relational", cfg.Backend.Kind)
	assert.Equal(t, "magellan.db", cfg.Backend.DSN)
}

func TestLoadWithRoot_DefaultConfigFallback(t *testing.T) {
	tmpProject := t.TempDir()

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Exclude, "should have default exclusions")
	assert.Empty(t, cfg.Include, "should have empty default inclusions")
	assert.Equal(t, "native", cfg.Backend.Kind)
}

func TestLoadWithRoot_KDLTakesPrecedenceOverTOML(t *testing.T) {
	tmpProject := t.TempDir()

	err := os.WriteFile(filepath.Join(tmpProject, ".magellan.kdl"), []byte(`project { name "from-kdl" }`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tmpProject, ".magellan.toml"), []byte("[project]\nname = \"from-toml\"\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	assert.Equal(t, "from-kdl", cfg.Project.Name)
}

func TestLoadWithRoot_FallsBackToTOMLWhenNoKDL(t *testing.T) {
	tmpProject := t.TempDir()

	tomlConfig := `
[project]
name = "toml-project"

[backend]
kind = "relational"
dsn = "magellan.db"

exclude = ["**/dist/**"]
`
	err := os.WriteFile(filepath.Join(tmpProject, ".magellan.toml"), []byte(tomlConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "toml-project", cfg.Project.Name)
	assert.Equal(t, "relational", cfg.Backend.Kind)
	assert.Contains(t, cfg.Exclude, "**/dist/**")
}

func TestEnrichExclusionsWithBuildArtifacts_DeduplicatesAgainstDefaults(t *testing.T) {
	tmpProject := t.TempDir()
	cargoToml := `
[package]
name = "example"

[profile.release]
target-dir = "dist"
`
	err := os.WriteFile(filepath.Join(tmpProject, "Cargo.toml"), []byte(cargoToml), 0644)
	require.NoError(t, err)

	cfg := defaultConfig(tmpProject)
	before := len(cfg.Exclude)
	cfg.Exclude = append(cfg.Exclude, "**/dist/**") // already present via default exclusions style pattern
	cfg.EnrichExclusionsWithBuildArtifacts()

	assert.GreaterOrEqual(t, len(cfg.Exclude), before)
	seen := map[string]int{}
	for _, p := range cfg.Exclude {
		seen[p]++
	}
	for pattern, count := range seen {
		assert.Equal(t, 1, count, "pattern %q should not be duplicated", pattern)
	}
}
