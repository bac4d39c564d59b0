// Build artifact detection from language-specific configuration files:
// parses package.json, tsconfig.json, Cargo.toml, *.csproj, etc. to find
// output directories worth excluding from indexing, for every language
// internal/ingest's languageTable recognizes.
package config

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector finds language-specific build output directories
// under one project root, so Config.EnrichExclusionsWithBuildArtifacts can fold
// them into Exclude without the caller hand-listing every build tool's
// default output directory.
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a new build artifact detector rooted at
// projectRoot.
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories scans for build configuration files across every
// language Magellan indexes and returns doublestar exclusion globs (e.g.
// "**/dist/**", "**/target/**") for whichever output directories those
// configs name explicitly. Languages with no customizable output directory
// (Go, Java/Kotlin, PHP, Zig) rely on the default exclusion list instead and
// contribute nothing here.
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string
	for _, detect := range []func() []string{
		bad.detectJavaScriptOutputs,
		bad.detectRustOutputs,
		bad.detectPythonOutputs,
		bad.detectCSharpOutputs,
	} {
		patterns = append(patterns, detect()...)
	}
	return patterns
}

// detectJavaScriptOutputs finds JS/TS build outputs.
func (bad *BuildArtifactDetector) detectJavaScriptOutputs() []string {
	var patterns []string

	if data, err := os.ReadFile(filepath.Join(bad.projectRoot, "package.json")); err == nil {
		var pkg map[string]interface{}
		if json.Unmarshal(data, &pkg) == nil {
			if scripts, ok := pkg["scripts"].(map[string]interface{}); ok {
				for _, script := range scripts {
					if scriptStr, ok := script.(string); ok {
						patterns = append(patterns, outDirFromCLIFlag(scriptStr)...)
					}
				}
			}
			if buildConfig, ok := pkg["build"].(map[string]interface{}); ok {
				if outDir, ok := buildConfig["outDir"].(string); ok {
					patterns = append(patterns, "**/"+outDir+"/**")
				}
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join(bad.projectRoot, "tsconfig.json")); err == nil {
		var tsconfig map[string]interface{}
		if json.Unmarshal(data, &tsconfig) == nil {
			if compilerOptions, ok := tsconfig["compilerOptions"].(map[string]interface{}); ok {
				if outDir, ok := compilerOptions["outDir"].(string); ok {
					patterns = append(patterns, "**/"+outDir+"/**")
				}
			}
		}
	}

	for _, viteConfig := range []string{"vite.config.js", "vite.config.ts"} {
		if data, err := os.ReadFile(filepath.Join(bad.projectRoot, viteConfig)); err == nil {
			if dir := outDirFromJSLiteral(string(data)); dir != "" {
				patterns = append(patterns, "**/"+dir+"/**")
			}
		}
	}

	return patterns
}

// outDirFromCLIFlag extracts a `--outDir <dir>` / `-outDir <dir>` argument
// from a package.json build script string.
func outDirFromCLIFlag(script string) []string {
	if !strings.Contains(script, "--outDir") && !strings.Contains(script, "-outDir") {
		return nil
	}
	var patterns []string
	parts := strings.Fields(script)
	for i, part := range parts {
		if (part == "--outDir" || part == "-outDir") && i+1 < len(parts) {
			dir := strings.Trim(parts[i+1], "\"'")
			patterns = append(patterns, "**/"+dir+"/**")
		}
	}
	return patterns
}

// outDirFromJSLiteral extracts the value of an `outDir: '...'` style
// key/string-literal pair from raw JS/TS config source (a string match, not
// a parse, since vite.config.* is executable JS rather than static data).
func outDirFromJSLiteral(content string) string {
	idx := strings.Index(content, "outDir")
	if idx == -1 {
		return ""
	}
	rest := content[idx+len("outDir"):]
	colonIdx := strings.Index(rest, ":")
	if colonIdx == -1 {
		return ""
	}
	rest = rest[colonIdx+1:]
	for _, quote := range []string{"'", "\""} {
		if parts := strings.SplitN(rest, quote, 3); len(parts) >= 3 {
			if dir := strings.TrimSpace(parts[1]); dir != "" {
				return dir
			}
		}
	}
	return ""
}

// detectRustOutputs finds a custom Cargo target directory.
func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "Cargo.toml"))
	if err != nil {
		return nil
	}
	var cargo map[string]interface{}
	if toml.Unmarshal(data, &cargo) != nil {
		return nil
	}
	profile, ok := cargo["profile"].(map[string]interface{})
	if !ok {
		return nil
	}
	release, ok := profile["release"].(map[string]interface{})
	if !ok {
		return nil
	}
	if targetDir, ok := release["target-dir"].(string); ok {
		return []string{"**/" + targetDir + "/**"}
	}
	return nil
}

// detectPythonOutputs finds a Poetry custom build target directory.
func (bad *BuildArtifactDetector) detectPythonOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "pyproject.toml"))
	if err != nil {
		return nil
	}
	var pyproject map[string]interface{}
	if toml.Unmarshal(data, &pyproject) != nil {
		return nil
	}
	tool, ok := pyproject["tool"].(map[string]interface{})
	if !ok {
		return nil
	}
	poetry, ok := tool["poetry"].(map[string]interface{})
	if !ok {
		return nil
	}
	build, ok := poetry["build"].(map[string]interface{})
	if !ok {
		return nil
	}
	if targetDir, ok := build["target-dir"].(string); ok {
		return []string{"**/" + targetDir + "/**"}
	}
	return nil
}

// csprojProperties is the subset of a .csproj's MSBuild PropertyGroup this
// detector reads.
type csprojProperties struct {
	XMLName        xml.Name `xml:"Project"`
	PropertyGroups []struct {
		OutputPath string `xml:"OutputPath"`
		BaseOutput string `xml:"BaseOutputPath"`
	} `xml:"PropertyGroup"`
}

// detectCSharpOutputs finds a custom OutputPath/BaseOutputPath in any
// top-level *.csproj, the MSBuild equivalent of Cargo's target-dir.
func (bad *BuildArtifactDetector) detectCSharpOutputs() []string {
	matches, err := filepath.Glob(filepath.Join(bad.projectRoot, "*.csproj"))
	if err != nil {
		return nil
	}
	var patterns []string
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var proj csprojProperties
		if xml.Unmarshal(data, &proj) != nil {
			continue
		}
		for _, pg := range proj.PropertyGroups {
			for _, dir := range []string{pg.OutputPath, pg.BaseOutput} {
				if dir != "" {
					patterns = append(patterns, "**/"+strings.Trim(dir, "/\\")+"/**")
				}
			}
		}
	}
	return patterns
}

// DeduplicatePatterns removes duplicate exclusion patterns, preserving
// first-seen order so Config.Exclude stays stable across runs.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}
	return result
}
