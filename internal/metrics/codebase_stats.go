// Package metrics computes per-file and per-symbol size/coupling metrics
// (spec §3's FileMetrics/SymbolMetrics) from a Backend's graph and side
// indexes, and aggregates them into a whole-codebase report.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/kvindex"
	"github.com/oldnordic/magellan-go/internal/types"
)

// CodebaseStats is a whole-codebase rollup of FileMetrics/SymbolMetrics,
// derived by walking every live node in a Backend.
type CodebaseStats struct {
	TotalFiles            int
	TotalSizeBytes        int64
	LanguageDistribution  map[string]*FileLanguageStats

	TotalSymbols       int
	TotalDefinitions   int
	SymbolDistribution map[string]*SymbolTypeStats

	AverageFunctionLength float64
	MaxFunctionLength     int
	AverageSymbolsPerFile float64

	TotalCallEdges int
	AverageFanOut  float64
	AverageFanIn   float64

	TotalReferences int
	OrphanSymbols   []string // symbol ids with zero fan-in

	EntryPoints []string // symbol ids with zero fan-in but nonzero fan-out
}

// FileLanguageStats aggregates metrics for every file sharing a language.
type FileLanguageStats struct {
	Language       string
	FileCount      int
	SymbolCount    int
	TotalSizeBytes int64
}

// SymbolTypeStats aggregates metrics for every symbol sharing a normalized
// kind (spec §3's SymbolKind vocabulary).
type SymbolTypeStats struct {
	Kind     string
	Count    int
	TotalLOC int
}

// NewCodebaseStats returns a zero-valued CodebaseStats with its maps
// initialized.
func NewCodebaseStats() *CodebaseStats {
	return &CodebaseStats{
		LanguageDistribution: make(map[string]*FileLanguageStats),
		SymbolDistribution:   make(map[string]*SymbolTypeStats),
	}
}

// ComputeSymbolMetrics derives one symbol's SymbolMetrics from the backend:
// fan-in/fan-out from the calls:from:/calls:to: KV namespaces (spec §4.3),
// LOC from the symbol's own span, and cyclomatic complexity from its CFG
// block list (1 plus one per If, While, For, Loop or MatchArm block; see
// cyclomaticFromBlocks).
func ComputeSymbolMetrics(b backend.Backend, snap types.SnapshotID, sym types.Symbol) (types.SymbolMetrics, error) {
	fanIn, err := countPrefix(b, snap, kvindex.CallsToPrefix(sym.SymbolID))
	if err != nil {
		return types.SymbolMetrics{}, err
	}
	fanOut, err := countPrefix(b, snap, kvindex.CallsFromPrefix(sym.SymbolID))
	if err != nil {
		return types.SymbolMetrics{}, err
	}

	cyclomatic := 1
	if data, ok, err := b.KVGet(kvindex.CfgFunc(sym.SymbolID)); err == nil && ok {
		var blocks []types.CfgBlock
		if err := unmarshalJSONAny(data, &blocks); err == nil {
			cyclomatic = cyclomaticFromBlocks(blocks)
		}
	}

	return types.SymbolMetrics{
		SymbolID:   sym.SymbolID,
		Name:       sym.Name,
		Kind:       sym.Kind,
		FilePath:   sym.FilePath,
		LOC:        locOfSpan(sym.Span),
		FanIn:      fanIn,
		FanOut:     fanOut,
		Cyclomatic: cyclomatic,
	}, nil
}

// ComputeFileMetrics derives one file's FileMetrics by summing the fan-in,
// fan-out and cyclomatic complexity of every symbol the file defines (spec
// §4.3's file:sym: index); LOC is the largest single symbol's LOC.
func ComputeFileMetrics(b backend.Backend, snap types.SnapshotID, file types.File, fileID types.EntityId) (types.FileMetrics, error) {
	symbolIDsData, ok, err := b.KVGet(kvindex.FileSymbols(int64(fileID)))
	if err != nil {
		return types.FileMetrics{}, err
	}
	fm := types.FileMetrics{Path: file.Path}
	if !ok {
		return fm, nil
	}

	for _, entID := range kvindex.DecodeInt64List(symbolIDsData) {
		rec, err := b.GetNode(snap, types.EntityId(entID))
		if err != nil {
			continue
		}
		var sym types.Symbol
		if err := unmarshalJSONAny(rec.Data, &sym); err != nil {
			continue
		}
		sm, err := ComputeSymbolMetrics(b, snap, sym)
		if err != nil {
			continue
		}
		fm.SymbolCount++
		fm.FanIn += sm.FanIn
		fm.FanOut += sm.FanOut
		fm.Complexity += float64(sm.Cyclomatic)
		if sm.LOC > fm.LOC {
			fm.LOC = sm.LOC
		}
	}
	return fm, nil
}

// PersistFileMetrics stores m under metrics:file:{path} so later reads skip
// recomputation until the file's content hash changes (spec §4.3).
func PersistFileMetrics(b backend.Backend, m types.FileMetrics) error {
	data, err := unmarshalableJSON(m)
	if err != nil {
		return err
	}
	return b.KVSet(kvindex.FileMetrics(m.Path), data, nil)
}

// PersistSymbolMetrics stores m under metrics:symbol:{id}.
func PersistSymbolMetrics(b backend.Backend, m types.SymbolMetrics) error {
	data, err := unmarshalableJSON(m)
	if err != nil {
		return err
	}
	return b.KVSet(kvindex.SymbolMetrics(m.SymbolID), data, nil)
}

// LoadFileMetrics fetches a previously persisted FileMetrics, if any.
func LoadFileMetrics(b backend.Backend, path string) (types.FileMetrics, bool, error) {
	data, ok, err := b.KVGet(kvindex.FileMetrics(path))
	if err != nil || !ok {
		return types.FileMetrics{}, ok, err
	}
	var m types.FileMetrics
	if err := unmarshalJSONAny(data, &m); err != nil {
		return types.FileMetrics{}, false, err
	}
	return m, true, nil
}

// ComputeCodebaseStats walks every live node in b and rolls its metrics up
// into a whole-codebase report (spec §3).
func ComputeCodebaseStats(b backend.Backend) (*CodebaseStats, error) {
	snap, err := b.SnapshotCurrent()
	if err != nil {
		return nil, err
	}
	ids, err := b.EntityIDs()
	if err != nil {
		return nil, err
	}

	cs := NewCodebaseStats()
	var totalFunctionLOC, functionCount, totalFanIn int

	for _, id := range ids {
		rec, err := b.GetNode(snap, id)
		if err != nil {
			continue
		}
		switch rec.Kind {
		case types.NodeFile:
			var f types.File
			if err := unmarshalJSONAny(rec.Data, &f); err != nil {
				continue
			}
			cs.TotalFiles++
			cs.TotalSizeBytes += f.ByteSize

		case types.NodeSymbol:
			var sym types.Symbol
			if err := unmarshalJSONAny(rec.Data, &sym); err != nil {
				continue
			}
			cs.TotalSymbols++
			cs.TotalDefinitions++

			lang := languageStats(cs, sym.Language)
			lang.SymbolCount++

			kindStats := kindStats(cs, string(sym.NormKind))
			loc := locOfSpan(sym.Span)
			kindStats.TotalLOC += loc

			if sym.NormKind == types.KindFunction || sym.NormKind == types.KindMethod {
				functionCount++
				totalFunctionLOC += loc
				if loc > cs.MaxFunctionLength {
					cs.MaxFunctionLength = loc
				}
			}

			sm, err := ComputeSymbolMetrics(b, snap, sym)
			if err != nil {
				continue
			}
			cs.TotalCallEdges += sm.FanOut
			totalFanIn += sm.FanIn
			if sm.FanIn == 0 && sm.FanOut > 0 {
				cs.EntryPoints = append(cs.EntryPoints, sym.SymbolID)
			}
			if sm.FanIn == 0 {
				cs.OrphanSymbols = append(cs.OrphanSymbols, sym.SymbolID)
			}

		case types.NodeRefer:
			cs.TotalReferences++
		}
	}

	// fold per-file byte sizes into per-language totals using the
	// extension->language map, since File nodes carry no language field
	// of their own (only Symbol does).
	assignFileSizesToLanguages(b, snap, ids, cs)

	if functionCount > 0 {
		cs.AverageFunctionLength = float64(totalFunctionLOC) / float64(functionCount)
	}
	if cs.TotalFiles > 0 {
		cs.AverageSymbolsPerFile = float64(cs.TotalSymbols) / float64(cs.TotalFiles)
	}
	if cs.TotalSymbols > 0 {
		cs.AverageFanOut = float64(cs.TotalCallEdges) / float64(cs.TotalSymbols)
		cs.AverageFanIn = float64(totalFanIn) / float64(cs.TotalSymbols)
	}
	sort.Strings(cs.OrphanSymbols)
	sort.Strings(cs.EntryPoints)

	return cs, nil
}

func assignFileSizesToLanguages(b backend.Backend, snap types.SnapshotID, ids []types.EntityId, cs *CodebaseStats) {
	for _, id := range ids {
		rec, err := b.GetNode(snap, id)
		if err != nil || rec.Kind != types.NodeFile {
			continue
		}
		var f types.File
		if err := unmarshalJSONAny(rec.Data, &f); err != nil {
			continue
		}
		lang := languageOf(b, snap, f.Path)
		stats := languageStats(cs, lang)
		stats.FileCount++
		stats.TotalSizeBytes += f.ByteSize
	}
}

// languageOf reports the language of the first symbol defined in path, or
// "Other" if the file defines none (e.g. an unsupported extension that
// still passed the scanner's include filter).
func languageOf(b backend.Backend, snap types.SnapshotID, path string) string {
	data, ok, err := b.KVGet(kvindex.FileByPath(path))
	if err != nil || !ok {
		return "Other"
	}
	fileID, err := decodeEntityID(data)
	if err != nil {
		return "Other"
	}
	symbolIDsData, ok, err := b.KVGet(kvindex.FileSymbols(int64(fileID)))
	if err != nil || !ok {
		return "Other"
	}
	symbolIDs := kvindex.DecodeInt64List(symbolIDsData)
	if len(symbolIDs) == 0 {
		return "Other"
	}
	rec, err := b.GetNode(snap, types.EntityId(symbolIDs[0]))
	if err != nil {
		return "Other"
	}
	var sym types.Symbol
	if err := unmarshalJSONAny(rec.Data, &sym); err != nil || sym.Language == "" {
		return "Other"
	}
	return sym.Language
}

func languageStats(cs *CodebaseStats, lang string) *FileLanguageStats {
	if lang == "" {
		lang = "Other"
	}
	stats, ok := cs.LanguageDistribution[lang]
	if !ok {
		stats = &FileLanguageStats{Language: lang}
		cs.LanguageDistribution[lang] = stats
	}
	return stats
}

func kindStats(cs *CodebaseStats, kind string) *SymbolTypeStats {
	stats, ok := cs.SymbolDistribution[kind]
	if !ok {
		stats = &SymbolTypeStats{Kind: kind}
		cs.SymbolDistribution[kind] = stats
	}
	stats.Count++
	return stats
}

// cyclomaticFromBlocks applies McCabe's decision-point-plus-one rule over a
// function's basic blocks: each branch or loop the CFG walker recorded (If/
// While/For/Loop/MatchArm) is one added decision point. Counting by Kind
// rather than by Terminator==Conditional matters because a block's own
// terminator only reports what its LAST statement does, not whether the
// block itself is a branch target; a function with several sequential ifs
// would otherwise under-count whenever a branch's last statement isn't
// itself another conditional.
func cyclomaticFromBlocks(blocks []types.CfgBlock) int {
	complexity := 1
	for _, blk := range blocks {
		switch blk.Kind {
		case types.CfgIf, types.CfgWhile, types.CfgFor, types.CfgLoop, types.CfgMatchArm:
			complexity++
		}
	}
	return complexity
}

func locOfSpan(span types.Span) int {
	if span.EndLine < span.StartLine {
		return 0
	}
	return int(span.EndLine-span.StartLine) + 1
}

func countPrefix(b backend.Backend, snap types.SnapshotID, prefix []byte) (int, error) {
	pairs, err := b.KVPrefixScan(snap, prefix)
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// FormatAsJSON returns stats as a JSON-serializable map, suitable for the
// query layer's codebase-report tool.
func (cs *CodebaseStats) FormatAsJSON() map[string]interface{} {
	languages := make([]map[string]interface{}, 0, len(cs.LanguageDistribution))
	for _, stats := range cs.LanguageDistribution {
		languages = append(languages, map[string]interface{}{
			"language":   stats.Language,
			"files":      stats.FileCount,
			"symbols":    stats.SymbolCount,
			"size_bytes": stats.TotalSizeBytes,
		})
	}
	sort.Slice(languages, func(i, j int) bool {
		return languages[i]["language"].(string) < languages[j]["language"].(string)
	})

	return map[string]interface{}{
		"summary": map[string]interface{}{
			"total_files":       cs.TotalFiles,
			"total_symbols":     cs.TotalSymbols,
			"total_size_mb":     float64(cs.TotalSizeBytes) / 1024.0 / 1024.0,
			"total_definitions": cs.TotalDefinitions,
		},
		"languages": languages,
		"symbols": map[string]interface{}{
			"total":          cs.TotalSymbols,
			"definitions":    cs.TotalDefinitions,
			"references":     cs.TotalReferences,
			"orphans":        len(cs.OrphanSymbols),
		},
		"complexity": map[string]interface{}{
			"avg_function_length": cs.AverageFunctionLength,
			"max_function_length": cs.MaxFunctionLength,
			"symbols_per_file":    cs.AverageSymbolsPerFile,
		},
		"call_graph": map[string]interface{}{
			"total_edges": cs.TotalCallEdges,
			"avg_fan_out": cs.AverageFanOut,
			"avg_fan_in":  cs.AverageFanIn,
		},
		"architecture": map[string]interface{}{
			"entry_points": cs.EntryPoints,
		},
	}
}

// FormatAsText returns stats formatted as a human-readable report.
func (cs *CodebaseStats) FormatAsText() string {
	var sb strings.Builder

	sb.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║                  MAGELLAN - CODEBASE REPORT                       ║\n")
	sb.WriteString("╚════════════════════════════════════════════════════════════════╝\n\n")

	sb.WriteString("SUMMARY\n")
	sb.WriteString("─────────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Total Files:        %d\n", cs.TotalFiles))
	sb.WriteString(fmt.Sprintf("  Total Symbols:      %d\n", cs.TotalSymbols))
	sb.WriteString(fmt.Sprintf("  Total Size:         %.2f MB\n", float64(cs.TotalSizeBytes)/1024.0/1024.0))
	sb.WriteString(fmt.Sprintf("  Total Definitions:  %d\n", cs.TotalDefinitions))

	sb.WriteString("\nLANGUAGE DISTRIBUTION\n")
	sb.WriteString("─────────────────────────────────────────────────────────────────\n")
	langs := make([]*FileLanguageStats, 0, len(cs.LanguageDistribution))
	for _, stats := range cs.LanguageDistribution {
		langs = append(langs, stats)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].FileCount > langs[j].FileCount })
	for _, lang := range langs {
		sb.WriteString(fmt.Sprintf("  %-12s %5d files  %8d symbols  %7.2f MB\n",
			lang.Language+":", lang.FileCount, lang.SymbolCount,
			float64(lang.TotalSizeBytes)/1024.0/1024.0))
	}

	sb.WriteString("\nSYMBOLS\n")
	sb.WriteString("─────────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Total:              %d\n", cs.TotalSymbols))
	sb.WriteString(fmt.Sprintf("  Definitions:        %d\n", cs.TotalDefinitions))
	sb.WriteString(fmt.Sprintf("  References:         %d\n", cs.TotalReferences))
	sb.WriteString(fmt.Sprintf("  Orphan Symbols:     %d\n", len(cs.OrphanSymbols)))

	sb.WriteString("\nCOMPLEXITY\n")
	sb.WriteString("─────────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Avg Function Length: %.1f lines\n", cs.AverageFunctionLength))
	sb.WriteString(fmt.Sprintf("  Max Function Length: %d lines\n", cs.MaxFunctionLength))
	sb.WriteString(fmt.Sprintf("  Symbols per File:    %.1f\n", cs.AverageSymbolsPerFile))

	sb.WriteString("\nCALL GRAPH\n")
	sb.WriteString("─────────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Total Edges:        %d\n", cs.TotalCallEdges))
	sb.WriteString(fmt.Sprintf("  Avg Fan-Out:        %.2f\n", cs.AverageFanOut))
	sb.WriteString(fmt.Sprintf("  Avg Fan-In:         %.2f\n", cs.AverageFanIn))

	sb.WriteString("\nARCHITECTURE\n")
	sb.WriteString("─────────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Entry Points:       %d\n", len(cs.EntryPoints)))

	return sb.String()
}
