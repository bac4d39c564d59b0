package query

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"

	"github.com/oldnordic/magellan-go/internal/types"
)

// FuzzyMatch is one ranked candidate from ResolveSymbolFuzzy.
type FuzzyMatch struct {
	Symbol     types.Symbol
	Similarity float64 // 0..1, Jaro-Winkler
}

// ResolveSymbolFuzzy ranks every known symbol against query by Jaro-Winkler
// similarity (via go-edlib) on a Porter2-stemmed, lowercased comparison, and
// returns every match at or above threshold sorted by descending
// similarity. Used when an exact FQN or name lookup misses, e.g. the MCP
// tools' find_symbol with a typo'd or partial name.
func (q *Queries) ResolveSymbolFuzzy(query string, threshold float64, limit int) ([]FuzzyMatch, error) {
	if threshold <= 0 {
		threshold = 0.75
	}
	symbols, err := q.allSymbolNames()
	if err != nil {
		return nil, err
	}

	needle := stemmedKey(query)
	matches := make([]FuzzyMatch, 0, len(symbols))
	for _, sym := range symbols {
		hay := stemmedKey(sym.Name)
		sim, err := edlib.StringsSimilarity(needle, hay, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(sim) >= threshold {
			matches = append(matches, FuzzyMatch{Symbol: sym, Similarity: float64(sim)})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// stemmedKey lowercases name, splits it on '_', '-' and '.', Porter2-stems
// each part and joins the stems back together, the same normalization the teacher's semantic search applies before comparing
// identifiers that differ only by pluralization or verb tense
// ("getUser" vs "getUsers").
func stemmedKey(name string) string {
	name = normalizeForFuzzy(name)
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, p := range parts {
		parts[i] = porter2.Stem(p)
	}
	return strings.Join(parts, "")
}
