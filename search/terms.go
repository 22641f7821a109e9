package search

import "strings"

// maxFieldPrefix is the longest "name:" qualifier stripped from a term.
const maxFieldPrefix = 10

var booleanOperators = map[string]struct{}{"AND": {}, "OR": {}, "NOT": {}}

// ExtractTerms splits a query into literal search terms: whitespace split,
// quotes stripped, AND/OR/NOT dropped and short "field:" prefixes removed.
func ExtractTerms(query string) []string {
	var terms []string
	for _, raw := range strings.Fields(query) {
		term := strings.Trim(raw, `"'`)
		if term == "" {
			continue
		}
		if _, isOperator := booleanOperators[term]; isOperator {
			continue
		}
		if idx := strings.IndexByte(term, ':'); idx >= 0 && idx <= maxFieldPrefix {
			term = term[idx+1:]
		}
		term = strings.TrimSpace(strings.Trim(term, `"'`))
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
