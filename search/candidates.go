package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultRepoCandidates = 3
	MaxRepoCandidates     = 5
	maxEvidenceLength     = 200
)

// RepoCandidate is a repo likely to hold what the query is about.
type RepoCandidate struct {
	Repo     string  `json:"repo"`
	Score    float64 `json:"score"`
	Evidence string  `json:"evidence"`
}

// RepoCandidates ranks repos by the number of files matching query and
// attaches "path: line" evidence from each repo's best file.
func (e *Engine) RepoCandidates(ctx context.Context, query string, limit int) ([]RepoCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []RepoCandidate{}, nil
	}
	if limit <= 0 {
		limit = DefaultRepoCandidates
	}
	limit = min(limit, MaxRepoCandidates)

	terms := ExtractTerms(query)
	options := Options{Query: query}
	var discard Meta
	mode, err := e.selectMode(query, terms, options, &discard)
	if err != nil {
		return nil, err
	}
	rows, err := mode.fetch(ctx, rerankScanCap)
	if err != nil {
		if _, isFullText := mode.(*fullTextMode); !isFullText {
			return nil, fmt.Errorf("repo candidates %q: %w", query, err)
		}
		mode = e.newSubstringMode(terms, query, options)
		if rows, err = mode.fetch(ctx, rerankScanCap); err != nil {
			return nil, fmt.Errorf("repo candidates %q: %w", query, err)
		}
	}

	var candidates []RepoCandidate
	positions := make(map[string]int)
	for _, row := range rows {
		if pos, seen := positions[row.Repo]; seen {
			candidates[pos].Score++
			continue
		}
		positions[row.Repo] = len(candidates)
		candidates = append(candidates, RepoCandidate{
			Repo:     row.Repo,
			Score:    1,
			Evidence: evidence(mode, row.Path, row.Content),
		})
	}

	slices.SortStableFunc(candidates, func(a, b RepoCandidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if candidates == nil {
		candidates = []RepoCandidate{}
	}
	return candidates, nil
}

func evidence(mode queryMode, path string, content string) string {
	offset, _, found := mode.locate(content)
	if !found {
		return path
	}
	text := path + ": " + firstMatchingLine(content, offset)
	if runes := []rune(text); len(runes) > maxEvidenceLength {
		text = string(runes[:maxEvidenceLength])
	}
	return text
}
