package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/localsearch-mcp/search"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the localsearch_search tool.
type SearchArgs struct {
	Query           string   `json:"query" jsonschema:"Search query. Words are matched by full-text ranking; set use_regex for a regular expression"`
	Repo            string   `json:"repo,omitempty" jsonschema:"Restrict results to one top-level directory (__root__ for files at the workspace root)"`
	Limit           int      `json:"limit,omitempty" jsonschema:"Maximum number of hits to return (default 20, max 100)"`
	Offset          int      `json:"offset,omitempty" jsonschema:"Number of ranked hits to skip for pagination"`
	SnippetLines    int      `json:"snippet_lines,omitempty" jsonschema:"Lines of context in each snippet (default 5, max 20)"`
	FileTypes       []string `json:"file_types,omitempty" jsonschema:"Only include these file extensions (e.g. go or .md)"`
	PathPattern     string   `json:"path_pattern,omitempty" jsonschema:"Glob the relative path must match (e.g. src/**/*.go)"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty" jsonschema:"Globs or substrings; matching paths are dropped"`
	RecencyBoost    bool     `json:"recency_boost,omitempty" jsonschema:"Boost recently modified files"`
	UseRegex        bool     `json:"use_regex,omitempty" jsonschema:"Treat query as a regular expression"`
	CaseSensitive   bool     `json:"case_sensitive,omitempty" jsonschema:"Case-sensitive matching in substring and regex modes"`
	TotalMode       string   `json:"total_mode,omitempty" jsonschema:"exact or approx (default approx)"`
}

// Options converts the arguments into engine options.
func (a SearchArgs) Options() search.Options {
	return search.Options{
		Query:           a.Query,
		Repo:            a.Repo,
		Limit:           a.Limit,
		Offset:          a.Offset,
		SnippetLines:    a.SnippetLines,
		FileTypes:       a.FileTypes,
		PathPattern:     a.PathPattern,
		ExcludePatterns: a.ExcludePatterns,
		RecencyBoost:    a.RecencyBoost,
		UseRegex:        a.UseRegex,
		CaseSensitive:   a.CaseSensitive,
		TotalMode:       search.TotalMode(a.TotalMode),
	}
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Engine *search.Engine
	Logger *slog.Logger
}

// Handle processes a localsearch_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("localsearch_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	response, err := RunSearch(ctx, h.Engine, args)
	if err != nil {
		h.Logger.Error("localsearch_search failed", "query", args.Query, "error", err)
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("localsearch_search",
		"query", args.Query,
		"repo", args.Repo,
		"hits", len(response.Hits),
		"total", response.Total,
		"fallback", response.FallbackUsed,
		"elapsed", time.Since(start),
	)

	return jsonResult(response)
}

// RepoCandidatesArgs defines the input parameters for the localsearch_repo_candidates tool.
type RepoCandidatesArgs struct {
	Query string `json:"query" jsonschema:"What you are looking for"`
	Limit int    `json:"limit,omitempty" jsonschema:"Number of repos to return (default 3, max 5)"`
}

// RepoCandidatesHandler holds the dependencies for the repo candidates tool.
type RepoCandidatesHandler struct {
	Engine *search.Engine
	Logger *slog.Logger
}

// Handle processes a localsearch_repo_candidates request.
func (h *RepoCandidatesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RepoCandidatesArgs) (*mcp.CallToolResult, any, error) {
	if args.Query == "" {
		h.Logger.Warn("localsearch_repo_candidates called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	response, err := FindRepoCandidates(ctx, h.Engine, args.Query, args.Limit)
	if err != nil {
		h.Logger.Error("localsearch_repo_candidates failed", "query", args.Query, "error", err)
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("localsearch_repo_candidates", "query", args.Query, "candidates", len(response.Candidates))
	return jsonResult(response)
}
