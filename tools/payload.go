package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lexandro/localsearch-mcp/config"
	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/indexer"
	"github.com/lexandro/localsearch-mcp/search"
)

// Zero-result hints.
const (
	HintBroaden       = "Try a broader query or remove filters."
	HintRemoveFilters = "Try removing 'file_types' or 'path_pattern' filters."
	HintRegex         = "Check the regular expression syntax, or set 'use_regex' to false for a literal search."
	HintCandidates    = "Use 'repo' parameter in search to narrow down scope after selection"
)

// SearchResponse is the search payload shared by the MCP and HTTP surfaces.
type SearchResponse struct {
	Query        string           `json:"query"`
	Total        int              `json:"total"`
	TotalMode    search.TotalMode `json:"total_mode"`
	FallbackUsed bool             `json:"fallback_used"`
	TotalScanned int              `json:"total_scanned"`
	Offset       int              `json:"offset"`
	Limit        int              `json:"limit"`
	RegexMode    bool             `json:"regex_mode,omitempty"`
	RegexError   string           `json:"regex_error,omitempty"`
	Filters      []string         `json:"filters,omitempty"`
	Hits         []search.Hit     `json:"hits"`
	Hints        []string         `json:"hints,omitempty"`
}

// RunSearch executes args against engine and decorates the result with
// filter descriptions and zero-result hints.
func RunSearch(ctx context.Context, engine *search.Engine, args SearchArgs) (SearchResponse, error) {
	options := args.Options().Normalized()
	hits, meta, err := engine.Search(ctx, options)
	if err != nil {
		return SearchResponse{}, err
	}
	for i := range hits {
		hits[i].Score = math.Round(hits[i].Score*1000) / 1000
	}

	response := SearchResponse{
		Query:        args.Query,
		Total:        meta.Total,
		TotalMode:    meta.TotalMode,
		FallbackUsed: meta.FallbackUsed,
		TotalScanned: meta.TotalScanned,
		Offset:       options.Offset,
		Limit:        options.Limit,
		RegexMode:    meta.RegexMode,
		RegexError:   meta.RegexError,
		Filters:      describeFilters(options),
		Hits:         hits,
	}
	if len(hits) == 0 {
		response.Hints = zeroResultHints(options, meta)
	}
	return response, nil
}

func zeroResultHints(options search.Options, meta search.Meta) []string {
	var hints []string
	if meta.RegexError != "" {
		hints = append(hints, HintRegex)
	}
	if len(options.FileTypes) > 0 || options.PathPattern != "" {
		hints = append(hints, HintRemoveFilters)
	}
	return append(hints, HintBroaden)
}

func describeFilters(options search.Options) []string {
	var filters []string
	if options.Repo != "" {
		filters = append(filters, "repo="+options.Repo)
	}
	if len(options.FileTypes) > 0 {
		filters = append(filters, fmt.Sprintf("file_types=%v", options.FileTypes))
	}
	if options.PathPattern != "" {
		filters = append(filters, "path_pattern="+options.PathPattern)
	}
	if len(options.ExcludePatterns) > 0 {
		filters = append(filters, fmt.Sprintf("exclude=%v", options.ExcludePatterns))
	}
	if options.RecencyBoost {
		filters = append(filters, "recency_boost=true")
	}
	if options.UseRegex {
		filters = append(filters, "regex=true")
	}
	return filters
}

// RepoCandidateView is one candidate with a human-readable strength label.
type RepoCandidateView struct {
	search.RepoCandidate
	Reason string `json:"reason"`
}

// RepoCandidatesResponse is the repo candidates payload.
type RepoCandidatesResponse struct {
	Query      string              `json:"query"`
	Candidates []RepoCandidateView `json:"candidates"`
	Hint       string              `json:"hint"`
}

// FindRepoCandidates ranks repos for query.
func FindRepoCandidates(ctx context.Context, engine *search.Engine, query string, limit int) (RepoCandidatesResponse, error) {
	candidates, err := engine.RepoCandidates(ctx, query, limit)
	if err != nil {
		return RepoCandidatesResponse{}, err
	}
	views := make([]RepoCandidateView, len(candidates))
	for i, candidate := range candidates {
		views[i] = RepoCandidateView{RepoCandidate: candidate, Reason: candidateReason(candidate.Score, query)}
	}
	return RepoCandidatesResponse{Query: query, Candidates: views, Hint: HintCandidates}, nil
}

func candidateReason(score float64, query string) string {
	files := int(score)
	switch {
	case files >= 10:
		return fmt.Sprintf("High match (%d files contain '%s')", files, query)
	case files >= 5:
		return fmt.Sprintf("Moderate match (%d files)", files)
	default:
		return fmt.Sprintf("Low match (%d files)", files)
	}
}

// StatusConfig is the configuration subset reported by status.
type StatusConfig struct {
	WorkspaceRoot       string   `json:"workspace_root"`
	IncludeExt          []string `json:"include_ext"`
	IncludeFiles        []string `json:"include_files"`
	ExcludeDirs         []string `json:"exclude_dirs"`
	ExcludeGlobs        []string `json:"exclude_globs"`
	MaxFileBytes        int64    `json:"max_file_bytes"`
	ScanIntervalSeconds int      `json:"scan_interval_seconds"`
}

// StatusResponse is the indexer snapshot plus store capabilities.
type StatusResponse struct {
	indexer.Snapshot
	FullTextEnabled bool         `json:"fts_enabled"`
	ReadOnly        bool         `json:"read_only"`
	DBPath          string       `json:"db_path"`
	IndexedTotal    int          `json:"indexed_total"`
	Repos           int          `json:"repos"`
	IndexedSize     string       `json:"indexed_size"`
	Uptime          string       `json:"uptime"`
	Config          StatusConfig `json:"config"`
}

// BuildStatus assembles the status payload.
func BuildStatus(ctx context.Context, store *index.Store, status *indexer.Status, cfg *config.Config, startTime time.Time) (StatusResponse, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{
		Snapshot:        status.Snapshot(),
		FullTextEnabled: store.FullTextEnabled(),
		ReadOnly:        store.ReadOnly(),
		DBPath:          store.Path(),
		IndexedTotal:    stats.Files,
		Repos:           stats.Repos,
		IndexedSize:     formatFileSize(stats.TotalBytes),
		Uptime:          formatDuration(time.Since(startTime)),
		Config: StatusConfig{
			WorkspaceRoot:       cfg.WorkspaceRoot,
			IncludeExt:          cfg.IncludeExt,
			IncludeFiles:        cfg.IncludeFiles,
			ExcludeDirs:         cfg.ExcludeDirs,
			ExcludeGlobs:        cfg.ExcludeGlobs,
			MaxFileBytes:        cfg.MaxFileBytes,
			ScanIntervalSeconds: cfg.ScanIntervalSeconds,
		},
	}, nil
}

// RescanResponse reports whether a rescan request was accepted.
type RescanResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// RequestRescan forwards a rescan request.
func RequestRescan(doRescan RescanFunc) RescanResponse {
	if doRescan() {
		return RescanResponse{Accepted: true, Message: "rescan scheduled"}
	}
	return RescanResponse{Accepted: false, Message: "rescan throttled, a recent request is still pending"}
}
