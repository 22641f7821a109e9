package search

// TotalMode selects how Meta.Total is computed.
type TotalMode string

const (
	// TotalExact re-runs the fetch without a limit when the first one was truncated.
	TotalExact TotalMode = "exact"
	// TotalApprox reports the filtered count of the fetched window.
	TotalApprox TotalMode = "approx"
)

const (
	DefaultLimit        = 20
	MaxLimit            = 100
	DefaultSnippetLines = 5
	MaxSnippetLines     = 20

	// overFetchFactor widens the fetch window when post-filters would
	// otherwise starve the page.
	overFetchFactor = 5
	// rerankScanCap bounds the rows inspected when the final order differs
	// from store order (regex scoring, recency boost). The window must not
	// depend on the page, or pages would overlap.
	rerankScanCap = 5000
)

// Options is one query. It is not modified by the engine.
type Options struct {
	Query           string
	Repo            string
	Limit           int
	Offset          int
	SnippetLines    int
	FileTypes       []string
	PathPattern     string
	ExcludePatterns []string
	RecencyBoost    bool
	UseRegex        bool
	CaseSensitive   bool
	TotalMode       TotalMode
}

// Normalized applies defaults and clamps limits.
func (o Options) Normalized() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	o.Limit = min(o.Limit, MaxLimit)
	o.Offset = max(o.Offset, 0)
	if o.SnippetLines <= 0 {
		o.SnippetLines = DefaultSnippetLines
	}
	o.SnippetLines = min(o.SnippetLines, MaxSnippetLines)
	if o.TotalMode != TotalExact {
		o.TotalMode = TotalApprox
	}
	return o
}

// Hit is one ranked result.
type Hit struct {
	Repo       string  `json:"repo"`
	Path       string  `json:"path"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
	Mtime      int64   `json:"mtime"`
	Size       int64   `json:"size"`
	MatchCount int     `json:"match_count"`
	FileType   string  `json:"file_type"`
	Reason     string  `json:"reason"`
}

// Meta describes how a query was answered.
type Meta struct {
	FallbackUsed bool      `json:"fallback_used"`
	TotalScanned int       `json:"total_scanned"`
	Total        int       `json:"total"`
	TotalMode    TotalMode `json:"total_mode"`
	RegexMode    bool      `json:"regex_mode,omitempty"`
	RegexError   string    `json:"regex_error,omitempty"`
}
