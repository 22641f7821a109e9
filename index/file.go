package index

// IndexedFile is one stored file. Path is the unique key: workspace
// relative with forward slashes. Mtime (unix seconds) and Size form the
// change-detection fingerprint. Content is already redacted.
type IndexedFile struct {
	Path    string
	Repo    string
	Mtime   int64
	Size    int64
	Content string
}

// FileMeta is the stored fingerprint of a file.
type FileMeta struct {
	Mtime int64
	Size  int64
}

// ScoredFile is a query row with its raw store score (higher is better).
type ScoredFile struct {
	IndexedFile
	Score float64
}

// SubstringOptions configures SubstringQuery.
type SubstringOptions struct {
	// Terms must all be contained in the content or the path.
	Terms         []string
	Repo          string
	CaseSensitive bool
	// Limit <= 0 means unlimited.
	Limit int
}

// Stats summarizes the stored rows.
type Stats struct {
	Files      int
	Repos      int
	TotalBytes int64
	LastMtime  int64
}
