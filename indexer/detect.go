package indexer

import "github.com/lexandro/localsearch-mcp/index"

// NeedsReindex reports whether a file must be re-read: true when no prior
// metadata is stored or when either mtime or size differs from it.
//
// The (mtime, size) pair is a fingerprint, not a content hash. An edit
// that preserves both (same-size rewrite within one second, clock skew)
// is not detected until the fingerprint changes again.
func NeedsReindex(currentMtime int64, currentSize int64, prior *index.FileMeta) bool {
	if prior == nil {
		return true
	}
	return prior.Mtime != currentMtime || prior.Size != currentSize
}
