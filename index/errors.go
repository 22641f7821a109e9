package index

import "errors"

var (
	// ErrFullTextUnavailable is returned by FullTextQuery on a degraded store.
	ErrFullTextUnavailable = errors.New("full-text index unavailable")
	// ErrQuerySyntax wraps a full-text query the engine rejected.
	ErrQuerySyntax = errors.New("full-text query syntax error")
	// ErrReadOnly is returned by writes when another process owns the writer lock.
	ErrReadOnly = errors.New("store is read-only")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store is closed")
)
