// Package indexer runs the scan passes that keep the store in step with
// the workspace: walk, change detection, redaction and batched upserts.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/language"
	"github.com/lexandro/localsearch-mcp/redact"
	"github.com/lexandro/localsearch-mcp/scanner"
)

const (
	DefaultInterval          = 180 * time.Second
	DefaultBatchSize         = 500
	DefaultMaxFileBytes      = 800_000
	DefaultWorkers           = 8
	DefaultRescanMinInterval = 2 * time.Second
)

// Store is the persistence the indexer writes to. *index.Store satisfies it.
type Store interface {
	GetFileMeta(ctx context.Context, path string) (index.FileMeta, bool, error)
	UpsertFiles(ctx context.Context, rows []index.IndexedFile) (int, error)
	DeleteFiles(ctx context.Context, paths []string) (int, error)
	AllPaths(ctx context.Context) ([]string, error)
}

// Options configures an Indexer. Zero values take the defaults.
type Options struct {
	Interval          time.Duration
	BatchSize         int
	MaxFileBytes      int64
	Workers           int
	RescanMinInterval time.Duration
	Logger            *slog.Logger
}

// Indexer owns the background scan loop and the status it publishes.
type Indexer struct {
	scanner  *scanner.Scanner
	store    Store
	status   *Status
	options  Options
	logger   *slog.Logger
	readFile func(path string) ([]byte, error)

	scanMu   sync.Mutex
	limiter  *rate.Limiter
	trigger  chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// New creates an indexer. Nothing runs until Start or ScanOnce.
func New(fileScanner *scanner.Scanner, store Store, options Options) *Indexer {
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}
	if options.MaxFileBytes <= 0 {
		options.MaxFileBytes = DefaultMaxFileBytes
	}
	if options.Workers <= 0 {
		options.Workers = DefaultWorkers
	}
	if options.RescanMinInterval <= 0 {
		options.RescanMinInterval = DefaultRescanMinInterval
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		scanner:  fileScanner,
		store:    store,
		status:   NewStatus(),
		options:  options,
		logger:   logger,
		readFile: readFileWithRetry,
		limiter:  rate.NewLimiter(rate.Every(options.RescanMinInterval), 1),
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Status returns the published status.
func (ix *Indexer) Status() *Status { return ix.status }

// Start runs one pass synchronously, so the index is ready when it
// returns, then keeps scanning on every interval tick or rescan request
// until Stop is called or ctx is done.
func (ix *Indexer) Start(ctx context.Context) error {
	if !ix.started.CompareAndSwap(false, true) {
		return errors.New("indexer already started")
	}
	ix.ScanOnce(ctx)
	go ix.loop(ctx)
	return nil
}

// Stop signals the loop and waits for it to exit. A pass in progress runs
// to completion first.
func (ix *Indexer) Stop() {
	ix.stopOnce.Do(func() { close(ix.stop) })
	if ix.started.Load() {
		<-ix.done
	}
}

// RequestRescan asks for a pass before the next tick. Requests are
// throttled and coalesce into one pending trigger; false means throttled.
func (ix *Indexer) RequestRescan() bool {
	if !ix.limiter.Allow() {
		return false
	}
	select {
	case ix.trigger <- struct{}{}:
	default:
	}
	return true
}

func (ix *Indexer) loop(ctx context.Context) {
	defer close(ix.done)
	defer ix.markStopped()

	ticker := time.NewTicker(ix.options.Interval)
	defer ticker.Stop()

	// Passes run to completion even when ctx is cancelled mid-scan.
	scanCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ix.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-ix.trigger:
		}
		select {
		case <-ix.trigger:
		default:
		}
		ix.ScanOnce(scanCtx)
	}
}

// markStopped waits out any pass still holding scanMu so the stopped
// state is not overwritten by that pass's final snapshot.
func (ix *Indexer) markStopped() {
	ix.scanMu.Lock()
	defer ix.scanMu.Unlock()
	ix.status.setState(StateStopped)
}

type passCounts struct {
	scanned int
	indexed int
	skipped int
	deleted int
	errors  int
}

// ScanOnce runs one full pass and publishes its snapshot. Per-file
// failures are counted, never fatal. Paths no longer observed are deleted
// only when the walk covered the whole tree.
func (ix *Indexer) ScanOnce(ctx context.Context) Snapshot {
	ix.scanMu.Lock()
	defer ix.scanMu.Unlock()

	scanID := uuid.NewString()
	logger := ix.logger.With("scanID", scanID, "root", ix.scanner.Root())
	startTime := time.Now()
	ix.status.setState(StateScanning)
	ix.scanner.ReloadRules()

	var counts passCounts
	seen := make(map[string]struct{})
	walkComplete := true
	pending := make([]scanner.Candidate, 0, ix.options.BatchSize)

	for candidate, err := range ix.scanner.Walk(ctx) {
		if err != nil {
			counts.errors++
			var entryErr *scanner.EntryError
			if errors.As(err, &entryErr) && !entryErr.IsDir {
				seen[entryErr.RelPath] = struct{}{}
			} else {
				walkComplete = false
			}
			logger.Warn("scan error", "error", err)
			continue
		}

		counts.scanned++
		if candidate.Size > ix.options.MaxFileBytes {
			counts.skipped++
			logger.Debug("skipped oversized file", "path", candidate.RelPath, "size", candidate.Size)
			continue
		}
		seen[candidate.RelPath] = struct{}{}

		meta, found, err := ix.store.GetFileMeta(ctx, candidate.RelPath)
		if err != nil {
			counts.errors++
			logger.Warn("metadata lookup failed", "path", candidate.RelPath, "error", err)
			continue
		}
		var prior *index.FileMeta
		if found {
			prior = &meta
		}
		if !NeedsReindex(candidate.ModTime.Unix(), candidate.Size, prior) {
			continue
		}

		pending = append(pending, candidate)
		if len(pending) >= ix.options.BatchSize {
			ix.flush(ctx, logger, pending, seen, &counts)
			pending = pending[:0]
		}
	}
	ix.flush(ctx, logger, pending, seen, &counts)

	if walkComplete {
		ix.deleteUnseen(ctx, logger, seen, &counts)
	}

	snapshot := Snapshot{
		Ready:        true,
		State:        StateIdle,
		ScanID:       scanID,
		LastScanAt:   time.Now(),
		ScannedFiles: counts.scanned,
		IndexedFiles: counts.indexed,
		SkippedFiles: counts.skipped,
		DeletedFiles: counts.deleted,
		Errors:       counts.errors,
		LastDuration: time.Since(startTime),
	}
	ix.status.publish(snapshot)

	logger.Info("scan pass complete",
		"scanned", counts.scanned,
		"indexed", counts.indexed,
		"skipped", counts.skipped,
		"deleted", counts.deleted,
		"errors", counts.errors,
		"duration", snapshot.LastDuration,
	)
	return snapshot
}

type readResult struct {
	row    index.IndexedFile
	binary bool
	err    error
}

// flush reads, redacts and upserts one batch. Reads run on a bounded
// worker group; the upsert is a single transaction.
func (ix *Indexer) flush(ctx context.Context, logger *slog.Logger, batch []scanner.Candidate, seen map[string]struct{}, counts *passCounts) {
	if len(batch) == 0 {
		return
	}

	results := make([]readResult, len(batch))
	var group errgroup.Group
	group.SetLimit(ix.options.Workers)
	for i, candidate := range batch {
		group.Go(func() error {
			results[i] = ix.readCandidate(candidate)
			return nil
		})
	}
	_ = group.Wait()

	rows := make([]index.IndexedFile, 0, len(batch))
	for i, result := range results {
		relPath := batch[i].RelPath
		switch {
		case result.err != nil:
			// The stored row, if any, is kept until the file is readable again.
			counts.errors++
			logger.Warn("read failed", "path", relPath, "error", result.err)
		case result.binary:
			counts.skipped++
			delete(seen, relPath)
			logger.Debug("skipped binary file", "path", relPath)
		default:
			rows = append(rows, result.row)
		}
	}

	written, err := ix.store.UpsertFiles(ctx, rows)
	if err != nil {
		counts.errors += len(rows)
		logger.Error("batch upsert failed", "files", len(rows), "error", err)
		return
	}
	counts.indexed += written
}

func (ix *Indexer) readCandidate(candidate scanner.Candidate) readResult {
	data, err := ix.readFile(candidate.AbsPath)
	if err != nil {
		return readResult{err: fmt.Errorf("reading file: %w", err)}
	}
	if language.IsBinaryContent(data) {
		return readResult{binary: true}
	}
	return readResult{row: index.IndexedFile{
		Path:    candidate.RelPath,
		Repo:    language.RepoOf(candidate.RelPath),
		Mtime:   candidate.ModTime.Unix(),
		Size:    candidate.Size,
		Content: redact.Text(string(data)),
	}}
}

func (ix *Indexer) deleteUnseen(ctx context.Context, logger *slog.Logger, seen map[string]struct{}, counts *passCounts) {
	stored, err := ix.store.AllPaths(ctx)
	if err != nil {
		counts.errors++
		logger.Warn("listing stored paths failed", "error", err)
		return
	}
	var stale []string
	for _, path := range stored {
		if _, ok := seen[path]; !ok {
			stale = append(stale, path)
		}
	}
	for start := 0; start < len(stale); start += ix.options.BatchSize {
		chunk := stale[start:min(len(stale), start+ix.options.BatchSize)]
		deleted, err := ix.store.DeleteFiles(ctx, chunk)
		if err != nil {
			counts.errors++
			logger.Error("delete failed", "files", len(chunk), "error", err)
			continue
		}
		counts.deleted += deleted
	}
}

// readFileWithRetry attempts to read a file, retrying once after a short delay
// if the file is locked (common on Windows when editors are saving).
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		time.Sleep(50 * time.Millisecond)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
