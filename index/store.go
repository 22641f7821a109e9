// Package index persists indexed file contents in SQLite and exposes the
// query primitives used by the search engine.
//
// The store keeps two handles on one database file: a single-connection
// writer serialized by a mutex, and an independent reader pool that never
// takes that mutex. WAL journaling lets readers see only committed batches.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// busyTimeoutMillis bounds every wait on a locked database.
const busyTimeoutMillis = 5000

// Options configures Open.
type Options struct {
	// Path of the database file. Parent directories are created.
	Path string
	// DisableFullText forces degraded substring-only mode.
	DisableFullText bool
	Logger          *slog.Logger
}

// Store is the durable table of indexed files plus the optional FTS5 index.
type Store struct {
	path     string
	logger   *slog.Logger
	writeMu  sync.Mutex
	writer   *sql.DB // nil when read-only
	reader   *sql.DB
	lock     *writerLock
	fullText bool
	readOnly bool
	closed   atomic.Bool
}

// Open opens or creates the store at options.Path. Full-text availability
// is decided here, once, and never re-probed.
//
// If another process holds the writer lock the store opens read-only:
// queries work, writes return ErrReadOnly.
func Open(ctx context.Context, options Options) (*Store, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.Path == "" {
		return nil, errors.New("index: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(options.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", options.Path, err)
	}

	store := &Store{
		path:   options.Path,
		logger: logger,
		lock:   newWriterLock(options.Path),
	}

	acquired, err := store.lock.tryAcquire()
	if err != nil {
		return nil, err
	}
	store.readOnly = !acquired

	if !store.readOnly {
		if err := store.openWriter(ctx, options.DisableFullText); err != nil {
			_ = store.lock.release()
			return nil, err
		}
	}

	if err := store.openReader(ctx); err != nil {
		_ = store.closeHandles()
		_ = store.lock.release()
		return nil, err
	}

	if store.readOnly && !options.DisableFullText {
		// The lock holder maintains the triggers; trust what it created.
		store.fullText = store.hasTrigger(ctx, "files_ai")
	}

	logger.Info("index store opened",
		"path", store.path,
		"fullText", store.fullText,
		"readOnly", store.readOnly,
	)
	return store, nil
}

func (s *Store) dsn(extra string) string {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		s.path, busyTimeoutMillis)
	return dsn + extra
}

func (s *Store) openWriter(ctx context.Context, disableFullText bool) error {
	db, err := sql.Open("sqlite", s.dsn("&_txlock=immediate"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, createFilesTable); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.writer = db

	if disableFullText {
		s.dropFullText(ctx)
		return nil
	}
	s.fullText = s.enableFullText(ctx)
	return nil
}

// enableFullText creates the FTS5 table and its triggers. Any failure
// leaves the store permanently degraded.
func (s *Store) enableFullText(ctx context.Context) bool {
	existed := s.hasTable(ctx, s.writer, "files_fts")

	if _, err := s.writer.ExecContext(ctx, createFullTextTable); err != nil {
		s.logger.Warn("full-text index unavailable, using substring search", "error", err)
		s.dropTriggers(ctx)
		return false
	}
	if _, err := s.writer.ExecContext(ctx, createFullTextTriggers); err != nil {
		s.logger.Warn("full-text triggers unavailable, using substring search", "error", err)
		s.dropTriggers(ctx)
		return false
	}

	if !existed {
		var count int
		if err := s.writer.QueryRowContext(ctx, "SELECT COUNT(1) FROM files").Scan(&count); err == nil && count > 0 {
			if _, err := s.writer.ExecContext(ctx, rebuildFullText); err != nil {
				s.logger.Warn("full-text rebuild failed, using substring search", "error", err)
				s.dropTriggers(ctx)
				return false
			}
			s.logger.Info("rebuilt full-text index", "files", count)
		}
	}
	return true
}

// dropFullText removes triggers and the FTS table so that a later full-text
// open starts from a rebuild instead of a stale shadow index.
func (s *Store) dropFullText(ctx context.Context) {
	s.dropTriggers(ctx)
	if _, err := s.writer.ExecContext(ctx, "DROP TABLE IF EXISTS files_fts"); err != nil {
		s.logger.Warn("failed to drop full-text table", "error", err)
	}
}

func (s *Store) dropTriggers(ctx context.Context) {
	if _, err := s.writer.ExecContext(ctx, dropFullTextTriggers); err != nil {
		s.logger.Warn("failed to drop full-text triggers", "error", err)
	}
}

func (s *Store) openReader(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn("&_pragma=query_only(1)"))
	if err != nil {
		return fmt.Errorf("failed to open reader: %w", err)
	}
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to open reader: %w", err)
	}
	s.reader = db
	return nil
}

func (s *Store) hasTable(ctx context.Context, db *sql.DB, name string) bool {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	return err == nil && count > 0
}

func (s *Store) hasTrigger(ctx context.Context, name string) bool {
	var count int
	err := s.reader.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'trigger' AND name = ?", name).Scan(&count)
	return err == nil && count > 0
}

// FullTextEnabled reports the capability decided at Open.
func (s *Store) FullTextEnabled() bool { return s.fullText }

// ReadOnly reports whether another process owns the writer lock.
func (s *Store) ReadOnly() bool { return s.readOnly }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close checkpoints the WAL, closes both handles and releases the writer lock.
// Calling Close more than once is a no-op.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writer != nil {
		_, _ = s.writer.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	err := s.closeHandles()
	if lockErr := s.lock.release(); lockErr != nil && err == nil {
		err = lockErr
	}
	return err
}

func (s *Store) closeHandles() error {
	var errs []error
	if s.reader != nil {
		errs = append(errs, s.reader.Close())
	}
	if s.writer != nil {
		errs = append(errs, s.writer.Close())
	}
	return errors.Join(errs...)
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}
