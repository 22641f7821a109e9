package index

import (
	"context"
	"database/sql"
	"fmt"
)

// UPSERT rather than REPLACE: REPLACE deletes without firing the delete
// trigger, which would leave stale rows in files_fts.
const upsertFile = `
INSERT INTO files (path, repo, mtime, size, content)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	repo = excluded.repo,
	mtime = excluded.mtime,
	size = excluded.size,
	content = excluded.content
`

// UpsertFiles inserts or replaces rows by path in one transaction and
// returns the number written. Readers never observe a partial batch.
func (s *Store) UpsertFiles(ctx context.Context, rows []IndexedFile) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	written := 0
	err := s.inWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertFile)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row.Path, row.Repo, row.Mtime, row.Size, row.Content); err != nil {
				return fmt.Errorf("upsert %s: %w", row.Path, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// DeleteFiles removes rows by path in one transaction and returns the
// number of rows actually deleted.
func (s *Store) DeleteFiles(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	deleted := 0
	err := s.inWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM files WHERE path = ?")
		if err != nil {
			return fmt.Errorf("prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, path := range paths {
			result, err := stmt.ExecContext(ctx, path)
			if err != nil {
				return fmt.Errorf("delete %s: %w", path, err)
			}
			if n, err := result.RowsAffected(); err == nil {
				deleted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// inWriteTx runs fn in a writer transaction under the write mutex.
// The transaction is rolled back if fn fails.
func (s *Store) inWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.readOnly {
		return ErrReadOnly
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write transaction: %w", err)
	}
	return nil
}
