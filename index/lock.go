package index

import (
	"fmt"

	"github.com/gofrs/flock"
)

// writerLock is the cross-process guard that keeps one writer per database file.
type writerLock struct {
	flock *flock.Flock
	held  bool
}

func newWriterLock(dbPath string) *writerLock {
	return &writerLock{flock: flock.New(dbPath + ".lock")}
}

// tryAcquire takes the lock without blocking. It returns false when another
// process already holds it.
func (l *writerLock) tryAcquire() (bool, error) {
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire writer lock: %w", err)
	}
	l.held = acquired
	return acquired, nil
}

func (l *writerLock) release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release writer lock: %w", err)
	}
	return nil
}
