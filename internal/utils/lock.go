package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
)

// DBLock is a cross-process lock guarding writes to the directory database.
// It is safe to share between goroutines of one process.
type DBLock struct {
	// mu excludes goroutines sharing this DBLock; the file lock only
	// excludes other processes.
	mu   sync.Mutex
	lock *flock.Flock
	path string
}

// NewDBLock creates a lock next to the database at dbPath.
func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the lock, waiting for the current holder if there is one.
func (l *DBLock) Lock() error {
	l.mu.Lock()

	locked, err := l.lock.TryLock()
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		Log.Warn("Another callerid process is writing to the directory, waiting for it to finish...")
		if err := l.lock.Lock(); err != nil {
			l.mu.Unlock()
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases a lock taken by a successful Lock.
func (l *DBLock) Unlock() error {
	defer l.mu.Unlock()
	if err := l.lock.Unlock(); err != nil {
		// Not holding the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// WithLock runs fn while holding the lock.
func (l *DBLock) WithLock(fn func() error) error {
	if err := l.Lock(); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}

// GetAbsDBPath resolves the database path, defaulting to
// ~/.config/callerid/callerid.sqlite.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "callerid", "callerid.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
