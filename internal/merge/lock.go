package merge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const lockPollInterval = 25 * time.Millisecond

// FileLock is an exclusive advisory lock keyed by a path. The merger locks
// base files; the processor locks project folders.
type FileLock struct {
	f *os.File
}

// LockPath returns the lock file used for path. Lock files live in the
// system temp dir so the locked folder holds only its own files.
func LockPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "lfmerge-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// Lock acquires the lock for path, polling until timeout elapses or ctx
// is done. A zero timeout tries exactly once.
func Lock(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	lockPath, err := LockPath(path)
	if err != nil {
		return nil, fmt.Errorf("lock path: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", lockPath, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := tryLockExclusive(f)
		if err == nil {
			return &FileLock{f: f}, nil
		}
		if !errors.Is(err, errWouldBlock) {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", lockPath, err)
		}
		if !time.Now().Before(deadline) {
			f.Close()
			return nil, &Error{Code: ErrCodeLocked, Message: "locked by another process", Path: path}
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Unlock releases the lock. Safe to call on a nil lock.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
