package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/roach88/lfmerge/internal/lift"
	"github.com/roach88/lfmerge/internal/updates"
)

// DefaultBackupSuffix is appended to the base path to name the backup.
const DefaultBackupSuffix = ".bak"

// DefaultLockTimeout bounds how long a merge waits for another merge of the
// same base file.
const DefaultLockTimeout = 5 * time.Second

// Merger applies update files to base LIFT files.
type Merger struct {
	logger       *slog.Logger
	backupSuffix string
	lockTimeout  time.Duration
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithBackupSuffix overrides the backup file suffix.
func WithBackupSuffix(suffix string) Option {
	return func(m *Merger) {
		if suffix != "" {
			m.backupSuffix = suffix
		}
	}
}

// WithLockTimeout overrides how long to wait for the base file's lock.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Merger) {
		if d >= 0 {
			m.lockTimeout = d
		}
	}
}

// New creates a Merger.
func New(opts ...Option) *Merger {
	m := &Merger{
		logger:       slog.Default(),
		backupSuffix: DefaultBackupSuffix,
		lockTimeout:  DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AppliedUpdate describes one consumed update file.
type AppliedUpdate struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Hash    string    `json:"hash"`
	Entries int       `json:"entries"`
}

// Result reports a merge call.
type Result struct {
	BasePath   string          `json:"base_path"`
	BackupPath string          `json:"backup_path,omitempty"`
	Applied    []AppliedUpdate `json:"applied"`
	Stats      Stats           `json:"stats"`
	InputHash  string          `json:"input_hash,omitempty"`
	OutputHash string          `json:"output_hash,omitempty"`
}

// BackupPath returns where the backup of basePath is written.
func (m *Merger) BackupPath(basePath string) string {
	return basePath + m.backupSuffix
}

// MergeUpdatesIntoFile applies files to the LIFT document at basePath in the
// order given.
//
// With no files it returns immediately without touching disk. Otherwise every
// update is parsed before anything is written; on success the base is
// replaced atomically, the previous content is kept in the backup, and the
// update files are deleted.
func (m *Merger) MergeUpdatesIntoFile(ctx context.Context, basePath string, files []updates.UpdateFile) (*Result, error) {
	res := &Result{BasePath: basePath, Applied: []AppliedUpdate{}}
	if len(files) == 0 {
		m.logger.Debug("no updates to merge", "base", basePath)
		return res, nil
	}

	lock, err := Lock(ctx, basePath, m.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("release merge lock", "base", basePath, "error", err)
		}
	}()

	baseBytes, err := os.ReadFile(basePath)
	if err != nil {
		return nil, newConfigurationError(basePath, err)
	}
	doc, err := lift.Parse(baseBytes)
	if err != nil {
		return nil, newConfigurationError(basePath, err)
	}
	res.InputHash = lift.HashDocument(baseBytes)

	batches := make([]Batch, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, newMalformedUpdateError(f.Path, err)
		}
		entries, err := lift.ParseUpdate(data)
		if err != nil {
			return nil, newMalformedUpdateError(f.Path, err)
		}
		batches = append(batches, Batch{Name: f.Name, Entries: entries})
		res.Applied = append(res.Applied, AppliedUpdate{
			Name:    f.Name,
			Path:    f.Path,
			ModTime: f.ModTime,
			Hash:    lift.HashUpdate(data),
			Entries: len(entries),
		})
	}

	res.Stats = Apply(doc, batches...)

	merged, err := doc.Bytes()
	if err != nil {
		return nil, newCommitError(basePath, err)
	}
	res.OutputHash = lift.HashDocument(merged)
	res.BackupPath = m.BackupPath(basePath)

	if err := m.commit(basePath, res.BackupPath, baseBytes, merged); err != nil {
		return nil, err
	}
	if err := m.removeApplied(files); err != nil {
		return res, err
	}

	m.logger.Info("merged updates",
		"base", basePath,
		"files", res.Stats.Files,
		"entries", res.Stats.Entries,
		"replaced", res.Stats.Replaced,
		"appended", res.Stats.Appended,
		"tombstoned", res.Stats.Tombstoned,
	)
	return res, nil
}

// commit writes the backup, then the merged base.
func (m *Merger) commit(basePath, backupPath string, original, merged []byte) error {
	info, err := os.Stat(basePath)
	if err != nil {
		return newCommitError(basePath, err)
	}

	if err := atomic.WriteFile(backupPath, bytes.NewReader(original)); err != nil {
		return newCommitError(backupPath, err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(backupPath, info.Mode().Perm()); err != nil {
		return newCommitError(backupPath, err)
	}

	if err := atomic.WriteFile(basePath, bytes.NewReader(merged)); err != nil {
		return newCommitError(basePath, err)
	}
	return nil
}

// removeApplied deletes consumed update files. A file that is already gone
// is not an error.
func (m *Merger) removeApplied(files []updates.UpdateFile) error {
	var errs []error
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("remove applied update", "path", f.Path, "error", err)
			errs = append(errs, fmt.Errorf("remove %s: %w", f.Path, err))
		}
	}
	return errors.Join(errs...)
}
