package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunStatus is the outcome of a merge run.
type RunStatus string

const (
	RunMerged  RunStatus = "merged"
	RunFailed  RunStatus = "failed"
	RunSkipped RunStatus = "skipped"
)

// Run is one merge call against one base file.
type Run struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Project    string    `json:"project"`
	Sha        string    `json:"sha"`
	BasePath   string    `json:"base_path"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`

	Files      int `json:"files"`
	Entries    int `json:"entries"`
	Replaced   int `json:"replaced"`
	Appended   int `json:"appended"`
	Tombstoned int `json:"tombstoned"`

	InputHash    string `json:"input_hash,omitempty"`
	OutputHash   string `json:"output_hash,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Applied []AppliedUpdate `json:"applied,omitempty"`
}

// AppliedUpdate is an update file consumed by a run.
type AppliedUpdate struct {
	RunID       string    `json:"run_id"`
	Ordinal     int       `json:"ordinal"`
	Name        string    `json:"name"`
	ModTime     time.Time `json:"mod_time"`
	ContentHash string    `json:"content_hash"`
	Entries     int       `json:"entries"`
}

// RecordRun inserts a run and its applied updates in one transaction.
//
// If run.ID is empty a new id is generated. FinishedAt defaults to now.
// run.ID and run.Seq are set on success.
func (j *Journal) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = j.ids.Generate()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = j.now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM merge_runs`).Scan(&seq); err != nil {
		return fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO merge_runs
		(id, seq, project, sha, base_path, started_at, finished_at, status,
		 files, entries, replaced, appended, tombstoned,
		 input_hash, output_hash, error_code, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, seq, run.Project, run.Sha, run.BasePath,
		formatTime(run.StartedAt), formatTime(run.FinishedAt), string(run.Status),
		run.Files, run.Entries, run.Replaced, run.Appended, run.Tombstoned,
		run.InputHash, run.OutputHash, run.ErrorCode, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	for i := range run.Applied {
		a := &run.Applied[i]
		a.RunID = run.ID
		a.Ordinal = i + 1
		_, err := tx.ExecContext(ctx, `
			INSERT INTO applied_updates
			(run_id, ordinal, name, mod_time, content_hash, entries)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.RunID, a.Ordinal, a.Name, formatTime(a.ModTime), a.ContentHash, a.Entries)
		if err != nil {
			return fmt.Errorf("record applied update %s: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}
	run.Seq = seq
	return nil
}

const runColumns = `
	id, seq, project, sha, base_path, started_at, finished_at, status,
	files, entries, replaced, appended, tombstoned,
	input_hash, output_hash, error_code, error_message`

// ListRuns returns runs for project in seq order, with their applied
// updates. An empty project lists every run.
func (j *Journal) ListRuns(ctx context.Context, project string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM merge_runs`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY seq ASC, id ASC COLLATE BINARY`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		applied, err := j.AppliedFiles(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Applied = applied
	}
	return runs, nil
}

// AppliedFiles returns the updates consumed by a run, in apply order.
func (j *Journal) AppliedFiles(ctx context.Context, runID string) ([]AppliedUpdate, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, ordinal, name, mod_time, content_hash, entries
		FROM applied_updates
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("applied files: %w", err)
	}
	defer rows.Close()
	return scanApplied(rows)
}

// AppliedByHash returns every earlier application of an update with the
// given content hash, oldest run first.
func (j *Journal) AppliedByHash(ctx context.Context, contentHash string) ([]AppliedUpdate, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT a.run_id, a.ordinal, a.name, a.mod_time, a.content_hash, a.entries
		FROM applied_updates a
		JOIN merge_runs r ON r.id = a.run_id
		WHERE a.content_hash = ? AND r.status = 'merged'
		ORDER BY r.seq ASC, a.ordinal ASC
	`, contentHash)
	if err != nil {
		return nil, fmt.Errorf("applied by hash: %w", err)
	}
	defer rows.Close()
	return scanApplied(rows)
}

func scanApplied(rows *sql.Rows) ([]AppliedUpdate, error) {
	out := []AppliedUpdate{}
	for rows.Next() {
		var a AppliedUpdate
		var modTime string
		if err := rows.Scan(&a.RunID, &a.Ordinal, &a.Name, &modTime, &a.ContentHash, &a.Entries); err != nil {
			return nil, fmt.Errorf("scan applied update: %w", err)
		}
		t, err := parseTime(modTime)
		if err != nil {
			return nil, fmt.Errorf("scan applied update: mod_time: %w", err)
		}
		a.ModTime = t
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var started, finished, status string
	err := rows.Scan(
		&r.ID, &r.Seq, &r.Project, &r.Sha, &r.BasePath, &started, &finished, &status,
		&r.Files, &r.Entries, &r.Replaced, &r.Appended, &r.Tombstoned,
		&r.InputHash, &r.OutputHash, &r.ErrorCode, &r.ErrorMessage,
	)
	if err != nil {
		return Run{}, err
	}
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("started_at: %w", err)
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("finished_at: %w", err)
	}
	r.Status = RunStatus(status)
	return r, nil
}
