package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// State is a project's processing state.
type State string

const (
	StateQueued    State = "QUEUED"
	StateIdle      State = "IDLE"
	StateMerging   State = "MERGING"
	StateSending   State = "SENDING"
	StateReceiving State = "RECEIVING"
	StateHold      State = "HOLD"
)

// ErrNotFound is returned when a project has no recorded state.
var ErrNotFound = errors.New("project not found")

// ErrNotHeld is returned by Release when the project is not in HOLD.
var ErrNotHeld = errors.New("project is not on hold")

// ProjectState is the persisted processing state of one project.
type ProjectState struct {
	Project      string    `json:"project"`
	State        State     `json:"state"`
	UpdatedAt    time.Time `json:"updated_at"`
	CurrentStep  int       `json:"current_step"`
	TotalSteps   int       `json:"total_steps"`
	Retries      int       `json:"retries"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Held reports whether the project is on hold.
func (s ProjectState) Held() bool {
	return s.State == StateHold
}

// SetState moves project to state and clears any recorded error. Progress is
// reset when entering MERGING or IDLE.
func (j *Journal) SetState(ctx context.Context, project string, state State) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO project_state (project, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(project) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at,
			current_step = CASE WHEN excluded.state IN ('MERGING', 'IDLE') THEN 0 ELSE current_step END,
			total_steps = CASE WHEN excluded.state IN ('MERGING', 'IDLE') THEN 0 ELSE total_steps END,
			error_code = '',
			error_message = ''
	`, project, string(state), j.timestamp())
	if err != nil {
		return fmt.Errorf("set state %s: %w", project, err)
	}
	return nil
}

// SetProgress records how far through its steps a project is.
func (j *Journal) SetProgress(ctx context.Context, project string, current, total int) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE project_state
		SET current_step = ?, total_steps = ?, updated_at = ?
		WHERE project = ?
	`, current, total, j.timestamp(), project)
	if err != nil {
		return fmt.Errorf("set progress %s: %w", project, err)
	}
	return requireRow(res, project)
}

// Hold puts project on hold with an error and bumps its retry counter.
func (j *Journal) Hold(ctx context.Context, project, code, message string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO project_state (project, state, updated_at, retries, error_code, error_message)
		VALUES (?, 'HOLD', ?, 1, ?, ?)
		ON CONFLICT(project) DO UPDATE SET
			state = 'HOLD',
			updated_at = excluded.updated_at,
			retries = retries + 1,
			error_code = excluded.error_code,
			error_message = excluded.error_message
	`, project, j.timestamp(), code, message)
	if err != nil {
		return fmt.Errorf("hold %s: %w", project, err)
	}
	return nil
}

// Release returns a held project to IDLE. The retry counter is kept.
func (j *Journal) Release(ctx context.Context, project string) error {
	st, err := j.lookupState(ctx, project)
	if err != nil {
		return err
	}
	if !st.Held() {
		return fmt.Errorf("release %s: %w", project, ErrNotHeld)
	}
	return j.SetState(ctx, project, StateIdle)
}

// GetState returns the state of project. A project never seen before is
// reported as IDLE.
func (j *Journal) GetState(ctx context.Context, project string) (ProjectState, error) {
	st, err := j.lookupState(ctx, project)
	if errors.Is(err, ErrNotFound) {
		return ProjectState{Project: project, State: StateIdle}, nil
	}
	return st, err
}

// ListStates returns every project's state, ordered by project name.
func (j *Journal) ListStates(ctx context.Context) ([]ProjectState, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT project, state, updated_at, current_step, total_steps, retries, error_code, error_message
		FROM project_state
		ORDER BY project ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	out := []ProjectState{}
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("list states: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (j *Journal) lookupState(ctx context.Context, project string) (ProjectState, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT project, state, updated_at, current_step, total_steps, retries, error_code, error_message
		FROM project_state
		WHERE project = ?
	`, project)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectState{}, fmt.Errorf("state %s: %w", project, ErrNotFound)
	}
	if err != nil {
		return ProjectState{}, fmt.Errorf("state %s: %w", project, err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanState(s scanner) (ProjectState, error) {
	var st ProjectState
	var state, updated string
	if err := s.Scan(&st.Project, &state, &updated, &st.CurrentStep, &st.TotalSteps, &st.Retries, &st.ErrorCode, &st.ErrorMessage); err != nil {
		return ProjectState{}, err
	}
	t, err := parseTime(updated)
	if err != nil {
		return ProjectState{}, fmt.Errorf("updated_at: %w", err)
	}
	st.State = State(state)
	st.UpdatedAt = t
	return st, nil
}

func requireRow(res sql.Result, project string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("state %s: %w", project, ErrNotFound)
	}
	return nil
}
