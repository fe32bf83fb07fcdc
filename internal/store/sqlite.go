// Package store persists the canonical task and sprint collections in
// a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/sprintsync/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// SQLite allows one writer at a time, and an in-memory database
	// exists per connection; a single pooled connection covers both.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const taskColumns = `
	id, name, description, start_date, end_date, progress,
	status, priority, estimate, assignee, assignee_id, sprint_id,
	labels, remote_issue_id, remote_project_id, remote_parent_issue_id,
	remote_state_id, remote_state_name, remote_state_type,
	blocks, blocked_by`

const taskInsert = `
	INSERT OR REPLACE INTO tasks (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Tasks returns a snapshot of the full task collection.
func (s *SQLiteStore) Tasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks ORDER BY start_date, id")
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// ReplaceTasks swaps the entire task collection in one transaction, so
// concurrent readers see either the old collection or the new one,
// never an interleaving.
func (s *SQLiteStore) ReplaceTasks(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, taskInsert)
	if err != nil {
		return fmt.Errorf("preparing task insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		args, err := taskArgs(t)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting task %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertTask inserts or replaces a single task.
func (s *SQLiteStore) UpsertTask(ctx context.Context, task model.Task) error {
	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, taskInsert, args...); err != nil {
		return fmt.Errorf("upserting task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes a single task by local ID.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

const sprintColumns = `
	id, name, goal, start_date, end_date, status, capacity,
	remote_cycle_id, team_id, team_name`

const sprintInsert = `
	INSERT OR REPLACE INTO sprints (` + sprintColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Sprints returns a snapshot of the full sprint collection.
func (s *SQLiteStore) Sprints(ctx context.Context) ([]model.Sprint, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+sprintColumns+" FROM sprints ORDER BY start_date, id")
	if err != nil {
		return nil, fmt.Errorf("querying sprints: %w", err)
	}
	defer rows.Close()

	var sprints []model.Sprint
	for rows.Next() {
		sprint, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, sprint)
	}

	return sprints, rows.Err()
}

// ReplaceSprints swaps the entire sprint collection in one transaction.
func (s *SQLiteStore) ReplaceSprints(ctx context.Context, sprints []model.Sprint) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sprints"); err != nil {
		return fmt.Errorf("clearing sprints: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, sprintInsert)
	if err != nil {
		return fmt.Errorf("preparing sprint insert: %w", err)
	}
	defer stmt.Close()

	for _, sp := range sprints {
		if _, err := stmt.ExecContext(ctx, sprintArgs(sp)...); err != nil {
			return fmt.Errorf("inserting sprint %s: %w", sp.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertSprint inserts or replaces a single sprint.
func (s *SQLiteStore) UpsertSprint(ctx context.Context, sprint model.Sprint) error {
	if _, err := s.db.ExecContext(ctx, sprintInsert, sprintArgs(sprint)...); err != nil {
		return fmt.Errorf("upserting sprint %s: %w", sprint.ID, err)
	}
	return nil
}

// DeleteSprint removes a single sprint by local ID.
func (s *SQLiteStore) DeleteSprint(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sprints WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting sprint %s: %w", id, err)
	}
	return nil
}

// GetSetting returns a scalar setting value, or "" when unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a scalar setting value.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// taskArgs flattens a task into insert arguments. List fields are
// stored as JSON, instants in UTC.
func taskArgs(t model.Task) ([]interface{}, error) {
	labels, err := json.Marshal(emptyIfNil(t.Labels))
	if err != nil {
		return nil, fmt.Errorf("marshaling labels for task %s: %w", t.ID, err)
	}
	blocks, err := json.Marshal(emptyIfNil(t.Blocks))
	if err != nil {
		return nil, fmt.Errorf("marshaling blocks for task %s: %w", t.ID, err)
	}
	blockedBy, err := json.Marshal(emptyIfNil(t.BlockedBy))
	if err != nil {
		return nil, fmt.Errorf("marshaling blocked_by for task %s: %w", t.ID, err)
	}

	return []interface{}{
		t.ID, t.Name, t.Description,
		t.StartDate.UTC(), t.EndDate.UTC(), t.Progress,
		string(t.Status), string(t.Priority), t.Estimate,
		t.Assignee, t.AssigneeID, t.SprintID,
		string(labels), t.RemoteIssueID, t.RemoteProjectID, t.RemoteParentIssueID,
		t.RemoteStateID, t.RemoteStateName, t.RemoteStateType,
		string(blocks), string(blockedBy),
	}, nil
}

func sprintArgs(sp model.Sprint) []interface{} {
	return []interface{}{
		sp.ID, sp.Name, sp.Goal,
		sp.StartDate.UTC(), sp.EndDate.UTC(), string(sp.Status),
		sp.Capacity, sp.RemoteCycleID, sp.TeamID, sp.TeamName,
	}
}

// scanTask scans a task row from a sqlx.Rows result set.
func scanTask(rows *sqlx.Rows) (model.Task, error) {
	var (
		task      model.Task
		status    string
		priority  string
		labels    string
		blocks    string
		blockedBy string
		startDate time.Time
		endDate   time.Time
	)

	err := rows.Scan(
		&task.ID, &task.Name, &task.Description,
		&startDate, &endDate, &task.Progress,
		&status, &priority, &task.Estimate,
		&task.Assignee, &task.AssigneeID, &task.SprintID,
		&labels, &task.RemoteIssueID, &task.RemoteProjectID, &task.RemoteParentIssueID,
		&task.RemoteStateID, &task.RemoteStateName, &task.RemoteStateType,
		&blocks, &blockedBy,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Status = model.Status(status)
	task.Priority = model.Priority(priority)
	task.StartDate = startDate
	task.EndDate = endDate

	if err := unmarshalList(labels, &task.Labels); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling labels: %w", err)
	}
	if err := unmarshalList(blocks, &task.Blocks); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling blocks: %w", err)
	}
	if err := unmarshalList(blockedBy, &task.BlockedBy); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling blocked_by: %w", err)
	}

	return task, nil
}

// scanSprint scans a sprint row from a sqlx.Rows result set.
func scanSprint(rows *sqlx.Rows) (model.Sprint, error) {
	var (
		sprint    model.Sprint
		status    string
		startDate time.Time
		endDate   time.Time
	)

	err := rows.Scan(
		&sprint.ID, &sprint.Name, &sprint.Goal,
		&startDate, &endDate, &status,
		&sprint.Capacity, &sprint.RemoteCycleID,
		&sprint.TeamID, &sprint.TeamName,
	)
	if err != nil {
		return model.Sprint{}, fmt.Errorf("scanning sprint row: %w", err)
	}

	sprint.Status = model.SprintStatus(status)
	sprint.StartDate = startDate
	sprint.EndDate = endDate

	return sprint, nil
}

// unmarshalList decodes a JSON string list, leaving dst nil for "[]".
func unmarshalList(raw string, dst *[]string) error {
	if raw == "" || raw == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
