package store

import (
	"context"

	"github.com/nhle/sprintsync/internal/model"
)

// Settings keys for small scalar values persisted alongside the
// collections.
const (
	SettingTeamID   = "team_id"
	SettingTeamName = "team_name"
	SettingCycleID  = "cycle_id"
	SettingAutoSync = "auto_sync"
	SettingLastSync = "last_sync"
)

// Store is the persistence boundary for the canonical task and sprint
// collections. Reconciliation only ever uses the Replace methods: the
// whole collection is swapped in one transaction so readers never
// observe a partially merged state. The per-record methods serve local
// edits from the UI layer.
type Store interface {
	// Tasks returns a snapshot of the full task collection.
	Tasks(ctx context.Context) ([]model.Task, error)

	// ReplaceTasks atomically swaps the entire task collection.
	ReplaceTasks(ctx context.Context, tasks []model.Task) error

	// UpsertTask inserts or replaces a single task.
	UpsertTask(ctx context.Context, task model.Task) error

	// DeleteTask removes a single task by local ID.
	DeleteTask(ctx context.Context, id string) error

	// Sprints returns a snapshot of the full sprint collection.
	Sprints(ctx context.Context) ([]model.Sprint, error)

	// ReplaceSprints atomically swaps the entire sprint collection.
	ReplaceSprints(ctx context.Context, sprints []model.Sprint) error

	// UpsertSprint inserts or replaces a single sprint.
	UpsertSprint(ctx context.Context, sprint model.Sprint) error

	// DeleteSprint removes a single sprint by local ID.
	DeleteSprint(ctx context.Context, id string) error

	// GetSetting returns a scalar setting, or "" when unset.
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting stores a scalar setting.
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}
