package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the normalized workflow status of a task.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
)

// Priority is the normalized priority level of a task.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Task is a unit of work on the board. A task is either purely local or
// linked to a remote tracker issue via RemoteIssueID. Once set,
// RemoteIssueID is immutable for the lifetime of the record; pull syncs
// only overwrite field values.
type Task struct {
	// ID is the local identifier. Remote-linked tasks use the
	// synthesized form "remote-<remoteIssueID>".
	ID string `json:"id"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// StartDate and EndDate bound the task on the timeline.
	// EndDate is always strictly after StartDate after conversion.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// Progress is a completion percentage in [0,100].
	Progress int `json:"progress"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`

	// Estimate is the story-point estimate, if any.
	Estimate *float64 `json:"estimate,omitempty"`

	// Assignee is the display name of the assigned person.
	Assignee   string `json:"assignee,omitempty"`
	AssigneeID string `json:"assignee_id,omitempty"`

	// SprintID references the owning sprint. Empty means backlog.
	SprintID string `json:"sprint_id,omitempty"`

	Labels []string `json:"labels,omitempty"`

	// Remote linkage. All empty for purely local tasks.
	RemoteIssueID       string `json:"remote_issue_id,omitempty"`
	RemoteProjectID     string `json:"remote_project_id,omitempty"`
	RemoteParentIssueID string `json:"remote_parent_issue_id,omitempty"`
	RemoteStateID       string `json:"remote_state_id,omitempty"`
	RemoteStateName     string `json:"remote_state_name,omitempty"`
	RemoteStateType     string `json:"remote_state_type,omitempty"`

	// Dependency edges, expressed as remote issue IDs.
	Blocks    []string `json:"blocks,omitempty"`
	BlockedBy []string `json:"blocked_by,omitempty"`
}

// Linked reports whether the task is linked to a remote issue.
func (t Task) Linked() bool {
	return t.RemoteIssueID != ""
}

// NewLocalTask creates an unlinked task with a fresh local identifier
// and a default one-week timeline starting now.
func NewLocalTask(name string) Task {
	now := time.Now()
	return Task{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: now,
		EndDate:   now.Add(7 * 24 * time.Hour),
		Status:    StatusBacklog,
		Priority:  PriorityNone,
	}
}
