package model

import (
	"time"

	"github.com/google/uuid"
)

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanning  SprintStatus = "planning"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// Sprint is a time-boxed grouping of tasks, optionally linked to a
// remote tracker cycle via RemoteCycleID. For linked sprints the status
// is recomputed from the remote cycle's completion flag and date range
// on every pull; for local sprints it is user-set.
type Sprint struct {
	// ID is the local identifier. Remote-linked sprints use the
	// synthesized form "remote-cycle-<remoteCycleID>".
	ID string `json:"id"`

	Name string `json:"name"`
	Goal string `json:"goal,omitempty"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	Status SprintStatus `json:"status"`

	// Capacity is the planned story-point capacity, if any.
	Capacity *float64 `json:"capacity,omitempty"`

	RemoteCycleID string `json:"remote_cycle_id,omitempty"`
	TeamID        string `json:"team_id,omitempty"`
	TeamName      string `json:"team_name,omitempty"`
}

// Linked reports whether the sprint is linked to a remote cycle.
func (s Sprint) Linked() bool {
	return s.RemoteCycleID != ""
}

// NewLocalSprint creates an unlinked sprint with a fresh local identifier.
func NewLocalSprint(name string, start, end time.Time) Sprint {
	return Sprint{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    SprintPlanning,
	}
}
