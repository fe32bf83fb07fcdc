// Package convert holds the pure mapping functions between remote
// tracker records (issues, cycles) and local task/sprint records.
// Nothing here performs I/O.
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/sprintsync/internal/linear"
	"github.com/nhle/sprintsync/internal/model"
)

// ErrInvalidDate is returned when a remote timestamp cannot be parsed
// in any known layout.
var ErrInvalidDate = errors.New("invalid date")

const (
	defaultTaskSpan  = 7 * 24 * time.Hour
	fallbackTaskSpan = 3 * 24 * time.Hour
)

// TaskID returns the local identifier synthesized for a remote-linked
// task. This is the join key used during reconciliation, not a display
// value.
func TaskID(remoteIssueID string) string {
	return "remote-" + remoteIssueID
}

// SprintID returns the local identifier synthesized for a remote-linked
// sprint.
func SprintID(remoteCycleID string) string {
	return "remote-cycle-" + remoteCycleID
}

// RemotePriority maps the tracker's numeric priority onto the local
// enum. 0 means "no priority" on the tracker side; anything outside the
// 1..4 range also maps to none.
func RemotePriority(n int) model.Priority {
	switch n {
	case 1:
		return model.PriorityUrgent
	case 2:
		return model.PriorityHigh
	case 3:
		return model.PriorityMedium
	case 4:
		return model.PriorityLow
	default:
		return model.PriorityNone
	}
}

// PriorityToRemote is the inverse of RemotePriority, used for push-back.
func PriorityToRemote(p model.Priority) int {
	switch p {
	case model.PriorityUrgent:
		return 1
	case model.PriorityHigh:
		return 2
	case model.PriorityMedium:
		return 3
	case model.PriorityLow:
		return 4
	default:
		return 0
	}
}

// StateNameToStatus classifies a free-text workflow state name into a
// local status. This is a best-effort heuristic over whatever state
// names a team has configured, not an authoritative mapping; the
// precedence order is fixed and checked first-match-wins:
// done/completed/canceled, then review, then progress/started, then
// todo/ready, else backlog.
func StateNameToStatus(name string) model.Status {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "done"),
		strings.Contains(n, "completed"),
		strings.Contains(n, "canceled"):
		return model.StatusDone
	case strings.Contains(n, "review"):
		return model.StatusInReview
	case strings.Contains(n, "progress"),
		strings.Contains(n, "started"):
		return model.StatusInProgress
	case strings.Contains(n, "todo"),
		strings.Contains(n, "ready"):
		return model.StatusTodo
	default:
		return model.StatusBacklog
	}
}

// ProgressForStatus derives a completion percentage for tasks that
// carry no explicit progress value.
func ProgressForStatus(s model.Status) int {
	switch s {
	case model.StatusDone:
		return 100
	case model.StatusInReview:
		return 80
	case model.StatusInProgress:
		return 50
	case model.StatusTodo:
		return 10
	default:
		return 0
	}
}

// remoteTimeLayouts are the timestamp formats the tracker emits.
// dueDate is a bare date; everything else is RFC 3339.
var remoteTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseRemoteTime parses a tracker timestamp string. An empty string
// returns the zero time with no error; an unparseable one returns
// ErrInvalidDate.
func ParseRemoteTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range remoteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// taskDates derives the start/end pair for a task. Start is the
// started-at timestamp when present, else created-at. End is the due
// date when present, else start plus one week. A non-positive span is
// forced to three days so that end is always strictly after start.
func taskDates(issue linear.Issue) (time.Time, time.Time, error) {
	start, err := ParseRemoteTime(issue.StartedAt)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.IsZero() {
		if start, err = ParseRemoteTime(issue.CreatedAt); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if start.IsZero() {
		start = time.Now()
	}

	end, err := ParseRemoteTime(issue.DueDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.IsZero() {
		end = start.Add(defaultTaskSpan)
	}
	if !end.After(start) {
		end = start.Add(fallbackTaskSpan)
	}
	return start, end, nil
}

// IssueToTask converts a fetched issue snapshot into a local task.
// sprintID is the local sprint the task belongs to in the fetched
// scope; empty means backlog.
func IssueToTask(issue linear.Issue, sprintID string) (model.Task, error) {
	start, end, err := taskDates(issue)
	if err != nil {
		return model.Task{}, fmt.Errorf("converting issue %s: %w", issue.ID, err)
	}

	status := StateNameToStatus(issue.State.Name)

	task := model.Task{
		ID:              TaskID(issue.ID),
		Name:            issue.Title,
		Description:     issue.Description,
		StartDate:       start,
		EndDate:         end,
		Progress:        ProgressForStatus(status),
		Status:          status,
		Priority:        RemotePriority(issue.Priority),
		Estimate:        issue.Estimate,
		SprintID:        sprintID,
		RemoteIssueID:   issue.ID,
		RemoteStateID:   issue.State.ID,
		RemoteStateName: issue.State.Name,
		RemoteStateType: issue.State.Type,
	}

	if issue.Assignee != nil {
		task.AssigneeID = issue.Assignee.ID
		task.Assignee = issue.Assignee.DisplayName
		if task.Assignee == "" {
			task.Assignee = issue.Assignee.Name
		}
	}
	if issue.Project != nil {
		task.RemoteProjectID = issue.Project.ID
	}
	if issue.Parent != nil {
		task.RemoteParentIssueID = issue.Parent.ID
	}
	for _, l := range issue.Labels.Nodes {
		task.Labels = append(task.Labels, l.Name)
	}
	for _, r := range issue.Relations.Nodes {
		if r.Type == "blocks" {
			task.Blocks = append(task.Blocks, r.RelatedIssue.ID)
		}
	}
	for _, r := range issue.InverseRelations.Nodes {
		if r.Type == "blocks" {
			task.BlockedBy = append(task.BlockedBy, r.RelatedIssue.ID)
		}
	}

	return task, nil
}

// SprintStatusFor recomputes a linked sprint's status from the
// authoritative remote cycle fields. Completed cycles are completed; a
// cycle whose date range contains now is active; everything else is
// planning.
func SprintStatusFor(completedAt, startsAt, endsAt, now time.Time) model.SprintStatus {
	if !completedAt.IsZero() {
		return model.SprintCompleted
	}
	if !startsAt.IsZero() && !now.Before(startsAt) &&
		(endsAt.IsZero() || now.Before(endsAt)) {
		return model.SprintActive
	}
	if !endsAt.IsZero() && !now.Before(endsAt) {
		return model.SprintCompleted
	}
	return model.SprintPlanning
}

// CycleToSprint converts a fetched cycle snapshot into a local sprint.
func CycleToSprint(cycle linear.Cycle, now time.Time) (model.Sprint, error) {
	starts, err := ParseRemoteTime(cycle.StartsAt)
	if err != nil {
		return model.Sprint{}, fmt.Errorf("converting cycle %s: %w", cycle.ID, err)
	}
	ends, err := ParseRemoteTime(cycle.EndsAt)
	if err != nil {
		return model.Sprint{}, fmt.Errorf("converting cycle %s: %w", cycle.ID, err)
	}
	completed, err := ParseRemoteTime(cycle.CompletedAt)
	if err != nil {
		return model.Sprint{}, fmt.Errorf("converting cycle %s: %w", cycle.ID, err)
	}

	name := cycle.Name
	if name == "" {
		name = fmt.Sprintf("Cycle %d", cycle.Number)
	}

	sprint := model.Sprint{
		ID:            SprintID(cycle.ID),
		Name:          name,
		StartDate:     starts,
		EndDate:       ends,
		Status:        SprintStatusFor(completed, starts, ends, now),
		RemoteCycleID: cycle.ID,
	}
	if cycle.Team != nil {
		sprint.TeamID = cycle.Team.ID
		sprint.TeamName = cycle.Team.Name
	}
	return sprint, nil
}

// TaskToUpdateInput maps a local task's pushable fields onto an issue
// update. The workflow state is resolved separately because it needs
// the team's state list.
func TaskToUpdateInput(t model.Task) linear.IssueUpdateInput {
	priority := PriorityToRemote(t.Priority)
	input := linear.IssueUpdateInput{
		Title:       &t.Name,
		Description: &t.Description,
		Priority:    &priority,
		Estimate:    t.Estimate,
	}
	if t.RemoteStateID != "" {
		input.StateID = &t.RemoteStateID
	}
	if !t.EndDate.IsZero() {
		due := t.EndDate.Format("2006-01-02")
		input.DueDate = &due
	}
	return input
}

// TaskToCreateInput maps a local task onto an issue creation input for
// linking it to the tracker for the first time.
func TaskToCreateInput(t model.Task, teamID, cycleID string) linear.IssueCreateInput {
	priority := PriorityToRemote(t.Priority)
	input := linear.IssueCreateInput{
		TeamID:      teamID,
		Title:       t.Name,
		Description: t.Description,
		Priority:    &priority,
		Estimate:    t.Estimate,
		CycleID:     cycleID,
		AssigneeID:  t.AssigneeID,
	}
	if !t.EndDate.IsZero() {
		input.DueDate = t.EndDate.Format("2006-01-02")
	}
	return input
}

// statusKeywords are the per-status keyword sets used to pick a
// concrete workflow state when pushing a status change. Best-effort,
// like StateNameToStatus.
var statusKeywords = map[model.Status][]string{
	model.StatusDone:       {"done", "completed", "closed"},
	model.StatusInReview:   {"review", "qa"},
	model.StatusInProgress: {"progress", "started", "doing"},
	model.StatusTodo:       {"todo", "ready", "planned"},
	model.StatusBacklog:    {"backlog", "triage"},
}

// MatchWorkflowState picks the team workflow state whose name matches
// the given status's keyword set. Returns false when no state matches.
func MatchWorkflowState(states []linear.WorkflowState, status model.Status) (string, bool) {
	keywords, ok := statusKeywords[status]
	if !ok {
		return "", false
	}
	for _, kw := range keywords {
		for _, st := range states {
			if strings.Contains(strings.ToLower(st.Name), kw) {
				return st.ID, true
			}
		}
	}
	return "", false
}
