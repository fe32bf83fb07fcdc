package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintsync/internal/linear"
	"github.com/nhle/sprintsync/internal/model"
)

func TestPriorityRoundTrip(t *testing.T) {
	priorities := []model.Priority{
		model.PriorityUrgent,
		model.PriorityHigh,
		model.PriorityMedium,
		model.PriorityLow,
		model.PriorityNone,
	}
	for _, p := range priorities {
		assert.Equal(t, p, RemotePriority(PriorityToRemote(p)), "priority %s", p)
	}
}

func TestRemotePriorityTable(t *testing.T) {
	cases := map[int]model.Priority{
		1:  model.PriorityUrgent,
		2:  model.PriorityHigh,
		3:  model.PriorityMedium,
		4:  model.PriorityLow,
		0:  model.PriorityNone,
		7:  model.PriorityNone,
		-1: model.PriorityNone,
	}
	for n, want := range cases {
		assert.Equal(t, want, RemotePriority(n), "priority %d", n)
	}
}

func TestStateNameToStatus(t *testing.T) {
	cases := []struct {
		name string
		want model.Status
	}{
		{"Done", model.StatusDone},
		{"Completed", model.StatusDone},
		{"Canceled", model.StatusDone},
		{"In Review", model.StatusInReview},
		{"Code Review", model.StatusInReview},
		{"In Progress", model.StatusInProgress},
		{"Started", model.StatusInProgress},
		{"Todo", model.StatusTodo},
		{"Ready for Dev", model.StatusTodo},
		{"Triage", model.StatusBacklog},
		{"Icebox", model.StatusBacklog},
		// Precedence: done keywords win over review keywords.
		{"Review Done", model.StatusDone},
		// Case-insensitive.
		{"DONE", model.StatusDone},
		{"in progress", model.StatusInProgress},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StateNameToStatus(tc.name), "state %q", tc.name)
	}
}

func TestProgressForStatus(t *testing.T) {
	cases := map[model.Status]int{
		model.StatusDone:       100,
		model.StatusInReview:   80,
		model.StatusInProgress: 50,
		model.StatusTodo:       10,
		model.StatusBacklog:    0,
	}
	for s, want := range cases {
		assert.Equal(t, want, ProgressForStatus(s), "status %s", s)
	}
}

func TestParseRemoteTime(t *testing.T) {
	got, err := ParseRemoteTime("2026-03-02T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), got.UTC())

	got, err = ParseRemoteTime("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), got.UTC())

	got, err = ParseRemoteTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseRemoteTime("last tuesday")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestIssueToTaskDates(t *testing.T) {
	t.Run("started and due", func(t *testing.T) {
		task := mustConvert(t, linear.Issue{
			ID:        "i1",
			CreatedAt: "2026-01-01T00:00:00Z",
			StartedAt: "2026-01-05T00:00:00Z",
			DueDate:   "2026-01-20",
		})
		assert.Equal(t, "2026-01-05", task.StartDate.UTC().Format("2006-01-02"))
		assert.Equal(t, "2026-01-20", task.EndDate.UTC().Format("2006-01-02"))
	})

	t.Run("falls back to created plus a week", func(t *testing.T) {
		task := mustConvert(t, linear.Issue{
			ID:        "i2",
			CreatedAt: "2026-01-01T00:00:00Z",
		})
		assert.Equal(t, "2026-01-01", task.StartDate.UTC().Format("2006-01-02"))
		assert.Equal(t, "2026-01-08", task.EndDate.UTC().Format("2006-01-02"))
	})

	t.Run("due before start forced forward", func(t *testing.T) {
		task := mustConvert(t, linear.Issue{
			ID:        "i3",
			CreatedAt: "2026-01-01T00:00:00Z",
			StartedAt: "2026-01-10T00:00:00Z",
			DueDate:   "2026-01-04",
		})
		assert.Equal(t, "2026-01-13", task.EndDate.UTC().Format("2006-01-02"))
	})

	t.Run("end always after start", func(t *testing.T) {
		issues := []linear.Issue{
			{ID: "a", CreatedAt: "2026-01-01T00:00:00Z"},
			{ID: "b", CreatedAt: "2026-01-01T00:00:00Z", DueDate: "2026-01-01"},
			{ID: "c", StartedAt: "2026-06-01T12:00:00Z", DueDate: "2025-12-31"},
		}
		for _, issue := range issues {
			task := mustConvert(t, issue)
			assert.True(t, task.EndDate.After(task.StartDate), "issue %s", issue.ID)
		}
	})

	t.Run("malformed date surfaces error", func(t *testing.T) {
		_, err := IssueToTask(linear.Issue{ID: "x", CreatedAt: "yesterday"}, "")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}

func TestIssueToTaskFields(t *testing.T) {
	estimate := 3.0
	issue := linear.Issue{
		ID:          "iss-9",
		Identifier:  "ENG-9",
		Title:       "Fix flaky pipeline",
		Description: "It fails on Tuesdays.",
		Priority:    2,
		Estimate:    &estimate,
		CreatedAt:   "2026-02-01T09:00:00Z",
		State: linear.WorkflowState{
			ID:   "st-1",
			Name: "In Review",
			Type: "started",
		},
		Assignee: &linear.User{ID: "u-1", Name: "ada", DisplayName: "Ada"},
		Project:  &linear.Project{ID: "proj-1"},
		Parent:   &linear.IssueRef{ID: "iss-1"},
	}
	issue.Labels.Nodes = []linear.Label{{Name: "infra"}, {Name: "ci"}}
	issue.Relations.Nodes = []linear.Relation{
		{Type: "blocks", RelatedIssue: linear.IssueRef{ID: "iss-20"}},
		{Type: "related", RelatedIssue: linear.IssueRef{ID: "iss-21"}},
	}
	issue.InverseRelations.Nodes = []linear.Relation{
		{Type: "blocks", RelatedIssue: linear.IssueRef{ID: "iss-5"}},
	}

	task, err := IssueToTask(issue, "sprint-1")
	require.NoError(t, err)

	assert.Equal(t, "remote-iss-9", task.ID)
	assert.Equal(t, "iss-9", task.RemoteIssueID)
	assert.Equal(t, "Fix flaky pipeline", task.Name)
	assert.Equal(t, model.StatusInReview, task.Status)
	assert.Equal(t, 80, task.Progress)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, &estimate, task.Estimate)
	assert.Equal(t, "Ada", task.Assignee)
	assert.Equal(t, "u-1", task.AssigneeID)
	assert.Equal(t, "sprint-1", task.SprintID)
	assert.Equal(t, []string{"infra", "ci"}, task.Labels)
	assert.Equal(t, "proj-1", task.RemoteProjectID)
	assert.Equal(t, "iss-1", task.RemoteParentIssueID)
	assert.Equal(t, "st-1", task.RemoteStateID)
	assert.Equal(t, "In Review", task.RemoteStateName)
	assert.Equal(t, []string{"iss-20"}, task.Blocks)
	assert.Equal(t, []string{"iss-5"}, task.BlockedBy)
}

func TestSprintStatusFor(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, model.SprintCompleted,
		SprintStatusFor(now.Add(-time.Hour), start, end, now), "completed flag wins")
	assert.Equal(t, model.SprintActive,
		SprintStatusFor(time.Time{}, start, end, now))
	assert.Equal(t, model.SprintPlanning,
		SprintStatusFor(time.Time{}, now.Add(24*time.Hour), now.Add(48*time.Hour), now))
	assert.Equal(t, model.SprintCompleted,
		SprintStatusFor(time.Time{}, start.AddDate(0, -1, 0), end.AddDate(0, -1, 0), now),
		"past range without completed flag")
}

func TestCycleToSprint(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	cycle := linear.Cycle{
		ID:       "cyc-1",
		Number:   4,
		StartsAt: "2026-03-09T00:00:00Z",
		EndsAt:   "2026-03-23T00:00:00Z",
		Team:     &linear.Team{ID: "team-1", Name: "Platform"},
	}

	sprint, err := CycleToSprint(cycle, now)
	require.NoError(t, err)

	assert.Equal(t, "remote-cycle-cyc-1", sprint.ID)
	assert.Equal(t, "cyc-1", sprint.RemoteCycleID)
	assert.Equal(t, "Cycle 4", sprint.Name, "unnamed cycles fall back to the number")
	assert.Equal(t, model.SprintActive, sprint.Status)
	assert.Equal(t, "team-1", sprint.TeamID)
	assert.Equal(t, "Platform", sprint.TeamName)

	cycle.Name = "March sprint"
	sprint, err = CycleToSprint(cycle, now)
	require.NoError(t, err)
	assert.Equal(t, "March sprint", sprint.Name)
}

func TestMatchWorkflowState(t *testing.T) {
	states := []linear.WorkflowState{
		{ID: "s1", Name: "Backlog"},
		{ID: "s2", Name: "Todo"},
		{ID: "s3", Name: "In Progress"},
		{ID: "s4", Name: "In Review"},
		{ID: "s5", Name: "Done"},
	}

	cases := map[model.Status]string{
		model.StatusBacklog:    "s1",
		model.StatusTodo:       "s2",
		model.StatusInProgress: "s3",
		model.StatusInReview:   "s4",
		model.StatusDone:       "s5",
	}
	for status, want := range cases {
		got, ok := MatchWorkflowState(states, status)
		require.True(t, ok, "status %s", status)
		assert.Equal(t, want, got, "status %s", status)
	}

	_, ok := MatchWorkflowState([]linear.WorkflowState{{ID: "x", Name: "Weird"}}, model.StatusDone)
	assert.False(t, ok)
}

func TestTaskToUpdateInput(t *testing.T) {
	estimate := 5.0
	task := model.Task{
		ID:            "remote-i1",
		Name:          "Ship exporter",
		Description:   "CSV and JSON",
		Priority:      model.PriorityUrgent,
		Estimate:      &estimate,
		EndDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		RemoteIssueID: "i1",
		RemoteStateID: "st-2",
	}

	input := TaskToUpdateInput(task)
	require.NotNil(t, input.Title)
	assert.Equal(t, "Ship exporter", *input.Title)
	require.NotNil(t, input.Priority)
	assert.Equal(t, 1, *input.Priority)
	require.NotNil(t, input.DueDate)
	assert.Equal(t, "2026-04-01", *input.DueDate)
	require.NotNil(t, input.StateID)
	assert.Equal(t, "st-2", *input.StateID)
}

func mustConvert(t *testing.T, issue linear.Issue) model.Task {
	t.Helper()
	task, err := IssueToTask(issue, "")
	require.NoError(t, err)
	return task
}
