package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintsync/internal/model"
)

func snapshot() Snapshot {
	estimate := 2.5
	return Snapshot{
		ExportedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Sprints: []model.Sprint{
			{
				ID:        "sp1",
				Name:      "Sprint 1",
				Goal:      "land the importer",
				StartDate: time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
				Status:    model.SprintActive,
			},
		},
		Tasks: []model.Task{
			{
				ID:            "t1",
				Name:          `task with "quotes", commas`,
				StartDate:     time.Date(2026, 4, 21, 0, 0, 0, 0, time.UTC),
				EndDate:       time.Date(2026, 4, 28, 0, 0, 0, 0, time.UTC),
				Progress:      100,
				Status:        model.StatusDone,
				Priority:      model.PriorityHigh,
				Estimate:      &estimate,
				Assignee:      "Ada",
				SprintID:      "sp1",
				Labels:        []string{"bug", "backend"},
				RemoteIssueID: "i1",
			},
			{
				ID:        "t2",
				Name:      "backlog idea",
				StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC),
				Status:    model.StatusBacklog,
				Priority:  model.PriorityNone,
			},
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := snapshot()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, want))

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadJSONRejectsGarbage(t *testing.T) {
	_, err := ReadJSON(strings.NewReader("not json"))
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snapshot()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two tasks")

	assert.Equal(t, csvHeader, records[0])

	first := records[1]
	assert.Equal(t, "t1", first[0])
	assert.Equal(t, `task with "quotes", commas`, first[1], "quoting survives the round trip")
	assert.Equal(t, "done", first[2])
	assert.Equal(t, "2.5", first[7])
	assert.Equal(t, "Sprint 1", first[9], "sprint id resolved to its name")
	assert.Equal(t, "bug;backend", first[10])

	second := records[2]
	assert.Equal(t, "t2", second[0])
	assert.Equal(t, "", second[9], "backlog tasks carry no sprint name")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, snapshot()))
	out := buf.String()

	assert.Contains(t, out, "# Sprint Board")
	assert.Contains(t, out, "## Sprint 1 (active)")
	assert.Contains(t, out, "Goal: land the importer")
	assert.Contains(t, out, "2026-04-20 to 2026-05-04")
	assert.Contains(t, out, `- [x] task with "quotes", commas (done, high, 100%)`)
	assert.Contains(t, out, "## Backlog")
	assert.Contains(t, out, "- [ ] backlog idea (backlog, none, 0%)")

	backlogIdx := strings.Index(out, "## Backlog")
	sprintIdx := strings.Index(out, "## Sprint 1")
	assert.Greater(t, backlogIdx, sprintIdx, "backlog renders last")
}

func TestWriteMarkdownEmptySprint(t *testing.T) {
	s := snapshot()
	s.Tasks = nil

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, s))
	assert.Contains(t, buf.String(), "_No tasks._")
}
