// Package export renders the local collections to interchange formats.
// JSON round-trips losslessly (the import path for backups); CSV and
// Markdown are one-way human/spreadsheet views.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/sprintsync/internal/model"
)

// Snapshot is the full exportable state of the board.
type Snapshot struct {
	ExportedAt time.Time      `json:"exported_at"`
	Sprints    []model.Sprint `json:"sprints"`
	Tasks      []model.Task   `json:"tasks"`
}

// WriteJSON writes the snapshot as indented JSON. IDs and instants
// survive a WriteJSON/ReadJSON round trip unchanged.
func WriteJSON(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// ReadJSON parses a snapshot previously written by WriteJSON.
func ReadJSON(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s, nil
}

// csvHeader is the flattened task column set.
var csvHeader = []string{
	"id", "name", "status", "priority", "progress",
	"start_date", "end_date", "estimate", "assignee",
	"sprint", "labels", "remote_issue_id",
}

// WriteCSV writes the tasks as an RFC 4180 CSV with a header row.
// Sprint names are resolved from the sprint collection; tasks outside
// any sprint render an empty sprint column.
func WriteCSV(w io.Writer, s Snapshot) error {
	sprintNames := make(map[string]string, len(s.Sprints))
	for _, sp := range s.Sprints {
		sprintNames[sp.ID] = sp.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, t := range s.Tasks {
		estimate := ""
		if t.Estimate != nil {
			estimate = strconv.FormatFloat(*t.Estimate, 'f', -1, 64)
		}
		record := []string{
			t.ID,
			t.Name,
			string(t.Status),
			string(t.Priority),
			strconv.Itoa(t.Progress),
			t.StartDate.UTC().Format(time.RFC3339),
			t.EndDate.UTC().Format(time.RFC3339),
			estimate,
			t.Assignee,
			sprintNames[t.SprintID],
			strings.Join(t.Labels, ";"),
			t.RemoteIssueID,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row for task %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMarkdown writes a human-readable summary grouped by sprint,
// with backlog tasks last.
func WriteMarkdown(w io.Writer, s Snapshot) error {
	var b strings.Builder

	b.WriteString("# Sprint Board\n\n")
	fmt.Fprintf(&b, "Exported %s\n\n", s.ExportedAt.UTC().Format(time.RFC3339))

	bySprint := make(map[string][]model.Task)
	for _, t := range s.Tasks {
		bySprint[t.SprintID] = append(bySprint[t.SprintID], t)
	}

	for _, sp := range s.Sprints {
		fmt.Fprintf(&b, "## %s (%s)\n\n", sp.Name, sp.Status)
		if sp.Goal != "" {
			fmt.Fprintf(&b, "Goal: %s\n\n", sp.Goal)
		}
		fmt.Fprintf(&b, "%s to %s\n\n",
			sp.StartDate.UTC().Format("2006-01-02"),
			sp.EndDate.UTC().Format("2006-01-02"))
		writeTaskList(&b, bySprint[sp.ID])
	}

	if backlog := bySprint[""]; len(backlog) > 0 {
		b.WriteString("## Backlog\n\n")
		writeTaskList(&b, backlog)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTaskList(b *strings.Builder, tasks []model.Task) {
	if len(tasks) == 0 {
		b.WriteString("_No tasks._\n\n")
		return
	}
	for _, t := range tasks {
		marker := " "
		if t.Status == model.StatusDone {
			marker = "x"
		}
		fmt.Fprintf(b, "- [%s] %s (%s, %s, %d%%)\n",
			marker, t.Name, t.Status, t.Priority, t.Progress)
	}
	b.WriteString("\n")
}
