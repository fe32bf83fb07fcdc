// Package reconcile merges freshly fetched remote collections into the
// local task/sprint collections. The engine is pure: it performs no I/O
// and computes the entire new collection value in one pass, so callers
// can commit it atomically.
//
// Caller contract: the fetched set passed in must be the complete
// current membership of the scope (pagination fully drained). The
// removal step treats "absent from fetched" as authoritative, so a
// truncated fetch would be read as mass deletion.
package reconcile

import (
	"github.com/nhle/sprintsync/internal/model"
)

// ScopeKind identifies what slice of the remote tracker a fetch covered.
type ScopeKind int

const (
	// ScopeCycle covers the issues of a single cycle.
	ScopeCycle ScopeKind = iota
	// ScopeBacklog covers a team's issues that belong to no cycle.
	ScopeBacklog
)

// Scope describes the remote slice a fetched set belongs to.
type Scope struct {
	Kind ScopeKind

	// CycleID is the remote cycle id for ScopeCycle.
	CycleID string

	// SprintID is the local sprint id corresponding to CycleID.
	// Empty for ScopeBacklog.
	SprintID string
}

// Label returns a short human-readable scope name for reports.
func (s Scope) Label() string {
	if s.Kind == ScopeBacklog {
		return "backlog"
	}
	return "cycle " + s.CycleID
}

// contains reports whether a local task's remote linkage lies inside
// this scope. Unlinked tasks are never in any scope.
func (s Scope) contains(t model.Task) bool {
	if !t.Linked() {
		return false
	}
	switch s.Kind {
	case ScopeBacklog:
		return t.SprintID == ""
	default:
		return t.SprintID == s.SprintID
	}
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Tasks   []model.Task
	Created int
	Updated int
	Removed int
}

// SprintResult is the outcome of one sprint reconciliation pass.
type SprintResult struct {
	Sprints []model.Sprint
	Created int
	Updated int
	Removed int
}

// Tasks computes the new task collection from the current local
// collection and the complete fetched membership of scope, already
// converted to local records (with SprintID set to the scope's sprint).
//
// Local tasks with no remote linkage, and tasks linked outside the
// scope, pass through unchanged. In-scope tasks matching a fetched
// record are updated in place, keeping their local ID; in-scope tasks
// absent from the fetched set are removed. Fetched records with no
// in-scope match are inserted after evicting any same-issue record that
// survived from another scope, so an issue that moved scopes never ends
// up represented twice. The transform is idempotent.
func Tasks(local []model.Task, scope Scope, fetched []model.Task) Result {
	fetchedByID := make(map[string]model.Task, len(fetched))
	for _, f := range fetched {
		fetchedByID[f.RemoteIssueID] = f
	}

	var res Result
	matched := make(map[string]bool, len(fetched))
	working := make([]model.Task, 0, len(local)+len(fetched))

	for _, l := range local {
		if !scope.contains(l) {
			working = append(working, l)
			continue
		}
		f, ok := fetchedByID[l.RemoteIssueID]
		if !ok {
			res.Removed++
			continue
		}
		working = append(working, applyRemote(l, f))
		matched[l.RemoteIssueID] = true
		res.Updated++
	}

	for _, f := range fetched {
		if matched[f.RemoteIssueID] {
			continue
		}
		// Evict a stale record for the same issue left over from
		// another scope (the issue moved cycles or left the backlog).
		working = dropByRemoteID(working, f.RemoteIssueID)
		working = append(working, f)
		res.Created++
	}

	res.Tasks = working
	return res
}

// Sprints computes the new sprint collection from the current local
// collection and the complete fetched cycle set for the team, already
// converted to local records. Unlinked sprints pass through unchanged;
// linked sprints are updated in place (keeping their local ID) or
// removed when their cycle vanished; unmatched fetched cycles are
// inserted.
func Sprints(local []model.Sprint, fetched []model.Sprint) SprintResult {
	fetchedByID := make(map[string]model.Sprint, len(fetched))
	for _, f := range fetched {
		fetchedByID[f.RemoteCycleID] = f
	}

	var res SprintResult
	matched := make(map[string]bool, len(fetched))
	working := make([]model.Sprint, 0, len(local)+len(fetched))

	for _, l := range local {
		if !l.Linked() {
			working = append(working, l)
			continue
		}
		f, ok := fetchedByID[l.RemoteCycleID]
		if !ok {
			res.Removed++
			continue
		}
		updated := f
		updated.ID = l.ID
		// Capacity is a local planning value, not mirrored remotely.
		updated.Capacity = l.Capacity
		working = append(working, updated)
		matched[l.RemoteCycleID] = true
		res.Updated++
	}

	for _, f := range fetched {
		if matched[f.RemoteCycleID] {
			continue
		}
		working = append(working, f)
		res.Created++
	}

	res.Sprints = working
	return res
}

// RehomeTasks clears the sprint reference of any task whose sprint is
// no longer in the collection, moving it to the backlog. Reconciling a
// vanished cycle's scope already removes its linked tasks; this sweep
// covers unlinked tasks and any other stale reference left behind, so
// no task ever points at a sprint that does not exist.
func RehomeTasks(tasks []model.Task, sprints []model.Sprint) []model.Task {
	valid := make(map[string]bool, len(sprints))
	for _, sp := range sprints {
		valid[sp.ID] = true
	}

	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].SprintID != "" && !valid[out[i].SprintID] {
			out[i].SprintID = ""
		}
	}
	return out
}

// applyRemote overwrites the modeled mutable fields of a local task
// with the converted remote values. The local ID and remote issue
// linkage are preserved; RemoteIssueID is immutable once set.
func applyRemote(local, remote model.Task) model.Task {
	updated := remote
	updated.ID = local.ID
	updated.RemoteIssueID = local.RemoteIssueID
	return updated
}

// dropByRemoteID removes every task linked to the given remote issue,
// filtering in place.
func dropByRemoteID(tasks []model.Task, remoteIssueID string) []model.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.RemoteIssueID == remoteIssueID {
			continue
		}
		out = append(out, t)
	}
	return out
}
