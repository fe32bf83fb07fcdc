package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintsync/internal/model"
)

func linkedTask(remoteID, sprintID string, status model.Status) model.Task {
	return model.Task{
		ID:            "remote-" + remoteID,
		Name:          "task " + remoteID,
		StartDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
		Status:        status,
		Priority:      model.PriorityMedium,
		SprintID:      sprintID,
		RemoteIssueID: remoteID,
	}
}

func localTask(id string) model.Task {
	return model.Task{
		ID:        id,
		Name:      "local " + id,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
		Status:    model.StatusTodo,
		Priority:  model.PriorityNone,
	}
}

func remoteIDs(tasks []model.Task) map[string]int {
	counts := make(map[string]int)
	for _, t := range tasks {
		if t.RemoteIssueID != "" {
			counts[t.RemoteIssueID]++
		}
	}
	return counts
}

func TestTasksScopeIsolation(t *testing.T) {
	// Task A is linked to i1 but sits in another sprint; reconciling
	// cycle-1 with an empty fetched set must not touch it.
	a := linkedTask("i1", "sprint-other", model.StatusTodo)
	scope := Scope{Kind: ScopeCycle, CycleID: "cycle-1", SprintID: "sprint-1"}

	res := Tasks([]model.Task{a}, scope, nil)

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, a, res.Tasks[0])
	assert.Zero(t, res.Removed)
}

func TestTasksUnlinkedPreserved(t *testing.T) {
	local := []model.Task{localTask("u1"), localTask("u2")}
	scope := Scope{Kind: ScopeBacklog}

	res := Tasks(local, scope, nil)

	assert.Equal(t, local, res.Tasks)
	assert.Zero(t, res.Removed)
}

func TestTasksRemovesVanished(t *testing.T) {
	// Task B lives in the backlog but the fetched backlog no longer
	// contains i2 (it moved into a cycle): B is removed.
	b := linkedTask("i2", "", model.StatusTodo)
	scope := Scope{Kind: ScopeBacklog}

	res := Tasks([]model.Task{b}, scope, nil)

	assert.Empty(t, res.Tasks)
	assert.Equal(t, 1, res.Removed)
}

func TestTasksInsertsNew(t *testing.T) {
	fetched := linkedTask("i3", "sprint-1", model.StatusInReview)
	fetched.Progress = 80
	scope := Scope{Kind: ScopeCycle, CycleID: "cycle-1", SprintID: "sprint-1"}

	res := Tasks(nil, scope, []model.Task{fetched})

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, 1, res.Created)
	got := res.Tasks[0]
	assert.Equal(t, model.StatusInReview, got.Status)
	assert.Equal(t, 80, got.Progress)
	assert.Equal(t, "sprint-1", got.SprintID)
}

func TestTasksUpdatesInPlace(t *testing.T) {
	local := linkedTask("i5", "sprint-1", model.StatusTodo)
	local.ID = "custom-local-id" // linked earlier under a local id

	fetched := linkedTask("i5", "sprint-1", model.StatusDone)
	fetched.Name = "renamed remotely"
	fetched.Progress = 100

	scope := Scope{Kind: ScopeCycle, CycleID: "cycle-1", SprintID: "sprint-1"}
	res := Tasks([]model.Task{local}, scope, []model.Task{fetched})

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, 1, res.Updated)
	got := res.Tasks[0]
	assert.Equal(t, "custom-local-id", got.ID, "local id survives updates")
	assert.Equal(t, "i5", got.RemoteIssueID, "linkage is immutable")
	assert.Equal(t, "renamed remotely", got.Name)
	assert.Equal(t, model.StatusDone, got.Status)
}

func TestTasksIdempotent(t *testing.T) {
	local := []model.Task{
		localTask("u1"),
		linkedTask("i1", "sprint-1", model.StatusTodo),
		linkedTask("i2", "", model.StatusBacklog),
		linkedTask("i9", "sprint-other", model.StatusDone),
	}
	fetched := []model.Task{
		linkedTask("i1", "sprint-1", model.StatusInProgress),
		linkedTask("i7", "sprint-1", model.StatusTodo),
	}
	scope := Scope{Kind: ScopeCycle, CycleID: "cycle-1", SprintID: "sprint-1"}

	once := Tasks(local, scope, fetched)
	twice := Tasks(once.Tasks, scope, fetched)

	assert.Equal(t, once.Tasks, twice.Tasks)
}

func TestTasksNoDuplicateAcrossScopeMove(t *testing.T) {
	// i6 was synced into the backlog earlier and has now shown up in
	// cycle-1's fetched set: the stale backlog record must be evicted,
	// not duplicated.
	stale := linkedTask("i6", "", model.StatusBacklog)
	fetched := linkedTask("i6", "sprint-1", model.StatusInProgress)
	scope := Scope{Kind: ScopeCycle, CycleID: "cycle-1", SprintID: "sprint-1"}

	res := Tasks([]model.Task{stale}, scope, []model.Task{fetched})

	counts := remoteIDs(res.Tasks)
	assert.Equal(t, 1, counts["i6"])
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "sprint-1", res.Tasks[0].SprintID)
}

func TestTasksLastScopeWinsForSharedIssue(t *testing.T) {
	// i4 is (erroneously) present in two fetched cycle sets during one
	// sync-all pass. Applying the scopes sequentially over one working
	// copy must leave exactly one record, owned by the scope processed
	// last.
	scope1 := Scope{Kind: ScopeCycle, CycleID: "cycle-1", SprintID: "sprint-1"}
	scope2 := Scope{Kind: ScopeCycle, CycleID: "cycle-2", SprintID: "sprint-2"}

	working := Tasks(nil, scope1, []model.Task{linkedTask("i4", "sprint-1", model.StatusTodo)}).Tasks
	working = Tasks(working, scope2, []model.Task{linkedTask("i4", "sprint-2", model.StatusTodo)}).Tasks

	counts := remoteIDs(working)
	assert.Equal(t, 1, counts["i4"])
	require.Len(t, working, 1)
	assert.Equal(t, "sprint-2", working[0].SprintID)
}

func TestTasksNoDuplicatesInvariant(t *testing.T) {
	local := []model.Task{
		localTask("u1"),
		linkedTask("i1", "sprint-1", model.StatusTodo),
		linkedTask("i2", "", model.StatusBacklog),
	}
	fetched := []model.Task{
		linkedTask("i1", "sprint-1", model.StatusDone),
		linkedTask("i2", "sprint-1", model.StatusTodo),
		linkedTask("i3", "sprint-1", model.StatusTodo),
	}
	scope := Scope{Kind: ScopeCycle, CycleID: "cycle-1", SprintID: "sprint-1"}

	res := Tasks(local, scope, fetched)

	for id, n := range remoteIDs(res.Tasks) {
		assert.Equal(t, 1, n, "remote issue %s", id)
	}
}

func TestRehomeTasks(t *testing.T) {
	sprints := []model.Sprint{{ID: "sp1", Name: "kept"}}

	inSprint := localTask("u1")
	inSprint.SprintID = "sp1"
	dangling := localTask("u2")
	dangling.SprintID = "sp-gone"
	backlog := localTask("u3")

	out := RehomeTasks([]model.Task{inSprint, dangling, backlog}, sprints)

	require.Len(t, out, 3)
	assert.Equal(t, "sp1", out[0].SprintID)
	assert.Equal(t, "", out[1].SprintID, "vanished sprint reference cleared")
	assert.Equal(t, "", out[2].SprintID)
}

func linkedSprint(cycleID string, status model.SprintStatus) model.Sprint {
	return model.Sprint{
		ID:            "remote-cycle-" + cycleID,
		Name:          "sprint " + cycleID,
		StartDate:     time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC),
		Status:        status,
		RemoteCycleID: cycleID,
	}
}

func TestSprints(t *testing.T) {
	capacity := 30.0
	localLinked := linkedSprint("c1", model.SprintPlanning)
	localLinked.Capacity = &capacity
	localOnly := model.Sprint{ID: "s-local", Name: "local sprint"}
	vanished := linkedSprint("c9", model.SprintActive)

	fetched := []model.Sprint{
		linkedSprint("c1", model.SprintActive),
		linkedSprint("c2", model.SprintPlanning),
	}

	res := Sprints([]model.Sprint{localLinked, localOnly, vanished}, fetched)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Removed)
	require.Len(t, res.Sprints, 3)

	byID := make(map[string]model.Sprint)
	for _, sp := range res.Sprints {
		byID[sp.ID] = sp
	}

	assert.Contains(t, byID, "s-local")

	updated := byID["remote-cycle-c1"]
	assert.Equal(t, model.SprintActive, updated.Status, "status recomputed from remote")
	require.NotNil(t, updated.Capacity)
	assert.Equal(t, capacity, *updated.Capacity, "local capacity survives")

	assert.Contains(t, byID, "remote-cycle-c2")
	assert.NotContains(t, byID, "remote-cycle-c9")
}

func TestSprintsIdempotent(t *testing.T) {
	fetched := []model.Sprint{
		linkedSprint("c1", model.SprintActive),
		linkedSprint("c2", model.SprintPlanning),
	}
	local := []model.Sprint{{ID: "s-local", Name: "local sprint"}}

	once := Sprints(local, fetched)
	twice := Sprints(once.Sprints, fetched)

	assert.Equal(t, once.Sprints, twice.Sprints)
}
