// Package sync decides when and what to synchronize with the remote
// tracker. It sequences fetches, hands complete fetched sets to the
// reconciliation engine, and commits the merged collections to the
// store in a single replacement.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/nhle/sprintsync/internal/convert"
	"github.com/nhle/sprintsync/internal/linear"
	"github.com/nhle/sprintsync/internal/logger"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/reconcile"
	"github.com/nhle/sprintsync/internal/store"
)

// ErrSyncInProgress is returned when a sync trigger arrives while a
// previous sync is still running. The trigger is a no-op; the caller
// can simply retry after the running sync finishes.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrNotConnected is returned when no tracker team is configured.
var ErrNotConnected = errors.New("no tracker team configured")

// State is the orchestrator's observable sync state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateReconciling
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateReconciling:
		return "reconciling"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Status is a snapshot of the orchestrator's sync state for display.
// A Failed state is informational: the next trigger starts from Idle.
type Status struct {
	State     State
	LastSync  time.Time
	LastError error
}

// Report summarizes the outcome of reconciling one scope.
type Report struct {
	Scope   string
	Created int
	Updated int
	Removed int
	Err     error
}

// Summary renders the report for user-facing output.
func (r Report) Summary() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: failed: %v", r.Scope, r.Err)
	}
	return fmt.Sprintf("%s: %d created, %d updated, %d removed",
		r.Scope, r.Created, r.Updated, r.Removed)
}

// TrackerClient is the slice of the remote client the orchestrator
// needs. Satisfied by *linear.Client.
type TrackerClient interface {
	Cycles(ctx context.Context, teamID string) ([]linear.Cycle, error)
	CycleIssues(ctx context.Context, cycleID string) ([]linear.Issue, error)
	BacklogIssues(ctx context.Context, teamID string) ([]linear.Issue, error)
	WorkflowStates(ctx context.Context, teamID string) ([]linear.WorkflowState, error)
	CreateIssue(ctx context.Context, input linear.IssueCreateInput) (*linear.Issue, error)
	UpdateIssue(ctx context.Context, id string, input linear.IssueUpdateInput) (*linear.Issue, error)
	ArchiveIssue(ctx context.Context, id string) error
}

// Orchestrator coordinates pull syncs and best-effort push-backs for a
// single configured team. One sync runs at a time: overlapping triggers
// are rejected with ErrSyncInProgress via an in-flight flag that is
// read atomically at call time, so timer callbacks can never act on a
// stale view of it.
type Orchestrator struct {
	client   TrackerClient
	store    store.Store
	teamID   string
	interval time.Duration

	inFlight atomic.Bool

	mu     gosync.Mutex
	status Status
}

// Config holds the orchestrator's construction-time settings. The
// session is explicit: no package-level connection state exists.
type Config struct {
	TeamID   string
	Interval time.Duration
}

// New creates an orchestrator for the given client, store, and session
// configuration.
func New(client TrackerClient, s store.Store, cfg Config) *Orchestrator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Orchestrator{
		client:   client,
		store:    s,
		teamID:   cfg.TeamID,
		interval: interval,
	}
}

// Status returns a snapshot of the current sync status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.State = s
}

func (o *Orchestrator) finish(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.status.State = StateFailed
		o.status.LastError = err
		return
	}
	o.status.State = StateIdle
	o.status.LastError = nil
	o.status.LastSync = time.Now()
}

// scopeFetch pairs a reconciliation scope with its fetched issues.
type scopeFetch struct {
	scope  reconcile.Scope
	issues []linear.Issue
	err    error
}

// SyncCycle pulls a single cycle's issues and reconciles them, also
// refreshing the team's sprint collection so the cycle's dates and
// status stay authoritative.
func (o *Orchestrator) SyncCycle(ctx context.Context, cycleID string) ([]Report, error) {
	return o.run(ctx, func(ctx context.Context, sprints []model.Sprint) ([]scopeFetch, error) {
		sprintID := ""
		for _, sp := range sprints {
			if sp.RemoteCycleID == cycleID {
				sprintID = sp.ID
				break
			}
		}
		if sprintID == "" {
			return nil, fmt.Errorf("cycle %s is not linked to any sprint", cycleID)
		}

		scope := reconcile.Scope{Kind: reconcile.ScopeCycle, CycleID: cycleID, SprintID: sprintID}
		issues, err := o.client.CycleIssues(ctx, cycleID)
		return []scopeFetch{{scope: scope, issues: issues, err: err}}, nil
	})
}

// SyncBacklog pulls the team's backlog and reconciles it.
func (o *Orchestrator) SyncBacklog(ctx context.Context) ([]Report, error) {
	return o.run(ctx, func(ctx context.Context, _ []model.Sprint) ([]scopeFetch, error) {
		scope := reconcile.Scope{Kind: reconcile.ScopeBacklog}
		issues, err := o.client.BacklogIssues(ctx, o.teamID)
		return []scopeFetch{{scope: scope, issues: issues, err: err}}, nil
	})
}

// SyncAll pulls every linked cycle plus the backlog. Per-cycle fetches
// run in parallel and fail independently; reconciliation then applies
// each successfully fetched scope sequentially against one working copy
// of the collection, so cross-scope duplicate suppression sees a
// consistent intermediate state, and commits once.
func (o *Orchestrator) SyncAll(ctx context.Context) ([]Report, error) {
	return o.run(ctx, func(ctx context.Context, sprints []model.Sprint) ([]scopeFetch, error) {
		var scopes []reconcile.Scope
		for _, sp := range sprints {
			if !sp.Linked() {
				continue
			}
			scopes = append(scopes, reconcile.Scope{
				Kind:     reconcile.ScopeCycle,
				CycleID:  sp.RemoteCycleID,
				SprintID: sp.ID,
			})
		}
		scopes = append(scopes, reconcile.Scope{Kind: reconcile.ScopeBacklog})

		fetches := make([]scopeFetch, len(scopes))
		var wg gosync.WaitGroup
		for i, scope := range scopes {
			wg.Add(1)
			go func(i int, scope reconcile.Scope) {
				defer wg.Done()
				var issues []linear.Issue
				var err error
				if scope.Kind == reconcile.ScopeBacklog {
					issues, err = o.client.BacklogIssues(ctx, o.teamID)
				} else {
					issues, err = o.client.CycleIssues(ctx, scope.CycleID)
				}
				fetches[i] = scopeFetch{scope: scope, issues: issues, err: err}
			}(i, scope)
		}
		wg.Wait()

		return fetches, nil
	})
}

// run executes one full sync pass: refresh sprints from the team's
// cycles, fetch the requested scopes, reconcile sequentially, commit
// atomically. Single-flight guarded.
func (o *Orchestrator) run(
	ctx context.Context,
	fetch func(ctx context.Context, sprints []model.Sprint) ([]scopeFetch, error),
) ([]Report, error) {
	if o.teamID == "" {
		return nil, ErrNotConnected
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer o.inFlight.Store(false)

	o.setState(StateFetching)

	localSprints, err := o.store.Sprints(ctx)
	if err != nil {
		o.finish(err)
		return nil, err
	}

	cycles, err := o.client.Cycles(ctx, o.teamID)
	if err != nil {
		err = fmt.Errorf("fetching cycles: %w", err)
		o.finish(err)
		return nil, err
	}

	now := time.Now()
	fetchedSprints := make([]model.Sprint, 0, len(cycles))
	for _, c := range cycles {
		sp, err := convert.CycleToSprint(c, now)
		if err != nil {
			o.finish(err)
			return nil, err
		}
		fetchedSprints = append(fetchedSprints, sp)
	}
	sprintRes := reconcile.Sprints(localSprints, fetchedSprints)

	// A sprint whose cycle vanished remotely takes its tasks with it:
	// the former scope is reconciled against an empty fetched set below,
	// so those tasks are removed (or re-inserted by whichever scope now
	// owns the issue) instead of pointing at a deleted sprint.
	fetchedCycles := make(map[string]bool, len(fetchedSprints))
	for _, sp := range fetchedSprints {
		fetchedCycles[sp.RemoteCycleID] = true
	}
	var removedScopes []reconcile.Scope
	for _, sp := range localSprints {
		if sp.Linked() && !fetchedCycles[sp.RemoteCycleID] {
			removedScopes = append(removedScopes, reconcile.Scope{
				Kind:     reconcile.ScopeCycle,
				CycleID:  sp.RemoteCycleID,
				SprintID: sp.ID,
			})
		}
	}

	fetches, err := fetch(ctx, sprintRes.Sprints)
	if err != nil {
		o.finish(err)
		return nil, err
	}

	o.setState(StateReconciling)

	working, err := o.store.Tasks(ctx)
	if err != nil {
		o.finish(err)
		return nil, err
	}

	reports := make([]Report, 0, len(fetches)+len(removedScopes))
	for _, scope := range removedScopes {
		res := reconcile.Tasks(working, scope, nil)
		working = res.Tasks
		if res.Removed > 0 {
			reports = append(reports, Report{Scope: scope.Label(), Removed: res.Removed})
		}
	}

	for _, f := range fetches {
		report := Report{Scope: f.scope.Label()}
		if f.err != nil {
			report.Err = f.err
			reports = append(reports, report)
			continue
		}

		converted, err := convertIssues(f.issues, f.scope.SprintID)
		if err != nil {
			report.Err = err
			reports = append(reports, report)
			continue
		}

		res := reconcile.Tasks(working, f.scope, converted)
		working = res.Tasks
		report.Created = res.Created
		report.Updated = res.Updated
		report.Removed = res.Removed
		reports = append(reports, report)
	}

	working = reconcile.RehomeTasks(working, sprintRes.Sprints)

	if err := o.store.ReplaceSprints(ctx, sprintRes.Sprints); err != nil {
		o.finish(err)
		return reports, err
	}
	if err := o.store.ReplaceTasks(ctx, working); err != nil {
		o.finish(err)
		return reports, err
	}

	if err := o.store.SetSetting(ctx, store.SettingLastSync,
		now.UTC().Format(time.RFC3339)); err != nil {
		logger.Warn("sync: recording last sync time: %v", err)
	}

	o.finish(nil)
	return reports, nil
}

// convertIssues maps fetched issues onto local tasks. A conversion
// failure aborts the whole scope rather than dropping the record:
// reconciliation would read the missing record as a remote deletion.
func convertIssues(issues []linear.Issue, sprintID string) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(issues))
	for _, issue := range issues {
		t, err := convert.IssueToTask(issue, sprintID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Run drives the recurring background sync until ctx is cancelled. It
// only fires while a team is configured, and each tick is subject to
// the same single-flight guard as manual triggers. Background failures
// are logged, never surfaced as notifications; the recorded status is
// consulted by the next manual action.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reports, err := o.SyncAll(ctx)
			if errors.Is(err, ErrSyncInProgress) {
				continue
			}
			if err != nil {
				logger.Warn("background sync failed: %v", err)
				continue
			}
			for _, r := range reports {
				if r.Err != nil {
					logger.Warn("background sync, %s", r.Summary())
				} else {
					logger.Debug("background sync, %s", r.Summary())
				}
			}
		}
	}
}

// PushTaskUpdate pushes a local task's fields to its linked remote
// issue. Best-effort: the optimistic local edit is already committed
// and is never rolled back on failure. When the local status no longer
// matches the stored remote state, the team's workflow states are
// fetched and the closest match by keyword is applied.
func (o *Orchestrator) PushTaskUpdate(ctx context.Context, task model.Task) error {
	if !task.Linked() {
		return fmt.Errorf("task %s is not linked to a remote issue", task.ID)
	}

	input := convert.TaskToUpdateInput(task)

	if convert.StateNameToStatus(task.RemoteStateName) != task.Status {
		states, err := o.client.WorkflowStates(ctx, o.teamID)
		if err != nil {
			return fmt.Errorf("resolving workflow state: %w", err)
		}
		if stateID, ok := convert.MatchWorkflowState(states, task.Status); ok {
			input.StateID = &stateID
		}
	}

	if _, err := o.client.UpdateIssue(ctx, task.RemoteIssueID, input); err != nil {
		return fmt.Errorf("pushing task %s: %w", task.ID, err)
	}
	return nil
}

// PushNewTask creates a remote issue for a purely local task and links
// the local record to it. The local ID is kept; only the remote linkage
// fields are filled in.
func (o *Orchestrator) PushNewTask(ctx context.Context, task model.Task) (model.Task, error) {
	if task.Linked() {
		return task, fmt.Errorf("task %s is already linked to issue %s",
			task.ID, task.RemoteIssueID)
	}

	cycleID := ""
	if task.SprintID != "" {
		sprints, err := o.store.Sprints(ctx)
		if err != nil {
			return task, err
		}
		for _, sp := range sprints {
			if sp.ID == task.SprintID {
				cycleID = sp.RemoteCycleID
				break
			}
		}
	}

	issue, err := o.client.CreateIssue(ctx, convert.TaskToCreateInput(task, o.teamID, cycleID))
	if err != nil {
		return task, fmt.Errorf("creating remote issue for task %s: %w", task.ID, err)
	}

	task.RemoteIssueID = issue.ID
	task.RemoteStateID = issue.State.ID
	task.RemoteStateName = issue.State.Name
	task.RemoteStateType = issue.State.Type
	if issue.Project != nil {
		task.RemoteProjectID = issue.Project.ID
	}

	if err := o.store.UpsertTask(ctx, task); err != nil {
		return task, fmt.Errorf("linking task %s: %w", task.ID, err)
	}
	return task, nil
}

// PushArchive archives the remote issue linked to a task. The local
// record is expected to be deleted already; a remote failure is
// reported but never restores it.
func (o *Orchestrator) PushArchive(ctx context.Context, task model.Task) error {
	if !task.Linked() {
		return nil
	}
	if err := o.client.ArchiveIssue(ctx, task.RemoteIssueID); err != nil {
		return fmt.Errorf("archiving remote issue for task %s: %w", task.ID, err)
	}
	return nil
}
