package linear

// PageInfo is the standard connection pagination envelope.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// User represents a tracker user account.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Team represents a tracker team.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// WorkflowState is a team-specific issue state (e.g., "In Progress").
// Type is one of the tracker's fixed categories: triage, backlog,
// unstarted, started, completed, canceled.
type WorkflowState struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Position float64 `json:"position"`
}

// Project represents a tracker project.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	State       string `json:"state"`
	StartDate   string `json:"startDate"`
	TargetDate  string `json:"targetDate"`
	Teams       struct {
		Nodes []Team `json:"nodes"`
	} `json:"teams"`
}

// Cycle represents a tracker cycle (sprint). StartsAt/EndsAt/CompletedAt
// are RFC 3339 timestamps; CompletedAt is empty while the cycle is open.
type Cycle struct {
	ID          string  `json:"id"`
	Number      int     `json:"number"`
	Name        string  `json:"name"`
	StartsAt    string  `json:"startsAt"`
	EndsAt      string  `json:"endsAt"`
	CompletedAt string  `json:"completedAt"`
	Progress    float64 `json:"progress"`
	Team        *Team   `json:"team"`
}

// Label is an issue label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IssueRef is a minimal reference to another issue.
type IssueRef struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
}

// Relation is a dependency edge between two issues. Type "blocks" means
// the owning issue blocks RelatedIssue (or, on an inverse relation, is
// blocked by it).
type Relation struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	RelatedIssue IssueRef `json:"relatedIssue"`
}

// Issue is a tracker issue snapshot. Snapshots are immutable per fetch;
// only the local task derived from them is ever mutated.
type Issue struct {
	ID          string        `json:"id"`
	Identifier  string        `json:"identifier"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    int           `json:"priority"`
	Estimate    *float64      `json:"estimate"`
	URL         string        `json:"url"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
	StartedAt   string        `json:"startedAt"`
	CompletedAt string        `json:"completedAt"`
	DueDate     string        `json:"dueDate"`
	State       WorkflowState `json:"state"`
	Assignee    *User         `json:"assignee"`
	Cycle       *Cycle        `json:"cycle"`
	Project     *Project      `json:"project"`
	Parent      *IssueRef     `json:"parent"`
	Labels      struct {
		Nodes []Label `json:"nodes"`
	} `json:"labels"`
	Relations struct {
		Nodes []Relation `json:"nodes"`
	} `json:"relations"`
	InverseRelations struct {
		Nodes []Relation `json:"nodes"`
	} `json:"inverseRelations"`
}

// IssueConnection is a page of issues.
type IssueConnection struct {
	PageInfo PageInfo `json:"pageInfo"`
	Nodes    []Issue  `json:"nodes"`
}

// CycleConnection is a page of cycles.
type CycleConnection struct {
	PageInfo PageInfo `json:"pageInfo"`
	Nodes    []Cycle  `json:"nodes"`
}

// IssueCreateInput is the mutation input for creating an issue.
type IssueCreateInput struct {
	TeamID      string   `json:"teamId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Estimate    *float64 `json:"estimate,omitempty"`
	StateID     string   `json:"stateId,omitempty"`
	CycleID     string   `json:"cycleId,omitempty"`
	ProjectID   string   `json:"projectId,omitempty"`
	AssigneeID  string   `json:"assigneeId,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
}

// IssueUpdateInput is the mutation input for updating an issue.
// Pointer fields distinguish "leave unchanged" from "clear".
type IssueUpdateInput struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Estimate    *float64 `json:"estimate,omitempty"`
	StateID     *string  `json:"stateId,omitempty"`
	CycleID     *string  `json:"cycleId,omitempty"`
	ProjectID   *string  `json:"projectId,omitempty"`
	AssigneeID  *string  `json:"assigneeId,omitempty"`
	DueDate     *string  `json:"dueDate,omitempty"`
}

// CycleCreateInput is the mutation input for creating a cycle.
type CycleCreateInput struct {
	TeamID   string `json:"teamId"`
	Name     string `json:"name,omitempty"`
	StartsAt string `json:"startsAt"`
	EndsAt   string `json:"endsAt"`
}

// CycleUpdateInput is the mutation input for updating a cycle.
type CycleUpdateInput struct {
	Name     *string `json:"name,omitempty"`
	StartsAt *string `json:"startsAt,omitempty"`
	EndsAt   *string `json:"endsAt,omitempty"`
}

// ProjectCreateInput is the mutation input for creating a project.
type ProjectCreateInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	TeamIDs     []string `json:"teamIds"`
}

// ProjectUpdateInput is the mutation input for updating a project.
type ProjectUpdateInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	State       *string `json:"state,omitempty"`
}

// issuePayload is the common mutation result envelope for issues.
type issuePayload struct {
	Success bool   `json:"success"`
	Issue   *Issue `json:"issue"`
}

// cyclePayload is the common mutation result envelope for cycles.
type cyclePayload struct {
	Success bool   `json:"success"`
	Cycle   *Cycle `json:"cycle"`
}

// projectPayload is the common mutation result envelope for projects.
type projectPayload struct {
	Success bool     `json:"success"`
	Project *Project `json:"project"`
}

// archivePayload is the mutation result envelope for archive operations.
type archivePayload struct {
	Success bool `json:"success"`
}
