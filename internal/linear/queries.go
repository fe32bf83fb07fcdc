package linear

import (
	"context"
	"fmt"
)

// issueFields is the selection set shared by every issue query. It covers
// exactly the fields the local task model is derived from.
const issueFields = `
	id
	identifier
	title
	description
	priority
	estimate
	url
	createdAt
	updatedAt
	startedAt
	completedAt
	dueDate
	state { id name type position }
	assignee { id name displayName }
	cycle { id }
	project { id name }
	parent { id identifier }
	labels { nodes { id name } }
	relations { nodes { id type relatedIssue { id identifier } } }
	inverseRelations { nodes { id type relatedIssue { id identifier } } }
`

const cycleFields = `
	id
	number
	name
	startsAt
	endsAt
	completedAt
	progress
	team { id name key }
`

// pageSize is the page size used for drained list queries.
const pageSize = 50

// Viewer returns the authenticated user. Used to validate the connection.
func (c *Client) Viewer(ctx context.Context) (*User, error) {
	var resp struct {
		Viewer User `json:"viewer"`
	}
	query := `query { viewer { id name displayName email } }`
	if err := c.execute(ctx, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching viewer: %w", err)
	}
	return &resp.Viewer, nil
}

// Teams returns all teams visible to the API key.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var resp struct {
		Teams struct {
			Nodes []Team `json:"nodes"`
		} `json:"teams"`
	}
	query := `query { teams { nodes { id name key } } }`
	if err := c.execute(ctx, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching teams: %w", err)
	}
	return resp.Teams.Nodes, nil
}

// Projects returns all projects, optionally filtered to those that
// include the given team. The filter is applied client-side.
func (c *Client) Projects(ctx context.Context, teamID string) ([]Project, error) {
	var resp struct {
		Projects struct {
			Nodes []Project `json:"nodes"`
		} `json:"projects"`
	}
	query := `query {
		projects {
			nodes {
				id name description state startDate targetDate
				teams { nodes { id name key } }
			}
		}
	}`
	if err := c.execute(ctx, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching projects: %w", err)
	}
	if teamID == "" {
		return resp.Projects.Nodes, nil
	}

	var filtered []Project
	for _, p := range resp.Projects.Nodes {
		for _, t := range p.Teams.Nodes {
			if t.ID == teamID {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// WorkflowStates returns the workflow states configured for a team.
func (c *Client) WorkflowStates(ctx context.Context, teamID string) ([]WorkflowState, error) {
	var resp struct {
		Team struct {
			States struct {
				Nodes []WorkflowState `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	query := `query($teamId: String!) {
		team(id: $teamId) {
			states { nodes { id name type position } }
		}
	}`
	vars := map[string]any{"teamId": teamID}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("fetching workflow states for team %s: %w", teamID, err)
	}
	return resp.Team.States.Nodes, nil
}

// Cycles returns all cycles for a team.
func (c *Client) Cycles(ctx context.Context, teamID string) ([]Cycle, error) {
	var resp struct {
		Team struct {
			Cycles CycleConnection `json:"cycles"`
		} `json:"team"`
	}
	query := `query($teamId: String!) {
		team(id: $teamId) {
			cycles { nodes {` + cycleFields + `} pageInfo { hasNextPage endCursor } }
		}
	}`
	vars := map[string]any{"teamId": teamID}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("fetching cycles for team %s: %w", teamID, err)
	}
	return resp.Team.Cycles.Nodes, nil
}

// CycleIssues returns the complete set of issues currently in a cycle.
// Pagination is fully drained before returning; the reconciliation
// engine treats absence from the returned set as authoritative, so a
// truncated result would be read as deletions.
func (c *Client) CycleIssues(ctx context.Context, cycleID string) ([]Issue, error) {
	query := `query($cycleId: String!, $first: Int!, $after: String) {
		cycle(id: $cycleId) {
			issues(first: $first, after: $after) {
				nodes {` + issueFields + `}
				pageInfo { hasNextPage endCursor }
			}
		}
	}`

	issues, err := drainIssues(func(after string) (IssueConnection, error) {
		var resp struct {
			Cycle struct {
				Issues IssueConnection `json:"issues"`
			} `json:"cycle"`
		}
		vars := map[string]any{"cycleId": cycleID, "first": pageSize}
		if after != "" {
			vars["after"] = after
		}
		err := c.execute(ctx, query, vars, &resp)
		return resp.Cycle.Issues, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching issues for cycle %s: %w", cycleID, err)
	}
	return issues, nil
}

// BacklogIssues returns the complete set of a team's issues that belong
// to no cycle. Pagination is fully drained before returning.
func (c *Client) BacklogIssues(ctx context.Context, teamID string) ([]Issue, error) {
	query := `query($teamId: String!, $first: Int!, $after: String) {
		team(id: $teamId) {
			issues(first: $first, after: $after, filter: { cycle: { null: true } }) {
				nodes {` + issueFields + `}
				pageInfo { hasNextPage endCursor }
			}
		}
	}`

	issues, err := drainIssues(func(after string) (IssueConnection, error) {
		var resp struct {
			Team struct {
				Issues IssueConnection `json:"issues"`
			} `json:"team"`
		}
		vars := map[string]any{"teamId": teamID, "first": pageSize}
		if after != "" {
			vars["after"] = after
		}
		err := c.execute(ctx, query, vars, &resp)
		return resp.Team.Issues, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching backlog issues for team %s: %w", teamID, err)
	}
	return issues, nil
}

// TeamIssues returns the complete set of issues for a team, in or out
// of cycles. Pagination is fully drained before returning.
func (c *Client) TeamIssues(ctx context.Context, teamID string) ([]Issue, error) {
	query := `query($teamId: String!, $first: Int!, $after: String) {
		team(id: $teamId) {
			issues(first: $first, after: $after) {
				nodes {` + issueFields + `}
				pageInfo { hasNextPage endCursor }
			}
		}
	}`

	issues, err := drainIssues(func(after string) (IssueConnection, error) {
		var resp struct {
			Team struct {
				Issues IssueConnection `json:"issues"`
			} `json:"team"`
		}
		vars := map[string]any{"teamId": teamID, "first": pageSize}
		if after != "" {
			vars["after"] = after
		}
		err := c.execute(ctx, query, vars, &resp)
		return resp.Team.Issues, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching issues for team %s: %w", teamID, err)
	}
	return issues, nil
}

// drainIssues follows hasNextPage/endCursor until the connection is
// exhausted and returns the concatenated node list.
func drainIssues(fetchPage func(after string) (IssueConnection, error)) ([]Issue, error) {
	var all []Issue
	after := ""

	for {
		page, err := fetchPage(after)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Nodes...)
		if !page.PageInfo.HasNextPage {
			return all, nil
		}
		after = page.PageInfo.EndCursor
	}
}

// CreateIssue creates a new issue and returns the created snapshot.
func (c *Client) CreateIssue(ctx context.Context, input IssueCreateInput) (*Issue, error) {
	var resp struct {
		IssueCreate issuePayload `json:"issueCreate"`
	}
	query := `mutation($input: IssueCreateInput!) {
		issueCreate(input: $input) {
			success
			issue {` + issueFields + `}
		}
	}`
	vars := map[string]any{"input": input}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	if !resp.IssueCreate.Success || resp.IssueCreate.Issue == nil {
		return nil, fmt.Errorf("creating issue: mutation reported failure")
	}
	return resp.IssueCreate.Issue, nil
}

// UpdateIssue applies a partial update to an issue.
func (c *Client) UpdateIssue(ctx context.Context, id string, input IssueUpdateInput) (*Issue, error) {
	var resp struct {
		IssueUpdate issuePayload `json:"issueUpdate"`
	}
	query := `mutation($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) {
			success
			issue {` + issueFields + `}
		}
	}`
	vars := map[string]any{"id": id, "input": input}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("updating issue %s: %w", id, err)
	}
	if !resp.IssueUpdate.Success {
		return nil, fmt.Errorf("updating issue %s: mutation reported failure", id)
	}
	return resp.IssueUpdate.Issue, nil
}

// UpdateIssueState moves an issue to the given workflow state.
func (c *Client) UpdateIssueState(ctx context.Context, id, stateID string) error {
	_, err := c.UpdateIssue(ctx, id, IssueUpdateInput{StateID: &stateID})
	return err
}

// ArchiveIssue archives an issue.
func (c *Client) ArchiveIssue(ctx context.Context, id string) error {
	var resp struct {
		IssueArchive archivePayload `json:"issueArchive"`
	}
	query := `mutation($id: String!) {
		issueArchive(id: $id) { success }
	}`
	vars := map[string]any{"id": id}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return fmt.Errorf("archiving issue %s: %w", id, err)
	}
	if !resp.IssueArchive.Success {
		return fmt.Errorf("archiving issue %s: mutation reported failure", id)
	}
	return nil
}

// CreateCycle creates a new cycle for a team.
func (c *Client) CreateCycle(ctx context.Context, input CycleCreateInput) (*Cycle, error) {
	var resp struct {
		CycleCreate cyclePayload `json:"cycleCreate"`
	}
	query := `mutation($input: CycleCreateInput!) {
		cycleCreate(input: $input) {
			success
			cycle {` + cycleFields + `}
		}
	}`
	vars := map[string]any{"input": input}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("creating cycle: %w", err)
	}
	if !resp.CycleCreate.Success || resp.CycleCreate.Cycle == nil {
		return nil, fmt.Errorf("creating cycle: mutation reported failure")
	}
	return resp.CycleCreate.Cycle, nil
}

// UpdateCycle applies a partial update to a cycle.
func (c *Client) UpdateCycle(ctx context.Context, id string, input CycleUpdateInput) (*Cycle, error) {
	var resp struct {
		CycleUpdate cyclePayload `json:"cycleUpdate"`
	}
	query := `mutation($id: String!, $input: CycleUpdateInput!) {
		cycleUpdate(id: $id, input: $input) {
			success
			cycle {` + cycleFields + `}
		}
	}`
	vars := map[string]any{"id": id, "input": input}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("updating cycle %s: %w", id, err)
	}
	if !resp.CycleUpdate.Success {
		return nil, fmt.Errorf("updating cycle %s: mutation reported failure", id)
	}
	return resp.CycleUpdate.Cycle, nil
}

// ArchiveCycle archives a cycle.
func (c *Client) ArchiveCycle(ctx context.Context, id string) error {
	var resp struct {
		CycleArchive archivePayload `json:"cycleArchive"`
	}
	query := `mutation($id: String!) {
		cycleArchive(id: $id) { success }
	}`
	vars := map[string]any{"id": id}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return fmt.Errorf("archiving cycle %s: %w", id, err)
	}
	if !resp.CycleArchive.Success {
		return fmt.Errorf("archiving cycle %s: mutation reported failure", id)
	}
	return nil
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, input ProjectCreateInput) (*Project, error) {
	var resp struct {
		ProjectCreate projectPayload `json:"projectCreate"`
	}
	query := `mutation($input: ProjectCreateInput!) {
		projectCreate(input: $input) {
			success
			project { id name description state startDate targetDate }
		}
	}`
	vars := map[string]any{"input": input}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	if !resp.ProjectCreate.Success || resp.ProjectCreate.Project == nil {
		return nil, fmt.Errorf("creating project: mutation reported failure")
	}
	return resp.ProjectCreate.Project, nil
}

// UpdateProject applies a partial update to a project.
func (c *Client) UpdateProject(ctx context.Context, id string, input ProjectUpdateInput) (*Project, error) {
	var resp struct {
		ProjectUpdate projectPayload `json:"projectUpdate"`
	}
	query := `mutation($id: String!, $input: ProjectUpdateInput!) {
		projectUpdate(id: $id, input: $input) {
			success
			project { id name description state startDate targetDate }
		}
	}`
	vars := map[string]any{"id": id, "input": input}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return nil, fmt.Errorf("updating project %s: %w", id, err)
	}
	if !resp.ProjectUpdate.Success {
		return nil, fmt.Errorf("updating project %s: mutation reported failure", id)
	}
	return resp.ProjectUpdate.Project, nil
}

// ArchiveProject archives a project.
func (c *Client) ArchiveProject(ctx context.Context, id string) error {
	var resp struct {
		ProjectArchive archivePayload `json:"projectArchive"`
	}
	query := `mutation($id: String!) {
		projectArchive(id: $id) { success }
	}`
	vars := map[string]any{"id": id}
	if err := c.execute(ctx, query, vars, &resp); err != nil {
		return fmt.Errorf("archiving project %s: %w", id, err)
	}
	if !resp.ProjectArchive.Success {
		return fmt.Errorf("archiving project %s: mutation reported failure", id)
	}
	return nil
}
