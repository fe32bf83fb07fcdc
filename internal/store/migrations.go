package store

// migration is a single versioned schema change.
type migration struct {
	version int
	sql     string
}

// migrations are applied in order; each runs at most once per database.
var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY
			);

			CREATE TABLE IF NOT EXISTS sprints (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				goal TEXT NOT NULL DEFAULT '',
				start_date TIMESTAMP NOT NULL,
				end_date TIMESTAMP NOT NULL,
				status TEXT NOT NULL,
				capacity REAL,
				remote_cycle_id TEXT NOT NULL DEFAULT '',
				team_id TEXT NOT NULL DEFAULT '',
				team_name TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				start_date TIMESTAMP NOT NULL,
				end_date TIMESTAMP NOT NULL,
				progress INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				priority TEXT NOT NULL,
				estimate REAL,
				assignee TEXT NOT NULL DEFAULT '',
				assignee_id TEXT NOT NULL DEFAULT '',
				sprint_id TEXT NOT NULL DEFAULT '',
				labels TEXT NOT NULL DEFAULT '[]',
				remote_issue_id TEXT NOT NULL DEFAULT '',
				remote_project_id TEXT NOT NULL DEFAULT '',
				remote_parent_issue_id TEXT NOT NULL DEFAULT '',
				remote_state_id TEXT NOT NULL DEFAULT '',
				remote_state_name TEXT NOT NULL DEFAULT '',
				remote_state_type TEXT NOT NULL DEFAULT '',
				blocks TEXT NOT NULL DEFAULT '[]',
				blocked_by TEXT NOT NULL DEFAULT '[]'
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_remote_issue
				ON tasks(remote_issue_id) WHERE remote_issue_id != '';
			CREATE UNIQUE INDEX IF NOT EXISTS idx_sprints_remote_cycle
				ON sprints(remote_cycle_id) WHERE remote_cycle_id != '';
			CREATE INDEX IF NOT EXISTS idx_tasks_sprint ON tasks(sprint_id);

			CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			INSERT INTO schema_version (version) VALUES (1);
		`,
	},
}
