package sqlite

import "github.com/steveyegge/slogan-gen/internal/storage/migrations"

// timeFormat is fixed-width UTC so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "Create sessions and turns tables",
		Up: `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    request TEXT NOT NULL CHECK(length(request) > 0),
    model TEXT NOT NULL DEFAULT '',
    round_budget INTEGER NOT NULL CHECK(round_budget >= 1 AND round_budget <= 10),
    status TEXT NOT NULL,
    completion_reason TEXT,
    final_artifact TEXT,
    error TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_sessions_reason ON sessions(completion_reason);

CREATE TABLE IF NOT EXISTS turns (
    session_id TEXT NOT NULL,
    sequence INTEGER NOT NULL CHECK(sequence >= 1),
    artifact TEXT NOT NULL,
    critique TEXT NOT NULL,
    approved INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    PRIMARY KEY (session_id, sequence),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
`,
	},
}
