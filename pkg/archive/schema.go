package archive

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// schema creates the report table, the version table and the indexes used
// by listing and pruning.
const schema = `
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    name TEXT NOT NULL,
    score REAL NOT NULL,
    level TEXT NOT NULL,
    ruleset_version INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,
    payload BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_recorded_at ON reports(recorded_at);
CREATE INDEX IF NOT EXISTS idx_reports_subject ON reports(kind, subject_id);
CREATE INDEX IF NOT EXISTS idx_reports_level ON reports(level);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const selectColumns = `id, kind, subject_id, name, score, level, ruleset_version, recorded_at, payload`
