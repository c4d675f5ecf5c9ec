package storage

// SchemaVersion is the current decision log schema version.
const SchemaVersion = 1

// Schema creates the decision log tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id               TEXT PRIMARY KEY,
	time             TIMESTAMP NOT NULL,
	policy           TEXT NOT NULL,
	registry_version INTEGER NOT NULL,
	document_hash    TEXT,
	outcome          TEXT NOT NULL,
	residual         TEXT,
	paths            TEXT,
	witnesses        TEXT,
	duration_us      INTEGER NOT NULL,
	error            TEXT
);

CREATE INDEX IF NOT EXISTS idx_decisions_time    ON decisions(time);
CREATE INDEX IF NOT EXISTS idx_decisions_policy  ON decisions(policy);
CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version, once.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`
