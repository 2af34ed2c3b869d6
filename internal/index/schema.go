// Package index is the SQLite-backed memory store: entities, observations,
// relations, the note manifest and the full-text index over observations.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	kind          TEXT NOT NULL CHECK (kind IN ('project', 'person', 'topic', 'url', 'date')),
	permalink     TEXT NOT NULL UNIQUE,
	first_seen    TEXT NOT NULL DEFAULT '',
	last_seen     TEXT NOT NULL DEFAULT '',
	mention_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entities_kind_name ON entities(kind, name);

CREATE TABLE IF NOT EXISTS observations (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	entity_id   TEXT NOT NULL REFERENCES entities(id),
	category    TEXT NOT NULL,
	content     TEXT NOT NULL,
	source_file TEXT NOT NULL,
	source_line INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	completed   INTEGER
);

CREATE INDEX IF NOT EXISTS idx_observations_entity ON observations(entity_id);
CREATE INDEX IF NOT EXISTS idx_observations_created ON observations(created_at);
CREATE INDEX IF NOT EXISTS idx_observations_source ON observations(source_file);
CREATE INDEX IF NOT EXISTS idx_observations_category ON observations(category);

CREATE TABLE IF NOT EXISTS observation_sources (
	obs_id TEXT NOT NULL,
	path   TEXT NOT NULL,
	PRIMARY KEY (obs_id, path)
);

CREATE INDEX IF NOT EXISTS idx_observation_sources_path ON observation_sources(path);

CREATE TABLE IF NOT EXISTS relations (
	id          TEXT PRIMARY KEY,
	from_id     TEXT NOT NULL REFERENCES entities(id),
	to_id       TEXT NOT NULL REFERENCES entities(id),
	type        TEXT NOT NULL CHECK (type IN ('references', 'child_of', 'related_to')),
	source_file TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(from_id);
CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_id);

CREATE TABLE IF NOT EXISTS notes (
	path       TEXT PRIMARY KEY,
	hash       TEXT NOT NULL,
	indexed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS integration_events (
	id           TEXT PRIMARY KEY,
	date         TEXT NOT NULL,
	occurred_at  TEXT NOT NULL,
	project      TEXT NOT NULL DEFAULT '',
	repo         TEXT NOT NULL DEFAULT '',
	kind         TEXT NOT NULL DEFAULT '',
	line         TEXT NOT NULL,
	payload_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_integration_events_date ON integration_events(date);
`

// DB wraps a sql.DB with memory store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.Init(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Init creates every table, index and trigger that does not exist yet.
// It is safe to call repeatedly.
func (db *DB) Init() error {
	if _, err := db.conn.Exec(coreSchemaSQL); err != nil {
		return fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(db.conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
