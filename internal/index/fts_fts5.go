//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

// FTSEnabled reports whether observation search uses FTS5.
const FTSEnabled = true

// The FTS table mirrors observations.content through triggers, so every
// insert, update and delete on observations produces exactly one matching
// index mutation inside the same transaction.
const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
	content,
	content = 'observations',
	content_rowid = 'seq',
	tokenize = 'porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS observations_ai AFTER INSERT ON observations BEGIN
	INSERT INTO observations_fts(rowid, content) VALUES (new.seq, new.content);
END;

CREATE TRIGGER IF NOT EXISTS observations_ad AFTER DELETE ON observations BEGIN
	INSERT INTO observations_fts(observations_fts, rowid, content) VALUES ('delete', old.seq, old.content);
END;

CREATE TRIGGER IF NOT EXISTS observations_au AFTER UPDATE ON observations BEGIN
	INSERT INTO observations_fts(observations_fts, rowid, content) VALUES ('delete', old.seq, old.content);
	INSERT INTO observations_fts(rowid, content) VALUES (new.seq, new.content);
END;
`

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(ftsSchemaSQL)
	return err
}

// Search runs an FTS5 query over observation content and returns matches
// ordered by bm25 rank (lower is better).
func (db *DB) Search(query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	match, err := prepareMatch(query)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`
		SELECT `+observationColumns("o")+`, observations_fts.rank
		FROM observations_fts
		JOIN observations o ON o.seq = observations_fts.rowid
		WHERE observations_fts MATCH ?
		ORDER BY observations_fts.rank, o.seq
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, queryError(query, err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := scanObservation(rows, &m.Observation, &m.Rank); err != nil {
			return nil, queryError(query, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(query, err)
	}
	return out, nil
}

// Verify runs the FTS5 integrity check against the observations table.
func (db *DB) Verify() error {
	if _, err := db.conn.Exec(`INSERT INTO observations_fts(observations_fts) VALUES ('integrity-check')`); err != nil {
		return fmt.Errorf("index: fts integrity check: %w", err)
	}
	return nil
}
