package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/maxwell/internal/extract"
	"github.com/starford/maxwell/internal/models"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// UpsertEntity creates e or, when it already exists, widens its
// first/last-seen window and adds mentions to its mention count.
func (db *DB) UpsertEntity(e models.Entity, mentions int) error {
	return upsertEntity(db.conn, e, mentions)
}

func upsertEntity(x execer, e models.Entity, mentions int) error {
	_, err := x.Exec(`
		INSERT INTO entities (id, name, kind, permalink, first_seen, last_seen, mention_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_seen = CASE
				WHEN entities.first_seen = '' OR (excluded.first_seen <> '' AND excluded.first_seen < entities.first_seen)
				THEN excluded.first_seen ELSE entities.first_seen END,
			last_seen = CASE
				WHEN excluded.last_seen > entities.last_seen
				THEN excluded.last_seen ELSE entities.last_seen END,
			mention_count = entities.mention_count + excluded.mention_count
	`, e.ID, e.Name, string(e.Kind), e.Permalink, e.FirstSeen, e.LastSeen, mentions)
	if err != nil {
		return fmt.Errorf("index: upsert entity %s: %w", e.ID, err)
	}
	return nil
}

// InsertObservation creates or replaces an observation by id.
func (db *DB) InsertObservation(o models.Observation) error {
	return insertObservation(db.conn, o)
}

func insertObservation(x execer, o models.Observation) error {
	var completed any
	if o.Completed != nil {
		completed = *o.Completed
	}
	_, err := x.Exec(`
		INSERT INTO observations (id, entity_id, category, content, source_file, source_line, created_at, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entity_id   = excluded.entity_id,
			category    = excluded.category,
			content     = excluded.content,
			source_file = excluded.source_file,
			source_line = excluded.source_line,
			created_at  = excluded.created_at,
			completed   = excluded.completed
	`, o.ID, o.EntityID, string(o.Category), o.Content, o.SourceFile, o.SourceLine, o.CreatedAt, completed)
	if err != nil {
		return fmt.Errorf("index: insert observation %s: %w", o.ID, err)
	}
	return nil
}

// InsertRelation inserts r; an existing relation with the same id is left alone.
func (db *DB) InsertRelation(r models.Relation) error {
	return insertRelation(db.conn, r)
}

func insertRelation(x execer, r models.Relation) error {
	_, err := x.Exec(`
		INSERT OR IGNORE INTO relations (id, from_id, to_id, type, source_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.FromID, r.ToID, string(r.Type), r.SourceFile, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("index: insert relation %s: %w", r.ID, err)
	}
	return nil
}

// RecordNoteHash stores the content hash of an indexed note.
func (db *DB) RecordNoteHash(h models.NoteHash) error {
	return recordNoteHash(db.conn, h)
}

func recordNoteHash(x execer, h models.NoteHash) error {
	_, err := x.Exec(`
		INSERT INTO notes (path, hash, indexed_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, indexed_at = excluded.indexed_at
	`, h.Path, h.Hash, h.IndexedAt)
	if err != nil {
		return fmt.Errorf("index: record note hash %s: %w", h.Path, err)
	}
	return nil
}

// Apply commits one note's extraction in a single transaction: entities
// first, then observations, then relations, then the manifest entry.
// Observations previously derived from the same file that the extraction no
// longer produces are deleted unless another note still produces them.
func (db *DB) Apply(ex *extract.Extraction, h models.NoteHash) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, em := range ex.Entities {
		if err := upsertEntity(tx, em.Entity, em.Mentions); err != nil {
			return err
		}
	}
	for _, o := range ex.Observations {
		if err := insertObservation(tx, o); err != nil {
			return err
		}
	}
	if err := pruneObservations(tx, ex); err != nil {
		return err
	}
	for _, r := range ex.Relations {
		if err := insertRelation(tx, r); err != nil {
			return err
		}
	}
	if err := recordNoteHash(tx, h); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit %s: %w", ex.Path, err)
	}
	return nil
}

// pruneObservations drops the observations ex.Path no longer produces.
// Identical lines in different notes share one observation id, so a row is
// deleted only once no note lists it in observation_sources.
func pruneObservations(x execer, ex *extract.Extraction) error {
	var keepArgs []any
	for _, o := range ex.Observations {
		keepArgs = append(keepArgs, o.ID)
	}
	notIn := func(col string) string {
		if len(keepArgs) == 0 {
			return ""
		}
		return ` AND ` + col + ` NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(keepArgs)), ",") + `)`
	}
	path := ex.Path

	args := append([]any{path, path, path}, keepArgs...)
	if _, err := x.Exec(`
		DELETE FROM observations
		WHERE (source_file = ? OR id IN (SELECT obs_id FROM observation_sources WHERE path = ?))
		  AND id NOT IN (SELECT obs_id FROM observation_sources WHERE path <> ?)`+notIn("id"), args...); err != nil {
		return fmt.Errorf("index: prune observations %s: %w", path, err)
	}

	args = append([]any{path}, keepArgs...)
	if _, err := x.Exec(`DELETE FROM observation_sources WHERE path = ?`+notIn("obs_id"), args...); err != nil {
		return fmt.Errorf("index: prune observation sources %s: %w", path, err)
	}

	// Rows still produced elsewhere point at one of their remaining notes.
	args = append([]any{path}, keepArgs...)
	if _, err := x.Exec(`
		UPDATE observations
		SET source_file = (SELECT MIN(s.path) FROM observation_sources s WHERE s.obs_id = observations.id)
		WHERE source_file = ?`+notIn("id"), args...); err != nil {
		return fmt.Errorf("index: repoint observations %s: %w", path, err)
	}

	for _, o := range ex.Observations {
		if _, err := x.Exec(`INSERT OR IGNORE INTO observation_sources (obs_id, path) VALUES (?, ?)`, o.ID, path); err != nil {
			return fmt.Errorf("index: record observation source %s: %w", o.ID, err)
		}
	}
	return nil
}

// RecordIntegrationEvent creates or replaces an integration event by id.
func (db *DB) RecordIntegrationEvent(ev models.IntegrationEvent) error {
	var payload any
	if ev.PayloadJSON != "" {
		payload = ev.PayloadJSON
	}
	_, err := db.conn.Exec(`
		INSERT INTO integration_events (id, date, occurred_at, project, repo, kind, line, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date         = excluded.date,
			occurred_at  = excluded.occurred_at,
			project      = excluded.project,
			repo         = excluded.repo,
			kind         = excluded.kind,
			line         = excluded.line,
			payload_json = excluded.payload_json
	`, ev.ID, ev.Date, ev.OccurredAt, ev.Project, ev.Repo, ev.Kind, ev.Line, payload)
	if err != nil {
		return fmt.Errorf("index: record integration event %s: %w", ev.ID, err)
	}
	return nil
}
