package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/extract"
	"github.com/starford/maxwell/internal/models"
)

// MaxRelated caps the one-hop neighbourhood returned by Related.
const MaxRelated = 20

// Match is one observation returned by a full-text query.
type Match struct {
	Observation models.Observation
	// Rank is the raw relevance rank; lower is better.
	Rank float64
}

type scanner interface {
	Scan(dest ...any) error
}

func observationColumns(alias string) string {
	cols := []string{"id", "entity_id", "category", "content", "source_file", "source_line", "created_at", "completed"}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanObservation(s scanner, o *models.Observation, extra ...any) error {
	var (
		category  string
		completed sql.NullBool
	)
	dest := []any{&o.ID, &o.EntityID, &category, &o.Content, &o.SourceFile, &o.SourceLine, &o.CreatedAt, &completed}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	o.Category = models.Category(category)
	if completed.Valid {
		v := completed.Bool
		o.Completed = &v
	}
	return nil
}

const entityColumns = "e.id, e.name, e.kind, e.permalink, e.first_seen, e.last_seen, e.mention_count"

func scanEntity(s scanner) (models.Entity, error) {
	var (
		e    models.Entity
		kind string
	)
	if err := s.Scan(&e.ID, &e.Name, &kind, &e.Permalink, &e.FirstSeen, &e.LastSeen, &e.MentionCount); err != nil {
		return e, err
	}
	k, err := models.ParseEntityKind(kind)
	if err != nil {
		return e, err
	}
	e.Kind = k
	return e, nil
}

func (db *DB) queryObservations(q string, args ...any) ([]models.Observation, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query observations: %w", err)
	}
	defer rows.Close()
	var out []models.Observation
	for rows.Next() {
		var o models.Observation
		if err := scanObservation(rows, &o); err != nil {
			return nil, fmt.Errorf("index: scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (db *DB) queryEntities(q string, args ...any) ([]models.Entity, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query entities: %w", err)
	}
	defer rows.Close()
	var out []models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) queryEntity(q string, args ...any) (*models.Entity, error) {
	e, err := scanEntity(db.conn.QueryRow(q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: query entity: %w", err)
	}
	return &e, nil
}

// GetEntity returns the entity with the given id.
func (db *DB) GetEntity(id string) (*models.Entity, error) {
	return db.queryEntity(`SELECT `+entityColumns+` FROM entities e WHERE e.id = ?`, id)
}

// FindEntity resolves a name or permalink to one entity. An exact permalink
// match wins; otherwise the most mentioned entity whose name contains the
// input (case-insensitive) is returned.
func (db *DB) FindEntity(nameOrPermalink string) (*models.Entity, error) {
	in := strings.TrimSpace(nameOrPermalink)
	if in == "" {
		return nil, apperr.ErrNotFound
	}
	e, err := db.queryEntity(`
		SELECT `+entityColumns+` FROM entities e
		WHERE e.permalink IN (?, ?)
		ORDER BY e.permalink = ? DESC
		LIMIT 1
	`, strings.ToLower(in), extract.Permalink(in), strings.ToLower(in))
	if !errors.Is(err, apperr.ErrNotFound) {
		return e, err
	}
	return db.queryEntity(`
		SELECT `+entityColumns+` FROM entities e
		WHERE e.name LIKE ? ESCAPE '\'
		ORDER BY e.mention_count DESC, e.name
		LIMIT 1
	`, "%"+escapeLike(in)+"%")
}

// EntitiesByID returns the entities with the given ids, keyed by id.
func (db *DB) EntitiesByID(ids []string) (map[string]models.Entity, error) {
	out := make(map[string]models.Entity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	list, err := db.queryEntities(`SELECT `+entityColumns+` FROM entities e WHERE e.id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, e := range list {
		out[e.ID] = e
	}
	return out, nil
}

// Observations returns an entity's observations, newest first, then by source line.
func (db *DB) Observations(entityID string) ([]models.Observation, error) {
	return db.queryObservations(`
		SELECT `+observationColumns("o")+` FROM observations o
		WHERE o.entity_id = ?
		ORDER BY o.created_at DESC, o.source_line ASC
	`, entityID)
}

// ActivityByDate returns the observations attached to the date entity for date.
func (db *DB) ActivityByDate(date string) ([]models.Observation, error) {
	return db.queryObservations(`
		SELECT `+observationColumns("o")+` FROM observations o
		JOIN entities e ON e.id = o.entity_id
		WHERE e.kind = 'date' AND e.name = ?
		ORDER BY o.source_line ASC, o.source_file ASC
	`, date)
}

// ActivityInRange returns observations created between from and to
// inclusive (YYYY-MM-DD), newest first. limit <= 0 means no limit.
func (db *DB) ActivityInRange(from, to string, limit int) ([]models.Observation, error) {
	q := `
		SELECT ` + observationColumns("o") + ` FROM observations o
		WHERE o.created_at >= ? AND o.created_at <= ?
		ORDER BY o.created_at DESC, o.source_line ASC`
	args := []any{from, to}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryObservations(q, args...)
}

// Related returns up to MaxRelated entities one relation hop away from
// entityID, in either direction, excluding the entity itself.
func (db *DB) Related(entityID string) ([]models.Entity, error) {
	return db.queryEntities(`
		SELECT DISTINCT `+entityColumns+` FROM entities e
		JOIN relations r ON r.from_id = e.id OR r.to_id = e.id
		WHERE (r.from_id = ? OR r.to_id = ?) AND e.id <> ?
		ORDER BY e.mention_count DESC, e.name
		LIMIT ?
	`, entityID, entityID, entityID, MaxRelated)
}

// PendingTasks returns open tasks, newest first. An empty entityID means all
// entities; limit <= 0 means no limit.
func (db *DB) PendingTasks(entityID string, limit int) ([]models.Observation, error) {
	q := `
		SELECT ` + observationColumns("o") + ` FROM observations o
		WHERE o.category = 'task' AND (o.completed IS NULL OR o.completed = 0)`
	var args []any
	if entityID != "" {
		q += ` AND o.entity_id = ?`
		args = append(args, entityID)
	}
	q += ` ORDER BY o.created_at DESC, o.source_line ASC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryObservations(q, args...)
}

// DateObservationsContaining returns observations owned by date entities,
// created on or after since, whose content contains any of phrases.
func (db *DB) DateObservationsContaining(since string, phrases []string, limit int) ([]models.Observation, error) {
	if len(phrases) == 0 {
		return nil, nil
	}
	var (
		likes []string
		args  = []any{since}
	)
	for _, p := range phrases {
		likes = append(likes, `o.content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(p)+"%")
	}
	args = append(args, limit)
	return db.queryObservations(`
		SELECT `+observationColumns("o")+` FROM observations o
		JOIN entities e ON e.id = o.entity_id
		WHERE e.kind = 'date' AND o.created_at >= ? AND (`+strings.Join(likes, " OR ")+`)
		ORDER BY o.created_at DESC, o.source_line ASC
		LIMIT ?
	`, args...)
}

// IntegrationEventsSince returns events dated on or after since, newest first.
func (db *DB) IntegrationEventsSince(since string, limit int) ([]models.IntegrationEvent, error) {
	rows, err := db.conn.Query(`
		SELECT id, date, occurred_at, project, repo, kind, line, COALESCE(payload_json, '')
		FROM integration_events
		WHERE date >= ?
		ORDER BY occurred_at DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("index: query integration events: %w", err)
	}
	defer rows.Close()
	var out []models.IntegrationEvent
	for rows.Next() {
		var ev models.IntegrationEvent
		if err := rows.Scan(&ev.ID, &ev.Date, &ev.OccurredAt, &ev.Project, &ev.Repo, &ev.Kind, &ev.Line, &ev.PayloadJSON); err != nil {
			return nil, fmt.Errorf("index: scan integration event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// NoteHashes returns the whole note manifest keyed by path.
func (db *DB) NoteHashes() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, hash FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: query note hashes: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, h string
		if err := rows.Scan(&p, &h); err != nil {
			return nil, err
		}
		out[p] = h
	}
	return out, rows.Err()
}

// NoteHash returns the manifest entry for path.
func (db *DB) NoteHash(path string) (*models.NoteHash, error) {
	var h models.NoteHash
	err := db.conn.QueryRow(`SELECT path, hash, indexed_at FROM notes WHERE path = ?`, path).
		Scan(&h.Path, &h.Hash, &h.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: query note hash: %w", err)
	}
	return &h, nil
}

// Stats returns row counts of entities, observations and relations.
func (db *DB) Stats() (models.Stats, error) {
	var s models.Stats
	err := db.conn.QueryRow(`
		SELECT
			(SELECT count(*) FROM entities),
			(SELECT count(*) FROM observations),
			(SELECT count(*) FROM relations)
	`).Scan(&s.Entities, &s.Observations, &s.Relations)
	if err != nil {
		return s, fmt.Errorf("index: stats: %w", err)
	}
	return s, nil
}
