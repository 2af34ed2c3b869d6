//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// FTSEnabled reports whether observation search uses FTS5.
const FTSEnabled = false

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; search scans observations.content with LIKE.
	return nil
}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// Every term must occur; rank is the negated number of term occurrences.
func (db *DB) Search(query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	terms, err := queryTerms(query)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	for _, t := range terms {
		where = append(where, `o.content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(t)+"%")
	}
	rows, err := db.conn.Query(`
		SELECT `+observationColumns("o")+`, 0
		FROM observations o
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY o.seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := scanObservation(rows, &m.Observation, &m.Rank); err != nil {
			return nil, err
		}
		lower := strings.ToLower(m.Observation.Content)
		hits := 0
		for _, t := range terms {
			hits += strings.Count(lower, t)
		}
		m.Rank = -float64(hits)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Verify is a no-op without FTS5: there is no separate index to drift.
func (db *DB) Verify() error { return nil }
