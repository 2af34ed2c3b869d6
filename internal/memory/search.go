package memory

import (
	"fmt"
	"sort"

	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/models"
)

// SearchResult is one entity with the observations that matched.
type SearchResult struct {
	Entity       models.Entity        `json:"entity"`
	Observations []models.Observation `json:"observations"`
	// Score is the best (lowest) rank among the observations.
	Score float64 `json:"score"`
}

// candidateCount is how many raw matches to fetch for a result limit.
// Recency re-ranking over-fetches so older strong matches can be displaced.
func candidateCount(limit int, recency bool) int {
	if !recency {
		return limit
	}
	n := limit * 3
	if n > MaxLimit {
		n = MaxLimit
	}
	if n < limit {
		n = limit
	}
	return n
}

// Search runs a full-text query and groups matches by owning entity.
func (s *Service) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit == 0 {
		limit = s.searchLimit
	}
	halfLife := opts.HalfLifeDays
	if halfLife == 0 {
		halfLife = s.halfLifeDays
	}

	matches, err := s.db.Search(query, candidateCount(limit, opts.Recency))
	if err != nil {
		return nil, err
	}

	if opts.Recency {
		now := s.now()
		for i := range matches {
			matches[i].Rank *= Decay(AgeDays(matches[i].Observation.CreatedAt, now), halfLife)
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Rank < matches[j].Rank })
	}

	groups := groupByEntity(matches)
	if len(groups) > limit {
		groups = groups[:limit]
	}

	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.Entity.ID
	}
	entities, err := s.db.EntitiesByID(ids)
	if err != nil {
		return nil, fmt.Errorf("memory: load result entities: %w", err)
	}
	out := groups[:0]
	for _, g := range groups {
		e, ok := entities[g.Entity.ID]
		if !ok {
			continue
		}
		g.Entity = e
		out = append(out, g)
	}
	return out, nil
}

// groupByEntity folds matches into per-entity results scored by their best
// rank, sorted ascending by score. Ties keep first-seen order.
func groupByEntity(matches []index.Match) []SearchResult {
	pos := make(map[string]int)
	var groups []SearchResult
	for _, m := range matches {
		id := m.Observation.EntityID
		i, ok := pos[id]
		if !ok {
			pos[id] = len(groups)
			groups = append(groups, SearchResult{
				Entity: models.Entity{ID: id},
				Score:  m.Rank,
			})
			i = len(groups) - 1
		}
		g := &groups[i]
		g.Observations = append(g.Observations, m.Observation)
		if m.Rank < g.Score {
			g.Score = m.Rank
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Score < groups[j].Score })
	return groups
}
