package memory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/models"
)

// ContextResult is an assembled context bundle.
type ContextResult struct {
	Entities     []models.Entity      `json:"entities"`
	Observations []models.Observation `json:"observations"`
	Formatted    string               `json:"formatted_context"`
}

// BuildContext merges entity, search, date, recent and pending-task
// observations into one deduplicated bundle ordered newest first (then by
// source line), truncated to the query limit, and renders it as markdown.
func (s *Service) BuildContext(q ContextQuery) (*ContextResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit == 0 {
		limit = s.contextLimit
	}

	var (
		entities []models.Entity
		obs      []models.Observation
		seen     = make(map[string]struct{})
		focus    *models.Entity
	)
	addEntity := func(e models.Entity) {
		if _, ok := seen[e.ID]; ok {
			return
		}
		seen[e.ID] = struct{}{}
		entities = append(entities, e)
	}

	if q.Entity != "" {
		e, err := s.db.FindEntity(q.Entity)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			focus = e
			addEntity(*e)
			own, err := s.db.Observations(e.ID)
			if err != nil {
				return nil, err
			}
			obs = append(obs, truncate(own, limit)...)
			related, err := s.db.Related(e.ID)
			if err != nil {
				return nil, err
			}
			for _, r := range related {
				addEntity(r)
			}
		}
	}

	if q.Query != "" {
		results, err := s.Search(q.Query, SearchOptions{
			Limit:        min(limit, MaxLimit),
			Recency:      q.Recency,
			HalfLifeDays: q.HalfLifeDays,
		})
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			addEntity(r.Entity)
			obs = append(obs, r.Observations...)
		}
	}

	if q.Date != "" {
		day, err := s.db.ActivityByDate(q.Date)
		if err != nil {
			return nil, err
		}
		obs = append(obs, day...)
	}

	if q.RecentDays > 0 {
		recent, err := s.RecentActivity(q.RecentDays, limit)
		if err != nil {
			return nil, err
		}
		obs = append(obs, recent...)
	}

	if q.IncludePendingTasks {
		scope := ""
		if focus != nil {
			scope = focus.ID
		}
		tasks, err := s.db.PendingTasks(scope, MaxContextTasks)
		if err != nil {
			return nil, err
		}
		obs = append(obs, tasks...)
	}

	final := truncate(sortObservations(dedupe(obs)), limit)

	owners, err := s.ownerNames(entities, final)
	if err != nil {
		return nil, err
	}
	return &ContextResult{
		Entities:     entities,
		Observations: final,
		Formatted:    FormatContext(entities, final, owners),
	}, nil
}

// ownerNames maps every entity id referenced by obs to its display name,
// loading owners that are not part of entities.
func (s *Service) ownerNames(entities []models.Entity, obs []models.Observation) (map[string]string, error) {
	names := make(map[string]string, len(entities))
	for _, e := range entities {
		names[e.ID] = e.Name
	}
	var missing []string
	for _, o := range obs {
		if _, ok := names[o.EntityID]; !ok {
			names[o.EntityID] = ""
			missing = append(missing, o.EntityID)
		}
	}
	if len(missing) == 0 {
		return names, nil
	}
	loaded, err := s.db.EntitiesByID(missing)
	if err != nil {
		return nil, fmt.Errorf("memory: load owners: %w", err)
	}
	for _, id := range missing {
		if e, ok := loaded[id]; ok {
			names[id] = e.Name
		} else {
			delete(names, id)
		}
	}
	return names, nil
}

func dedupe(obs []models.Observation) []models.Observation {
	seen := make(map[string]struct{}, len(obs))
	out := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}

func sortObservations(obs []models.Observation) []models.Observation {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].CreatedAt != obs[j].CreatedAt {
			return obs[i].CreatedAt > obs[j].CreatedAt
		}
		return obs[i].SourceLine < obs[j].SourceLine
	})
	return obs
}

func truncate[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
