package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/memory"
	"github.com/starford/maxwell/internal/models"
)

const defaultTaskLimit = 50

// Handler holds API route handlers.
type Handler struct {
	svc     *memory.Service
	recency bool
}

// NewHandler creates a new Handler.
func NewHandler(svc *memory.Service, recency bool) *Handler {
	return &Handler{svc: svc, recency: recency}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalidOptions}, args...)...)
}

// params parses query parameters, keeping the first error.
type params struct {
	q   url.Values
	err error
}

func (p *params) fail(format string, args ...any) {
	if p.err == nil {
		p.err = invalid(format, args...)
	}
}

func (p *params) int(name string, def, lo, hi int) int {
	raw := p.q.Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		p.fail("%s must be an integer in [%d, %d]", name, lo, hi)
		return def
	}
	return n
}

func (p *params) float(name string, lo, hi float64) float64 {
	raw := p.q.Get(name)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < lo || f > hi {
		p.fail("%s must be a number in [%g, %g]", name, lo, hi)
		return 0
	}
	return f
}

func (p *params) bool(name string, def bool) bool {
	raw := p.q.Get(name)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail("%s must be a boolean", name)
		return def
	}
	return b
}

// Search handles GET /api/memory/search.
//
//	@Summary		Full-text search over observations, grouped by entity
//	@Tags			memory
//	@Produce		json
//	@Param			q				query		string	true	"Search query"
//	@Param			limit			query		int		false	"Max entities (1..100)"
//	@Param			recency			query		bool	false	"Apply recency decay"
//	@Param			halfLifeDays	query		number	false	"Decay half-life (1..365)"
//	@Success		200				{object}	SearchResponse
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memory/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	p := params{q: q}
	opts := memory.SearchOptions{
		Limit:        p.int("limit", 0, 1, memory.MaxLimit),
		Recency:      p.bool("recency", h.recency),
		HalfLifeDays: p.float("halfLifeDays", 1, memory.MaxHalfLifeDays),
	}
	if p.err != nil {
		writeError(w, "search", p.err)
		return
	}
	results, err := h.svc.Search(query, opts)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []memory.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Context handles GET /api/memory/context.
//
//	@Summary		Assemble a context bundle
//	@Tags			memory
//	@Produce		json
//	@Param			q				query		string	false	"Search query"
//	@Param			entity			query		string	false	"Entity name or permalink"
//	@Param			date			query		string	false	"Daily note date (YYYY-MM-DD)"
//	@Param			recentDays		query		int		false	"Include the last N days"
//	@Param			tasks			query		bool	false	"Include pending tasks"
//	@Param			limit			query		int		false	"Max observations"
//	@Param			curated			query		bool	false	"Include curated memory"
//	@Success		200				{object}	ContextResponse
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memory/context [get]
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := params{q: q}
	cq := memory.ContextQuery{
		Query:               q.Get("q"),
		Entity:              q.Get("entity"),
		Date:                q.Get("date"),
		RecentDays:          p.int("recentDays", 0, 0, 365),
		IncludePendingTasks: p.bool("tasks", false),
		Limit:               p.int("limit", 0, 1, 500),
		Recency:             p.bool("recency", h.recency),
		HalfLifeDays:        p.float("halfLifeDays", 1, memory.MaxHalfLifeDays),
	}
	curated := p.bool("curated", false)
	if p.err != nil {
		writeError(w, "context", p.err)
		return
	}

	res, err := h.svc.BuildContext(cq)
	if err != nil {
		writeError(w, "context", err)
		return
	}
	resp := ContextResponse{
		Entities:     nonNil(res.Entities),
		Observations: nonNil(res.Observations),
		Formatted:    res.Formatted,
	}
	if curated {
		if resp.Curated, err = h.svc.CuratedMemory(); err != nil {
			writeError(w, "curated memory", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PendingTasks handles GET /api/memory/tasks.
//
//	@Summary		List open tasks
//	@Tags			memory
//	@Produce		json
//	@Param			entity	query		string	false	"Scope to one entity"
//	@Param			limit	query		int		false	"Max tasks"
//	@Success		200		{object}	TasksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memory/tasks [get]
func (h *Handler) PendingTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := params{q: q}
	limit := p.int("limit", defaultTaskLimit, 1, 500)
	if p.err != nil {
		writeError(w, "tasks", p.err)
		return
	}
	var scope string
	if name := q.Get("entity"); name != "" {
		e, err := h.svc.FindEntity(name)
		if err != nil {
			writeError(w, "tasks", err)
			return
		}
		scope = e.ID
	}
	tasks, err := h.svc.PendingTasks(scope, limit)
	if err != nil {
		writeError(w, "tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, TasksResponse{Tasks: nonNil(tasks)})
}

// Stats handles GET /api/memory/stats.
//
//	@Summary		Row counts of the memory graph
//	@Tags			memory
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Security		BearerAuth
//	@Router			/memory/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	st, err := h.svc.Stats()
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Entity handles GET /api/memory/entities/{name}.
//
//	@Summary		Resolve an entity with its observations and neighbours
//	@Tags			memory
//	@Produce		json
//	@Param			name	path		string	true	"Entity name or permalink"
//	@Success		200		{object}	EntityResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memory/entities/{name} [get]
func (h *Handler) Entity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	e, err := h.svc.FindEntity(name)
	if err != nil {
		writeError(w, "find entity", err)
		return
	}
	obs, err := h.svc.Observations(e.ID)
	if err != nil {
		writeError(w, "entity observations", err)
		return
	}
	related, err := h.svc.Related(e.ID)
	if err != nil {
		writeError(w, "related entities", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityResponse{
		Entity:       *e,
		Observations: nonNil(obs),
		Related:      nonNil(related),
	})
}

// Digest handles GET /api/memory/digest.
//
//	@Summary		Summarise recent comms and code activity
//	@Tags			memory
//	@Produce		json
//	@Param			days	query		int		false	"Window in days"
//	@Param			limit	query		int		false	"Max items per source"
//	@Param			comms	query		bool	false	"Include comms actions"
//	@Param			code	query		bool	false	"Include code events"
//	@Success		200		{object}	memory.ActivityDigest
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memory/digest [get]
func (h *Handler) Digest(w http.ResponseWriter, r *http.Request) {
	p := params{q: r.URL.Query()}
	def := memory.DefaultDigestOptions()
	opts := memory.DigestOptions{
		Days:         p.int("days", def.Days, 1, 365),
		Limit:        p.int("limit", def.Limit, 1, 500),
		IncludeComms: p.bool("comms", def.IncludeComms),
		IncludeCode:  p.bool("code", def.IncludeCode),
	}
	if p.err != nil {
		writeError(w, "digest", p.err)
		return
	}
	d, err := h.svc.BuildActivityDigest(opts)
	if err != nil {
		writeError(w, "digest", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Reindex handles POST /api/memory/reindex.
//
//	@Summary		Index new and changed notes
//	@Tags			memory
//	@Produce		json
//	@Success		200	{object}	ReindexResponse
//	@Security		BearerAuth
//	@Router			/memory/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, _ *http.Request) {
	rep, err := h.svc.IndexAll()
	if err != nil {
		writeError(w, "reindex", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// RecordEvent handles POST /api/memory/events.
//
//	@Summary		Record an integration event
//	@Tags			memory
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.IntegrationEvent	true	"Event"
//	@Success		201		{object}	models.IntegrationEvent
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memory/events [post]
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.IntegrationEvent
	if !decodeJSON(w, r, &ev) {
		return
	}
	saved, err := h.svc.RecordIntegrationEvent(ev)
	if err != nil {
		writeError(w, "record event", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Log handles POST /api/memory/log.
//
//	@Summary		Append lines to a daily note section
//	@Tags			memory
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LogRequest	true	"Lines to append"
//	@Success		200		{object}	LogResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memory/log [post]
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("lines are required"))
		return
	}
	n, err := h.svc.LogToDailyNote(req.Date, req.Header, req.Lines)
	if err != nil {
		writeError(w, "log", err)
		return
	}
	writeJSON(w, http.StatusOK, LogResponse{Added: n})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
