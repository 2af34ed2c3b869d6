// Package memory is the query-side engine over the memory store: ranked
// search with recency decay, graph and activity reads, context assembly
// and activity digests.
package memory

import (
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/models"
	"github.com/starford/maxwell/internal/storage"
)

// Service coordinates the store, the indexer and the notes tree.
type Service struct {
	db       index.Store
	ix       *index.Indexer
	notes    storage.Provider
	curated  storage.Provider
	dailyDir string
	logger   *slog.Logger
	now      func() time.Time

	searchLimit  int
	halfLifeDays float64
	contextLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for ages and activity windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotes enables writes to daily notes under dailyDir.
func WithNotes(p storage.Provider, dailyDir string) Option {
	return func(s *Service) {
		s.notes = p
		s.dailyDir = dailyDir
	}
}

// WithCurated sets where RESET.md, MEMORY.md and USER.md are read from.
func WithCurated(p storage.Provider) Option {
	return func(s *Service) { s.curated = p }
}

// WithDefaults overrides the default search limit, half-life and context limit.
func WithDefaults(searchLimit int, halfLifeDays float64, contextLimit int) Option {
	return func(s *Service) {
		if searchLimit > 0 {
			s.searchLimit = searchLimit
		}
		if halfLifeDays > 0 {
			s.halfLifeDays = halfLifeDays
		}
		if contextLimit > 0 {
			s.contextLimit = contextLimit
		}
	}
}

// NewService creates a Service. ix may be nil for a read-only service.
func NewService(db index.Store, ix *index.Indexer, opts ...Option) *Service {
	s := &Service{
		db:           db,
		ix:           ix,
		logger:       slog.Default(),
		now:          time.Now,
		searchLimit:  index.DefaultSearchLimit,
		halfLifeDays: DefaultHalfLifeDays,
		contextLimit: DefaultContextLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() string { return s.now().Format(time.DateOnly) }

func (s *Service) indexer() (*index.Indexer, error) {
	if s.ix == nil {
		return nil, fmt.Errorf("memory: indexing not configured")
	}
	return s.ix, nil
}

// IndexNote re-derives one note.
func (s *Service) IndexNote(path string) error {
	ix, err := s.indexer()
	if err != nil {
		return err
	}
	return ix.IndexFile(path)
}

// IndexAll indexes every new or changed note.
func (s *Service) IndexAll() (index.Report, error) {
	ix, err := s.indexer()
	if err != nil {
		return index.Report{}, err
	}
	return ix.IndexAll()
}

// Stats returns row counts of the memory graph.
func (s *Service) Stats() (models.Stats, error) { return s.db.Stats() }

// FindEntity resolves a name or permalink to an entity.
func (s *Service) FindEntity(nameOrPermalink string) (*models.Entity, error) {
	return s.db.FindEntity(nameOrPermalink)
}

// Observations returns an entity's observations, newest first.
func (s *Service) Observations(entityID string) ([]models.Observation, error) {
	return s.db.Observations(entityID)
}

// Related returns the one-hop neighbours of an entity.
func (s *Service) Related(entityID string) ([]models.Entity, error) {
	return s.db.Related(entityID)
}

// PendingTasks returns open tasks, optionally scoped to one entity.
func (s *Service) PendingTasks(entityID string, limit int) ([]models.Observation, error) {
	return s.db.PendingTasks(entityID, limit)
}

// ActivityByDate returns the observations of one daily note's date entity.
func (s *Service) ActivityByDate(date string) ([]models.Observation, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", apperr.ErrInvalidOptions, date)
	}
	return s.db.ActivityByDate(date)
}

// ActivityInRange returns observations created between from and to inclusive.
func (s *Service) ActivityInRange(from, to string, limit int) ([]models.Observation, error) {
	return s.db.ActivityInRange(from, to, limit)
}

// RecentActivity returns observations created in the last days days, today included.
func (s *Service) RecentActivity(days, limit int) ([]models.Observation, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", apperr.ErrInvalidOptions)
	}
	now := s.now()
	from := now.AddDate(0, 0, -days).Format(time.DateOnly)
	return s.db.ActivityInRange(from, now.Format(time.DateOnly), limit)
}

// RecordIntegrationEvent stores a structured activity event. Missing id,
// date and occurred_at are filled in.
func (s *Service) RecordIntegrationEvent(ev models.IntegrationEvent) (models.IntegrationEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	}
	if ev.Date == "" {
		ev.Date = s.today()
	}
	if err := validateEvent(ev); err != nil {
		return ev, err
	}
	return ev, s.db.RecordIntegrationEvent(ev)
}

// LogToDailyNote appends lines under a section of the daily note for date
// (today when empty) and re-indexes the note.
func (s *Service) LogToDailyNote(date, header string, lines []string) (int, error) {
	if s.notes == nil {
		return 0, fmt.Errorf("memory: notes storage not configured")
	}
	if date == "" {
		date = s.today()
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return 0, fmt.Errorf("%w: date %q is not YYYY-MM-DD", apperr.ErrInvalidOptions, date)
	}
	if header == "" {
		return 0, fmt.Errorf("%w: header is required", apperr.ErrInvalidOptions)
	}
	p := path.Join(s.dailyDir, date+".md")
	n, err := storage.AppendToSection(s.notes, p, header, lines)
	if err != nil || n == 0 {
		return n, err
	}
	if s.ix != nil {
		if err := s.ix.IndexFile(p); err != nil {
			return n, err
		}
	}
	s.logger.Info("memory: logged to daily note", slog.String("path", p), slog.Int("lines", n))
	return n, nil
}
