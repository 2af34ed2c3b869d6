package index

import (
	"github.com/starford/maxwell/internal/extract"
	"github.com/starford/maxwell/internal/models"
)

// Store is the read/write contract of the memory store. Consumers should
// depend on this interface rather than the concrete *DB type.
type Store interface {
	UpsertEntity(e models.Entity, mentions int) error
	InsertObservation(o models.Observation) error
	InsertRelation(r models.Relation) error
	RecordNoteHash(h models.NoteHash) error
	Apply(ex *extract.Extraction, h models.NoteHash) error
	RecordIntegrationEvent(ev models.IntegrationEvent) error

	Search(query string, limit int) ([]Match, error)
	GetEntity(id string) (*models.Entity, error)
	FindEntity(nameOrPermalink string) (*models.Entity, error)
	EntitiesByID(ids []string) (map[string]models.Entity, error)
	Observations(entityID string) ([]models.Observation, error)
	ActivityByDate(date string) ([]models.Observation, error)
	ActivityInRange(from, to string, limit int) ([]models.Observation, error)
	Related(entityID string) ([]models.Entity, error)
	PendingTasks(entityID string, limit int) ([]models.Observation, error)
	DateObservationsContaining(since string, phrases []string, limit int) ([]models.Observation, error)
	IntegrationEventsSince(since string, limit int) ([]models.IntegrationEvent, error)
	NoteHashes() (map[string]string, error)
	NoteHash(path string) (*models.NoteHash, error)
	Stats() (models.Stats, error)
	Verify() error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
