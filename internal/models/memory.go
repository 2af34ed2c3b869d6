// Package models holds the domain types shared between the store and the engine.
package models

import "fmt"

// EntityKind is the closed set of entity kinds.
type EntityKind string

const (
	KindProject EntityKind = "project"
	KindPerson  EntityKind = "person"
	KindTopic   EntityKind = "topic"
	KindURL     EntityKind = "url"
	KindDate    EntityKind = "date"
)

// ParseEntityKind converts a stored kind string back into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case KindProject, KindPerson, KindTopic, KindURL, KindDate:
		return k, nil
	}
	return "", fmt.Errorf("models: unknown entity kind %q", s)
}

// Category classifies an observation.
type Category string

const (
	CategoryTask      Category = "task"
	CategoryDecision  Category = "decision"
	CategoryNote      Category = "note"
	CategoryLink      Category = "link"
	CategoryQuestion  Category = "question"
	CategoryReference Category = "reference"
)

// RelationType is the type of a directed edge between entities.
type RelationType string

const (
	RelReferences RelationType = "references"
	RelChildOf    RelationType = "child_of"
	RelRelatedTo  RelationType = "related_to"
)

// Entity is a named thing mentioned in notes.
type Entity struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Kind         EntityKind `json:"kind"`
	Permalink    string     `json:"permalink"`
	FirstSeen    string     `json:"first_seen"`
	LastSeen     string     `json:"last_seen"`
	MentionCount int        `json:"mention_count"`
}

// Observation is one fact derived from one note line.
type Observation struct {
	ID         string   `json:"id"`
	EntityID   string   `json:"entity_id"`
	Category   Category `json:"category"`
	Content    string   `json:"content"`
	SourceFile string   `json:"source_file"`
	SourceLine int      `json:"source_line"`
	CreatedAt  string   `json:"created_at"`
	// Completed is only meaningful for tasks.
	Completed *bool `json:"completed,omitempty"`
}

// IsPendingTask reports whether o is a task that is not completed.
func (o Observation) IsPendingTask() bool {
	return o.Category == CategoryTask && (o.Completed == nil || !*o.Completed)
}

// Relation is a directed typed edge between two entities.
type Relation struct {
	ID         string       `json:"id"`
	FromID     string       `json:"from_id"`
	ToID       string       `json:"to_id"`
	Type       RelationType `json:"type"`
	SourceFile string       `json:"source_file"`
	CreatedAt  string       `json:"created_at"`
}

// NoteHash is one entry of the note manifest.
type NoteHash struct {
	Path      string `json:"path"`
	Hash      string `json:"hash"`
	IndexedAt string `json:"indexed_at"`
}

// IntegrationEvent is a structured activity record written by integrations.
type IntegrationEvent struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	OccurredAt  string `json:"occurred_at"`
	Project     string `json:"project"`
	Repo        string `json:"repo"`
	Kind        string `json:"kind"`
	Line        string `json:"line"`
	PayloadJSON string `json:"payload_json,omitempty"`
}

// Stats holds row counts of the memory graph.
type Stats struct {
	Entities     int `json:"entities"`
	Observations int `json:"observations"`
	Relations    int `json:"relations"`
}

// NoteMetadata describes a note file on disk.
type NoteMetadata struct {
	Path     string
	Checksum string
}
