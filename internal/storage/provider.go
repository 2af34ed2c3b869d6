// Package storage defines the notes file-system abstraction.
package storage

import "github.com/starford/maxwell/internal/models"

// Provider is the interface for notes file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the notes root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the notes root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the notes root).
	Write(path string, content []byte) error
}
