package index

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/checksum"
	"github.com/starford/maxwell/internal/extract"
	"github.com/starford/maxwell/internal/models"
	"github.com/starford/maxwell/internal/storage"
)

// Indexer brings the store up to date with the notes on disk.
type Indexer struct {
	db     *DB
	store  storage.Provider
	logger *slog.Logger
	dirs   []string
	now    func() time.Time
	retain bool
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithDirs sets the note directories (relative to the notes root) scanned by IndexAll.
func WithDirs(dirs ...string) IndexerOption {
	return func(ix *Indexer) { ix.dirs = dirs }
}

// WithClock overrides the wall clock used for undated notes and manifest timestamps.
func WithClock(now func() time.Time) IndexerOption {
	return func(ix *Indexer) { ix.now = now }
}

// WithRetainRootAcrossHeaders keeps the root entity across headers during extraction.
func WithRetainRootAcrossHeaders(retain bool) IndexerOption {
	return func(ix *Indexer) { ix.retain = retain }
}

// NewIndexer returns an Indexer over the given store and notes provider.
// By default it scans the "daily" and "projects" directories.
func NewIndexer(db *DB, store storage.Provider, logger *slog.Logger, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		db:     db,
		store:  store,
		logger: logger,
		dirs:   []string{"daily", "projects"},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Report summarises an IndexAll pass.
type Report struct {
	Scanned int `json:"scanned"`
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Covers reports whether path (relative to the notes root) lies in one of
// the indexed directories.
func (ix *Indexer) Covers(path string) bool {
	path = filepath.ToSlash(filepath.Clean(path))
	if !strings.HasSuffix(path, ".md") {
		return false
	}
	for _, d := range ix.dirs {
		d = strings.Trim(filepath.ToSlash(d), "/")
		if d == "" || d == "." || strings.HasPrefix(path, d+"/") {
			return true
		}
	}
	return false
}

// IndexFile re-derives every entity, observation and relation of one note
// and commits them. A note whose content hash matches its manifest entry is
// left alone, so repeated saves do not inflate mention counts.
func (ix *Indexer) IndexFile(path string) error {
	data, err := ix.store.Read(path)
	if err != nil {
		return fmt.Errorf("index: read %s: %w", path, err)
	}
	h, err := ix.db.NoteHash(filepath.ToSlash(path))
	switch {
	case err == nil && h.Hash == checksum.Sum(data):
		ix.logger.Debug("sync: unchanged", slog.String("path", path))
		return nil
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return err
	}
	return ix.indexData(path, data)
}

func (ix *Indexer) indexData(path string, data []byte) error {
	now := ix.now()
	ex := extract.Extract(filepath.ToSlash(path), data, extract.Options{
		Today:                   now.Format(time.DateOnly),
		RetainRootAcrossHeaders: ix.retain,
	})
	return ix.db.Apply(ex, models.NoteHash{
		Path:      ex.Path,
		Hash:      checksum.Sum(data),
		IndexedAt: now.UTC().Format(time.RFC3339),
	})
}

// IndexAll indexes every new or changed note in the configured directories.
// A note that cannot be read or indexed is logged and skipped. Notes deleted
// from disk keep their manifest entry.
func (ix *Indexer) IndexAll() (Report, error) {
	var rep Report

	hashes, err := ix.db.NoteHashes()
	if err != nil {
		return rep, err
	}

	for _, dir := range ix.dirs {
		metas, err := ix.store.List(dir)
		if errors.Is(err, fs.ErrNotExist) {
			ix.logger.Debug("sync: directory missing", slog.String("dir", dir))
			continue
		}
		if err != nil {
			return rep, err
		}

		for _, m := range metas {
			rep.Scanned++
			if h, ok := hashes[filepath.ToSlash(m.Path)]; ok && m.Checksum != "" && h == m.Checksum {
				rep.Skipped++
				continue
			}
			if err := ix.IndexFile(m.Path); err != nil {
				rep.Failed++
				ix.logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
				continue
			}
			rep.Indexed++
			ix.logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	ix.logger.Info("sync: done",
		slog.Int("scanned", rep.Scanned),
		slog.Int("indexed", rep.Indexed),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed))
	return rep, nil
}
