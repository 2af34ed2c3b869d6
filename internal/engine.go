package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/memory"
	"github.com/starford/maxwell/internal/storage"
)

// Engine bundles the store, indexer and memory service built from a Config.
type Engine struct {
	DB      *index.DB
	Notes   storage.Provider
	Indexer *index.Indexer
	Service *memory.Service
}

// OpenEngine opens the memory store and wires the indexer and service over
// the configured notes tree. The notes root is created when missing.
func OpenEngine(cfg *Config, logger *slog.Logger) (*Engine, error) {
	if err := os.MkdirAll(cfg.Notes.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	notes, err := storage.NewFS(cfg.Notes.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	curated := storage.Provider(notes)
	if cfg.Notes.CuratedDir != "" && cfg.Notes.CuratedDir != cfg.Notes.Root {
		fs, err := storage.NewFS(cfg.Notes.CuratedDir)
		if err != nil {
			logger.Warn("curated dir unavailable", slog.String("dir", cfg.Notes.CuratedDir), slog.String("error", err.Error()))
		} else {
			curated = fs
		}
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	ix := index.NewIndexer(db, notes, logger,
		index.WithDirs(cfg.Notes.Dirs()...),
		index.WithRetainRootAcrossHeaders(cfg.Notes.RetainRootAcrossHeaders),
	)
	svc := memory.NewService(db, ix,
		memory.WithLogger(logger),
		memory.WithNotes(notes, cfg.Notes.DailyDir),
		memory.WithCurated(curated),
		memory.WithDefaults(cfg.Search.DefaultLimit, cfg.Search.HalfLifeDays, cfg.Context.DefaultLimit),
	)
	return &Engine{DB: db, Notes: notes, Indexer: ix, Service: svc}, nil
}

// Close closes the memory store.
func (e *Engine) Close() error {
	return e.DB.Close()
}
