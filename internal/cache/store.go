// Package cache owns the process-wide retention of processed tables.
//
// A Store is an explicitly owned object handed to every consumer by the
// hosting session; there is no package-level instance. Entries are keyed by
// canonical absolute path, written whole, and served as deep clones so no
// caller can corrupt the cached master copy.
package cache

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"nfcli/internal/ingest"
)

// ReadFileFunc abstracts file reading so tests can count or fail I/O.
type ReadFileFunc func(path string) ([]byte, error)

// Store caches processed tables for the lifetime of the process. Safe for
// concurrent use; entries never expire and are discarded only by Clear.
type Store struct {
	loader   *ingest.Loader
	readFile ReadFileFunc
	logger   *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*entry
	current string
}

type entry struct {
	table    *ingest.Table
	warning  error // non-nil for warning-level outcomes (empty join)
	storedAt time.Time
}

// NewStore creates a store backed by os.ReadFile.
func NewStore(loader *ingest.Loader, logger *slog.Logger) *Store {
	return NewStoreWithReader(loader, os.ReadFile, logger)
}

// NewStoreWithReader creates a store with a custom file reader.
func NewStoreWithReader(loader *ingest.Loader, readFile ReadFileFunc, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		loader:   loader,
		readFile: readFile,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

// GetOrLoad returns the processed table for path, running the full ingestion
// pipeline on first access and serving clones of the stored result after
// that. Paths are canonicalized first, so relative-path variance cannot
// defeat the cache. Concurrent calls for the same uncached path share one
// load. A *ingest.JoinProducedEmptyResultError is returned together with the
// (cached) table; every other error means no table.
func (s *Store) GetOrLoad(ctx context.Context, path string) (*ingest.Table, error) {
	key, err := canonicalPath(path)
	if err != nil {
		return nil, &ingest.UnreadableFileError{Path: path, Err: err}
	}

	s.mu.RLock()
	e := s.entries[key]
	s.mu.RUnlock()

	if e == nil {
		v, loadErr, _ := s.group.Do(key, func() (interface{}, error) {
			return s.load(ctx, key)
		})
		if loadErr != nil {
			return nil, loadErr
		}
		e = v.(*entry)
	}

	s.mu.Lock()
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = e
	}
	s.current = key
	s.mu.Unlock()

	return e.table.Clone(), e.warning
}

// load runs the pipeline for a cache miss.
func (s *Store) load(ctx context.Context, key string) (*entry, error) {
	start := time.Now()
	logger := s.logger.With(slog.String("path", key))

	data, err := s.readFile(key)
	if err != nil {
		return nil, &ingest.UnreadableFileError{Path: key, Err: err}
	}
	if len(data) == 0 {
		return nil, &ingest.UnreadableFileError{Path: key}
	}

	var (
		table   *ingest.Table
		warning error
	)
	kind := ingest.DetectSourceKind(key, data)
	switch kind {
	case ingest.SourceZIP:
		table, err = s.loader.MergeArchive(key, data)
		if _, ok := err.(*ingest.JoinProducedEmptyResultError); ok {
			warning = err
			err = nil
		}
	default:
		table, err = s.loader.LoadTable(key, data)
	}
	if err != nil {
		return nil, err
	}

	if warning != nil {
		logger.WarnContext(ctx, "ingestion produced empty join", slog.String("warning", warning.Error()))
	}
	logger.InfoContext(ctx, "source processed",
		slog.String("kind", string(kind)),
		slog.Int("rows", table.Meta.RowCount),
		slog.Int("columns", table.Meta.ColumnCount),
		slog.Duration("elapsed", time.Since(start)))

	return &entry{table: table, warning: warning, storedAt: time.Now()}, nil
}

// Clear discards all entries unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.current = ""
	s.mu.Unlock()
	s.logger.Info("cache cleared")
}

// CurrentPath returns the canonical path of the most recently requested
// table, if any. Incidental state kept for UI convenience.
func (s *Store) CurrentPath() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != ""
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// canonicalPath resolves path to its absolute, cleaned form.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
