package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/storage"
)

// DefaultRoot is the artifact directory used when none is configured.
const DefaultRoot = "embeddings"

// Store implements storage.VectorStore with one JSON file per artifact.
type Store struct {
	root   string
	logger *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.With("component", "file-store")
		}
	}
}

// New opens a store rooted at root, creating the directory if needed.
//
// Returns storage.VectorStore interface to enforce abstraction.
func New(root string, opts ...Option) (storage.VectorStore, error) {
	return newStore(root, opts...)
}

func newStore(root string, opts ...Option) (*Store, error) {
	if root == "" {
		root = DefaultRoot
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &Store{
		root:   root,
		logger: slog.Default().With("component", "file-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Root() string { return s.root }

// Write replaces the artifact file atomically: the JSON is written to a
// hidden temp file in the same directory, synced, then renamed into place.
func (s *Store) Write(ctx context.Context, artifact *core.VectorArtifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := core.ValidateArtifact(artifact); err != nil {
		return err
	}

	path, err := storage.ArtifactPath(s.root, artifact.Category(), artifact.DocumentID)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create category directory: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}

	if err := renameio.WriteFile(path, data, 0o644, renameio.WithTempDir(dir)); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}

	s.logger.Debug("artifact written", "path", path, "records", len(artifact.Records))
	return nil
}

// Exists reports whether an artifact file is present for the document.
func (s *Store) Exists(ctx context.Context, category core.Category, documentID string) (bool, error) {
	path, err := storage.ArtifactPath(s.root, category, documentID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// Read loads one artifact.
func (s *Store) Read(ctx context.Context, category core.Category, documentID string) (*core.VectorArtifact, error) {
	path, err := storage.ArtifactPath(s.root, category, documentID)
	if err != nil {
		return nil, err
	}
	artifact, err := readArtifact(path, category)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return artifact, err
}

// Walk visits readable artifacts that pass filter.
func (s *Store) Walk(ctx context.Context, filter storage.Filter, fn func(*core.VectorArtifact) error) error {
	_, err := s.scan(ctx, filter, fn)
	return err
}

// ReadAll flattens the records of the artifacts that pass filter.
func (s *Store) ReadAll(ctx context.Context, filter storage.Filter) ([]core.EmbeddingRecord, error) {
	var records []core.EmbeddingRecord
	err := s.Walk(ctx, filter, func(a *core.VectorArtifact) error {
		records = append(records, a.Records...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Stats summarises every artifact in the store. Oldest and newest are chosen
// by the document timestamp, falling back to the generation time.
func (s *Store) Stats(ctx context.Context) (*core.StoreStats, error) {
	stats := &core.StoreStats{Directory: s.root}

	var oldest, newest time.Time
	unreadable, err := s.scan(ctx, storage.Filter{}, func(a *core.VectorArtifact) error {
		stats.TotalDocuments++
		stats.TotalEmbeddings += len(a.Records)

		key, _ := storage.FileKey(a.DocumentID)
		name := filepath.Join(string(a.Category()), key)
		ts := a.Timestamp()
		if stats.Oldest == "" || ts.Before(oldest) {
			oldest, stats.Oldest = ts, name
		}
		if stats.Newest == "" || ts.After(newest) {
			newest, stats.Newest = ts, name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.Unreadable = unreadable
	if stats.TotalDocuments > 0 {
		stats.AveragePerDocument = int(math.Round(float64(stats.TotalEmbeddings) / float64(stats.TotalDocuments)))
	}
	return stats, nil
}

// scan walks category directories in core.Categories order and file names
// in lexical order. It returns the number of unreadable artifacts skipped.
func (s *Store) scan(ctx context.Context, filter storage.Filter, fn func(*core.VectorArtifact) error) (int, error) {
	var wantKeys map[string]bool
	if len(filter.DocumentIDs) > 0 {
		wantKeys = make(map[string]bool, len(filter.DocumentIDs))
		for _, id := range filter.DocumentIDs {
			if key, err := storage.FileKey(id); err == nil {
				wantKeys[key] = true
			}
		}
	}

	unreadable := 0
	for _, category := range core.Categories {
		if len(filter.Categories) > 0 && !slices.Contains(filter.Categories, category) {
			continue
		}

		dir := filepath.Join(s.root, string(category))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return unreadable, fmt.Errorf("list %s: %w", dir, err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return unreadable, err
			}
			name := entry.Name()
			if entry.IsDir() || !storage.IsArtifactName(name) {
				continue
			}
			if wantKeys != nil && !wantKeys[name] {
				continue
			}

			artifact, err := readArtifact(filepath.Join(dir, name), category)
			if err != nil {
				unreadable++
				s.logger.Warn("skipping unreadable artifact", "path", filepath.Join(dir, name), "err", err)
				continue
			}
			if !filter.Matches(artifact.Category(), artifact.DocumentID) {
				continue
			}
			if err := fn(artifact); err != nil {
				return unreadable, err
			}
		}
	}
	return unreadable, nil
}

// readArtifact decodes one artifact file. Artifacts written without a
// category or document id take them from their location.
func readArtifact(path string, category core.Category) (*core.VectorArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, &core.StorageReadError{Path: path, Err: err}
	}

	var artifact core.VectorArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, &core.StorageReadError{Path: path, Err: err}
	}
	if artifact.Metadata.Category == "" {
		artifact.Metadata.Category = category
	}
	if artifact.DocumentID == "" {
		artifact.DocumentID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := core.ValidateArtifact(&artifact); err != nil {
		return nil, &core.StorageReadError{Path: path, Err: err}
	}
	return &artifact, nil
}
