package storage

import (
	"context"
	"slices"
	"time"

	"github.com/poiesic/athena/core"
)

// Filter restricts which artifacts a read visits. Empty fields match all.
type Filter struct {
	Categories  []core.Category
	DocumentIDs []string
}

// Matches reports whether an artifact of category and documentID passes the filter.
func (f Filter) Matches(category core.Category, documentID string) bool {
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, category) {
		return false
	}
	if len(f.DocumentIDs) > 0 && !slices.Contains(f.DocumentIDs, documentID) {
		return false
	}
	return true
}

// VectorStore persists one artifact per (category, documentId).
// Implementations must make Write all-or-nothing so concurrent readers never
// observe a partial artifact.
type VectorStore interface {
	// Write serializes the artifact to its keyed location, replacing any
	// previous artifact for the same document.
	Write(ctx context.Context, artifact *core.VectorArtifact) error

	// Exists reports whether an artifact is stored for the document.
	// It is a direct lookup, not a scan.
	Exists(ctx context.Context, category core.Category, documentID string) (bool, error)

	// Read loads one artifact. Returns ErrNotFound if it doesn't exist and a
	// *core.StorageReadError if it cannot be decoded.
	Read(ctx context.Context, category core.Category, documentID string) (*core.VectorArtifact, error)

	// Walk calls fn for every readable artifact that passes filter, in
	// category then file name order. Unreadable artifacts are logged and
	// skipped. An error from fn stops the walk and is returned.
	Walk(ctx context.Context, filter Filter, fn func(*core.VectorArtifact) error) error

	// ReadAll flattens the records of every readable artifact that passes filter.
	ReadAll(ctx context.Context, filter Filter) ([]core.EmbeddingRecord, error)

	// Stats summarises the store.
	Stats(ctx context.Context) (*core.StoreStats, error)

	// Root returns the directory the store writes under.
	Root() string
}

// LedgerEntry records one processed document.
type LedgerEntry struct {
	Category    core.Category `json:"category"`
	DocumentID  string        `json:"documentId"`
	SourcePath  string        `json:"sourcePath"`
	Fingerprint core.ID       `json:"fingerprint"`
	Records     int           `json:"records"`
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	Dimensions  int           `json:"dimensions"`
	ProcessedAt time.Time     `json:"processedAt"`
	RunID       string        `json:"runId"`
}

// Ledger remembers which source content produced each artifact so changed
// sources can be found without rereading artifacts.
// Implementations must be thread-safe.
type Ledger interface {
	// Record stores entry, replacing any previous entry for the same document.
	Record(ctx context.Context, entry *LedgerEntry) error

	// Get returns the entry for a document or ErrNotFound.
	Get(ctx context.Context, category core.Category, documentID string) (*LedgerEntry, error)

	// List returns all entries of a category, or of every category when
	// category is empty.
	List(ctx context.Context, category core.Category) ([]*LedgerEntry, error)

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying database.
	Close() error
}
