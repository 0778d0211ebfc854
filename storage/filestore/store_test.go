package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := newStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func makeArtifact(category core.Category, id string, timestamp string, vectors ...[]float32) *core.VectorArtifact {
	a := &core.VectorArtifact{
		DocumentID: id,
		Metadata: core.SourceMetadata{
			SessionID: id,
			Category:  category,
			Timestamp: timestamp,
		},
		Stats: core.ArtifactStats{
			TotalChunks:          len(vectors),
			SuccessfulEmbeddings: len(vectors),
			GeneratedAt:          time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC),
		},
	}
	for i, v := range vectors {
		text := id + string(rune('a'+i))
		a.Records = append(a.Records, core.EmbeddingRecord{
			ID:     core.RecordIDFromText(text),
			Text:   text,
			Vector: v,
			Metadata: core.RecordMetadata{
				ChunkMetadata: core.ChunkMetadata{TurnIndex: i, ChunkType: core.ChunkSingleTurn, Length: len(text)},
				SessionID:     id,
				Category:      category,
				Timestamp:     timestamp,
			},
		})
	}
	return a
}

func TestStore_WriteReadExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	exists, err := s.Exists(ctx, core.CategoryConversation, "2025-09-12-T0001")
	require.NoError(t, err)
	assert.False(t, exists)

	artifact := makeArtifact(core.CategoryConversation, "2025-09-12-T0001", "2025-09-12T10:00:00Z", []float32{1, 0}, []float32{0, 1})
	require.NoError(t, s.Write(ctx, artifact))

	exists, err = s.Exists(ctx, core.CategoryConversation, "2025-09-12-T0001")
	require.NoError(t, err)
	assert.True(t, exists)

	// Same id in another category is a different key
	exists, err = s.Exists(ctx, core.CategoryTaskHistory, "2025-09-12-T0001")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := s.Read(ctx, core.CategoryConversation, "2025-09-12-T0001")
	require.NoError(t, err)
	assert.Equal(t, artifact, got)

	_, err = s.Read(ctx, core.CategoryConversation, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_FileFormat(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryEnvironment, "snap", "", []float32{0.5})))

	path := filepath.Join(s.Root(), "environment", "snap.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "\n  \"sessionId\": \"snap\"")

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"sessionId", "metadata", "embeddings", "stats"} {
		assert.Contains(t, raw, key)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_WriteOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, "doc", "", []float32{1})))
	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, "doc", "", []float32{1}, []float32{2})))

	got, err := s.Read(ctx, core.CategoryConversation, "doc")
	require.NoError(t, err)
	assert.Len(t, got.Records, 2)
}

func TestStore_WriteRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Write(ctx, makeArtifact(core.CategoryConversation, "doc", "", []float32{1, 2}, []float32{1}))
	assert.ErrorIs(t, err, core.ErrLengthMismatch)

	err = s.Write(ctx, makeArtifact("email", "doc", ""))
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	err = s.Write(ctx, makeArtifact(core.CategoryConversation, "", ""))
	assert.ErrorIs(t, err, core.ErrEmptyDocumentID)
}

func TestStore_ReadAllSkipsMalformed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, "a", "", []float32{1, 0}, []float32{0, 1})))
	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryTaskHistory, "b", "", []float32{1, 1})))

	dir := filepath.Join(s.Root(), "conversation")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".a.json12345"), []byte("{partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	records, err := s.ReadAll(ctx, storage.Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = s.Read(ctx, core.CategoryConversation, "broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStorageRead))
}

func TestStore_ReadAllFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, "a", "", []float32{1})))
	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, "b", "", []float32{1}, []float32{2})))
	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryTaskHistory, "a", "", []float32{3})))

	tests := []struct {
		name   string
		filter storage.Filter
		want   int
	}{
		{"all", storage.Filter{}, 4},
		{"category", storage.Filter{Categories: []core.Category{core.CategoryConversation}}, 3},
		{"document id", storage.Filter{DocumentIDs: []string{"a"}}, 2},
		{"both", storage.Filter{Categories: []core.Category{core.CategoryTaskHistory}, DocumentIDs: []string{"a"}}, 1},
		{"no match", storage.Filter{DocumentIDs: []string{"zzz"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := s.ReadAll(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestStore_WalkOrderAndStop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, id, "")))
	}

	var seen []string
	require.NoError(t, s.Walk(ctx, storage.Filter{}, func(a *core.VectorArtifact) error {
		seen = append(seen, a.DocumentID)
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	stop := errors.New("stop")
	err := s.Walk(ctx, storage.Filter{}, func(a *core.VectorArtifact) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDocuments)
	assert.Zero(t, stats.AveragePerDocument)
	assert.Empty(t, stats.Oldest)

	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, "mid", "2025-09-10T00:00:00Z", []float32{1}, []float32{1})))
	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryConversation, "old", "2025-01-01T00:00:00Z", []float32{1})))
	// No document timestamp: falls back to generatedAt (2025-09-12)
	require.NoError(t, s.Write(ctx, makeArtifact(core.CategoryTaskHistory, "new", "", []float32{1}, []float32{1})))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "conversation", "bad.json"), []byte("[]"), 0o644))

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, 5, stats.TotalEmbeddings)
	assert.Equal(t, 2, stats.AveragePerDocument) // 5/3 rounds to 2
	assert.Equal(t, filepath.Join("conversation", "old.json"), stats.Oldest)
	assert.Equal(t, filepath.Join("task-history", "new.json"), stats.Newest)
	assert.Equal(t, 1, stats.Unreadable)
	assert.Equal(t, s.Root(), stats.Directory)
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "embeddings")
	store, err := New(root)
	require.NoError(t, err)
	assert.Equal(t, root, store.Root())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
