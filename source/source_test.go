package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/athena/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	sessions := filepath.Join(root, "sessions")
	writeFile(t, filepath.Join(sessions, "002_2025-09-12_b.md"), "User: b")
	writeFile(t, filepath.Join(sessions, "001_2025-09-12_a.md"), "User: a")
	writeFile(t, filepath.Join(sessions, ".hidden.md"), "User: hidden")
	writeFile(t, filepath.Join(sessions, "notes.txt"), "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(sessions, "nested.md"), 0o755))
	writeFile(t, filepath.Join(root, "todos", "agent-1.json"), `{"todos":[]}`)

	src := New(root)

	entries, err := src.Discover(core.CategoryConversation)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-09-12-T0001", entries[0].DocumentID)
	assert.Equal(t, "2025-09-12-T0002", entries[1].DocumentID)
	assert.Equal(t, core.CategoryConversation, entries[0].Category)
	assert.Equal(t, int64(len("User: a")), entries[0].Size)

	todos, err := src.Discover(core.CategoryTaskHistory)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "agent-1", todos[0].DocumentID)

	t.Run("missing category directory", func(t *testing.T) {
		entries, err := src.Discover(core.CategoryEnvironment)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := src.Discover("email")
		assert.ErrorIs(t, err, core.ErrUnknownCategory)
	})
}

func TestRead(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "sessions", "007_2025-09-10_title.md")
	writeFile(t, path, "# Release prep\nUser: ship it\nAssistant: done")

	src := New(root)
	entries, err := src.Discover(core.CategoryConversation)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	doc, err := src.Read(entries[0])
	require.NoError(t, err)
	assert.Equal(t, "2025-09-10-T0007", doc.DocumentID)
	assert.Equal(t, "Release prep", doc.Title)
	assert.Equal(t, core.CategoryConversation, doc.Category)
	assert.Contains(t, doc.Content, "Assistant: done")
	assert.False(t, doc.ModTime.IsZero())

	require.NoError(t, os.Remove(path))
	_, err = src.Read(entries[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSourceRead))
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	src := New(root)

	snapshot := filepath.Join(root, "shell-snapshots", "snapshot-1757638560000.sh")
	writeFile(t, snapshot, "export PATH=/usr/bin")
	doc, err := src.ReadFile(snapshot)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryEnvironment, doc.Category)
	assert.Equal(t, "2025-09-12-T005600.000", doc.DocumentID)

	loose := filepath.Join(root, "elsewhere", "tasks.json")
	writeFile(t, loose, "[]")
	doc, err = src.ReadFile(loose)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTaskHistory, doc.Category)

	_, err = src.ReadFile(filepath.Join(root, "elsewhere"))
	assert.True(t, errors.Is(err, core.ErrSourceRead))

	dir, err := src.Dir(core.CategoryTaskHistory)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "todos"), dir)
}

func TestWithLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "chats", "a.txt"), "User: a")

	src := New(root, WithLayout(Layout{
		Category:   core.CategoryConversation,
		Dir:        "chats",
		Extensions: []string{".txt"},
	}))

	entries, err := src.Discover(core.CategoryConversation)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].DocumentID)
}
