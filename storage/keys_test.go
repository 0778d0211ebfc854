package storage

import (
	"path/filepath"
	"testing"

	"github.com/poiesic/athena/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		name       string
		category   core.Category
		documentID string
		want       string
	}{
		{"session", core.CategoryConversation, "2025-09-12-T0042", filepath.Join("root", "conversation", "2025-09-12-T0042.json")},
		{"slashes", core.CategoryTaskHistory, "a/b\\c", filepath.Join("root", "task-history", "a_b_c.json")},
		{"nested path", core.CategoryEnvironment, "x/../etc", filepath.Join("root", "environment", "x_.._etc.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArtifactPath("root", tt.category, tt.documentID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ArtifactPath("root", "email", "x")
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	for _, bad := range []string{"", "  ", ".", "..", ".hidden", "../etc"} {
		_, err := ArtifactPath("root", core.CategoryConversation, bad)
		assert.ErrorIs(t, err, ErrInvalidKey, "id %q", bad)
	}
}

func TestIsArtifactName(t *testing.T) {
	assert.True(t, IsArtifactName("2025-09-12-T0042.json"))
	assert.True(t, IsArtifactName("X.JSON"))
	assert.False(t, IsArtifactName(".2025-09-12-T0042.json123456"))
	assert.False(t, IsArtifactName(".hidden.json"))
	assert.False(t, IsArtifactName("notes.txt"))
}

func TestFilter(t *testing.T) {
	all := Filter{}
	assert.True(t, all.Matches(core.CategoryConversation, "a"))

	byCategory := Filter{Categories: []core.Category{core.CategoryTaskHistory}}
	assert.True(t, byCategory.Matches(core.CategoryTaskHistory, "a"))
	assert.False(t, byCategory.Matches(core.CategoryConversation, "a"))

	both := Filter{Categories: []core.Category{core.CategoryConversation}, DocumentIDs: []string{"a", "b"}}
	assert.True(t, both.Matches(core.CategoryConversation, "b"))
	assert.False(t, both.Matches(core.CategoryConversation, "c"))
	assert.False(t, both.Matches(core.CategoryEnvironment, "a"))
}
