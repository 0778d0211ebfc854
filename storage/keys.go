package storage

import (
	"path/filepath"
	"strings"

	"github.com/poiesic/athena/core"
)

// ArtifactExt is the file extension of stored artifacts.
const ArtifactExt = ".json"

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

// FileKey returns the file name for a document id. Path separators become
// underscores so every id stays inside its category directory.
func FileKey(documentID string) (string, error) {
	key := keyReplacer.Replace(strings.TrimSpace(documentID))
	if key == "" || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return "", ErrInvalidKey
	}
	return key + ArtifactExt, nil
}

// ArtifactPath maps (category, documentId) to <root>/<category>/<key>.json.
func ArtifactPath(root string, category core.Category, documentID string) (string, error) {
	if err := core.ValidateCategory(category); err != nil {
		return "", err
	}
	key, err := FileKey(documentID)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, string(category), key), nil
}

// IsArtifactName reports whether a directory entry name is a stored artifact.
// Hidden files, which include temp files of interrupted writes, are not.
func IsArtifactName(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ArtifactExt)
}
