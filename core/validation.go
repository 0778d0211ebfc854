package core

import (
	"fmt"
	"strings"
)

var categoryAliases = map[string]Category{
	"conversation":    CategoryConversation,
	"conversations":   CategoryConversation,
	"sessions":        CategoryConversation,
	"chat":            CategoryConversation,
	"task-history":    CategoryTaskHistory,
	"tasks":           CategoryTaskHistory,
	"todos":           CategoryTaskHistory,
	"environment":     CategoryEnvironment,
	"env":             CategoryEnvironment,
	"shell-snapshots": CategoryEnvironment,
	"snapshots":       CategoryEnvironment,
}

// ParseCategory resolves a category name or one of its aliases.
func ParseCategory(name string) (Category, error) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return c, nil
}

func ValidateCategory(c Category) error {
	for _, known := range Categories {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
}

// ValidateArtifact checks that an artifact can be persisted: it must carry a
// document id and a known category, and every record must share one vector length.
func ValidateArtifact(artifact *VectorArtifact) error {
	if artifact == nil {
		return fmt.Errorf("%w: artifact is nil", ErrInvalidArtifact)
	}

	if artifact.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArtifact, ErrEmptyDocumentID)
	}

	if err := ValidateCategory(artifact.Category()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}

	dims := artifact.Dimensions()
	for i := range artifact.Records {
		if n := len(artifact.Records[i].Vector); n != dims {
			return fmt.Errorf("%w: record %d: %w", ErrInvalidArtifact, i,
				&LengthMismatchError{Expected: dims, Actual: n})
		}
	}

	return nil
}
