package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/athena/core"
	"github.com/stretchr/testify/assert"
)

func TestReport_Summary(t *testing.T) {
	r := newReport("run-1")
	r.TotalFiles = 4
	r.category(core.CategoryConversation).Discovered = 3
	r.category(core.CategoryEnvironment).Discovered = 1
	r.skipped(core.CategoryConversation)
	r.processed(&core.VectorArtifact{
		Metadata: core.SourceMetadata{Category: core.CategoryConversation},
		Stats:    core.ArtifactStats{TotalChunks: 5, SuccessfulEmbeddings: 4},
	})
	r.failed(core.CategoryEnvironment, "shell-snapshots/a.sh", errors.New("permission denied"))
	r.ProcessingTime = 1500 * time.Millisecond

	var out strings.Builder
	r.WriteSummary(&out)
	summary := out.String()

	assert.Contains(t, summary, "Total Files: 4")
	assert.Contains(t, summary, "Processed: 1")
	assert.Contains(t, summary, "Skipped: 1")
	assert.Contains(t, summary, "Total Chunks: 5")
	assert.Contains(t, summary, "Total Embeddings: 4")
	assert.Contains(t, summary, "Total Time: 1.5s")
	assert.Contains(t, summary, "conversation: 3 discovered, 1 processed, 1 skipped, 0 failed, 4 embeddings")
	assert.Contains(t, summary, "Errors: 1")
	assert.Contains(t, summary, "1. shell-snapshots/a.sh: permission denied")
	assert.NotContains(t, summary, "Deferred")

	// Categories print in their fixed order.
	assert.Less(t, strings.Index(summary, "conversation:"), strings.Index(summary, "environment:"))
}
