// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/athena/ai"
	"github.com/poiesic/athena/chunker"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/storage"
)

// ProcessedBy is recorded in the metadata of every artifact the pipeline writes.
const ProcessedBy = "athena pipeline"

// documentProcessor chunks, embeds and persists one document.
type documentProcessor struct {
	chunker  *chunker.Chunker
	embedder ai.Embedder
	provider string
	model    string
	store    storage.VectorStore
	ledger   storage.Ledger
	logger   *slog.Logger
}

// process builds the artifact for doc and writes it. Chunks whose embedding
// fails are left out. Cancellation aborts the document before anything is
// written.
func (dp *documentProcessor) process(ctx context.Context, doc *core.SourceDocument, runID string) (*core.VectorArtifact, error) {
	start := time.Now()
	logger := dp.logger.With("sessionId", doc.DocumentID, "category", doc.Category)

	chunks := dp.chunker.Chunk(doc.Content)
	logger.Debug("chunked document", "chunks", len(chunks))

	timestamp := doc.ModTime.UTC().Format(time.RFC3339)
	records := make([]core.EmbeddingRecord, 0, len(chunks))
	dims := 0
	for i, chunk := range chunks {
		vector, err := dp.embedder.EmbedText(ctx, chunk.Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("dropping chunk after embedding failure", "chunk", i, "err", err)
			continue
		}
		if len(vector) == 0 {
			logger.Warn("dropping chunk with empty embedding", "chunk", i)
			continue
		}
		if dims == 0 {
			dims = len(vector)
		} else if len(vector) != dims {
			logger.Warn("dropping chunk with inconsistent embedding length", "chunk", i,
				"err", &core.LengthMismatchError{Expected: dims, Actual: len(vector)})
			continue
		}

		records = append(records, core.EmbeddingRecord{
			ID:     core.RecordIDFromText(chunk.Text),
			Text:   chunk.Text,
			Vector: vector,
			Metadata: core.RecordMetadata{
				ChunkMetadata: chunk.Metadata,
				SessionID:     doc.DocumentID,
				Category:      doc.Category,
				Timestamp:     timestamp,
			},
		})
	}

	if len(chunks) > 0 && len(records) == 0 {
		logger.Warn("no chunk could be embedded", "chunks", len(chunks))
	}

	fingerprint := core.FingerprintContent(doc.Content)
	artifact := &core.VectorArtifact{
		DocumentID: doc.DocumentID,
		Metadata: core.SourceMetadata{
			SessionID:    doc.DocumentID,
			Filename:     filepath.Base(doc.Path),
			Filepath:     doc.Path,
			Category:     doc.Category,
			Title:        doc.Title,
			Timestamp:    timestamp,
			ProcessedBy:  ProcessedBy,
			OriginalSize: doc.Size,
			Provider:     dp.provider,
			Model:        dp.model,
			Dimensions:   dims,
			Fingerprint:  fingerprint.String(),
			RunID:        runID,
		},
		Records: records,
		Stats: core.ArtifactStats{
			TotalChunks:          len(chunks),
			SuccessfulEmbeddings: len(records),
			ProcessingTime:       time.Since(start).Milliseconds(),
			GeneratedAt:          time.Now().UTC(),
		},
	}

	if err := dp.store.Write(ctx, artifact); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	logger.Info("stored artifact",
		"chunks", artifact.Stats.TotalChunks,
		"embeddings", artifact.Stats.SuccessfulEmbeddings,
		"ms", artifact.Stats.ProcessingTime)

	if dp.ledger != nil {
		entry := &storage.LedgerEntry{
			Category:    doc.Category,
			DocumentID:  doc.DocumentID,
			SourcePath:  doc.Path,
			Fingerprint: fingerprint,
			Records:     len(records),
			Provider:    dp.provider,
			Model:       dp.model,
			Dimensions:  dims,
			RunID:       runID,
		}
		// Ledger failures do not fail the document.
		if err := dp.ledger.Record(ctx, entry); err != nil {
			logger.Warn("failed to update ledger", "err", err)
		}
	}

	return artifact, nil
}
