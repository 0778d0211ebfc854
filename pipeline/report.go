package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/athena/core"
)

// DocumentError is a document that failed during a run.
type DocumentError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// CategoryReport holds the counts of one category.
type CategoryReport struct {
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
}

// Report aggregates the outcome of a run.
type Report struct {
	RunID           string                            `json:"runId"`
	TotalFiles      int                               `json:"totalFiles"`
	Processed       int                               `json:"processedFiles"`
	Skipped         int                               `json:"skippedFiles"`
	Deferred        int                               `json:"deferredFiles"` // left for a later run by the document cap
	TotalChunks     int                               `json:"totalChunks"`
	TotalEmbeddings int                               `json:"totalEmbeddings"`
	PerCategory     map[core.Category]*CategoryReport `json:"perCategory"`
	Errors          []DocumentError                   `json:"errors"`
	ProcessingTime  time.Duration                     `json:"processingTime"`
}

func newReport(runID string) *Report {
	return &Report{
		RunID:       runID,
		PerCategory: make(map[core.Category]*CategoryReport),
		Errors:      []DocumentError{},
	}
}

func (r *Report) category(c core.Category) *CategoryReport {
	cr, ok := r.PerCategory[c]
	if !ok {
		cr = &CategoryReport{}
		r.PerCategory[c] = cr
	}
	return cr
}

func (r *Report) skipped(c core.Category) {
	r.Skipped++
	r.category(c).Skipped++
}

func (r *Report) processed(artifact *core.VectorArtifact) {
	cr := r.category(artifact.Category())
	r.Processed++
	cr.Processed++
	r.TotalChunks += artifact.Stats.TotalChunks
	cr.Chunks += artifact.Stats.TotalChunks
	r.TotalEmbeddings += artifact.Stats.SuccessfulEmbeddings
	cr.Embeddings += artifact.Stats.SuccessfulEmbeddings
}

func (r *Report) failed(c core.Category, filename string, err error) {
	if c != "" {
		r.category(c).Failed++
	}
	r.Errors = append(r.Errors, DocumentError{Filename: filename, Error: err.Error()})
}

// WriteSummary prints the report in a human readable form.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "Processing Statistics:")
	fmt.Fprintf(w, "   Run: %s\n", r.RunID)
	fmt.Fprintf(w, "   Total Files: %d\n", r.TotalFiles)
	fmt.Fprintf(w, "   Processed: %d\n", r.Processed)
	fmt.Fprintf(w, "   Skipped: %d\n", r.Skipped)
	if r.Deferred > 0 {
		fmt.Fprintf(w, "   Deferred: %d\n", r.Deferred)
	}
	fmt.Fprintf(w, "   Total Chunks: %d\n", r.TotalChunks)
	fmt.Fprintf(w, "   Total Embeddings: %d\n", r.TotalEmbeddings)
	fmt.Fprintf(w, "   Total Time: %.1fs\n", r.ProcessingTime.Seconds())

	for _, c := range core.Categories {
		cr, ok := r.PerCategory[c]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "   %s: %d discovered, %d processed, %d skipped, %d failed, %d embeddings\n",
			c, cr.Discovered, cr.Processed, cr.Skipped, cr.Failed, cr.Embeddings)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "   Errors: %d\n", len(r.Errors))
		for i, e := range r.Errors {
			fmt.Fprintf(w, "     %d. %s: %s\n", i+1, e.Filename, e.Error)
		}
	}
}
