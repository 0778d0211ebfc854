package search

import "github.com/poiesic/athena/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, opts Options)
	AfterEmbedding(dimensions int)
	ArtifactLoaded(artifact *core.VectorArtifact)
	ModelMismatch(artifact *core.VectorArtifact, activeModel string)
	Scored(candidates, kept int)
	Finish(results []core.QueryResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Options)                       {}
func (n *noopMonitor) AfterEmbedding(_ int)                            {}
func (n *noopMonitor) ArtifactLoaded(_ *core.VectorArtifact)           {}
func (n *noopMonitor) ModelMismatch(_ *core.VectorArtifact, _ string) {}
func (n *noopMonitor) Scored(_, _ int)                                 {}
func (n *noopMonitor) Finish(_ []core.QueryResult)                     {}
