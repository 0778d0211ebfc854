package core

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a 64-bit content fingerprint.
type ID uint64

// FingerprintContent derives a stable fingerprint for a source document body.
func FingerprintContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as 16 lowercase hex digits.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseID parses the output of ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// RecordIDFromText returns the hex MD5 digest used as an embedding record id.
func RecordIDFromText(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Category names the logical group a source document belongs to.
type Category string

const (
	// CategoryConversation holds conversation session transcripts.
	CategoryConversation Category = "conversation"
	// CategoryTaskHistory holds task-list snapshots.
	CategoryTaskHistory Category = "task-history"
	// CategoryEnvironment holds shell environment snapshots.
	CategoryEnvironment Category = "environment"
)

// Categories lists every known category in discovery order.
var Categories = []Category{
	CategoryConversation,
	CategoryTaskHistory,
	CategoryEnvironment,
}

// ChunkType tags how a chunk was cut from its turn.
type ChunkType string

const (
	ChunkSingleTurn ChunkType = "single_turn"
	ChunkSplitTurn  ChunkType = "split_turn"
)

// SourceDocument is a transcript discovered on disk. It is never mutated.
type SourceDocument struct {
	Path       string
	Category   Category
	DocumentID string
	Title      string
	Content    string
	ModTime    time.Time
	Size       int64
}

// ChunkMetadata describes where a chunk came from within its document.
// ChunkIndex, StartPos and EndPos are only set for split turns.
type ChunkMetadata struct {
	TurnIndex  int       `json:"turnIndex"`
	ChunkIndex *int      `json:"chunkIndex,omitempty"`
	ChunkType  ChunkType `json:"chunkType"`
	Length     int       `json:"length"`
	StartPos   *int      `json:"startPos,omitempty"`
	EndPos     *int      `json:"endPos,omitempty"`
}

type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// RecordMetadata merges chunk metadata with document level context.
type RecordMetadata struct {
	ChunkMetadata
	SessionID string   `json:"sessionId"`
	Category  Category `json:"category,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// EmbeddingRecord is one persisted chunk with its vector.
type EmbeddingRecord struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Vector   []float32      `json:"embedding"`
	Metadata RecordMetadata `json:"metadata"`
}

// SourceMetadata is the document level metadata stored with an artifact.
type SourceMetadata struct {
	SessionID    string   `json:"sessionId"`
	Filename     string   `json:"filename"`
	Filepath     string   `json:"filepath"`
	Category     Category `json:"category"`
	Title        string   `json:"title,omitempty"`
	Timestamp    string   `json:"timestamp"`
	ProcessedBy  string   `json:"processedBy"`
	OriginalSize int64    `json:"originalSize"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	Dimensions   int      `json:"dimensions,omitempty"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
	RunID        string   `json:"runId,omitempty"`
}

type ArtifactStats struct {
	TotalChunks          int       `json:"totalChunks"`
	SuccessfulEmbeddings int       `json:"successfulEmbeddings"`
	ProcessingTime       int64     `json:"processingTime"` // milliseconds
	GeneratedAt          time.Time `json:"generatedAt"`
}

// VectorArtifact is the unit persisted for one source document.
type VectorArtifact struct {
	DocumentID string            `json:"sessionId"`
	Metadata   SourceMetadata    `json:"metadata"`
	Records    []EmbeddingRecord `json:"embeddings"`
	Stats      ArtifactStats     `json:"stats"`
}

// Category returns the category recorded in the artifact metadata.
func (a *VectorArtifact) Category() Category {
	return a.Metadata.Category
}

// Dimensions returns the vector length shared by the artifact's records,
// or 0 for an artifact without records.
func (a *VectorArtifact) Dimensions() int {
	if len(a.Records) == 0 {
		return 0
	}
	return len(a.Records[0].Vector)
}

// Timestamp returns the document timestamp, falling back to the generation
// time when the metadata carries none or it does not parse.
func (a *VectorArtifact) Timestamp() time.Time {
	if a.Metadata.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, a.Metadata.Timestamp); err == nil {
			return ts
		}
	}
	return a.Stats.GeneratedAt
}

// QueryResult is a transient search hit.
type QueryResult struct {
	DocumentID string         `json:"sessionId"`
	Text       string         `json:"text"`
	Similarity float64        `json:"similarity"`
	Metadata   RecordMetadata `json:"metadata"`
}

// StoreStats summarises the artifacts held by a vector store.
type StoreStats struct {
	TotalDocuments     int    `json:"totalSessions"`
	TotalEmbeddings    int    `json:"totalEmbeddings"`
	AveragePerDocument int    `json:"averageEmbeddingsPerSession"`
	Oldest             string `json:"oldestSession,omitempty"`
	Newest             string `json:"newestSession,omitempty"`
	Directory          string `json:"embeddingsDirectory"`
	Unreadable         int    `json:"unreadable"`
}
