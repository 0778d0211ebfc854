package chunker

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/athena/core"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 2048

	// DefaultOverlap is the number of characters shared by consecutive windows.
	DefaultOverlap = 400

	// minKeptFraction is the share of a window a whitespace backoff must keep.
	minKeptFraction = 0.7
)

// TurnMarkers open a new turn when they start a line.
var TurnMarkers = []string{"User:", "Assistant:", "Human:", "Claude:"}

// Chunker splits transcripts into chunks. It is safe for concurrent use.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between consecutive windows in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker. The overlap must be smaller than the chunk size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, &core.ConfigurationError{Field: "chunk size", Reason: "must be greater than 0"}
	}
	if c.overlap < 0 {
		return nil, &core.ConfigurationError{Field: "chunk overlap", Reason: "cannot be negative"}
	}
	if c.overlap >= c.chunkSize {
		return nil, &core.ConfigurationError{
			Field:  "chunk overlap",
			Reason: "must be smaller than chunk size " + strconv.Itoa(c.chunkSize),
		}
	}
	return c, nil
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }
func (c *Chunker) Overlap() int   { return c.overlap }

// Chunk splits text into ordered chunks.
func (c *Chunker) Chunk(text string) []core.Chunk {
	var chunks []core.Chunk

	for i, raw := range SplitTurns(text) {
		turn := strings.TrimSpace(raw)
		if turn == "" {
			continue
		}

		runes := []rune(turn)
		if len(runes) <= c.chunkSize {
			chunks = append(chunks, core.Chunk{
				Text: turn,
				Metadata: core.ChunkMetadata{
					TurnIndex: i,
					ChunkType: core.ChunkSingleTurn,
					Length:    len(runes),
				},
			})
			continue
		}

		chunks = append(chunks, c.splitTurn(runes, i)...)
	}

	return chunks
}

// splitTurn cuts an oversized turn into overlapping windows.
func (c *Chunker) splitTurn(runes []rune, turnIndex int) []core.Chunk {
	var chunks []core.Chunk
	n := len(runes)
	step := c.chunkSize - c.overlap
	chunkIndex := 0

	for start := 0; start < n; {
		end := start + c.chunkSize
		if end < n {
			cut := lastSpace(runes, end)
			if cut >= start+step && float64(cut) > float64(start)+minKeptFraction*float64(c.chunkSize) {
				end = cut
			}
		} else {
			end = n
		}

		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			idx, startPos, endPos := chunkIndex, start, end
			chunks = append(chunks, core.Chunk{
				Text: text,
				Metadata: core.ChunkMetadata{
					TurnIndex:  turnIndex,
					ChunkIndex: &idx,
					ChunkType:  core.ChunkSplitTurn,
					Length:     len([]rune(text)),
					StartPos:   &startPos,
					EndPos:     &endPos,
				},
			})
			chunkIndex++
		}

		if end >= n {
			break
		}

		next := max(start+step, end-c.overlap)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// lastSpace returns the index of the last whitespace rune at or before pos, or -1.
func lastSpace(runes []rune, pos int) int {
	for i := min(pos, len(runes)-1); i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// SplitTurns divides text at every newline that is followed by a turn marker.
// The newline is dropped and the marker stays with the turn it opens.
func SplitTurns(text string) []string {
	var turns []string
	prev := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' || !startsWithMarker(text[i+1:]) {
			continue
		}
		turns = append(turns, text[prev:i])
		prev = i + 1
	}
	return append(turns, text[prev:])
}

func startsWithMarker(s string) bool {
	for _, marker := range TurnMarkers {
		if strings.HasPrefix(s, marker) {
			return true
		}
	}
	return false
}
