// Package chunker splits normalized documents into overlapping fixed-size
// chunks for embedding and retrieval.
package chunker

import (
	"fmt"

	"docuchat-backend/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultBoundary     = '\n'
)

// Splitter accumulates text greedily up to ChunkSize characters, preferring
// to cut at the last Boundary rune at or before the limit. Each subsequent
// chunk starts ChunkOverlap characters before the previous chunk's end, so
// consecutive chunks from the same document share exactly ChunkOverlap
// characters of text. Splitting is pure: no side effects, deterministic.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Boundary     rune
}

// NewSplitter validates the chunking parameters once. Overlap must be
// strictly smaller than size or splitting would never advance.
func NewSplitter(chunkSize, chunkOverlap int, boundary rune) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfig, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrConfig, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			models.ErrConfig, chunkOverlap, chunkSize)
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, Boundary: boundary}, nil
}

// NewDefaultSplitter returns a splitter with the standard 1000/200 newline
// configuration.
func NewDefaultSplitter() *Splitter {
	s, _ := NewSplitter(DefaultChunkSize, DefaultChunkOverlap, DefaultBoundary)
	return s
}

// Split chunks every document in order. Chunks keep their source document id
// and per-document ordinal for traceability.
func (s *Splitter) Split(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.splitDocument(doc)...)
	}
	return chunks
}

func (s *Splitter) splitDocument(doc models.Document) []models.Chunk {
	text := []rune(doc.RawText)
	if len(text) == 0 {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	ordinal := 0

	for start < len(text) {
		end := start + s.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else if cut := s.lastBoundary(text, start, end); cut > 0 {
			end = cut
		}

		chunks = append(chunks, models.Chunk{
			ID:          fmt.Sprintf("%s-%04d", doc.ID, ordinal),
			DocumentID:  doc.ID,
			Text:        string(text[start:end]),
			Ordinal:     ordinal,
			OverlapPrev: ordinal > 0 && s.ChunkOverlap > 0,
		})
		ordinal++

		if end == len(text) {
			break
		}
		start = end - s.ChunkOverlap
	}

	return chunks
}

// lastBoundary finds the cut position just after the last boundary rune in
// (start, start+ChunkSize]. A boundary inside the next chunk's overlap region
// is ignored: cutting there would move the window backwards.
func (s *Splitter) lastBoundary(text []rune, start, limit int) int {
	for i := limit - 1; i > start+s.ChunkOverlap; i-- {
		if text[i] == s.Boundary {
			return i + 1
		}
	}
	return 0
}
