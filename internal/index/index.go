// Package index builds and queries the in-memory vector index: every chunk
// is embedded once at build time and ranked by cosine similarity at query
// time. An index is immutable after Build; queries never mutate it.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"docuchat-backend/internal/ai"
	"docuchat-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultTopK is the retrieval depth used when a caller does not configure one.
const DefaultTopK = 4

type entry struct {
	chunk  models.Chunk
	vector []float32
}

// VectorIndex holds (chunk, embedding) pairs and supports exact
// nearest-neighbor search. Entries keep insertion order so equal-score
// results rank deterministically.
type VectorIndex struct {
	embedder ai.Embedder
	entries  []entry
	dim      int
}

// Builder embeds chunks and assembles indexes.
type Builder struct {
	embedder ai.Embedder
}

func NewBuilder(embedder ai.Embedder) *Builder {
	return &Builder{embedder: embedder}
}

// Build embeds every chunk and returns the searchable index. Any embedding
// failure aborts the whole build; a partial index is never returned. All
// vectors must share one dimensionality.
func (b *Builder) Build(ctx context.Context, chunks []models.Chunk) (*VectorIndex, error) {
	tracer := otel.Tracer("vector-index")
	ctx, span := tracer.Start(ctx, "index.build")
	defer span.End()
	span.SetAttributes(attribute.Int("index.chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := b.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embedded %d of %d chunks", models.ErrEmbeddingService, len(vectors), len(chunks))
	}

	idx := &VectorIndex{embedder: b.embedder}
	for i, v := range vectors {
		if idx.dim == 0 {
			idx.dim = len(v)
		} else if len(v) != idx.dim {
			return nil, fmt.Errorf("%w: embedding dimension mismatch: %d vs %d", models.ErrConfig, len(v), idx.dim)
		}
		idx.entries = append(idx.entries, entry{chunk: chunks[i], vector: v})
	}

	span.SetAttributes(attribute.Int("index.dimension", idx.dim))
	return idx, nil
}

// Len reports the number of indexed chunks.
func (idx *VectorIndex) Len() int { return len(idx.entries) }

// Search embeds the query with the index's own embedder and returns the k
// most similar chunks in descending score order. Ties keep insertion order.
func (idx *VectorIndex) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}

	vectors, err := idx.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]
	if len(queryVec) != idx.dim {
		return nil, fmt.Errorf("%w: query embedding dimension %d does not match index dimension %d",
			models.ErrConfig, len(queryVec), idx.dim)
	}

	type scored struct {
		pos   int
		score float64
	}
	results := make([]scored, len(idx.entries))
	for i, e := range idx.entries {
		results[i] = scored{pos: i, score: cosineSimilarity(queryVec, e.vector)}
	}

	// Stable keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if k > len(results) {
		k = len(results)
	}
	out := make([]models.SearchResult, k)
	for i := 0; i < k; i++ {
		out[i] = models.SearchResult{
			Chunk: idx.entries[results[i].pos].chunk,
			Score: results[i].score,
		}
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
