package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic offline Embedder used by tests: each word
// is hashed into a fixed-size bag-of-words vector which is then L2
// normalized. Texts sharing words get high cosine similarity, which is
// enough to exercise retrieval ranking without a provider.
type HashEmbedder struct {
	Dim int
}

func (e HashEmbedder) dim() int {
	if e.Dim <= 0 {
		return 64
	}
	return e.Dim
}

func (e HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e HashEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dim())
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(e.dim())]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}

// ScriptedGenerator returns canned answers in order, or echoes the prompt
// when the script runs out. Err, when set, is returned instead.
type ScriptedGenerator struct {
	Answers []string
	Err     error

	Prompts []string
	next    int
}

func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Err != nil {
		return "", g.Err
	}

	g.Prompts = append(g.Prompts, prompt)
	if g.next < len(g.Answers) {
		answer := g.Answers[g.next]
		g.next++
		return answer, nil
	}
	return fmt.Sprintf("answer %d", g.next), nil
}
