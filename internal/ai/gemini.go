package ai

import (
	"context"
	"fmt"
	"time"

	"docuchat-backend/internal/config"
	"docuchat-backend/internal/logger"
	"docuchat-backend/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// embedBatchLimit is the maximum number of contents per BatchEmbedContents
// request accepted by the API.
const embedBatchLimit = 100

// GeminiClient implements Embedder and Generator on the Google Generative AI
// API. Generation runs behind a circuit breaker and a request-rate limiter so
// a degraded provider fails fast instead of piling up blocked calls.
type GeminiClient struct {
	client          *genai.Client
	embeddingModel  string
	generationModel string
	timeout         time.Duration
	breaker         *gobreaker.CircuitBreaker
	rateLimiter     *rate.Limiter
}

func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %v", models.ErrConfig, err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeminiClient{
		client:          client,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		timeout:         cfg.ProviderTimeout,
		breaker:         breaker,
		rateLimiter:     rate.NewLimiter(rate.Limit(1), 10),
	}, nil
}

// EmbedTexts embeds the given texts in request batches, preserving input
// order in the returned vectors.
func (gc *GeminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed_texts")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.embed.texts", len(texts)),
		attribute.String("gemini.model", gc.embeddingModel),
	)

	em := gc.client.EmbeddingModel(gc.embeddingModel)
	vectors := make([][]float32, 0, len(texts))

	for offset := 0; offset < len(texts); offset += embedBatchLimit {
		end := offset + embedBatchLimit
		if end > len(texts) {
			end = len(texts)
		}

		batchCtx, cancel := context.WithTimeout(ctx, gc.timeout)
		batch := em.NewBatch()
		for _, text := range texts[offset:end] {
			batch = batch.AddContent(genai.Text(text))
		}

		resp, err := em.BatchEmbedContents(batchCtx, batch)
		cancel()
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, fmt.Errorf("%w: batch starting at %d: %v", models.ErrEmbeddingService, offset, err)
		}
		if len(resp.Embeddings) != end-offset {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
				models.ErrEmbeddingService, end-offset, len(resp.Embeddings))
		}

		for _, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("%w: empty embedding returned", models.ErrEmbeddingService)
			}
			vectors = append(vectors, emb.Values)
		}
	}

	return vectors, nil
}

// Generate invokes the generation model with the assembled prompt.
func (gc *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.prompt_chars", len(prompt)),
		attribute.String("gemini.model", gc.generationModel),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", fmt.Errorf("%w: %v", models.ErrGenerationService, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, gc.timeout)
	defer cancel()

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.generationModel)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(callCtx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		if resp.UsageMetadata != nil {
			span.SetAttributes(attribute.Int("gemini.total_tokens", int(resp.UsageMetadata.TotalTokenCount)))
		}
		return resp, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", fmt.Errorf("%w: %v", models.ErrGenerationService, err)
	}

	text := extractText(result.(*genai.GenerateContentResponse))
	if text == "" {
		return "", fmt.Errorf("%w: no candidates in response", models.ErrGenerationService)
	}
	return text, nil
}

func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var out string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
		if out != "" {
			break
		}
	}
	return out
}
