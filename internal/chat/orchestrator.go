// Package chat orchestrates conversational retrieval: each question is
// answered against the current document store plus the session's prior
// turns, and successful exchanges are appended to the session history.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"docuchat-backend/internal/ai"
	"docuchat-backend/internal/chunker"
	"docuchat-backend/internal/index"
	"docuchat-backend/internal/loader"
	"docuchat-backend/internal/logger"
	"docuchat-backend/internal/session"
	"docuchat-backend/internal/store"
	"docuchat-backend/internal/telemetry"
	"docuchat-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Orchestrator owns session state and answers questions over the ingested
// corpus. The vector index is rebuilt from the document store whenever its
// fingerprint changes; an unchanged store reuses the cached index, so stale
// data is never served and unchanged data is never re-embedded.
type Orchestrator struct {
	store     store.DocumentStore
	loader    *loader.Loader
	splitter  *chunker.Splitter
	builder   *index.Builder
	generator ai.Generator
	sessions  session.Store
	topK      int
	metrics   *telemetry.Metrics

	cacheMu          sync.Mutex
	cachedIndex      *index.VectorIndex
	cacheFingerprint string

	locksMu      sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

func NewOrchestrator(
	docStore store.DocumentStore,
	docLoader *loader.Loader,
	splitter *chunker.Splitter,
	builder *index.Builder,
	generator ai.Generator,
	sessions session.Store,
	topK int,
) *Orchestrator {
	if topK <= 0 {
		topK = index.DefaultTopK
	}
	return &Orchestrator{
		store:        docStore,
		loader:       docLoader,
		splitter:     splitter,
		builder:      builder,
		generator:    generator,
		sessions:     sessions,
		topK:         topK,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

// WithMetrics enables index-build instrumentation.
func (o *Orchestrator) WithMetrics(m *telemetry.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Ask answers one question in the given session. Concurrent asks against the
// same session are serialized so history appends stay in order; the session
// is mutated only after generation succeeds.
func (o *Orchestrator) Ask(ctx context.Context, sessionID, question string) (*models.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", models.ErrInvalidArgument)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id must not be empty", models.ErrInvalidArgument)
	}

	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	tracer := otel.Tracer("chat-orchestrator")
	ctx, span := tracer.Start(ctx, "chat.ask")
	defer span.End()
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	idx, err := o.currentIndex(ctx)
	if err != nil {
		return nil, err
	}

	results, err := idx.Search(ctx, question, o.topK)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("chat.retrieved_chunks", len(results)))

	history, err := o.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	prompt := buildPrompt(history, results, question)

	answer, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error("Generation failed", "session_id", sessionID, "error", err)
		return nil, err
	}

	if err := o.sessions.Append(ctx, sessionID, models.Turn{Question: question, Answer: answer}); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	chunkIDs := make([]string, len(results))
	for i, r := range results {
		chunkIDs[i] = r.Chunk.ID
	}

	return &models.AnswerResult{
		Answer:          answer,
		RetrievedChunks: chunkIDs,
		SessionID:       sessionID,
	}, nil
}

// currentIndex returns the index for the store's current fingerprint,
// rebuilding when the store changed. Rebuilds are serialized; concurrent
// readers of an unchanged store share the immutable cached index.
func (o *Orchestrator) currentIndex(ctx context.Context) (*index.VectorIndex, error) {
	fingerprint, err := store.Fingerprint(ctx, o.store)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint document store: %w", err)
	}

	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()

	if o.cachedIndex != nil && o.cacheFingerprint == fingerprint {
		return o.cachedIndex, nil
	}

	docs, err := o.loader.LoadAll(ctx, o.store)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, models.ErrIndexUnavailable
	}

	chunks := o.splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, models.ErrIndexUnavailable
	}

	buildStart := time.Now()
	idx, err := o.builder.Build(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.RecordIndexBuild(time.Since(buildStart).Seconds(), int64(len(chunks)))
	}

	logger.Info("Vector index rebuilt", "documents", len(docs), "chunks", len(chunks))
	o.cachedIndex = idx
	o.cacheFingerprint = fingerprint
	return idx, nil
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()

	lock, ok := o.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.sessionLocks[sessionID] = lock
	}
	return lock
}

// buildPrompt assembles prior turns in chronological order, retrieved
// context in rank order, then the new question.
func buildPrompt(history []models.Turn, results []models.SearchResult, question string) string {
	var prompt strings.Builder

	if len(history) > 0 {
		prompt.WriteString("Conversation so far:\n\n")
		for _, turn := range history {
			prompt.WriteString("User: ")
			prompt.WriteString(turn.Question)
			prompt.WriteString("\nAssistant: ")
			prompt.WriteString(turn.Answer)
			prompt.WriteString("\n\n")
		}
	}

	if len(results) > 0 {
		prompt.WriteString("Context from ingested documents:\n\n")
		for i, r := range results {
			prompt.WriteString(fmt.Sprintf("Context %d:\n%s\n\n", i+1, r.Chunk.Text))
		}
	}

	prompt.WriteString("Based on the above context, please answer the following question:\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\nIf the context doesn't contain relevant information, please say so.")

	return prompt.String()
}
