package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"docuchat-backend/internal/ai"
	"docuchat-backend/internal/chunker"
	"docuchat-backend/internal/index"
	"docuchat-backend/internal/loader"
	"docuchat-backend/internal/session"
	"docuchat-backend/internal/store"
	"docuchat-backend/models"
)

func newTestOrchestrator(t *testing.T, files map[string]string, gen ai.Generator) (*Orchestrator, *store.MemStore, *session.MemoryStore) {
	t.Helper()

	docStore := store.NewMemStore()
	for name, content := range files {
		if err := docStore.Write(context.Background(), name, []byte(content)); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	splitter, err := chunker.NewSplitter(200, 40, '\n')
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}

	sessions := session.NewMemoryStore()
	o := NewOrchestrator(
		docStore,
		loader.NewLoader(),
		splitter,
		index.NewBuilder(ai.HashEmbedder{Dim: 128}),
		gen,
		sessions,
		2,
	)
	return o, docStore, sessions
}

func TestAskRetrievesRelevantChunk(t *testing.T) {
	files := map[string]string{
		"geo.txt": "Paris is the capital of France.\n" +
			"Berlin is the capital of Germany.\n" +
			"Madrid is the capital of Spain.",
		"cooking.txt": "Bread needs flour, water, salt and yeast.\n" +
			"Knead the dough until smooth.",
	}
	gen := &ai.ScriptedGenerator{Answers: []string{"Paris"}}
	o, _, _ := newTestOrchestrator(t, files, gen)

	res, err := o.Ask(context.Background(), "s1", "What is the capital of France?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if res.Answer != "Paris" {
		t.Errorf("answer %q", res.Answer)
	}
	if len(res.RetrievedChunks) == 0 {
		t.Fatal("no chunks retrieved")
	}
	if len(gen.Prompts) != 1 {
		t.Fatalf("generator called %d times", len(gen.Prompts))
	}
	if !strings.Contains(gen.Prompts[0], "capital of France") {
		t.Errorf("prompt missing retrieved context:\n%s", gen.Prompts[0])
	}
	if !strings.Contains(gen.Prompts[0], "What is the capital of France?") {
		t.Errorf("prompt missing the question:\n%s", gen.Prompts[0])
	}
}

func TestAskConversationHistoryOrdered(t *testing.T) {
	files := map[string]string{"doc.txt": "Widgets come in red, green and blue.\nGadgets come in small and large."}
	gen := &ai.ScriptedGenerator{Answers: []string{"A1", "A2", "A3"}}
	o, _, sessions := newTestOrchestrator(t, files, gen)
	ctx := context.Background()

	for i, q := range []string{"first question about widgets", "second question about gadgets", "third question about colors"} {
		res, err := o.Ask(ctx, "conv", q)
		if err != nil {
			t.Fatalf("ask %d: %v", i, err)
		}
		if res.SessionID != "conv" {
			t.Errorf("ask %d: session id %q", i, res.SessionID)
		}
	}

	history, err := sessions.History(ctx, "conv")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d turns, want 3", len(history))
	}
	wantQ := []string{"first question about widgets", "second question about gadgets", "third question about colors"}
	wantA := []string{"A1", "A2", "A3"}
	for i := range history {
		if history[i].Question != wantQ[i] || history[i].Answer != wantA[i] {
			t.Errorf("turn %d: %+v", i, history[i])
		}
	}

	// The third prompt must carry the first two exchanges in order.
	third := gen.Prompts[2]
	posQ1 := strings.Index(third, wantQ[0])
	posA1 := strings.Index(third, "A1")
	posQ2 := strings.Index(third, wantQ[1])
	posA2 := strings.Index(third, "A2")
	if posQ1 < 0 || posA1 < 0 || posQ2 < 0 || posA2 < 0 {
		t.Fatalf("third prompt missing prior turns:\n%s", third)
	}
	if !(posQ1 < posA1 && posA1 < posQ2 && posQ2 < posA2) {
		t.Errorf("prior turns out of order in prompt")
	}
}

func TestAskSessionsAreIsolated(t *testing.T) {
	files := map[string]string{"doc.txt": "Some shared corpus text about shipping containers."}
	gen := &ai.ScriptedGenerator{}
	o, _, sessions := newTestOrchestrator(t, files, gen)
	ctx := context.Background()

	if _, err := o.Ask(ctx, "alpha", "question about containers"); err != nil {
		t.Fatalf("ask alpha: %v", err)
	}
	if _, err := o.Ask(ctx, "beta", "question about shipping"); err != nil {
		t.Fatalf("ask beta: %v", err)
	}

	alpha, _ := sessions.History(ctx, "alpha")
	beta, _ := sessions.History(ctx, "beta")
	if len(alpha) != 1 || len(beta) != 1 {
		t.Fatalf("history lengths: alpha=%d beta=%d", len(alpha), len(beta))
	}
	if alpha[0].Question == beta[0].Question {
		t.Error("sessions share turns")
	}
}

func TestAskEmptyCorpus(t *testing.T) {
	gen := &ai.ScriptedGenerator{}
	o, _, _ := newTestOrchestrator(t, nil, gen)

	_, err := o.Ask(context.Background(), "s1", "anything at all")
	if !errors.Is(err, models.ErrIndexUnavailable) {
		t.Fatalf("got %v, want ErrIndexUnavailable", err)
	}
	if len(gen.Prompts) != 0 {
		t.Error("generator called with no corpus")
	}
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	gen := &ai.ScriptedGenerator{}
	o, _, _ := newTestOrchestrator(t, map[string]string{"doc.txt": "text"}, gen)

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := o.Ask(context.Background(), "s1", q); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("question %q: got %v, want ErrInvalidArgument", q, err)
		}
	}
}

func TestAskGenerationFailureLeavesHistoryUntouched(t *testing.T) {
	files := map[string]string{"doc.txt": "Reference text for the failing call."}
	gen := &ai.ScriptedGenerator{Err: models.ErrGenerationService}
	o, _, sessions := newTestOrchestrator(t, files, gen)
	ctx := context.Background()

	_, err := o.Ask(ctx, "s1", "a question that will fail")
	if !errors.Is(err, models.ErrGenerationService) {
		t.Fatalf("got %v, want ErrGenerationService", err)
	}

	history, err := sessions.History(ctx, "s1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("failed turn was recorded: %+v", history)
	}
}

func TestAskRebuildsIndexWhenStoreChanges(t *testing.T) {
	files := map[string]string{"a.txt": "Original text about astronomy and telescopes."}
	gen := &ai.ScriptedGenerator{}
	o, docStore, _ := newTestOrchestrator(t, files, gen)
	ctx := context.Background()

	first, err := o.Ask(ctx, "s1", "question about telescopes")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	// New file must be visible to the very next ask.
	if err := docStore.Write(ctx, "b.txt", []byte("Completely new text about submarines and sonar.")); err != nil {
		t.Fatalf("write: %v", err)
	}

	second, err := o.Ask(ctx, "s1", "question about submarines and sonar")
	if err != nil {
		t.Fatalf("ask after write: %v", err)
	}

	fromNewFile := false
	for _, id := range second.RetrievedChunks {
		if !containsID(first.RetrievedChunks, id) {
			fromNewFile = true
		}
	}
	if !fromNewFile {
		t.Error("retrieval after store change returned only pre-change chunks")
	}
	if !strings.Contains(gen.Prompts[len(gen.Prompts)-1], "submarines") {
		t.Errorf("new document text not retrieved:\n%s", gen.Prompts[len(gen.Prompts)-1])
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// overlapGenerator counts in-flight Generate calls so a test can detect
// whether two calls ever ran at the same time.
type overlapGenerator struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	calls       int
}

func (g *overlapGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	n := g.calls
	g.calls++
	g.mu.Unlock()

	// Hold the call open long enough for overlapping asks to show up.
	time.Sleep(2 * time.Millisecond)

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return fmt.Sprintf("answer %d", n), nil
}

func TestAskConcurrentSameSessionSerialized(t *testing.T) {
	files := map[string]string{"doc.txt": "Shared corpus text about scheduling and queues."}
	gen := &overlapGenerator{}
	o, _, sessions := newTestOrchestrator(t, files, gen)
	ctx := context.Background()

	const n = 8
	questions := make([]string, n)
	for i := range questions {
		questions[i] = fmt.Sprintf("concurrent question number %d about scheduling", i)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = o.Ask(ctx, "conc", questions[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("ask %d: %v", i, err)
		}
	}
	if gen.maxInFlight > 1 {
		t.Errorf("saw %d generations in flight for one session, want at most 1", gen.maxInFlight)
	}

	history, err := sessions.History(ctx, "conc")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != n {
		t.Fatalf("history has %d turns, want %d", len(history), n)
	}

	// Every question appears exactly once, paired with a distinct answer.
	seenQ := map[string]int{}
	seenA := map[string]int{}
	for _, turn := range history {
		seenQ[turn.Question]++
		seenA[turn.Answer]++
	}
	for _, q := range questions {
		if seenQ[q] != 1 {
			t.Errorf("question %q recorded %d times", q, seenQ[q])
		}
	}
	for answer, count := range seenA {
		if count != 1 {
			t.Errorf("answer %q recorded %d times", answer, count)
		}
	}
}

func TestAskCSVRowTraceability(t *testing.T) {
	csvData := "product,price\nanvil,100\nrocket,2500\nmagnet,40\n"
	gen := &ai.ScriptedGenerator{}
	o, _, _ := newTestOrchestrator(t, map[string]string{"catalog.csv": csvData}, gen)

	res, err := o.Ask(context.Background(), "s1", "how much does the rocket cost")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(res.RetrievedChunks) == 0 {
		t.Fatal("no chunks retrieved")
	}
	if !strings.Contains(gen.Prompts[0], "rocket") {
		t.Errorf("rocket row not retrieved:\n%s", gen.Prompts[0])
	}
}
