package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docuchat-backend/internal/ai"
	"docuchat-backend/internal/chat"
	"docuchat-backend/internal/chunker"
	"docuchat-backend/internal/config"
	"docuchat-backend/internal/index"
	"docuchat-backend/internal/ingest"
	"docuchat-backend/internal/loader"
	"docuchat-backend/internal/session"
	"docuchat-backend/internal/store"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.MemStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docStore := store.NewMemStore()
	cfg := &config.Config{MaxFileSize: 1 << 20}

	splitter, err := chunker.NewSplitter(200, 40, '\n')
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}
	orchestrator := chat.NewOrchestrator(
		docStore,
		loader.NewLoader(),
		splitter,
		index.NewBuilder(ai.HashEmbedder{Dim: 64}),
		&ai.ScriptedGenerator{Answers: []string{"scripted answer"}},
		session.NewMemoryStore(),
		2,
	)

	router := gin.New()
	SetupIngestRoutes(router, cfg, ingest.NewIngestor(docStore, nil), docStore, nil)
	SetupChatRoutes(router, orchestrator, nil)
	SetupFallbackRoutes(router)
	return router, docStore
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestScrapeUploadStoresFile(t *testing.T) {
	router, docStore := newTestRouter(t)

	body, contentType := multipartUpload(t, "files", "facts.txt", "The sky is blue.")
	req := httptest.NewRequest(http.MethodPost, "/scrape", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	files, err := docStore.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("stored %d files, want 1", len(files))
	}
	if !strings.HasPrefix(files[0].Name, "files-") || !strings.HasSuffix(files[0].Name, ".txt") {
		t.Errorf("stored name %q", files[0].Name)
	}
}

func TestScrapeRejectsEmptyRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/scrape", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestScrapeRejectsMalformedURLsField(t *testing.T) {
	router, _ := newTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("urls", "not-a-json-array")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/scrape", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestAskMintsSessionID(t *testing.T) {
	router, docStore := newTestRouter(t)
	if err := docStore.Write(context.Background(), "facts.txt", []byte("The sky is blue and the grass is green.")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"question": "what color is the sky"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Answer    string `json:"answer"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "scripted answer" {
		t.Errorf("answer %q", resp.Answer)
	}
	if resp.SessionID == "" {
		t.Error("no session id minted")
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestAskEmptyCorpusConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	payload, _ := json.Marshal(map[string]string{"question": "anything"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "index_unavailable") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestUnknownRouteNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not_found") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestDocumentsListing(t *testing.T) {
	router, docStore := newTestRouter(t)
	_ = docStore.Write(context.Background(), "a.txt", []byte("alpha"))
	_ = docStore.Write(context.Background(), "b.txt", []byte("beta"))

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total %d, want 2", resp.Total)
	}
}
