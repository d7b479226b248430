// Package ingest accepts batches of URLs and uploaded files and lands them
// in the document store.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"docuchat-backend/internal/extractor"
	"docuchat-backend/internal/logger"
	"docuchat-backend/internal/store"
	"docuchat-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// File is one uploaded document: original name plus content.
type File struct {
	Name string
	Data []byte
}

// Ingestor writes scraped pages and uploads into the shared document store.
type Ingestor struct {
	store     store.DocumentStore
	extractor *extractor.Extractor
	now       func() time.Time
}

func NewIngestor(s store.DocumentStore, e *extractor.Extractor) *Ingestor {
	return &Ingestor{store: s, extractor: e, now: time.Now}
}

// SubmitURLs extracts each URL in order. The first failure aborts the batch
// and is returned as the aggregate error; extractions already persisted stay
// in the store.
func (ig *Ingestor) SubmitURLs(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: no URLs provided", models.ErrInvalidArgument)
	}

	tracer := otel.Tracer("ingestor")
	ctx, span := tracer.Start(ctx, "ingest.submit_urls")
	defer span.End()
	span.SetAttributes(attribute.Int("ingest.urls", len(urls)))

	for _, u := range urls {
		if _, err := ig.extractor.ExtractToStore(ctx, ig.store, u); err != nil {
			span.SetAttributes(attribute.Bool("ingest.error", true))
			return err
		}
	}
	return nil
}

// SubmitFiles stores each upload under a collision-resistant name:
// "<field>-<timestamp><ext>", where the timestamp has nanosecond resolution
// so simultaneous uploads never clobber each other.
func (ig *Ingestor) SubmitFiles(ctx context.Context, field string, files []File) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no files provided", models.ErrInvalidArgument)
	}
	if field == "" {
		field = "files"
	}

	tracer := otel.Tracer("ingestor")
	ctx, span := tracer.Start(ctx, "ingest.submit_files")
	defer span.End()
	span.SetAttributes(attribute.Int("ingest.files", len(files)))

	for _, f := range files {
		name := fmt.Sprintf("%s-%d%s", field, ig.now().UnixNano(), filepath.Ext(f.Name))
		if err := ig.store.Write(ctx, name, f.Data); err != nil {
			span.SetAttributes(attribute.Bool("ingest.error", true))
			return fmt.Errorf("failed to store upload %s: %w", f.Name, err)
		}
		logger.Info("Stored upload", "original", f.Name, "file", name, "bytes", len(f.Data))
	}
	return nil
}
