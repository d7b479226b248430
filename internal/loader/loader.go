// Package loader turns raw files from the document store into normalized
// Document records. Parsers are selected by file extension from a registry;
// files with unregistered extensions are skipped, not rejected.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"docuchat-backend/internal/store"
	"docuchat-backend/models"
)

// Parser converts one stored file into one or more Documents. A file that
// maps to several records (CSV rows, JSON array elements) yields several
// Documents, all carrying the source file name in their metadata.
type Parser interface {
	Parse(name string, data []byte) ([]models.Document, error)
}

// Loader scans a document store and dispatches each file to its parser.
type Loader struct {
	parsers map[string]Parser
}

// NewLoader registers the standard parser set.
func NewLoader() *Loader {
	return &Loader{
		parsers: map[string]Parser{
			".txt":   TextParser{},
			".csv":   CSVParser{},
			".json":  JSONParser{},
			".jsonl": JSONLinesParser{},
			".pdf":   PDFParser{},
			".xlsx":  XLSXParser{},
		},
	}
}

// Register adds or replaces the parser for an extension. Extensions are
// matched case-insensitively and must include the leading dot.
func (l *Loader) Register(ext string, p Parser) {
	l.parsers[strings.ToLower(ext)] = p
}

// LoadAll reads every supported file in the store, in sorted-name order, and
// returns the combined documents. A single malformed file fails the whole
// load; there is no partial-success mode.
func (l *Loader) LoadAll(ctx context.Context, s store.DocumentStore) ([]models.Document, error) {
	files, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list document store: %w", err)
	}

	var docs []models.Document
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parser, ok := l.parsers[strings.ToLower(filepath.Ext(f.Name))]
		if !ok {
			continue
		}

		data, err := s.Read(ctx, f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}

		parsed, err := parser.Parse(f.Name, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, parsed...)
	}

	return docs, nil
}

// docID derives a stable document id from the source name and record index,
// so reloading an unchanged store yields identical ids.
func docID(name string, record int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", name, record)))
	return hex.EncodeToString(h[:6])
}

func parseError(name string, cause error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrParse, name, cause)
}
