package models

// Format identifies how a Document's raw text was produced.
type Format string

const (
	FormatText    Format = "text"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
	FormatPDF     Format = "pdf"
	FormatXLSX    Format = "xlsx"
	FormatScraped Format = "scraped"
)

// Document is one normalized unit of ingested content. A single file may
// produce several Documents (one per CSV row, JSON record, etc.).
// Documents are immutable once created and are discarded after chunking.
type Document struct {
	ID        string            `json:"id"`
	SourceRef string            `json:"source_ref"` // store file name or original URL
	RawText   string            `json:"raw_text"`
	Format    Format            `json:"format"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
