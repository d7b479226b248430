package loader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"docuchat-backend/models"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// TextParser loads a plain text file as a single document.
type TextParser struct{}

func (TextParser) Parse(name string, data []byte) ([]models.Document, error) {
	return []models.Document{{
		ID:        docID(name, 0),
		SourceRef: name,
		RawText:   string(data),
		Format:    models.FormatText,
		Metadata:  map[string]string{"source": name},
	}}, nil
}

// CSVParser produces one document per data row. When the file has a header
// row, each row is rendered as "column: value" lines the way retrieval
// pipelines usually flatten tabular data.
type CSVParser struct{}

func (CSVParser) Parse(name string, data []byte) ([]models.Document, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, parseError(name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := records[1:]
	if len(rows) == 0 {
		// Single-row file: treat the only row as data, not a header.
		header = nil
		rows = records
	}

	docs := make([]models.Document, 0, len(rows))
	for i, row := range rows {
		docs = append(docs, models.Document{
			ID:        docID(name, i),
			SourceRef: name,
			RawText:   renderRow(header, row),
			Format:    models.FormatCSV,
			Metadata: map[string]string{
				"source": name,
				"row":    strconv.Itoa(i + 1),
			},
		})
	}
	return docs, nil
}

func renderRow(header, row []string) string {
	var b strings.Builder
	for i, cell := range row {
		if i > 0 {
			b.WriteByte('\n')
		}
		if header != nil && i < len(header) && header[i] != "" {
			b.WriteString(header[i])
			b.WriteString(": ")
		}
		b.WriteString(cell)
	}
	return b.String()
}

// JSONParser loads a JSON file. A top-level array yields one document per
// element; any other top-level value yields a single document.
type JSONParser struct{}

func (JSONParser) Parse(name string, data []byte) ([]models.Document, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		// Not an array; accept any single valid JSON value.
		var value json.RawMessage
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, parseError(name, err)
		}
		elements = []json.RawMessage{value}
	}

	docs := make([]models.Document, 0, len(elements))
	for i, el := range elements {
		docs = append(docs, models.Document{
			ID:        docID(name, i),
			SourceRef: name,
			RawText:   string(el),
			Format:    models.FormatJSON,
			Metadata: map[string]string{
				"source": name,
				"record": strconv.Itoa(i),
			},
		})
	}
	return docs, nil
}

// JSONLinesParser loads newline-delimited JSON, one document per line.
type JSONLinesParser struct{}

func (JSONLinesParser) Parse(name string, data []byte) ([]models.Document, error) {
	var docs []models.Document
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var value json.RawMessage
		if err := json.Unmarshal([]byte(line), &value); err != nil {
			return nil, parseError(name, fmt.Errorf("line %d: %v", i+1, err))
		}
		docs = append(docs, models.Document{
			ID:        docID(name, len(docs)),
			SourceRef: name,
			RawText:   line,
			Format:    models.FormatJSONL,
			Metadata: map[string]string{
				"source": name,
				"line":   strconv.Itoa(i + 1),
			},
		})
	}
	return docs, nil
}

// PDFParser extracts plain text from every page into a single document.
type PDFParser struct{}

func (PDFParser) Parse(name string, data []byte) ([]models.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, parseError(name, err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, parseError(name, fmt.Errorf("page %d: %v", i, err))
		}
		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n\n")
		}
		textBuilder.WriteString(text)
	}

	return []models.Document{{
		ID:        docID(name, 0),
		SourceRef: name,
		RawText:   textBuilder.String(),
		Format:    models.FormatPDF,
		Metadata: map[string]string{
			"source": name,
			"pages":  strconv.Itoa(pages),
		},
	}}, nil
}

// XLSXParser produces one document per spreadsheet row, first row of each
// sheet taken as the header.
type XLSXParser struct{}

func (XLSXParser) Parse(name string, data []byte) ([]models.Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, parseError(name, err)
	}
	defer f.Close()

	var docs []models.Document
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, parseError(name, fmt.Errorf("sheet %s: %v", sheet, err))
		}
		if len(rows) < 2 {
			continue
		}

		header := rows[0]
		for i, row := range rows[1:] {
			docs = append(docs, models.Document{
				ID:        docID(name, len(docs)),
				SourceRef: name,
				RawText:   renderRow(header, row),
				Format:    models.FormatXLSX,
				Metadata: map[string]string{
					"source": name,
					"sheet":  sheet,
					"row":    strconv.Itoa(i + 1),
				},
			})
		}
	}
	return docs, nil
}
