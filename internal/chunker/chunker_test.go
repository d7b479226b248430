package chunker

import (
	"fmt"
	"strings"
	"testing"

	"docuchat-backend/models"
)

func doc(id, text string) models.Document {
	return models.Document{ID: id, SourceRef: id + ".txt", RawText: text, Format: models.FormatText}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s, err := NewSplitter(100, 20, '\n')
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}

	text := strings.Repeat("abcdefghij", 57)
	chunks := s.Split([]models.Document{doc("d1", text)})
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for _, c := range chunks {
		if n := len([]rune(c.Text)); n > 100 {
			t.Errorf("chunk %s has %d runes, limit is 100", c.ID, n)
		}
		if c.Text == "" {
			t.Errorf("chunk %s is empty", c.ID)
		}
	}
}

func TestSplitExactOverlap(t *testing.T) {
	s, err := NewSplitter(50, 10, 0)
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}

	// No boundary rune present, so every cut lands exactly at ChunkSize.
	text := strings.Repeat("x", 120)
	chunks := s.Split([]models.Document{doc("d1", text)})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		tail := string(prev[len(prev)-10:])
		head := string(cur[:10])
		if tail != head {
			t.Errorf("chunk %d: overlap mismatch: tail %q vs head %q", i, tail, head)
		}
		if !chunks[i].OverlapPrev {
			t.Errorf("chunk %d: OverlapPrev not set", i)
		}
	}
	if chunks[0].OverlapPrev {
		t.Error("first chunk must not claim overlap")
	}
}

func TestSplitReconstruction(t *testing.T) {
	s, err := NewSplitter(40, 8, '\n')
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}

	text := "The quick brown fox jumps over the lazy dog.\n" +
		"Pack my box with five dozen liquor jugs.\n" +
		"How vexingly quick daft zebras jump!\n" +
		"Sphinx of black quartz, judge my vow."
	chunks := s.Split([]models.Document{doc("d1", text)})

	// Dropping each chunk's leading overlap reconstructs the document.
	var b strings.Builder
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			runes = runes[s.ChunkOverlap:]
		}
		b.WriteString(string(runes))
	}
	if b.String() != text {
		t.Errorf("reconstruction mismatch:\ngot  %q\nwant %q", b.String(), text)
	}
}

func TestSplitPrefersBoundary(t *testing.T) {
	s, err := NewSplitter(30, 5, '\n')
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}

	text := "first line of text here\nsecond line of text here\nthird line"
	chunks := s.Split([]models.Document{doc("d1", text)})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, "\n") {
		t.Errorf("first chunk should cut after the newline, got %q", chunks[0].Text)
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewDefaultSplitter()
	docs := []models.Document{doc("a", strings.Repeat("lorem ipsum dolor sit amet\n", 200))}

	first := s.Split(docs)
	second := s.Split(docs)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitChunkIdentity(t *testing.T) {
	s, _ := NewSplitter(20, 4, 0)
	chunks := s.Split([]models.Document{
		doc("aaa", strings.Repeat("y", 50)),
		doc("bbb", "short"),
	})

	ordinals := map[string]int{}
	for _, c := range chunks {
		if c.DocumentID != "aaa" && c.DocumentID != "bbb" {
			t.Errorf("unexpected document id %q", c.DocumentID)
		}
		if c.Ordinal != ordinals[c.DocumentID] {
			t.Errorf("document %s: ordinal %d out of sequence", c.DocumentID, c.Ordinal)
		}
		ordinals[c.DocumentID]++
		want := fmt.Sprintf("%s-%04d", c.DocumentID, c.Ordinal)
		if c.ID != want {
			t.Errorf("chunk id %q, want %q", c.ID, want)
		}
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	s := NewDefaultSplitter()
	if chunks := s.Split([]models.Document{doc("d1", "")}); len(chunks) != 0 {
		t.Errorf("empty document produced %d chunks", len(chunks))
	}
}

func TestNewSplitterValidation(t *testing.T) {
	cases := []struct {
		size, overlap int
	}{
		{0, 0},
		{-5, 0},
		{100, -1},
		{100, 100},
		{100, 150},
	}
	for _, tc := range cases {
		if _, err := NewSplitter(tc.size, tc.overlap, '\n'); err == nil {
			t.Errorf("NewSplitter(%d, %d) accepted invalid parameters", tc.size, tc.overlap)
		}
	}
}
