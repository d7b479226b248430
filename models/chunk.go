package models

// Chunk is a bounded slice of a Document's text, the unit of retrieval.
// Immutable after creation; the index owns it once embedded.
type Chunk struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Text        string `json:"text"`
	Ordinal     int    `json:"ordinal"`
	OverlapPrev bool   `json:"overlap_prev"`
}

// SearchResult pairs a chunk with its similarity score for one query.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Turn is one completed question/answer exchange in a session.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AnswerResult is returned to the caller of Ask. Transient, never stored.
type AnswerResult struct {
	Answer          string   `json:"answer"`
	RetrievedChunks []string `json:"retrieved_chunks"`
	SessionID       string   `json:"session_id"`
}
