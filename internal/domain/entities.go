package domain

// Record is one unit of text extracted from a source document.
// PDF extraction produces one Record per page; txt and docx produce
// one Record per file (Page is nil in that case). Pages are 0-based.
type Record struct {
	Source string `json:"source"`
	Page   *int   `json:"page,omitempty"`
	Text   string `json:"text"`
}

// Passage is a cleaned, size-bounded chunk of a Record. It is the unit
// that gets embedded and retrieved. Immutable once created.
type Passage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    *int   `json:"page,omitempty"`
}

// ScoredPassage pairs a passage with a retrieval similarity score.
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

// ChatTurn is one resolved question/answer pair in a session's history.
type ChatTurn struct {
	Question string
	Answer   string
}
