package models

// Section is one extracted text block from an uploaded document, one per
// PDF page or DOCX paragraph. Metadata is kept for provenance even though
// nothing downstream reads it yet.
type Section struct {
	Content    string
	PageNumber int
	SourceName string
}

// Chunk represents a split segment with metadata
type Chunk struct {
	Content    string
	PageNumber int
	ChunkID    int
}

// GuardrailVerdict is the structured relevance decision for a question.
type GuardrailVerdict struct {
	IsRelevant bool   `json:"is_relevant"`
	Reasoning  string `json:"reasoning"`
}

// ConversationTurn is one prior message supplied by the caller.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
