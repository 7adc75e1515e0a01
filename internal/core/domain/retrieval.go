package domain

// SourceType distinguishes uploaded files from pasted text when a
// citation is labelled: uploads cite the filename, text the title.
type SourceType string

const (
	SourceUpload SourceType = "upload"
	SourceText   SourceType = "text"
)

// ChunkMatch is a raw nearest-neighbour hit as returned by the vector
// search; Distance is the cosine distance (ascending = most similar).
type ChunkMatch struct {
	ChunkID       int64
	DocumentID    string
	Snippet       string
	DocumentTitle string
	SourceType    SourceType
	Filename      string
	Distance      float64
}

// RetrievedChunk carries everything a citation needs for display and
// persistence. Score is 1 - cosine distance, rounded to six decimals.
type RetrievedChunk struct {
	ChunkID       int64      `json:"chunk_id"`
	DocumentID    string     `json:"document_id"`
	Snippet       string     `json:"snippet"`
	Score         float64    `json:"score"`
	DocumentTitle string     `json:"document_title"`
	SourceType    SourceType `json:"source_type"`
	Filename      string     `json:"filename,omitempty"`
}

// Answer is the synthesizer output. ModelUsed is the slug that actually
// produced the text and may differ from the routed model; Attempts is
// how many models the fallback chain consumed before succeeding.
type Answer struct {
	Text      string           `json:"text"`
	ModelUsed string           `json:"model_used"`
	Attempts  int              `json:"-"`
	Sources   []RetrievedChunk `json:"sources"`
}
