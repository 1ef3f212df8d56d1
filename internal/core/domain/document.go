package domain

// Document is the extracted, cleaned text of one RawDocument.
type Document struct {
	// Source is the originating file name.
	Source string

	// Content is the full cleaned text before chunking.
	Content string
}

// Chunk is an intermediate unit produced by the post-processor pipeline.
type Chunk struct {
	// Source is the originating file name.
	Source string

	// Content is the text of this chunk.
	Content string

	// Position is the ordinal position within the source document.
	Position int
}

// Passage is a chunk of source text eligible for retrieval.
// Passages are immutable and owned by exactly one corpus version.
type Passage struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// ScoredPassage is a passage returned by a similarity query.
type ScoredPassage struct {
	Passage

	// Score is the inner product of the unit query and passage vectors.
	Score float32 `json:"score"`

	// Index is the row of the passage in its corpus.
	Index int `json:"index"`
}
