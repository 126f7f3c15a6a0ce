package domain

// ScoredChunk pairs a retrieved chunk with its similarity score to the
// query. The slice order produced by retrieval is the final
// relevance+diversity ranking; callers must not re-sort it.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalOptions tunes one retrieval run. Zero values fall back to
// the application defaults at the call site.
type RetrievalOptions struct {
	// TopK is the number of chunks to return after diversity selection.
	TopK int
	// FetchK is the size of the candidate pool fetched from the index
	// before diversity selection. 0 means 3*TopK.
	FetchK int
	// Lambda weighs relevance against diversity, in [0, 1].
	Lambda float64
}

// IndexReport summarizes one indexing run over a file or directory.
type IndexReport struct {
	Collection string   `json:"collection"`
	Files      int      `json:"files"`
	Chunks     int      `json:"chunks"`
	Skipped    []string `json:"skipped,omitempty"`
}

// AskResult is a streaming retrieval session: the sources the answer is
// grounded on plus the token stream producing it.
type AskResult struct {
	Sources []ScoredChunk
	Tokens  <-chan StreamToken
}

// StreamToken is a single increment of a streamed answer.
// The stream ends with a token whose Done flag is set; Err carries a
// generation failure or cancellation and terminates the stream.
type StreamToken struct {
	Content string
	Done    bool
	Err     error
}
