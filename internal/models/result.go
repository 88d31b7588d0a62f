package models

// Retrieval methods reported on passages.
const (
	MethodSemantic = "semantic"
	MethodLexical  = "lexical"
	MethodFallback = "fallback"
)

// Passage is one ranked chunk returned by a document search.
type Passage struct {
	ChunkID    int64   `json:"chunk_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Method     string  `json:"method"`
}

// Texts returns the passage texts in order.
func Texts(passages []*Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Text
	}
	return out
}

// LibraryResult is a document-level hit from a search across all documents.
type LibraryResult struct {
	Document      *DocumentInfo `json:"document"`
	Score         float64       `json:"score"`
	KeywordScore  float64       `json:"keyword_score"`
	SemanticScore float64       `json:"semantic_score"`
	BestChunk     int           `json:"best_chunk_index"`
	Snippet       string        `json:"snippet,omitempty"`
	Rank          int           `json:"rank"`
}

// LibraryResponse is the response for a library-wide search.
type LibraryResponse struct {
	Results   []*LibraryResult `json:"results"`
	Total     int              `json:"total"`
	QueryTime int64            `json:"query_time_ms"`
	Query     string           `json:"query"`
}
