// Package ranking provides the lexical passage scorer used when semantic search is unavailable.
package ranking

import "github.com/hyperjump/pagewise/internal/models"

// AnalyzedQuery holds the parsed form of a passage query.
type AnalyzedQuery struct {
	// Original is the query as given.
	Original string
	// Lower is the lowercased query.
	Lower string
	// Words are the distinct lowercase whitespace-delimited words, in query order.
	Words []string
	// Pages are page numbers referenced as "page N", "pg N" or "p. N".
	Pages []int
	// Numbers are all standalone digit runs in the query.
	Numbers []string
}

// ScoredChunk is a chunk with its lexical score.
type ScoredChunk struct {
	Chunk *models.Chunk
	Score float64
}
