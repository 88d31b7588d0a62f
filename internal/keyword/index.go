// Package keyword provides a library-wide keyword (BM25) index over stored chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/pagewise/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the document title.
	// Use 1.0 (or zero) for no boost.
	TitleBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// KeywordIndex defines keyword search operations over chunks.
type KeywordIndex interface {
	// IndexChunks replaces every indexed chunk of doc with chunks.
	IndexChunks(ctx context.Context, doc *models.DocumentInfo, chunks []*models.Chunk) error
	DeleteDocument(ctx context.Context, documentID string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// DocCount returns the number of indexed chunks.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ChunkID    int64
	DocumentID string
	Score      float64
}

// ChunkSource lists the stored documents and their chunks, for rebuilding the index.
type ChunkSource interface {
	ListDocuments() []*models.DocumentInfo
	Chunks(documentID string, limit int) ([]*models.Chunk, bool)
}
