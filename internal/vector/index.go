// Package vector provides the append-only embedding index used for semantic passage search.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector or a persisted index does not match the
// index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index stores normalized vectors in insertion order. Position p maps to the chunk id
// passed at p. Entries are never removed in place; stale ids are hidden by the keep
// filter and dropped by rebuilding the index.
type Index interface {
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	// Search ranks the positions whose id passes keep (nil keeps all) by inner product.
	Search(ctx context.Context, query []float32, k int, keep func(id int64) bool) ([]Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	IDs() []int64
	Close() error
}

// Result is a single vector search hit.
type Result struct {
	ID       int64
	Position int
	Score    float64 // inner product; cosine similarity for normalized vectors
}
