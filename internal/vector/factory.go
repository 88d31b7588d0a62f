package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

// IndexTypeMemory uses in-memory brute-force search. Good for per-document search over a
// few hundred thousand chunks.
const IndexTypeMemory IndexType = "memory"

// NewIndex creates a vector index of the specified type. Only "memory" (the default) is supported.
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory)", indexType)
	}
}
