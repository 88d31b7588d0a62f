// Package models defines core data structures for documents, chunks, passages and stats.
package models

import "time"

// Chunk is a bounded segment of a document's text, the unit of indexing and retrieval.
// Embedding is nil when no vector was produced for the chunk.
type Chunk struct {
	ID         int64     `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Text       string    `json:"text" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Embedding  []float32 `json:"-" db:"embedding"`
}

// HasEmbedding reports whether a vector is stored for the chunk.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Document is the record of an ingested document. It is never mutated after ingest;
// re-ingesting the same ID replaces it.
type Document struct {
	ID            string            `json:"id" db:"id"`
	Title         string            `json:"title,omitempty" db:"title"`
	ChunkIDs      []int64           `json:"chunk_ids" db:"-"`
	ChunkCount    int               `json:"chunk_count" db:"chunk_count"`
	AddedAt       time.Time         `json:"added_at" db:"added_at"`
	HasEmbeddings bool              `json:"has_embeddings" db:"has_embeddings"`
	Metadata      map[string]string `json:"metadata,omitempty" db:"metadata"`
}

// Info returns the read-only view of the document.
func (d *Document) Info() *DocumentInfo {
	info := &DocumentInfo{
		ID:            d.ID,
		Title:         d.Title,
		ChunkCount:    d.ChunkCount,
		AddedAt:       d.AddedAt,
		HasEmbeddings: d.HasEmbeddings,
	}
	if len(d.Metadata) > 0 {
		info.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			info.Metadata[k] = v
		}
	}
	return info
}

// DocumentInfo is what callers see of a document.
type DocumentInfo struct {
	ID            string            `json:"id"`
	Title         string            `json:"title,omitempty"`
	ChunkCount    int               `json:"chunk_count"`
	AddedAt       time.Time         `json:"added_at"`
	HasEmbeddings bool              `json:"has_embeddings"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DocumentInput is the input for ingesting a document whose text is already chunked.
type DocumentInput struct {
	ID       string            `json:"id,omitempty"`
	Title    string            `json:"title,omitempty"`
	Chunks   []string          `json:"chunks"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Snapshot is the durable form of the store metadata. The vector index is a separate artifact.
type Snapshot struct {
	Documents           map[string]*Document
	Chunks              map[int64]*Chunk
	NextChunkID         int64
	EmbeddingDimensions int
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Documents: make(map[string]*Document),
		Chunks:    make(map[int64]*Chunk),
	}
}

// Stats summarizes the store.
type Stats struct {
	TotalDocuments       int     `json:"total_documents"`
	TotalChunks          int     `json:"total_chunks"`
	HasEmbeddings        bool    `json:"has_embeddings"`
	HasIndex             bool    `json:"has_index"`
	AvgChunksPerDocument float64 `json:"avg_chunks_per_document"`
	EmbeddingModel       string  `json:"embedding_model,omitempty"`
	IndexSize            int     `json:"index_size"`
	OrphanedVectors      int     `json:"orphaned_vectors"`
}
