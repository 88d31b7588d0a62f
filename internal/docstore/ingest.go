package docstore

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/pkg/utils"
)

// Ingest registers documentID with the given chunk texts, replacing any previous version.
func (s *Store) Ingest(ctx context.Context, documentID string, chunks []string) error {
	return s.IngestDocument(ctx, &models.DocumentInput{ID: documentID, Chunks: chunks})
}

// IngestDocument stores a document and its chunks. Chunks are embedded before the store
// is locked; a chunk that fails to embed is kept without a vector. A cancelled context
// aborts before anything changes. Ingesting an existing id replaces that document and
// leaves its old vectors in the index until Compact.
//
// A *PersistenceError means the document was ingested in memory but not written to disk.
func (s *Store) IngestDocument(ctx context.Context, in *models.DocumentInput) error {
	if in == nil {
		return &ValidationError{Field: "document", Reason: "must not be nil"}
	}
	if err := ValidateDocumentID(in.ID); err != nil {
		return err
	}

	texts := make([]string, 0, len(in.Chunks))
	for _, t := range in.Chunks {
		if strings.TrimSpace(t) != "" {
			texts = append(texts, t)
		}
	}
	if skipped := len(in.Chunks) - len(texts); skipped > 0 {
		s.logger.Debug("skipped blank chunks", zap.String("document_id", in.ID), zap.Int("skipped", skipped))
	}

	vectors := s.embedChunks(ctx, in.ID, texts)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	doc, chunks, err := s.commitLocked(ctx, in, texts, vectors)
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	s.logger.Info("ingested document",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", doc.ChunkCount),
		zap.Bool("has_embeddings", doc.HasEmbeddings))

	info := doc.Info()
	for _, h := range hooks {
		if herr := h.DocumentIngested(ctx, info, chunks); herr != nil {
			s.logger.Warn("ingest hook failed", zap.String("document_id", doc.ID), zap.Error(herr))
		}
	}
	return err
}

func (s *Store) commitLocked(ctx context.Context, in *models.DocumentInput, texts []string, vectors [][]float32) (*models.Document, []*models.Chunk, error) {
	now := s.now()
	if old, ok := s.documents[in.ID]; ok {
		for _, id := range old.ChunkIDs {
			delete(s.chunks, id)
		}
		s.logger.Debug("replacing document", zap.String("document_id", in.ID), zap.Int("old_chunks", len(old.ChunkIDs)))
	}

	doc := &models.Document{
		ID:         in.ID,
		Title:      in.Title,
		ChunkIDs:   make([]int64, 0, len(texts)),
		ChunkCount: len(texts),
		AddedAt:    now,
	}
	if len(in.Metadata) > 0 {
		doc.Metadata = make(map[string]string, len(in.Metadata))
		for k, v := range in.Metadata {
			doc.Metadata[k] = v
		}
	}

	chunks := make([]*models.Chunk, len(texts))
	var ids []int64
	var vecs [][]float32
	for i, text := range texts {
		c := &models.Chunk{
			ID:         s.nextChunkID,
			DocumentID: in.ID,
			Text:       text,
			ChunkIndex: i,
			CreatedAt:  now,
		}
		s.nextChunkID++
		if i < len(vectors) && vectors[i] != nil {
			c.Embedding = utils.NormalizedCopy(vectors[i])
			ids = append(ids, c.ID)
			vecs = append(vecs, c.Embedding)
		}
		s.chunks[c.ID] = c
		doc.ChunkIDs = append(doc.ChunkIDs, c.ID)
		chunks[i] = c
	}

	if len(ids) > 0 && s.index != nil {
		if err := s.index.Add(context.WithoutCancel(ctx), ids, vecs); err != nil {
			s.logger.Warn("failed to index chunk vectors", zap.String("document_id", in.ID),
				zap.Error(&EmbeddingError{Op: "add vectors", Err: err}))
			for _, c := range chunks {
				c.Embedding = nil
			}
		} else {
			doc.HasEmbeddings = true
		}
	}
	s.documents[doc.ID] = doc

	return doc, chunks, s.persistLocked(ctx)
}

// embedChunks returns one vector per text, nil where embedding failed. It returns nil
// when the store has no index or the context is done.
func (s *Store) embedChunks(ctx context.Context, documentID string, texts []string) [][]float32 {
	if s.embedder == nil || s.dims == 0 || len(texts) == 0 {
		return nil
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		return s.checkDimensions(documentID, vectors)
	}
	if ctx.Err() != nil {
		return nil
	}
	s.logger.Warn("batch embedding failed, embedding chunks one by one",
		zap.String("document_id", documentID), zap.Error(&EmbeddingError{Op: "embed batch", Err: err}))

	vectors = make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.embedder.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("chunk embedding failed", zap.String("document_id", documentID),
				zap.Int("chunk_index", i), zap.Error(&EmbeddingError{Op: "embed chunk", Err: err}))
			continue
		}
		vectors[i] = v
	}
	return s.checkDimensions(documentID, vectors)
}

func (s *Store) checkDimensions(documentID string, vectors [][]float32) [][]float32 {
	for i, v := range vectors {
		if v != nil && len(v) != s.dims {
			s.logger.Warn("embedding has wrong dimension", zap.String("document_id", documentID),
				zap.Int("chunk_index", i), zap.Int("got", len(v)), zap.Int("want", s.dims))
			vectors[i] = nil
		}
	}
	return vectors
}

// Delete removes the document and its chunk metadata. Its vectors stay in the index,
// hidden from searches, until Compact. It returns false when the document is unknown.
func (s *Store) Delete(ctx context.Context, documentID string) (bool, error) {
	if err := ValidateDocumentID(documentID); err != nil {
		return false, err
	}

	s.mu.Lock()
	doc, ok := s.documents[documentID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	for _, id := range doc.ChunkIDs {
		delete(s.chunks, id)
	}
	delete(s.documents, documentID)
	err := s.persistLocked(ctx)
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	s.logger.Info("deleted document", zap.String("document_id", documentID), zap.Int("chunks", len(doc.ChunkIDs)))
	for _, h := range hooks {
		if herr := h.DocumentDeleted(ctx, documentID); herr != nil {
			s.logger.Warn("delete hook failed", zap.String("document_id", documentID), zap.Error(herr))
		}
	}
	return true, err
}
