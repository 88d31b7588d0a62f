package docstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/vector"
	"github.com/hyperjump/pagewise/pkg/utils"
)

// Compact rebuilds the vector index from the stored embeddings of live chunks, dropping
// positions left behind by deleted or replaced documents. It returns how many positions
// were removed.
func (s *Store) Compact(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return 0, nil
	}

	ids := s.index.IDs()
	keepIDs := make([]int64, 0, len(ids))
	keepVecs := make([][]float32, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	lost := make(map[string]struct{})
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c, ok := s.chunks[id]
		if !ok {
			continue
		}
		if !c.HasEmbedding() {
			lost[c.DocumentID] = struct{}{}
			continue
		}
		keepIDs = append(keepIDs, id)
		keepVecs = append(keepVecs, c.Embedding)
	}
	removed := len(ids) - len(keepIDs)
	if removed == 0 {
		return 0, nil
	}

	idx, err := vector.Rebuild(s.dims, keepIDs, keepVecs)
	if err != nil {
		return 0, fmt.Errorf("rebuild vector index: %w", err)
	}
	_ = s.index.Close()
	s.index = idx
	for docID := range lost {
		if doc, ok := s.documents[docID]; ok && doc.HasEmbeddings {
			s.documents[docID] = withEmbeddings(doc, false)
		}
	}
	s.logger.Info("compacted vector index",
		zap.Int("removed", removed), zap.Int("size", idx.Size()), zap.Int("downgraded_documents", len(lost)))
	return removed, s.persistLocked(ctx)
}

type reindexJob struct {
	doc     *models.Document
	chunks  []*models.Chunk
	pending []int // positions in chunks without a stored embedding
}

// Reindex restores semantic search for documents whose vectors were lost, reusing stored
// chunk embeddings and embedding the rest. It returns how many documents were restored.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	s.mu.RLock()
	if s.index == nil {
		s.mu.RUnlock()
		return 0, nil
	}
	var jobs []*reindexJob
	for _, doc := range s.documents {
		if doc.HasEmbeddings || len(doc.ChunkIDs) == 0 {
			continue
		}
		job := &reindexJob{doc: doc, chunks: s.documentChunks(doc)}
		for i, c := range job.chunks {
			if !c.HasEmbedding() {
				job.pending = append(job.pending, i)
			}
		}
		jobs = append(jobs, job)
	}
	s.mu.RUnlock()
	if len(jobs) == 0 {
		return 0, nil
	}

	vectors := make(map[int64][]float32)
	for _, job := range jobs {
		texts := make([]string, len(job.pending))
		for i, p := range job.pending {
			texts[i] = job.chunks[p].Text
		}
		embedded := s.embedChunks(ctx, job.doc.ID, texts)
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for i, p := range job.pending {
			if i < len(embedded) && embedded[i] != nil {
				vectors[job.chunks[p].ID] = embedded[i]
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	indexed := make(map[int64]struct{}, s.index.Size())
	for _, id := range s.index.IDs() {
		indexed[id] = struct{}{}
	}

	restored := 0
	for _, job := range jobs {
		if s.documents[job.doc.ID] != job.doc {
			continue // replaced or deleted meanwhile
		}
		var ids []int64
		var vecs [][]float32
		for _, c := range job.chunks {
			if v, ok := vectors[c.ID]; ok {
				cp := *c
				cp.Embedding = utils.NormalizedCopy(v)
				s.chunks[c.ID] = &cp
				c = &cp
			}
			if !c.HasEmbedding() {
				continue
			}
			if _, ok := indexed[c.ID]; ok {
				continue
			}
			ids = append(ids, c.ID)
			vecs = append(vecs, c.Embedding)
			indexed[c.ID] = struct{}{}
		}
		if len(ids) > 0 {
			if err := s.index.Add(context.WithoutCancel(ctx), ids, vecs); err != nil {
				s.logger.Warn("reindex failed", zap.String("document_id", job.doc.ID),
					zap.Error(&EmbeddingError{Op: "add vectors", Err: err}))
				continue
			}
		}
		if s.fullyIndexed(job.doc, indexed) {
			s.documents[job.doc.ID] = withEmbeddings(job.doc, true)
			restored++
		}
	}
	s.logger.Info("reindexed documents", zap.Int("restored", restored), zap.Int("candidates", len(jobs)))
	if restored == 0 {
		return 0, nil
	}
	return restored, s.persistLocked(ctx)
}
