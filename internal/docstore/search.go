package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/ranking"
	"github.com/hyperjump/pagewise/internal/vector"
)

var (
	errNoVectors  = errors.New("no indexed vectors for document")
	errNoEmbedder = errors.New("no embedder configured")
)

// Search returns the texts of the topK passages of documentID most relevant to query.
// An unknown document yields an empty result. Only validation errors are returned.
func (s *Store) Search(ctx context.Context, documentID, query string, topK int) ([]string, error) {
	passages, err := s.SearchPassages(ctx, documentID, query, topK)
	if err != nil {
		return nil, err
	}
	return models.Texts(passages), nil
}

// SearchPassages is Search with chunk ids, scores and the retrieval method.
func (s *Store) SearchPassages(ctx context.Context, documentID, query string, topK int) ([]*models.Passage, error) {
	if err := ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	if err := validateQuery(query, topK); err != nil {
		return nil, err
	}

	s.mu.RLock()
	doc, ok := s.documents[documentID]
	if !ok {
		s.mu.RUnlock()
		s.logger.Debug("search on unknown document", zap.String("document_id", documentID))
		return []*models.Passage{}, nil
	}
	chunks := s.documentChunks(doc)
	index := s.index
	semantic := doc.HasEmbeddings && index != nil && s.embedder != nil
	s.mu.RUnlock()

	if semantic {
		passages, err := s.semanticSearch(ctx, index, chunks, query, topK)
		if err == nil {
			return passages, nil
		}
		s.logger.Warn("semantic search failed, using lexical scoring",
			zap.String("document_id", documentID), zap.Error(err))
	}
	return lexicalPassages(s.scorer.Rank(query, chunks, topK)), nil
}

func (s *Store) semanticSearch(ctx context.Context, index vector.Index, chunks []*models.Chunk, query string, topK int) ([]*models.Passage, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingError{Op: "embed query", Err: err}
	}
	byID := make(map[int64]*models.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	results, err := index.Search(ctx, qv, topK, func(id int64) bool {
		_, ok := byID[id]
		return ok
	})
	if err != nil {
		return nil, &EmbeddingError{Op: "search vector index", Err: err}
	}
	if len(results) == 0 {
		return nil, &EmbeddingError{Op: "search vector index", Err: errNoVectors}
	}

	passages := make([]*models.Passage, 0, len(results))
	for _, r := range results {
		if r.Score <= s.cfg.MinSimilarity {
			continue
		}
		c := byID[r.ID]
		passages = append(passages, &models.Passage{
			ChunkID:    c.ID,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
			Score:      r.Score,
			Method:     models.MethodSemantic,
		})
	}
	s.logger.Debug("semantic search", zap.Int("candidates", len(results)), zap.Int("passages", len(passages)))
	return passages, nil
}

func lexicalPassages(ranked []*ranking.ScoredChunk) []*models.Passage {
	passages := make([]*models.Passage, len(ranked))
	for i, r := range ranked {
		passages[i] = &models.Passage{
			ChunkID:    r.Chunk.ID,
			ChunkIndex: r.Chunk.ChunkIndex,
			Text:       r.Chunk.Text,
			Score:      r.Score,
			Method:     models.MethodLexical,
		}
	}
	return passages
}

// SearchPage searches for passages on a given page by prefixing "page N" to the question,
// which lets the lexical scorer's page markers and the embedder both see the page.
func (s *Store) SearchPage(ctx context.Context, documentID string, page int, question string, topK int) ([]*models.Passage, error) {
	if page <= 0 {
		return nil, &ValidationError{Field: "page", Reason: fmt.Sprintf("must be positive, got %d", page)}
	}
	query := strings.TrimSpace(fmt.Sprintf("page %d %s", page, question))
	return s.SearchPassages(ctx, documentID, query, topK)
}

// Context returns the passages to hand to an answering model: the search results, or the
// leading chunks of the document when the search finds nothing.
func (s *Store) Context(ctx context.Context, documentID, query string, topK int) ([]string, error) {
	passages, err := s.SearchPassages(ctx, documentID, query, topK)
	if err != nil {
		return nil, err
	}
	if len(passages) > 0 {
		return models.Texts(passages), nil
	}
	chunks, ok := s.Chunks(documentID, s.cfg.ContextFallback)
	if !ok {
		return []string{}, nil
	}
	s.logger.Debug("no passages found, using leading chunks",
		zap.String("document_id", documentID), zap.Int("chunks", len(chunks)))
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out, nil
}

// SearchChunks runs a semantic search over the live chunks of every embedded document.
// It returns an *EmbeddingError when semantic search is unavailable or fails.
func (s *Store) SearchChunks(ctx context.Context, query string, k int) ([]*ranking.ScoredChunk, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}
	if s.embedder == nil || s.dims == 0 {
		return nil, &EmbeddingError{Op: "embed query", Err: errNoEmbedder}
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingError{Op: "embed query", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	results, err := s.index.Search(ctx, qv, k, func(id int64) bool {
		c, ok := s.chunks[id]
		if !ok {
			return false
		}
		doc, ok := s.documents[c.DocumentID]
		return ok && doc.HasEmbeddings
	})
	if err != nil {
		return nil, &EmbeddingError{Op: "search vector index", Err: err}
	}
	out := make([]*ranking.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Score <= s.cfg.MinSimilarity {
			continue
		}
		out = append(out, &ranking.ScoredChunk{Chunk: s.chunks[r.ID], Score: r.Score})
	}
	return out, nil
}
