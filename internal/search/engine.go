package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/docstore"
	"github.com/hyperjump/pagewise/internal/keyword"
	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/ranking"
)

// Config tunes library-wide search.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	// Candidates is how many chunks each retriever contributes before fusion.
	Candidates     int
	KeywordWeight  float64
	SemanticWeight float64
	TitleBoost     float64
	SnippetLength  int
}

// DefaultConfig returns the search defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:   10,
		MaxLimit:       100,
		Candidates:     50,
		KeywordWeight:  0.3,
		SemanticWeight: 0.7,
		TitleBoost:     2.0,
		SnippetLength:  240,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.Candidates <= 0 {
		c.Candidates = d.Candidates
	}
	if c.KeywordWeight <= 0 && c.SemanticWeight <= 0 {
		c.KeywordWeight, c.SemanticWeight = d.KeywordWeight, d.SemanticWeight
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = d.SnippetLength
	}
}

// ChunkStore is the part of the document store the engine reads.
type ChunkStore interface {
	SearchChunks(ctx context.Context, query string, k int) ([]*ranking.ScoredChunk, error)
	Chunk(id int64) (*models.Chunk, bool)
	GetDocumentInfo(documentID string) (*models.DocumentInfo, bool)
}

// Engine runs hybrid (keyword + semantic) search across every stored document.
type Engine struct {
	store        ChunkStore
	keywordIndex keyword.KeywordIndex
	config       Config
	logger       *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a search engine. keywordIndex may be nil, in which case only
// semantic search runs.
func NewEngine(store ChunkStore, keywordIndex keyword.KeywordIndex, cfg Config, opts ...EngineOption) *Engine {
	cfg.applyDefaults()
	e := &Engine{
		store:        store,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Search runs hybrid search and returns document-level results. Semantic search that is
// unavailable (no embedder, embedding failure) degrades to keyword-only results.
func (e *Engine) Search(ctx context.Context, query *models.LibraryQuery) (*models.LibraryResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*ranking.ScoredChunk
		keywordErr      error
		wg              sync.WaitGroup
	)

	if query.KeywordEnabled && e.keywordIndex != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keywordIndex.Search(ctx, query.Query, e.config.Candidates, &keyword.SearchOptions{
				TitleBoost:   e.config.TitleBoost,
				FuzzyEnabled: query.FuzzyEnabled,
			})
			if err != nil {
				keywordErr = fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if query.SemanticEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.store.SearchChunks(ctx, query.Query, e.config.Candidates)
			if err != nil {
				if errors.Is(err, docstore.ErrEmbedding) {
					e.logger.Debug("semantic search unavailable, using keyword results", zap.Error(err))
					return
				}
				e.logger.Warn("semantic search failed", zap.Error(err))
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	if keywordErr != nil {
		return nil, keywordErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunkToDoc := make(map[int64]string, len(keywordResults)+len(semanticResults))
	live := keywordResults[:0]
	for _, r := range keywordResults {
		// The keyword index can lag the store; only live chunks count.
		c, ok := e.store.Chunk(r.ChunkID)
		if !ok {
			continue
		}
		chunkToDoc[r.ChunkID] = c.DocumentID
		live = append(live, r)
	}
	for _, r := range semanticResults {
		chunkToDoc[r.Chunk.ID] = r.Chunk.DocumentID
	}

	keywordWeight, semanticWeight := e.weights(query)
	fused := Fuse(NormalizeKeywordScores(live), SemanticScores(semanticResults), chunkToDoc, keywordWeight, semanticWeight)

	if query.MinScore > 0 {
		filtered := fused[:0]
		for _, r := range fused {
			if r.Score >= query.MinScore {
				filtered = append(filtered, r)
			}
		}
		fused = filtered
	}

	response := &models.LibraryResponse{
		Results: make([]*models.LibraryResult, 0, min(len(fused), query.Limit)),
		Query:   query.Query,
	}
	for _, f := range fused {
		if len(response.Results) == query.Limit {
			break
		}
		doc, ok := e.store.GetDocumentInfo(f.DocumentID)
		if !ok {
			continue
		}
		result := &models.LibraryResult{
			Document:      doc,
			Score:         f.Score,
			KeywordScore:  f.KeywordScore,
			SemanticScore: f.SemanticScore,
			Rank:          len(response.Results) + 1,
		}
		if c, ok := e.store.Chunk(f.BestChunkID); ok {
			result.BestChunk = c.ChunkIndex
			result.Snippet = Highlight(c.Text, query.Query, e.config.SnippetLength)
		}
		response.Results = append(response.Results, result)
	}
	response.Total = len(fused)
	response.QueryTime = time.Since(startTime).Milliseconds()

	e.logger.Debug("library search",
		zap.String("query", query.Query),
		zap.Int("keyword_hits", len(live)),
		zap.Int("semantic_hits", len(semanticResults)),
		zap.Int("results", len(response.Results)))
	return response, nil
}

// weights returns the fusion weights for the retrievers the query enabled. A single
// retriever gets the full weight so its scores stay in [0,1].
func (e *Engine) weights(query *models.LibraryQuery) (float64, float64) {
	switch {
	case query.KeywordEnabled && !query.SemanticEnabled:
		return 1, 0
	case query.SemanticEnabled && !query.KeywordEnabled:
		return 0, 1
	}
	return e.config.KeywordWeight, e.config.SemanticWeight
}
