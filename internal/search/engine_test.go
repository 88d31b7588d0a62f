package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/pagewise/internal/docstore"
	"github.com/hyperjump/pagewise/internal/keyword"
	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/ranking"
)

type fakeStore struct {
	docs     map[string]*models.DocumentInfo
	chunks   map[int64]*models.Chunk
	semantic []*ranking.ScoredChunk
	err      error
	calls    atomic.Int32
}

func (f *fakeStore) SearchChunks(_ context.Context, _ string, _ int) ([]*ranking.ScoredChunk, error) {
	f.calls.Add(1)
	return f.semantic, f.err
}

func (f *fakeStore) Chunk(id int64) (*models.Chunk, bool) {
	c, ok := f.chunks[id]
	return c, ok
}

func (f *fakeStore) GetDocumentInfo(id string) (*models.DocumentInfo, bool) {
	d, ok := f.docs[id]
	return d, ok
}

// fixture holds doc a (chunks 1, 2) and doc b (chunk 3), indexed in bleve.
func fixture(t *testing.T) (*fakeStore, *keyword.BleveIndex) {
	t.Helper()
	store := &fakeStore{
		docs: map[string]*models.DocumentInfo{
			"a": {ID: "a", ChunkCount: 2},
			"b": {ID: "b", ChunkCount: 1},
		},
		chunks: map[int64]*models.Chunk{
			1: {ID: 1, DocumentID: "a", ChunkIndex: 0, Text: "margin of safety explained"},
			2: {ID: 2, DocumentID: "a", ChunkIndex: 1, Text: "other text entirely"},
			3: {ID: 3, DocumentID: "b", ChunkIndex: 0, Text: "margin call"},
		},
	}
	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })

	ctx := context.Background()
	require.NoError(t, kw.IndexChunks(ctx, store.docs["a"], []*models.Chunk{store.chunks[1], store.chunks[2]}))
	require.NoError(t, kw.IndexChunks(ctx, store.docs["b"], []*models.Chunk{store.chunks[3]}))
	return store, kw
}

func TestEngine_HybridSearch(t *testing.T) {
	store, kw := fixture(t)
	store.semantic = []*ranking.ScoredChunk{{Chunk: store.chunks[2], Score: 0.9}}
	engine := NewEngine(store, kw, Config{})

	resp, err := engine.Search(context.Background(), &models.LibraryQuery{Query: "margin"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "margin", resp.Query)

	top := resp.Results[0]
	assert.Equal(t, "a", top.Document.ID)
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, 0.9, top.SemanticScore)
	assert.Greater(t, top.KeywordScore, 0.0)
	assert.Equal(t, 1, top.BestChunk, "the semantic hit outweighs the keyword hit")
	assert.Equal(t, "other text entirely", top.Snippet)

	second := resp.Results[1]
	assert.Equal(t, "b", second.Document.ID)
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, "**margin** call", second.Snippet)
}

func TestEngine_KeywordOnly(t *testing.T) {
	store, kw := fixture(t)
	engine := NewEngine(store, kw, Config{})

	resp, err := engine.Search(context.Background(), &models.LibraryQuery{Query: "margin", KeywordEnabled: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
	assert.Equal(t, int32(0), store.calls.Load(), "semantic search must not run")
}

func TestEngine_SemanticUnavailableDegrades(t *testing.T) {
	store, kw := fixture(t)
	store.err = &docstore.EmbeddingError{Op: "embed query", Err: errors.New("no embedder")}
	engine := NewEngine(store, kw, Config{})

	resp, err := engine.Search(context.Background(), &models.LibraryQuery{Query: "margin"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, 0.0, r.SemanticScore)
	}
}

func TestEngine_SkipsStaleKeywordHits(t *testing.T) {
	store, kw := fixture(t)
	require.NoError(t, kw.IndexChunks(context.Background(), &models.DocumentInfo{ID: "gone"},
		[]*models.Chunk{{ID: 9, DocumentID: "gone", Text: "margin leftovers"}}))
	engine := NewEngine(store, kw, Config{})

	resp, err := engine.Search(context.Background(), &models.LibraryQuery{Query: "margin", KeywordEnabled: true})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.NotEqual(t, "gone", r.Document.ID)
	}
	assert.Equal(t, 2, resp.Total)
}

func TestEngine_LimitAndMinScore(t *testing.T) {
	store, kw := fixture(t)
	engine := NewEngine(store, kw, Config{})
	ctx := context.Background()

	resp, err := engine.Search(ctx, &models.LibraryQuery{Query: "margin", KeywordEnabled: true, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 2, resp.Total)

	resp, err = engine.Search(ctx, &models.LibraryQuery{Query: "margin", KeywordEnabled: true, MinScore: 1.0})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, len(resp.Results), resp.Total)
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Score, 1.0)
	}
}

func TestEngine_WithoutKeywordIndex(t *testing.T) {
	store, _ := fixture(t)
	store.semantic = []*ranking.ScoredChunk{{Chunk: store.chunks[2], Score: 0.9}}
	engine := NewEngine(store, nil, Config{})

	resp, err := engine.Search(context.Background(), &models.LibraryQuery{Query: "anything"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].Document.ID)
	assert.InDelta(t, 0.63, resp.Results[0].Score, 1e-9)
}

func TestEngine_Validation(t *testing.T) {
	store, kw := fixture(t)
	engine := NewEngine(store, kw, Config{})

	_, err := engine.Search(context.Background(), &models.LibraryQuery{Query: "  "})
	assert.True(t, errors.Is(err, docstore.ErrValidation))

	_, err = engine.Search(context.Background(), nil)
	assert.True(t, errors.Is(err, docstore.ErrValidation))
}

func TestEngine_ConfigDefaults(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, Config{KeywordWeight: 1})
	cfg := engine.Config()
	assert.Equal(t, 10, cfg.DefaultLimit)
	assert.Equal(t, 100, cfg.MaxLimit)
	assert.Equal(t, 50, cfg.Candidates)
	assert.Equal(t, 1.0, cfg.KeywordWeight)
	assert.Equal(t, 0.0, cfg.SemanticWeight)
}

func TestEngine_WithDocumentStore(t *testing.T) {
	ctx := context.Background()
	store, err := docstore.Open(ctx, docstore.Config{}, nil)
	require.NoError(t, err)
	defer store.Close()

	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	defer kw.Close()
	store.AddHook(kw)

	require.NoError(t, store.IngestDocument(ctx, &models.DocumentInput{
		ID:    "guide",
		Title: "Investing Guide",
		Chunks: []string{
			"Mr. Market is moody.",
			"Dividend policy matters to the defensive investor.",
		},
	}))
	require.NoError(t, store.Ingest(ctx, "other", []string{"Nothing relevant here."}))

	engine := NewEngine(store, kw, Config{})
	resp, err := engine.Search(ctx, &models.LibraryQuery{Query: "dividend"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "guide", resp.Results[0].Document.ID)
	assert.Equal(t, 1, resp.Results[0].BestChunk)
	assert.Contains(t, resp.Results[0].Snippet, "**Dividend**")

	_, err = store.Delete(ctx, "guide")
	require.NoError(t, err)
	resp, err = engine.Search(ctx, &models.LibraryQuery{Query: "dividend"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}
