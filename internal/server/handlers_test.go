package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/pagewise/internal/config"
	"github.com/hyperjump/pagewise/internal/docstore"
	"github.com/hyperjump/pagewise/internal/extract"
	"github.com/hyperjump/pagewise/internal/indexer"
	"github.com/hyperjump/pagewise/internal/keyword"
	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/search"
)

func newTestServer(t *testing.T) (http.Handler, *docstore.Store) {
	t.Helper()
	ctx := context.Background()
	store, err := docstore.Open(ctx, docstore.Config{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })
	store.AddHook(kw)

	chunker, err := indexer.NewChunker(200, 20)
	require.NoError(t, err)
	idx := indexer.NewIndexer(store, chunker, extract.NewExtractor())

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.MaxUploadMB = 1
	cfg.Keyword.IndexPath = ""

	engine := search.NewEngine(store, kw, search.Config{})
	srv := NewServer(store, engine, idx, cfg, nil)
	return srv.Handler(), store
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(out), w.Body.String())
}

func ingestChunks(t *testing.T, store *docstore.Store, id string, chunks ...string) {
	t.Helper()
	require.NoError(t, store.Ingest(context.Background(), id, chunks))
}

func TestHealth(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "book", "some text")

	w := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]interface{}
	decode(t, w, &out)
	assert.Equal(t, "ok", out["status"])
	assert.EqualValues(t, 1, out["documents"])
	assert.Equal(t, false, out["has_embeddings"])
	assert.Contains(t, out, "disk_usage_bytes")
}

func TestStatsAndList(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "b", "one", "two")
	ingestChunks(t, store, "a", "three")

	w := do(t, h, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.Stats
	decode(t, w, &stats)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 3, stats.TotalChunks)

	w = do(t, h, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Documents []*models.DocumentInfo `json:"documents"`
		Total     int                    `json:"total"`
	}
	decode(t, w, &list)
	require.Len(t, list.Documents, 2)
	assert.Equal(t, "a", list.Documents[0].ID)
	assert.Equal(t, 2, list.Total)
}

func TestIngestDocument(t *testing.T) {
	h, store := newTestServer(t)

	t.Run("text is chunked", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/documents", map[string]interface{}{
			"id":    "notes",
			"title": "Notes",
			"text":  strings.Repeat("The margin of safety protects the investor. ", 20),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var res indexer.Result
		decode(t, w, &res)
		assert.Equal(t, "notes", res.DocumentID)
		assert.Greater(t, res.ChunkCount, 1)
		info, ok := store.GetDocumentInfo("notes")
		require.True(t, ok)
		assert.Equal(t, "Notes", info.Title)
	})

	t.Run("chunks are kept as given with a generated id", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/documents", map[string]interface{}{
			"chunks": []string{"first chunk", "second chunk"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var res indexer.Result
		decode(t, w, &res)
		assert.NotEmpty(t, res.DocumentID)
		assert.Equal(t, 2, res.ChunkCount)
	})

	t.Run("empty body", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/documents", map[string]interface{}{"id": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/documents", map[string]interface{}{
			"id": "bad\x01id", "chunks": []string{"text"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("{"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetAndDeleteDocument(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "book", "chapter one")

	w := do(t, h, http.MethodGet, "/api/v1/documents/book", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.DocumentInfo
	decode(t, w, &info)
	assert.Equal(t, "book", info.ID)
	assert.Equal(t, 1, info.ChunkCount)

	w = do(t, h, http.MethodDelete, "/api/v1/documents/book", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/documents/book", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodDelete, "/api/v1/documents/book", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChunks(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "book", "c0", "c1", "c2")

	w := do(t, h, http.MethodGet, "/api/v1/documents/book/chunks?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Chunks []*models.Chunk `json:"chunks"`
	}
	decode(t, w, &out)
	require.Len(t, out.Chunks, 2)
	assert.Equal(t, "c0", out.Chunks[0].Text)

	w = do(t, h, http.MethodGet, "/api/v1/documents/book/chunks?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/documents/missing/chunks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentSearch(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "book",
		"Mr. Market is your servant, not your guide.",
		"The margin of safety is the central concept of investment.",
	)

	w := do(t, h, http.MethodPost, "/api/v1/documents/book/search", models.PassageQuery{Query: "margin of safety", TopK: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out passagesResponse
	decode(t, w, &out)
	require.Len(t, out.Passages, 1)
	assert.Contains(t, out.Passages[0].Text, "margin of safety")
	assert.Equal(t, models.MethodLexical, out.Passages[0].Method)

	w = do(t, h, http.MethodPost, "/api/v1/documents/unknown/search", models.PassageQuery{Query: "margin"})
	require.Equal(t, http.StatusOK, w.Code)
	out = passagesResponse{}
	decode(t, w, &out)
	assert.Empty(t, out.Passages)

	w = do(t, h, http.MethodPost, "/api/v1/documents/book/search", models.PassageQuery{Query: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPageSearch(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "book",
		"--- Page 6 ---\nDefensive investors should diversify.",
		"--- Page 7 ---\nEnterprising investors may take more risk.",
	)

	w := do(t, h, http.MethodPost, "/api/v1/documents/book/page", models.PageQuery{Page: 7, Question: "what is here"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out passagesResponse
	decode(t, w, &out)
	require.NotEmpty(t, out.Passages)
	assert.Contains(t, out.Passages[0].Text, "--- Page 7 ---")
	assert.Equal(t, "page 7 what is here", out.Query)

	w = do(t, h, http.MethodPost, "/api/v1/documents/book/page", models.PageQuery{Page: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLibrarySearch(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "graham", "The margin of safety is the central concept of investment.")
	ingestChunks(t, store, "fisher", "Scuttlebutt research on growth companies.")

	w := do(t, h, http.MethodPost, "/api/v1/search", models.LibraryQuery{Query: "margin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.LibraryResponse
	decode(t, w, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "graham", resp.Results[0].Document.ID)
	assert.Contains(t, resp.Results[0].Snippet, "**margin**")

	w = do(t, h, http.MethodPost, "/api/v1/search", models.LibraryQuery{Query: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaintenance(t *testing.T) {
	h, store := newTestServer(t)
	ingestChunks(t, store, "book", "text")

	w := do(t, h, http.MethodPost, "/api/v1/maintenance/compact", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var compact map[string]int
	decode(t, w, &compact)
	assert.Equal(t, 0, compact["removed"])

	w = do(t, h, http.MethodPost, "/api/v1/maintenance/reindex", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reindex map[string]int
	decode(t, w, &reindex)
	assert.Equal(t, 0, reindex["reindexed"])
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func upload(h http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	h, store := newTestServer(t)

	body, ct := multipartBody(t, "Security Analysis.md", []byte("Security analysis looks for value below price, with a margin of safety."))
	w := upload(h, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res indexer.Result
	decode(t, w, &res)
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, 1, res.ChunkCount)

	info, ok := store.GetDocumentInfo(res.DocumentID)
	require.True(t, ok)
	assert.Equal(t, "Security Analysis", info.Title)
	assert.Equal(t, "Security Analysis.md", info.Metadata["filename"])
	assert.Equal(t, "md", info.Metadata[indexer.MetaSourceType])
}

func TestUpload_rejected(t *testing.T) {
	h, _ := newTestServer(t)

	body, ct := multipartBody(t, "virus.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, upload(h, body, ct).Code)

	body, ct = multipartBody(t, "empty.txt", []byte("   "))
	assert.Equal(t, http.StatusUnprocessableEntity, upload(h, body, ct).Code)

	body, ct = multipartBody(t, "big.txt", bytes.Repeat([]byte("a"), 1<<20+10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload(h, body, ct).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader("not multipart"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
