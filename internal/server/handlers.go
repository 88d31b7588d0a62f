package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/docstore"
	"github.com/hyperjump/pagewise/internal/extract"
	"github.com/hyperjump/pagewise/internal/indexer"
	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/storage"
)

const defaultChunkPreview = 10

// ingestRequest is the body of POST /api/v1/documents. Text is chunked by the server;
// Chunks are ingested as given.
type ingestRequest struct {
	ID       string            `json:"id,omitempty"`
	Title    string            `json:"title,omitempty"`
	Text     string            `json:"text,omitempty"`
	Chunks   []string          `json:"chunks,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type passagesResponse struct {
	DocumentID string            `json:"document_id"`
	Query      string            `json:"query"`
	Passages   []*models.Passage `json:"passages"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.store.GetStats()
	resp := map[string]interface{}{
		"status":          "ok",
		"documents":       stats.TotalDocuments,
		"has_embeddings":  stats.HasEmbeddings,
		"has_index":       stats.HasIndex,
		"embedding_model": stats.EmbeddingModel,
	}
	paths := s.store.Paths()
	if s.config.Keyword.EnabledOrDefault() {
		paths = append(paths, s.config.Keyword.IndexPath)
	}
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	} else {
		s.logger.Warn("health: disk usage failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.GetStats())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.store.ListDocuments()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "total": len(docs)})
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest document request", zap.String("id", req.ID), zap.String("title", req.Title))

	var (
		res *indexer.Result
		err error
	)
	switch {
	case strings.TrimSpace(req.Text) != "":
		res, err = s.indexer.IngestText(r.Context(), &indexer.TextInput{
			ID: req.ID, Title: req.Title, Text: req.Text, Metadata: req.Metadata,
		})
	case len(req.Chunks) > 0:
		res, err = s.ingestChunks(r, &req)
	default:
		s.respondError(w, http.StatusBadRequest, "text or chunks is required")
		return
	}
	if err != nil {
		s.logger.Error("ingest failed", zap.String("id", req.ID), zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) ingestChunks(r *http.Request, req *ingestRequest) (*indexer.Result, error) {
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	err := s.store.IngestDocument(r.Context(), &models.DocumentInput{
		ID: id, Title: req.Title, Chunks: req.Chunks, Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	info, ok := s.store.GetDocumentInfo(id)
	if !ok {
		return nil, fmt.Errorf("document %s missing after ingest", id)
	}
	textLen := 0
	for _, c := range req.Chunks {
		textLen += len(c)
	}
	return &indexer.Result{
		DocumentID:    id,
		Title:         info.Title,
		ChunkCount:    info.ChunkCount,
		TextLength:    textLen,
		HasEmbeddings: info.HasEmbeddings,
	}, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Server.MaxUploadBytes()
	// Leave room for the multipart envelope; the file itself is checked below.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !extract.Supported(ext) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q", ext))
		return
	}
	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(content)) > maxBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))
	res, err := s.indexer.IngestBytes(r.Context(), "", header.Filename, content, map[string]string{
		"filename":             header.Filename,
		indexer.MetaSourceType: strings.TrimPrefix(ext, "."),
		indexer.MetaSourceSize: strconv.Itoa(len(content)),
	})
	if err != nil {
		s.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		if res == nil && !errors.Is(err, docstore.ErrValidation) && !errors.Is(err, docstore.ErrPersistence) {
			// Extraction failures and empty documents are the client's file.
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.Info(documentID(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	s.logger.Debug("delete document request", zap.String("id", id))
	deleted, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	if !deleted {
		s.respondErr(w, &docstore.NotFoundError{DocumentID: id})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	limit := defaultChunkPreview
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	chunks, ok := s.store.Chunks(id, limit)
	if !ok {
		s.respondErr(w, &docstore.NotFoundError{DocumentID: id})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"document_id": id, "chunks": chunks})
}

func (s *Server) handleDocumentSearch(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	var q models.PassageQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.TopK == 0 {
		q.TopK = s.config.Search.DefaultTopK
	}
	s.logger.Debug("document search request", zap.String("id", id), zap.String("query", q.Query), zap.Int("top_k", q.TopK))
	passages, err := s.store.SearchPassages(r.Context(), id, q.Query, q.TopK)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, &passagesResponse{DocumentID: id, Query: q.Query, Passages: passages})
}

func (s *Server) handlePageSearch(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	var q models.PageQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	passages, err := s.store.SearchPage(r.Context(), id, q.Page, q.Question, s.config.Search.PageTopK)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, &passagesResponse{
		DocumentID: id,
		Query:      strings.TrimSpace(fmt.Sprintf("page %d %s", q.Page, q.Question)),
		Passages:   passages,
	})
}

func (s *Server) handleLibrarySearch(w http.ResponseWriter, r *http.Request) {
	var query models.LibraryQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.Compact(r.Context())
	if err != nil {
		s.logger.Error("compact failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Reindex(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"reindexed": n})
}

func documentID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

// respondErr maps store errors to status codes.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, docstore.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, docstore.ErrNotFound):
		status = http.StatusNotFound
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
