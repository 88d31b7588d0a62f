// Package docstore owns ingested documents and their chunks, and answers passage queries
// with semantic search when an embedder is configured and lexical scoring otherwise.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/embedding"
	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/ranking"
	"github.com/hyperjump/pagewise/internal/storage"
	"github.com/hyperjump/pagewise/internal/vector"
	"github.com/hyperjump/pagewise/pkg/utils"
)

// Artifact names under Config.Path.
const (
	MetadataFile = "metadata.db"
	IndexFile    = "vectors.idx"
)

// Defaults for Config zero values.
const (
	DefaultMinSimilarity   = 0.1
	DefaultContextFallback = 3
)

// Config configures a Store.
type Config struct {
	// Path is the directory holding the persisted artifacts. Empty keeps the store in memory.
	Path      string
	IndexType string
	// MinSimilarity is the exclusive lower bound on semantic scores. Zero means the default.
	MinSimilarity float64
	// ContextFallback is how many leading chunks Context returns when search finds nothing.
	ContextFallback int
	Lexical         *ranking.LexicalConfig
}

// Store is the document store. It is safe for concurrent use: searches share a read
// lock and all mutations are serialized behind the write lock.
type Store struct {
	mu sync.RWMutex

	cfg       Config
	embedder  embedding.Embedder
	index     vector.Index
	dims      int
	snapshots storage.SnapshotStore
	indexPath string
	scorer    *ranking.LexicalScorer

	documents   map[string]*models.Document
	chunks      map[int64]*models.Chunk
	nextChunkID int64

	hooks  []Hook
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHook registers a hook notified of ingests and deletes.
func WithHook(h Hook) Option {
	return func(s *Store) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

// WithSnapshotStore replaces the SQLite metadata store opened under Config.Path.
func WithSnapshotStore(ss storage.SnapshotStore) Option {
	return func(s *Store) {
		s.snapshots = ss
	}
}

// Open creates a store and loads any persisted state. A nil embedder runs the store in
// lexical-only mode.
func Open(ctx context.Context, cfg Config, embedder embedding.Embedder, opts ...Option) (*Store, error) {
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	if cfg.ContextFallback <= 0 {
		cfg.ContextFallback = DefaultContextFallback
	}

	s := &Store{
		cfg:       cfg,
		embedder:  embedder,
		documents: make(map[string]*models.Document),
		chunks:    make(map[int64]*models.Chunk),
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scorer = ranking.NewLexicalScorer(cfg.Lexical, ranking.WithLogger(s.logger))

	if embedder != nil {
		idx, err := vector.NewIndex(cfg.IndexType, embedder.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("create vector index: %w", err)
		}
		s.index = idx
		s.dims = idx.Dimensions()
	}

	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		s.indexPath = filepath.Join(cfg.Path, IndexFile)
		if s.snapshots == nil {
			ss, err := storage.NewSQLiteSnapshotStore(filepath.Join(cfg.Path, MetadataFile))
			if err != nil {
				return nil, fmt.Errorf("open metadata store: %w", err)
			}
			s.snapshots = ss
		}
	}

	if err := s.load(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.logger.Info("document store opened",
		zap.String("path", cfg.Path),
		zap.Int("documents", len(s.documents)),
		zap.Int("chunks", len(s.chunks)),
		zap.Bool("embeddings", s.index != nil),
		zap.String("embedding_model", embedding.ModelName(embedder)))
	return s, nil
}

// load restores the snapshot and index, downgrading documents whose vectors are missing.
func (s *Store) load(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load metadata snapshot: %w", err)
	}
	s.documents = snap.Documents
	s.chunks = snap.Chunks
	s.nextChunkID = snap.NextChunkID

	if s.index == nil {
		for id, doc := range s.documents {
			if doc.HasEmbeddings {
				s.documents[id] = withEmbeddings(doc, false)
			}
		}
		return nil
	}

	dims := s.dims
	dropped := 0
	for id, c := range s.chunks {
		if c.HasEmbedding() && len(c.Embedding) != dims {
			cp := *c
			cp.Embedding = nil
			s.chunks[id] = &cp
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Warn("dropped stored embeddings with wrong dimension",
			zap.Int("chunks", dropped), zap.Int("stored_dimensions", snap.EmbeddingDimensions), zap.Int("dimensions", dims))
	}

	if err := s.index.Load(s.indexPath); err != nil {
		s.logger.Warn("vector index unusable, starting with an empty index",
			zap.String("path", s.indexPath), zap.Bool("dimension_mismatch", errors.Is(err, vector.ErrDimensionMismatch)), zap.Error(err))
		idx, nerr := vector.NewIndex(s.cfg.IndexType, dims)
		if nerr != nil {
			return fmt.Errorf("create vector index: %w", nerr)
		}
		s.index = idx
	}

	indexed := make(map[int64]struct{}, s.index.Size())
	for _, id := range s.index.IDs() {
		indexed[id] = struct{}{}
	}
	downgraded := 0
	for id, doc := range s.documents {
		if doc.HasEmbeddings && !s.fullyIndexed(doc, indexed) {
			s.documents[id] = withEmbeddings(doc, false)
			downgraded++
		}
	}
	if downgraded > 0 {
		s.logger.Warn("documents need reindexing", zap.Int("documents", downgraded))
	}
	return nil
}

// fullyIndexed reports whether doc has at least one indexed chunk and every chunk with a
// stored embedding is in the index.
func (s *Store) fullyIndexed(doc *models.Document, indexed map[int64]struct{}) bool {
	indexedAny := false
	for _, cid := range doc.ChunkIDs {
		c, ok := s.chunks[cid]
		if !ok {
			return false
		}
		_, in := indexed[cid]
		if c.HasEmbedding() && !in {
			return false
		}
		indexedAny = indexedAny || in
	}
	return indexedAny
}

func withEmbeddings(doc *models.Document, has bool) *models.Document {
	cp := *doc
	cp.HasEmbeddings = has
	return &cp
}

// AddHook registers a hook after construction.
func (s *Store) AddHook(h Hook) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Close releases the metadata store and the index. The embedder is owned by the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.snapshots != nil {
		errs = append(errs, s.snapshots.Close())
		s.snapshots = nil
	}
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	return errors.Join(errs...)
}

// HasIndex reports whether semantic search is available.
func (s *Store) HasIndex() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// GetDocumentInfo returns the document's read-only view, or false when it is unknown.
func (s *Store) GetDocumentInfo(documentID string) (*models.DocumentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return nil, false
	}
	return doc.Info(), true
}

// Info is GetDocumentInfo with typed errors for callers that want them.
func (s *Store) Info(documentID string) (*models.DocumentInfo, error) {
	if err := ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	info, ok := s.GetDocumentInfo(documentID)
	if !ok {
		return nil, &NotFoundError{DocumentID: documentID}
	}
	return info, nil
}

// ListDocuments returns all documents ordered by id.
func (s *Store) ListDocuments() []*models.DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.DocumentInfo, 0, len(s.documents))
	for _, doc := range s.documents {
		out = append(out, doc.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Chunks returns up to limit chunks of the document in order (all when limit <= 0).
// Embeddings are not included.
func (s *Store) Chunks(documentID string, limit int) ([]*models.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return nil, false
	}
	chunks := s.documentChunks(doc)
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	out := make([]*models.Chunk, len(chunks))
	for i, c := range chunks {
		cp := *c
		cp.Embedding = nil
		out[i] = &cp
	}
	return out, true
}

// Chunk returns a copy of a live chunk by id, without its embedding.
func (s *Store) Chunk(id int64) (*models.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, false
	}
	cp := *c
	cp.Embedding = nil
	return &cp, true
}

// GetStats summarizes the store.
func (s *Store) GetStats() *models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.Stats{
		TotalDocuments: len(s.documents),
		TotalChunks:    len(s.chunks),
		HasEmbeddings:  s.embedder != nil,
		HasIndex:       s.index != nil,
		EmbeddingModel: embedding.ModelName(s.embedder),
	}
	if len(s.documents) > 0 {
		stats.AvgChunksPerDocument = utils.Round(float64(len(s.chunks))/float64(len(s.documents)), 2)
	}
	if s.index != nil {
		stats.IndexSize = s.index.Size()
		stats.OrphanedVectors = s.orphanedLocked()
	}
	return stats
}

func (s *Store) orphanedLocked() int {
	n := 0
	for _, id := range s.index.IDs() {
		if _, ok := s.chunks[id]; !ok {
			n++
		}
	}
	return n
}

// documentChunks returns the live chunks of doc in chunk index order. Caller holds the lock.
func (s *Store) documentChunks(doc *models.Document) []*models.Chunk {
	out := make([]*models.Chunk, 0, len(doc.ChunkIDs))
	for _, id := range doc.ChunkIDs {
		if c, ok := s.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Paths returns the artifact paths used by the store, empty when it is in memory.
func (s *Store) Paths() []string {
	if s.cfg.Path == "" {
		return nil
	}
	return []string{filepath.Join(s.cfg.Path, MetadataFile), s.indexPath}
}
