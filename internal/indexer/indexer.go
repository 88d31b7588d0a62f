package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/extract"
	"github.com/hyperjump/pagewise/internal/fileid"
	"github.com/hyperjump/pagewise/internal/models"
)

// Metadata keys recorded for documents ingested from files.
const (
	MetaSourcePath  = "source_path"
	MetaSourceMtime = "source_mtime"
	MetaSourceSize  = "source_size"
	MetaSourceType  = "source_type"
)

// Store is the part of the document store the indexer writes to.
type Store interface {
	IngestDocument(ctx context.Context, in *models.DocumentInput) error
	GetDocumentInfo(documentID string) (*models.DocumentInfo, bool)
	Delete(ctx context.Context, documentID string) (bool, error)
}

// TextInput is a document whose text still has to be cleaned and chunked.
type TextInput struct {
	ID       string
	Title    string
	Text     string
	Metadata map[string]string
}

// Result describes one ingest.
type Result struct {
	DocumentID    string `json:"document_id"`
	Title         string `json:"title,omitempty"`
	ChunkCount    int    `json:"chunk_count"`
	TextLength    int    `json:"text_length"`
	HasEmbeddings bool   `json:"has_embeddings"`
	// Skipped is set when the file was already ingested with the same size and mtime.
	Skipped bool `json:"skipped,omitempty"`
}

// Indexer extracts, cleans and chunks documents and ingests them into the store.
type Indexer struct {
	store      Store
	chunker    *Chunker
	extractor  *extract.Extractor
	extensions []string
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithExtensions restricts IndexFile and IndexDirectory to the given extensions
// (case-insensitive, dot optional). Empty allows every file.
func WithExtensions(exts []string) IndexerOption {
	return func(idx *Indexer) { idx.extensions = exts }
}

// NewIndexer creates an indexer. extractor may be nil, in which case files are read as
// plain text.
func NewIndexer(store Store, chunker *Chunker, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:     store,
		chunker:   chunker,
		extractor: extractor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Extractor returns the extractor used for files and uploads.
func (idx *Indexer) Extractor() *extract.Extractor {
	return idx.extractor
}

// IngestText cleans and chunks in.Text and ingests it. An empty ID gets a new UUID.
// Text too short to produce a chunk is stored as a document with no chunks.
//
// On a persistence failure the document is still searchable and both the result and the
// error are returned.
func (idx *Indexer) IngestText(ctx context.Context, in *TextInput) (*Result, error) {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	text := CleanText(in.Text)
	chunks := idx.chunker.Split(text)

	err := idx.store.IngestDocument(ctx, &models.DocumentInput{
		ID:       id,
		Title:    in.Title,
		Chunks:   chunks,
		Metadata: in.Metadata,
	})
	info, ok := idx.store.GetDocumentInfo(id)
	if !ok {
		if err == nil {
			err = fmt.Errorf("document %s missing after ingest", id)
		}
		return nil, err
	}
	idx.logger.Debug("indexer ingested text",
		zap.String("document_id", id),
		zap.Int("text_length", len(text)),
		zap.Int("chunks", info.ChunkCount))
	return &Result{
		DocumentID:    id,
		Title:         info.Title,
		ChunkCount:    info.ChunkCount,
		TextLength:    len(text),
		HasEmbeddings: info.HasEmbeddings,
	}, err
}

// IngestBytes extracts text from an uploaded file body and ingests it under id (a new
// UUID when empty). name supplies the extension and the title.
func (idx *Indexer) IngestBytes(ctx context.Context, id, name string, content []byte, metadata map[string]string) (*Result, error) {
	text, err := idx.extractor.ExtractBytes(content, filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text found in %s", name)
	}
	return idx.IngestText(ctx, &TextInput{ID: id, Title: fileid.Title(name), Text: text, Metadata: metadata})
}

// IndexFile extracts the file at path and ingests it. The document ID is derived from
// the absolute path so re-indexing replaces the same document. Files already ingested
// with the same mtime and size are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(idx.extensions) > 0 && !extensionAllowed(ext, idx.extensions) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := fileid.FromAbs(absPath)
	mtime := strconv.FormatInt(info.ModTime().UnixNano(), 10)
	size := strconv.FormatInt(info.Size(), 10)
	if doc, ok := idx.store.GetDocumentInfo(docID); ok &&
		doc.Metadata[MetaSourcePath] == absPath &&
		doc.Metadata[MetaSourceMtime] == mtime &&
		doc.Metadata[MetaSourceSize] == size {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return &Result{
			DocumentID:    docID,
			Title:         doc.Title,
			ChunkCount:    doc.ChunkCount,
			HasEmbeddings: doc.HasEmbeddings,
			Skipped:       true,
		}, nil
	}

	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	res, err := idx.IngestText(ctx, &TextInput{
		ID:    docID,
		Title: fileid.Title(absPath),
		Text:  text,
		Metadata: map[string]string{
			// Mtime and size are kept as decimal strings; UnixNano exceeds float64 precision.
			MetaSourcePath:  absPath,
			MetaSourceMtime: mtime,
			MetaSourceSize:  size,
			MetaSourceType:  strings.TrimPrefix(ext, "."),
		},
	})
	if res != nil {
		idx.logger.Info("indexed file",
			zap.String("path", absPath),
			zap.String("document_id", docID),
			zap.Int("chunks", res.ChunkCount))
	}
	return res, err
}

// IndexDirectory walks dir recursively and indexes every regular file with an allowed
// extension. It keeps going past failing files and returns how many files were indexed
// or found unchanged, along with the joined errors.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	n := 0
	var errs []error
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			errs = append(errs, walkErr)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(idx.extensions) > 0 && !extensionAllowed(filepath.Ext(path), idx.extensions) {
			return nil
		}
		// Resolve symlinks so only regular files are indexed.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, err := idx.IndexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		n++
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return n, errors.Join(errs...)
}

// DeleteFile deletes the document ingested from path. It reports whether one existed.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) (bool, error) {
	docID, err := fileid.ForPath(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	deleted, err := idx.store.Delete(ctx, docID)
	if deleted {
		idx.logger.Info("deleted file document", zap.String("path", path), zap.String("document_id", docID))
	}
	return deleted, err
}

// FileChanged ingests a file reported by the inbox watcher.
func (idx *Indexer) FileChanged(ctx context.Context, path string) error {
	_, err := idx.IndexFile(ctx, path)
	return err
}

// FileRemoved deletes the document of a file removed from the inbox.
func (idx *Indexer) FileRemoved(ctx context.Context, path string) error {
	_, err := idx.DeleteFile(ctx, path)
	return err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
