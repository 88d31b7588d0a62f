package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/models"
)

const (
	fieldDocumentID = "document_id"
	fieldTitle      = "title"
	fieldContent    = "content"
	fieldChunkIndex = "chunk_index"

	defaultFuzziness = 2
	pageSize         = 500
)

// BleveIndex implements KeywordIndex using Bleve. Each chunk is one Bleve document keyed
// by its chunk id.
type BleveIndex struct {
	index  bleve.Index
	logger *zap.Logger
}

// Option configures a BleveIndex.
type Option func(*BleveIndex)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *BleveIndex) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize, no stemming.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldContent, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldTitle, textFieldMapping)

	idMapping := bleve.NewKeywordFieldMapping()
	idMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldDocumentID, idMapping)

	numMapping := bleve.NewNumericFieldMapping()
	numMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldChunkIndex, numMapping)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the index in
// memory. If the mapping changes in code, remove the index directory; the next Sync
// rebuilds it from the document store.
func NewBleveIndex(path string, opts ...Option) (*BleveIndex, error) {
	b := &BleveIndex{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		b.index = index
		return b, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		b.index = index
		return b, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b.index = index
	return b, nil
}

// IndexChunks replaces the indexed chunks of doc in a single batch.
func (b *BleveIndex) IndexChunks(ctx context.Context, doc *models.DocumentInfo, chunks []*models.Chunk) error {
	stale, err := b.chunkKeys(ctx, doc.ID)
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, key := range stale {
		batch.Delete(key)
	}
	for _, c := range chunks {
		if c == nil {
			continue
		}
		err := batch.Index(chunkKey(c.ID), map[string]interface{}{
			fieldDocumentID: doc.ID,
			fieldTitle:      doc.Title,
			fieldContent:    c.Text,
			fieldChunkIndex: float64(c.ChunkIndex),
		})
		if err != nil {
			return fmt.Errorf("index chunk %d: %w", c.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch for %s failed: %w", doc.ID, err)
	}
	return nil
}

// DeleteDocument removes every chunk of the document from the index.
func (b *BleveIndex) DeleteDocument(ctx context.Context, documentID string) error {
	keys, err := b.chunkKeys(ctx, documentID)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, key := range keys {
		batch.Delete(key)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve delete for %s failed: %w", documentID, err)
	}
	return nil
}

// DocumentIngested keeps the index in sync with the document store.
func (b *BleveIndex) DocumentIngested(ctx context.Context, doc *models.DocumentInfo, chunks []*models.Chunk) error {
	return b.IndexChunks(ctx, doc, chunks)
}

// DocumentDeleted keeps the index in sync with the document store.
func (b *BleveIndex) DocumentDeleted(ctx context.Context, documentID string) error {
	return b.DeleteDocument(ctx, documentID)
}

// Sync rebuilds the index from src when the number of indexed chunks differs from the
// number of stored chunks. It reports whether a rebuild happened.
func (b *BleveIndex) Sync(ctx context.Context, src ChunkSource) (bool, error) {
	docs := src.ListDocuments()
	total := 0
	for _, d := range docs {
		total += d.ChunkCount
	}
	count, err := b.DocCount()
	if err != nil {
		return false, err
	}
	if count == uint64(total) {
		return false, nil
	}

	b.logger.Info("rebuilding keyword index",
		zap.Uint64("indexed", count), zap.Int("stored", total))
	if err := b.clear(ctx); err != nil {
		return false, err
	}
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		chunks, ok := src.Chunks(d.ID, 0)
		if !ok {
			continue
		}
		if err := b.IndexChunks(ctx, d, chunks); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (b *BleveIndex) clear(ctx context.Context) error {
	keys, err := b.collect(ctx, bleve.NewMatchAllQuery())
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, key := range keys {
		batch.Delete(key)
	}
	return b.index.Batch(batch)
}

// Search runs a match query over chunk content and titles and returns up to limit hits.
// When opts.FuzzyEnabled is true, fuzzy term queries are used for typo tolerance.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	titleBoost := 1.0
	fuzzyEnabled := false
	fuzziness := defaultFuzziness
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var contentQuery, titleQuery blevequery.Query
	if fuzzyEnabled {
		contentQuery = buildFuzzyQuery(query, fuzziness, fieldContent, 1)
		titleQuery = buildFuzzyQuery(query, fuzziness, fieldTitle, titleBoost)
	} else {
		cq := bleve.NewMatchQuery(query)
		cq.SetField(fieldContent)
		tq := bleve.NewMatchQuery(query)
		tq.SetField(fieldTitle)
		tq.SetBoost(titleBoost)
		contentQuery, titleQuery = cq, tq
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(contentQuery, titleQuery), limit, 0, false)
	req.Fields = []string{fieldDocumentID}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]*KeywordResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			b.logger.Warn("skipping keyword hit with foreign id", zap.String("id", hit.ID))
			continue
		}
		docID, _ := hit.Fields[fieldDocumentID].(string)
		out = append(out, &KeywordResult{ChunkID: id, DocumentID: docID, Score: hit.Score})
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase letter/digit terms.
func tokenizeQuery(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per term, on field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string, boost float64) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// chunkKeys returns the Bleve ids of every indexed chunk of documentID.
func (b *BleveIndex) chunkKeys(ctx context.Context, documentID string) ([]string, error) {
	q := bleve.NewTermQuery(documentID)
	q.SetField(fieldDocumentID)
	return b.collect(ctx, q)
}

func (b *BleveIndex) collect(ctx context.Context, q blevequery.Query) ([]string, error) {
	var keys []string
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("Bleve lookup failed: %w", err)
		}
		for _, hit := range res.Hits {
			keys = append(keys, hit.ID)
		}
		if len(res.Hits) < pageSize {
			return keys, nil
		}
	}
}

func chunkKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
