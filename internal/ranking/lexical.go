package ranking

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/models"
)

// LexicalScorer ranks the chunks of one document against a query using term overlap,
// page references, a weighted vocabulary and a contextual fallback pass.
type LexicalScorer struct {
	config   *LexicalConfig
	analyzer *QueryAnalyzer
	logger   *zap.Logger
}

// ScorerOption configures a LexicalScorer.
type ScorerOption func(*LexicalScorer)

// WithLogger sets the logger for degraded-path and debug output.
func WithLogger(logger *zap.Logger) ScorerOption {
	return func(s *LexicalScorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLexicalScorer creates a scorer. A nil config uses DefaultLexicalConfig; otherwise a copy
// with defaults applied is used.
func NewLexicalScorer(cfg *LexicalConfig, opts ...ScorerOption) *LexicalScorer {
	var c LexicalConfig
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()
	s := &LexicalScorer{
		config:   &c,
		analyzer: NewQueryAnalyzer(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *LexicalScorer) Config() *LexicalConfig {
	return s.config
}

// Rank scores chunks (given in chunk index order) and returns at most k of them, best first.
// Equal scores keep chunk index order. If scoring panics, the first k chunks are returned.
func (s *LexicalScorer) Rank(query string, chunks []*models.Chunk, k int) (ranked []*ScoredChunk) {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("lexical scoring failed, returning leading chunks",
				zap.Any("panic", r), zap.Int("chunks", len(chunks)), zap.Int("top_k", k))
			ranked = leadingChunks(chunks, k)
		}
	}()
	return s.rank(query, chunks, k)
}

func (s *LexicalScorer) rank(query string, chunks []*models.Chunk, k int) []*ScoredChunk {
	q := s.analyzer.Analyze(query)
	if len(q.Pages) > 0 {
		s.logger.Debug("page-specific query", zap.Ints("pages", q.Pages))
	}

	results := make([]*ScoredChunk, 0, len(chunks))
	seen := make(map[int64]struct{}, len(chunks))
	maxScore := 0.0
	for _, c := range chunks {
		score := s.Score(q, c.Text)
		if score <= 0 {
			continue
		}
		results = append(results, &ScoredChunk{Chunk: c, Score: score})
		seen[c.ID] = struct{}{}
		maxScore = max(maxScore, score)
	}

	if len(results) == 0 || maxScore < s.config.ContextualThreshold {
		s.logger.Debug("no strong lexical match, using contextual pass",
			zap.Int("matches", len(results)), zap.Float64("max_score", maxScore))
		for _, c := range chunks {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			if score := s.ContextScore(q, c.Text); score > 0 {
				results = append(results, &ScoredChunk{Chunk: c, Score: score})
				seen[c.ID] = struct{}{}
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Score returns the primary lexical score of text for the analyzed query.
func (s *LexicalScorer) Score(q *AnalyzedQuery, text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0

	for _, page := range q.Pages {
		for _, marker := range PageMarkers(page) {
			if strings.Contains(lower, marker) {
				score += s.config.PageBonus
			}
		}
	}

	if len(q.Words) > 0 {
		chunkWords := make(map[string]struct{})
		for _, w := range strings.Fields(lower) {
			chunkWords[w] = struct{}{}
		}
		overlap := 0
		for _, w := range q.Words {
			if _, ok := chunkWords[w]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			score += float64(overlap) / float64(len(q.Words)) * s.phraseBoost(q, lower)
		}
	}

	if s.mentionsVocabulary(q.Lower) {
		for _, t := range s.config.Vocabulary {
			if t.Term != "" && strings.Contains(lower, strings.ToLower(t.Term)) {
				score += t.Weight
			}
		}
	}
	return score
}

// ContextScore returns the contextual-pass score of text: referenced numbers, shared
// context words and a small bonus for long passages.
func (s *LexicalScorer) ContextScore(q *AnalyzedQuery, text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, n := range q.Numbers {
		if strings.Contains(lower, " "+n+" ") || strings.Contains(lower, "page "+n) {
			score += s.config.NumberBonus
		}
	}
	for _, w := range s.config.ContextWords {
		w = strings.ToLower(w)
		if w != "" && strings.Contains(q.Lower, w) && strings.Contains(lower, w) {
			score += s.config.ContextWordBonus
		}
	}
	if utf8.RuneCountInString(text) > s.config.LongChunkLength {
		score += s.config.LongChunkBonus
	}
	return score
}

func (s *LexicalScorer) phraseBoost(q *AnalyzedQuery, chunkLower string) float64 {
	if strings.Contains(chunkLower, q.Lower) {
		return s.config.ExactPhraseBoost
	}
	for _, w := range q.Words {
		if utf8.RuneCountInString(w) > s.config.KeywordMinLength && strings.Contains(chunkLower, w) {
			return s.config.KeywordBoost
		}
	}
	return 1.0
}

func (s *LexicalScorer) mentionsVocabulary(queryLower string) bool {
	for _, t := range s.config.Vocabulary {
		if t.Term != "" && strings.Contains(queryLower, strings.ToLower(t.Term)) {
			return true
		}
	}
	return false
}

func leadingChunks(chunks []*models.Chunk, k int) []*ScoredChunk {
	out := make([]*ScoredChunk, 0, k)
	for _, c := range chunks {
		if len(out) == k {
			break
		}
		if c != nil {
			out = append(out, &ScoredChunk{Chunk: c})
		}
	}
	return out
}

// Chunks returns the chunks of ranked results in order.
func Chunks(ranked []*ScoredChunk) []*models.Chunk {
	out := make([]*models.Chunk, len(ranked))
	for i, r := range ranked {
		out[i] = r.Chunk
	}
	return out
}
