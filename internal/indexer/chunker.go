// Package indexer turns raw document text into chunks and feeds them to the document store.
package indexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/pagewise/internal/models"
)

// DefaultMinChunkLength is the trimmed length a chunk must exceed to be kept.
const DefaultMinChunkLength = 50

// Chunker splits text into overlapping, sentence-aligned chunks. Sizes are in bytes.
type Chunker struct {
	chunkSize      int
	chunkOverlap   int
	minChunkLength int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMinChunkLength overrides the minimum trimmed chunk length (exclusive).
func WithMinChunkLength(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.minChunkLength = n
		}
	}
}

// NewChunker creates a chunker. overlap must be non-negative and smaller than chunkSize.
func NewChunker(chunkSize, chunkOverlap int, opts ...ChunkerOption) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", chunkOverlap, chunkSize)
	}
	c := &Chunker{
		chunkSize:      chunkSize,
		chunkOverlap:   chunkOverlap,
		minChunkLength: DefaultMinChunkLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Split returns the chunk texts for text. Identical input always yields identical output.
func (c *Chunker) Split(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var raw []string
	current := ""
	for _, sentence := range sentences {
		if len(current)+len(sentence) > c.chunkSize && current != "" {
			raw = append(raw, strings.TrimSpace(current))
			current = c.overlapTail(current) + sentence
		} else {
			current += sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		raw = append(raw, strings.TrimSpace(current))
	}

	var chunks []string
	for _, ch := range raw {
		if len(strings.TrimSpace(ch)) > c.minChunkLength {
			chunks = append(chunks, ch)
		}
	}
	return chunks
}

// Chunk splits text and returns chunk records for docID with dense chunk indexes.
// IDs are left zero; the document store assigns them.
func (c *Chunker) Chunk(docID, text string) []*models.Chunk {
	texts := c.Split(text)
	if len(texts) == 0 {
		return nil
	}
	chunks := make([]*models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = &models.Chunk{
			DocumentID: docID,
			Text:       t,
			ChunkIndex: i,
		}
	}
	return chunks
}

// overlapTail returns the end of text that seeds the next chunk. When a sentence
// boundary lies in the second half of the window, the tail starts right after it.
func (c *Chunker) overlapTail(text string) string {
	if len(text) <= c.chunkOverlap {
		return text
	}
	start := len(text) - c.chunkOverlap
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	tail := text[start:]
	if i := strings.LastIndex(tail, ". "); i > c.chunkOverlap/2 {
		return tail[i+2:]
	}
	return tail
}

// SplitSentences splits text at whitespace runs that follow '.', '!' or '?'.
// Each returned sentence is trimmed and carries one trailing space.
func SplitSentences(text string) []string {
	var sentences []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s+" ")
		}
	}

	start := 0
	prev := rune(0)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) && (prev == '.' || prev == '!' || prev == '?') {
			add(text[start:i])
			j := i
			for j < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(r2) {
					break
				}
				j += s2
			}
			start = j
			i = j
			prev = 0
			continue
		}
		prev = r
		i += size
	}
	add(text[start:])
	return sentences
}
