package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/pagewise/internal/models"
)

// keywordEmbedder maps each vocabulary word to one dimension, plus a small constant
// dimension so no vector is zero. Texts containing failOn fail to embed.
type keywordEmbedder struct {
	vocab  []string
	failOn string
	calls  atomic.Int32
}

func newKeywordEmbedder(vocab ...string) *keywordEmbedder {
	return &keywordEmbedder{vocab: vocab}
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, fmt.Errorf("cannot embed %q", text)
	}
	e.calls.Add(1)
	lower := strings.ToLower(text)
	v := make([]float32, len(e.vocab)+1)
	for i, w := range e.vocab {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(e.vocab)] = 0.01
	return v, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, errors.New("batch rejected")
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int { return len(e.vocab) + 1 }
func (e *keywordEmbedder) Close() error    { return nil }
func (e *keywordEmbedder) Model() string   { return "keyword-test" }

var testVocab = []string{"margin", "safety", "dividend", "market", "graham"}

type failingSnapshots struct{}

func (failingSnapshots) Save(context.Context, *models.Snapshot) error {
	return errors.New("disk full")
}
func (failingSnapshots) Load(context.Context) (*models.Snapshot, error) {
	return models.NewSnapshot(), nil
}
func (failingSnapshots) Close() error { return nil }

type recordingHook struct {
	mu       sync.Mutex
	ingested map[string]int
	deleted  []string
}

func (h *recordingHook) DocumentIngested(_ context.Context, doc *models.DocumentInfo, chunks []*models.Chunk) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ingested == nil {
		h.ingested = make(map[string]int)
	}
	h.ingested[doc.ID] = len(chunks)
	return nil
}

func (h *recordingHook) DocumentDeleted(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, id)
	return errors.New("hook errors are only logged")
}

func openMemory(t *testing.T, e *keywordEmbedder, opts ...Option) *Store {
	t.Helper()
	var s *Store
	var err error
	if e == nil {
		s, err = Open(context.Background(), Config{}, nil, opts...)
	} else {
		s, err = Open(context.Background(), Config{}, e, opts...)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openDir(t *testing.T, dir string, e *keywordEmbedder) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Path: dir}, e)
	require.NoError(t, err)
	return s
}

var bookChunks = []string{
	"Mr. Market offers prices daily and the market swings with his mood.",
	"The margin of safety protects the investor from errors of judgment.",
	"Dividend policy matters to the defensive investor.",
}
