package embedding

import (
	"fmt"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderNone   = "none"
	ProviderMock   = "mock"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// Options selects and configures an embedder.
type Options struct {
	Provider   string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	OpenAI     OpenAIConfig
}

// New builds the embedder named by opts.Provider, wrapped in an LRU cache when
// CacheSize > 0. Provider "none" returns a nil Embedder and no error: the caller
// runs without embeddings.
func New(opts Options) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderNone, "":
		return nil, nil
	case ProviderMock:
		e = NewMockEmbedder(opts.Dimensions)
	case ProviderONNX:
		e, err = NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens)
	case ProviderOpenAI:
		oc := opts.OpenAI
		if oc.Dimensions == 0 {
			oc.Dimensions = opts.Dimensions
		}
		e, err = NewOpenAIEmbedder(oc)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: none, mock, onnx, openai)", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.CacheSize > 0 {
		e = NewCachedEmbedder(e, opts.CacheSize)
	}
	return e, nil
}
