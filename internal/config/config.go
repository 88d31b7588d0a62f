// Package config provides configuration loading and structs for the pagewise server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/pagewise/internal/ranking"
)

// Environment variables that override the YAML file.
const (
	EnvVectorDBPath      = "VECTOR_DB_PATH"
	EnvChunkSize         = "CHUNK_SIZE"
	EnvChunkOverlap      = "CHUNK_OVERLAP"
	EnvMaxFileSize       = "MAX_FILE_SIZE" // megabytes
	EnvEmbeddingProvider = "EMBEDDING_PROVIDER"
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvDebug             = "PAGEWISE_DEBUG"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool                  `yaml:"debug"`
	LogLevel  string                `yaml:"log_level"`
	Server    ServerConfig          `yaml:"server"`
	Store     StoreConfig           `yaml:"store"`
	Chunking  ChunkingConfig        `yaml:"chunking"`
	Embedding EmbeddingConfig       `yaml:"embedding"`
	Lexical   ranking.LexicalConfig `yaml:"lexical"`
	Search    SearchConfig          `yaml:"search"`
	Keyword   KeywordConfig         `yaml:"keyword"`
	Watch     WatchConfig           `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the upload limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// StoreConfig holds where the document store persists its artifacts.
type StoreConfig struct {
	Path      string `yaml:"path"`
	IndexType string `yaml:"index_type"`
}

// ChunkingConfig holds chunker settings, in characters.
type ChunkingConfig struct {
	ChunkSize      int  `yaml:"chunk_size"`
	ChunkOverlap   int  `yaml:"chunk_overlap"`
	MinChunkLength *int `yaml:"min_chunk_length"`
}

// MinChunkLengthOrDefault returns the minimum chunk length; defaults to 50 when unset.
func (c *ChunkingConfig) MinChunkLengthOrDefault() int {
	if c.MinChunkLength != nil {
		return *c.MinChunkLength
	}
	return 50
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"`
	// Model names the remote model for the openai provider; empty uses the provider default.
	Model      string       `yaml:"model"`
	ModelPath  string       `yaml:"model_path"`
	Dimensions int          `yaml:"dimensions"`
	MaxTokens  int          `yaml:"max_tokens"`
	CacheSize  int          `yaml:"cache_size"`
	OpenAI     OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds settings for the OpenAI embeddings provider.
type OpenAIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SearchConfig holds per-document and library-wide search settings.
type SearchConfig struct {
	DefaultTopK     int     `yaml:"default_top_k"`
	PageTopK        int     `yaml:"page_top_k"`
	MinSimilarity   float64 `yaml:"min_similarity"`
	ContextFallback int     `yaml:"context_fallback"`
	LibraryLimit    int     `yaml:"library_limit"`
	MaxLimit        int     `yaml:"max_limit"`
	Candidates      int     `yaml:"candidates"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	SemanticWeight  float64 `yaml:"semantic_weight"`
	TitleBoost      float64 `yaml:"title_boost"`
	SnippetLength   int     `yaml:"snippet_length"`
}

// KeywordConfig holds the library-wide keyword index settings.
type KeywordConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	IndexPath string `yaml:"index_path"`
}

// EnabledOrDefault returns whether the keyword index is used; defaults to true when unset.
func (k *KeywordConfig) EnabledOrDefault() bool {
	if k.Enabled != nil {
		return *k.Enabled
	}
	return true
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Default returns the configuration used when no file is given, with paths relative to
// the working directory.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	expandPaths(cfg, ".")
	return cfg
}

// Load reads the config file at path, applies defaults and environment overrides, expands
// paths and validates the result. An empty path starts from the defaults. A .env file next
// to the config file or in the working directory is loaded first; variables already set in
// the environment win.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	ApplyDefaults(&cfg)

	loadDotEnv(configDir)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	expandPaths(&cfg, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func loadDotEnv(configDir string) {
	candidates := []string{filepath.Join(configDir, ".env"), ".env"}
	seen := map[string]bool{}
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		_ = godotenv.Load(abs)
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvVectorDBPath); v != "" {
		cfg.Store.Path = v
	}
	if err := envInt(EnvChunkSize, &cfg.Chunking.ChunkSize); err != nil {
		return err
	}
	if err := envInt(EnvChunkOverlap, &cfg.Chunking.ChunkOverlap); err != nil {
		return err
	}
	if err := envInt(EnvMaxFileSize, &cfg.Server.MaxUploadMB); err != nil {
		return err
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		cfg.Embedding.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		cfg.Embedding.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	cfg.Keyword.IndexPath = expandPath(cfg.Keyword.IndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		if abs, err := filepath.Abs(filepath.Join(configDir, path)); err == nil {
			return abs
		}
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Chunking.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize))
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errs = append(errs, fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap))
	}
	switch c.Embedding.Provider {
	case "none", "mock", "onnx", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider must be one of none, mock, onnx, openai; got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions))
	}
	if c.Search.DefaultTopK <= 0 {
		errs = append(errs, fmt.Errorf("search.default_top_k must be positive, got %d", c.Search.DefaultTopK))
	}
	if c.Search.PageTopK <= 0 {
		errs = append(errs, fmt.Errorf("search.page_top_k must be positive, got %d", c.Search.PageTopK))
	}
	if c.Search.MinSimilarity < -1 || c.Search.MinSimilarity >= 1 {
		errs = append(errs, fmt.Errorf("search.min_similarity must be in [-1, 1), got %g", c.Search.MinSimilarity))
	}
	if c.Search.KeywordWeight < 0 || c.Search.SemanticWeight < 0 {
		errs = append(errs, errors.New("search weights must not be negative"))
	}
	if c.Search.LibraryLimit > c.Search.MaxLimit {
		errs = append(errs, fmt.Errorf("search.library_limit %d exceeds max_limit %d", c.Search.LibraryLimit, c.Search.MaxLimit))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
