package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/indexer"
	"github.com/hyperjump/pagewise/internal/models"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"margin of safety", "-limit", "5"},
			expected: []string{"-limit", "5", "margin of safety"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-doc", "book", "margin of safety"},
			expected: []string{"-doc", "book", "margin of safety"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"margin of safety"},
			expected: []string{"margin of safety"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-k", "3"},
			expected: []string{"-k", "3", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"dividend"}, "dividend"},
		{"multiple words", []string{"dividend", "policy"}, "dividend policy"},
		{"single quoted phrase", []string{"dividend policy"}, "dividend policy"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestFindWithFuzzyRetry(t *testing.T) {
	var calls []bool
	find := func(q *models.LibraryQuery) (*models.LibraryResponse, error) {
		calls = append(calls, q.FuzzyEnabled)
		if q.FuzzyEnabled {
			return &models.LibraryResponse{Query: q.Query, Total: 1, Results: []*models.LibraryResult{{Rank: 1}}}, nil
		}
		return &models.LibraryResponse{Query: q.Query}, nil
	}

	query := &models.LibraryQuery{Query: "grahm"}
	resp, err := findWithFuzzyRetry(query, find)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Errorf("expected the fuzzy result, got %+v", resp)
	}
	if !reflect.DeepEqual(calls, []bool{false, true}) {
		t.Errorf("calls = %v, want exact then fuzzy", calls)
	}
	if query.FuzzyEnabled {
		t.Error("caller's query must not be modified")
	}

	calls = nil
	if _, err := findWithFuzzyRetry(&models.LibraryQuery{Query: "x", FuzzyEnabled: true}, find); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 {
		t.Errorf("fuzzy query should not be retried, calls = %v", calls)
	}

	boom := errors.New("boom")
	_, err = findWithFuzzyRetry(query, func(*models.LibraryQuery) (*models.LibraryResponse, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
store:
  path: "./vector_db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if filepath.Base(cfg.Store.Path) != "vector_db" || !filepath.IsAbs(cfg.Store.Path) {
		t.Errorf("store path = %s", cfg.Store.Path)
	}
}

func TestLoadConfig_defaultsWhenNoFile(t *testing.T) {
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if _, statErr := os.Stat(defaultConfigPath); statErr == nil {
		t.Skip("a system config exists at the default path")
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want defaults", resolved)
	}
	if cfg.Server.Port != 8080 || cfg.Chunking.ChunkSize != 1000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_explicitMissingFile(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func TestInitializeComponents(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
store:
  path: "./vector_db"
keyword:
  index_path: "./keyword.bleve"
embedding:
  provider: mock
  dimensions: 32
chunking:
  chunk_size: 200
  chunk_overlap: 20
  min_chunk_length: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if c.Embedder == nil || c.KeywordIndex == nil || c.Engine == nil || c.Indexer == nil {
		t.Fatalf("components not wired: %+v", c)
	}

	res, err := c.Indexer.IngestText(ctx, &indexer.TextInput{
		ID:    "graham",
		Title: "The Intelligent Investor",
		Text:  "The margin of safety is the central concept of investment. Mr. Market offers prices daily.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasEmbeddings || res.ChunkCount == 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	resp, err := c.Engine.Search(ctx, &models.LibraryQuery{Query: "margin", KeywordEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].Document.ID != "graham" {
		t.Errorf("library search = %+v", resp)
	}
	c.Close()

	// Reopening restores the document from disk and keeps the keyword index in sync.
	c, err = initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := c.Store.GetDocumentInfo("graham"); !ok {
		t.Fatal("document should survive a restart")
	}
	n, err := c.KeywordIndex.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("keyword index should hold the stored chunks")
	}
}

func TestIngestPath_singleFileIgnoresExtensionFilter(t *testing.T) {
	cfg, _, err := loadConfig(filepath.Join(writeMemoryConfig(t), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Watch.Extensions = []string{".pdf"}
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	file := filepath.Join(t.TempDir(), "notes.md")
	body := strings.Repeat("Buy businesses, not tickers. ", 5)
	if err := os.WriteFile(file, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	results, err := ingestPath(ctx, c, zap.NewNop(), file, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkCount == 0 {
		t.Fatalf("results = %+v", results)
	}
	if _, ok := c.Store.GetDocumentInfo(results[0].DocumentID); !ok {
		t.Error("ingested file should be stored")
	}
}

func writeMemoryConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := `
store:
  path: "./vector_db"
keyword:
  enabled: false
chunking:
  min_chunk_length: 10
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir
}
