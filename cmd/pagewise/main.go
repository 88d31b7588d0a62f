// Package main is the pagewise CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/cli"
	"github.com/hyperjump/pagewise/internal/config"
	"github.com/hyperjump/pagewise/internal/docstore"
	"github.com/hyperjump/pagewise/internal/embedding"
	"github.com/hyperjump/pagewise/internal/extract"
	"github.com/hyperjump/pagewise/internal/indexer"
	"github.com/hyperjump/pagewise/internal/keyword"
	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/internal/search"
	"github.com/hyperjump/pagewise/internal/server"
	"github.com/hyperjump/pagewise/internal/watcher"
	"github.com/hyperjump/pagewise/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/pagewise/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists; when neither exists the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Load("")
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "serve", "server":
		runServe(args)
	case "ingest", "index":
		runIngest(args)
	case "search":
		runSearch(args)
	case "find":
		runFind(args)
	case "delete":
		runDelete(args)
	case "info":
		runInfo(args)
	case "list":
		runList(args)
	case "stats", "status":
		runStats(args)
	case "compact":
		runMaintenance("compact", args)
	case "reindex":
		runMaintenance("reindex", args)
	case "watch":
		runWatch(args)
	case "version", "--version", "-v":
		fmt.Printf("pagewise version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// commonFlags registers the flags every store-backed command accepts.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

func (f *commonFlags) format() cli.OutputFormat {
	format, err := cli.ParseFormat(*f.output)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	if debug || cfg.Debug {
		return utils.NewLogger(true)
	}
	return utils.NewLoggerWithLevel(cfg.LogLevel)
}

// setup loads config, builds the logger and opens every component. The returned cleanup
// closes components and flushes the logger.
func setup(ctx context.Context, f *commonFlags) (*config.Config, *Components, *zap.Logger, func()) {
	cfg, resolved, err := loadConfig(*f.configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := newLogger(cfg, *f.debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		fatalf("Failed to initialize: %v", err)
	}
	return cfg, components, logger, func() {
		components.Close()
		_ = logger.Sync()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(args)

	ctx, stop := signalContext()
	defer stop()
	cfg, components, logger, cleanup := setup(ctx, f)
	defer cleanup()

	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = newWatcher(cfg, components, logger)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watchSvc.SyncExisting(ctx)
		defer watchSvc.Stop()
	}

	srv := server.NewServer(components.Store, components.Engine, components.Indexer, cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	if err := components.Store.Flush(shutdownCtx); err != nil {
		logger.Warn("final flush failed", zap.Error(err))
	}
}

func newWatcher(cfg *config.Config, c *Components, logger *zap.Logger) *watcher.Watcher {
	return watcher.New(watcher.Config{
		Directories: cfg.Watch.Directories,
		Extensions:  cfg.Watch.Extensions,
		Recursive:   cfg.Watch.RecursiveOrDefault(),
	}, c.Indexer, watcher.WithLogger(logger))
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	f := addCommonFlags(fs)
	id := fs.String("id", "", "document id for text read from stdin (default: new UUID)")
	title := fs.String("title", "", "document title for text read from stdin")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: pagewise ingest [flags] <file|directory|->")
		os.Exit(1)
	}
	format := f.format()
	ctx, stop := signalContext()
	defer stop()
	_, components, logger, cleanup := setup(ctx, f)
	defer cleanup()

	var results []*indexer.Result
	for _, path := range fs.Args() {
		res, err := ingestPath(ctx, components, logger, path, *id, *title)
		if err != nil {
			cleanup()
			fatalf("Ingest failed: %v", err)
		}
		results = append(results, res...)
	}
	if err := cli.WriteIngestResults(os.Stdout, results, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// ingestPath ingests stdin ("-"), a single file (any supported type) or a directory
// (configured extensions only).
func ingestPath(ctx context.Context, c *Components, logger *zap.Logger, path, id, title string) ([]*indexer.Result, error) {
	if path == "-" {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		res, err := c.Indexer.IngestText(ctx, &indexer.TextInput{ID: id, Title: title, Text: string(text)})
		if res == nil {
			return nil, err
		}
		return []*indexer.Result{res}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		n, err := c.Indexer.IndexDirectory(ctx, path)
		if err != nil {
			if n == 0 {
				return nil, err
			}
			logger.Warn("some files failed to index", zap.String("path", path), zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Indexed %d file(s) from %s\n", n, path)
		return nil, nil
	}
	// Single file: no extension filter.
	single := indexer.NewIndexer(c.Store, c.Chunker, c.Indexer.Extractor(), indexer.WithLogger(logger))
	res, err := single.IndexFile(ctx, path)
	if res == nil {
		return nil, err
	}
	return []*indexer.Result{res}, err
}

func runSearch(args []string) {
	args = searchArgsReorder(args)
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	f := addCommonFlags(fs)
	docID := fs.String("doc", "", "document id to search (required)")
	topK := fs.Int("k", 0, "number of passages (default from config)")
	page := fs.Int("page", 0, "restrict the question to this page")
	withFallback := fs.Bool("context", false, "return the leading chunks when nothing matches")
	_ = fs.Parse(args)

	query := buildSearchQuery(fs.Args())
	if *docID == "" || (query == "" && *page == 0) {
		fmt.Println("Usage: pagewise search -doc <id> [-k N] [-page N] [-context] <query>")
		os.Exit(1)
	}
	format := f.format()
	ctx, stop := signalContext()
	defer stop()
	cfg, components, _, cleanup := setup(ctx, f)
	defer cleanup()

	k := *topK
	var (
		passages []*models.Passage
		err      error
	)
	switch {
	case *page > 0:
		if k <= 0 {
			k = cfg.Search.PageTopK
		}
		passages, err = components.Store.SearchPage(ctx, *docID, *page, query, k)
	case *withFallback:
		if k <= 0 {
			k = cfg.Search.DefaultTopK
		}
		var texts []string
		texts, err = components.Store.Context(ctx, *docID, query, k)
		for i, t := range texts {
			passages = append(passages, &models.Passage{ChunkIndex: i, Text: t, Method: models.MethodFallback})
		}
	default:
		if k <= 0 {
			k = cfg.Search.DefaultTopK
		}
		passages, err = components.Store.SearchPassages(ctx, *docID, query, k)
	}
	if err != nil {
		cleanup()
		fatalf("Search failed: %v", err)
	}
	if err := cli.WritePassages(os.Stdout, *docID, query, passages, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printFindUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: pagewise find [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Searches every document and ranks documents by their best chunk.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  pagewise find margin of safety
  pagewise find --semantic=false "intrinsic value"   # keyword-only
  pagewise find --fuzzy grahm                        # typo-tolerant
  pagewise find --server http://localhost:8080 --output json dividend policy
`)
}

func runFind(args []string) {
	args = searchArgsReorder(args)
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	f := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL (empty = open the store directly)")
	limit := fs.Int("limit", 0, "number of documents (default from config)")
	minScore := fs.Float64("min-score", 0, "minimum fused score")
	kwEnabled := fs.Bool("keyword", true, "enable keyword search")
	semEnabled := fs.Bool("semantic", true, "enable semantic search")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	fs.Usage = func() { printFindUsage(fs) }
	_ = fs.Parse(args)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printFindUsage(fs)
		os.Exit(1)
	}
	format := f.format()
	query := &models.LibraryQuery{
		Query:           queryStr,
		Limit:           *limit,
		MinScore:        *minScore,
		KeywordEnabled:  *kwEnabled,
		SemanticEnabled: *semEnabled,
		FuzzyEnabled:    *fuzzyEnabled,
	}

	var find func(q *models.LibraryQuery) (*models.LibraryResponse, error)
	if *serverURL != "" {
		find = func(q *models.LibraryQuery) (*models.LibraryResponse, error) {
			return searchViaHTTP(*serverURL, q)
		}
	} else {
		ctx, stop := signalContext()
		defer stop()
		_, components, _, cleanup := setup(ctx, f)
		defer cleanup()
		find = func(q *models.LibraryQuery) (*models.LibraryResponse, error) {
			return components.Engine.Search(ctx, q)
		}
	}

	response, err := findWithFuzzyRetry(query, find)
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteLibraryResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// findWithFuzzyRetry repeats a search with fuzzy matching when the exact search finds nothing.
func findWithFuzzyRetry(query *models.LibraryQuery, find func(*models.LibraryQuery) (*models.LibraryResponse, error)) (*models.LibraryResponse, error) {
	response, err := find(query)
	if err != nil {
		return nil, err
	}
	if query.FuzzyEnabled || response.Total > 0 {
		return response, nil
	}
	fuzzy := *query
	fuzzy.FuzzyEnabled = true
	if fuzzyResponse, fuzzyErr := find(&fuzzy); fuzzyErr == nil && fuzzyResponse.Total > 0 {
		return fuzzyResponse, nil
	}
	return response, nil
}

func searchViaHTTP(serverURL string, query *models.LibraryQuery) (*models.LibraryResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.LibraryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Usage: pagewise delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	ctx, stop := signalContext()
	defer stop()
	_, components, _, cleanup := setup(ctx, f)
	defer cleanup()

	deleted, err := components.Store.Delete(ctx, docID)
	if err != nil {
		cleanup()
		fatalf("Deletion failed: %v", err)
	}
	if !deleted {
		cleanup()
		fatalf("Document not found: %s", docID)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	f := addCommonFlags(fs)
	chunks := fs.Int("chunks", 0, "also print the first N chunks")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Usage: pagewise info [flags] <document-id>")
		os.Exit(1)
	}
	format := f.format()
	ctx, stop := signalContext()
	defer stop()
	_, components, _, cleanup := setup(ctx, f)
	defer cleanup()

	info, err := components.Store.Info(fs.Arg(0))
	if err != nil {
		cleanup()
		fatalf("%v", err)
	}
	if err := cli.WriteDocument(os.Stdout, info, format); err != nil {
		fatalf("Output failed: %v", err)
	}
	if *chunks > 0 {
		preview, _ := components.Store.Chunks(info.ID, *chunks)
		passages := make([]*models.Passage, len(preview))
		for i, c := range preview {
			passages[i] = &models.Passage{ChunkID: c.ID, ChunkIndex: c.ChunkIndex, Text: c.Text}
		}
		_ = cli.WritePassages(os.Stdout, info.ID, "", passages, format)
	}
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(args)
	format := f.format()
	ctx, stop := signalContext()
	defer stop()
	_, components, _, cleanup := setup(ctx, f)
	defer cleanup()

	if err := cli.WriteDocuments(os.Stdout, components.Store.ListDocuments(), format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(args)
	format := f.format()
	ctx, stop := signalContext()
	defer stop()
	_, components, _, cleanup := setup(ctx, f)
	defer cleanup()

	if err := cli.WriteStats(os.Stdout, components.Store.GetStats(), format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runMaintenance(op string, args []string) {
	fs := flag.NewFlagSet(op, flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(args)
	ctx, stop := signalContext()
	defer stop()
	_, components, _, cleanup := setup(ctx, f)
	defer cleanup()

	var (
		n   int
		err error
	)
	switch op {
	case "compact":
		n, err = components.Store.Compact(ctx)
	case "reindex":
		n, err = components.Store.Reindex(ctx)
	}
	if err != nil {
		cleanup()
		fatalf("%s failed: %v", op, err)
	}
	switch op {
	case "compact":
		fmt.Printf("Removed %d orphaned vector(s)\n", n)
	case "reindex":
		fmt.Printf("Restored embeddings for %d document(s)\n", n)
	}
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	f := addCommonFlags(fs)
	syncExisting := fs.Bool("sync", true, "ingest files already present before watching")
	_ = fs.Parse(args)

	ctx, stop := signalContext()
	defer stop()
	cfg, components, logger, cleanup := setup(ctx, f)
	defer cleanup()

	if fs.NArg() > 0 {
		cfg.Watch.Directories = fs.Args()
	}
	if len(cfg.Watch.Directories) == 0 {
		cleanup()
		fatalf("No directories to watch: pass them as arguments or set watch.directories")
	}
	w := newWatcher(cfg, components, logger)
	if err := w.Start(ctx); err != nil {
		cleanup()
		fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()
	if *syncExisting {
		w.SyncExisting(ctx)
	}
	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", strings.Join(w.Directories(), ", "))
	<-ctx.Done()
}

// Components holds initialized services.
type Components struct {
	Embedder     embedding.Embedder
	Store        *docstore.Store
	KeywordIndex *keyword.BleveIndex
	Engine       *search.Engine
	Chunker      *indexer.Chunker
	Indexer      *indexer.Indexer
}

// Close releases everything in reverse order of opening.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	embedder, err := embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		OpenAI: embedding.OpenAIConfig{
			APIKey:            cfg.Embedding.OpenAI.APIKey,
			BaseURL:           cfg.Embedding.OpenAI.BaseURL,
			Model:             cfg.Embedding.Model,
			RequestsPerSecond: cfg.Embedding.OpenAI.RequestsPerSecond,
			Burst:             cfg.Embedding.OpenAI.Burst,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	store, err := docstore.Open(ctx, docstore.Config{
		Path:            cfg.Store.Path,
		IndexType:       cfg.Store.IndexType,
		MinSimilarity:   cfg.Search.MinSimilarity,
		ContextFallback: cfg.Search.ContextFallback,
		Lexical:         &cfg.Lexical,
	}, embedder, docstore.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	c.Store = store

	var kwIndex keyword.KeywordIndex
	if cfg.Keyword.EnabledOrDefault() {
		kw, err := keyword.NewBleveIndex(cfg.Keyword.IndexPath, keyword.WithLogger(logger))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.KeywordIndex = kw
		if rebuilt, err := kw.Sync(ctx, store); err != nil {
			logger.Warn("keyword index sync failed", zap.Error(err))
		} else if rebuilt {
			logger.Info("keyword index rebuilt from document store")
		}
		store.AddHook(kw)
		kwIndex = kw
	}

	c.Engine = search.NewEngine(store, kwIndex, search.Config{
		DefaultLimit:   cfg.Search.LibraryLimit,
		MaxLimit:       cfg.Search.MaxLimit,
		Candidates:     cfg.Search.Candidates,
		KeywordWeight:  cfg.Search.KeywordWeight,
		SemanticWeight: cfg.Search.SemanticWeight,
		TitleBoost:     cfg.Search.TitleBoost,
		SnippetLength:  cfg.Search.SnippetLength,
	}, search.WithLogger(logger))

	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap,
		indexer.WithMinChunkLength(cfg.Chunking.MinChunkLengthOrDefault()))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}
	c.Chunker = chunker
	c.Indexer = indexer.NewIndexer(store, chunker,
		extract.NewExtractor(extract.WithMaxSize(cfg.Server.MaxUploadBytes())),
		indexer.WithExtensions(cfg.Watch.Extensions),
		indexer.WithLogger(logger))
	return c, nil
}

func printUsage() {
	fmt.Println(`pagewise - document passage retrieval for question answering

Usage:
  pagewise serve [flags]                    Start the HTTP server (and the inbox watcher)
  pagewise ingest [flags] <file|dir|->      Ingest files, a directory, or stdin text
  pagewise search -doc <id> [flags] <query> Search passages inside one document
  pagewise find [flags] <query>             Search across all documents
  pagewise delete [flags] <id>              Delete a document
  pagewise info [flags] <id>                Show a document
  pagewise list [flags]                     List documents
  pagewise stats [flags]                    Show store statistics
  pagewise compact [flags]                  Drop orphaned vectors from the index
  pagewise reindex [flags]                  Restore embeddings for downgraded documents
  pagewise watch [flags] [dir...]           Watch inbox directories and ingest new files
  pagewise version                          Show version
  pagewise help                             Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/pagewise/config.yaml,
                     or ./config.yaml when present, or built-in defaults)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Search Flags:
  --doc string       Document id (required)
  --k int            Number of passages (default: search.default_top_k)
  --page int         Ask about one page ("--- Page N ---" markers)
  --context          Fall back to the leading chunks when nothing matches

Find Flags:
  --server string    Server URL; empty opens the store directly
  --limit int        Number of documents (default: search.library_limit)
  --min-score float  Minimum fused score
  --keyword          Enable keyword search (default: true)
  --semantic         Enable semantic search (default: true)
  --fuzzy            Enable fuzzy matching for typo tolerance

Examples:
  pagewise serve
  pagewise ingest ~/books/intelligent-investor.pdf
  pagewise search -doc file:3f2a... "what is the margin of safety"
  pagewise search -doc file:3f2a... -page 7 "what is discussed"
  pagewise find --output json "dividend policy"
  echo "some notes" | pagewise ingest -id notes -title Notes -`)
}
