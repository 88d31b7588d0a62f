// Package cli formats command output for the pagewise CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/pagewise/internal/indexer"
	"github.com/hyperjump/pagewise/internal/models"
	"github.com/hyperjump/pagewise/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat returns the format named by s.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

const (
	rule           = "─────────────────────────────────────────────────────────"
	passagePreview = 300
	snippetPreview = 200
)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteLibraryResults writes library-wide search results to w in the given format.
func WriteLibraryResults(w io.Writer, response *models.LibraryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d documents in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			result.Rank, result.Score, result.KeywordScore, result.SemanticScore)
		if result.Document != nil {
			fmt.Fprintf(w, "ID: %s\n", result.Document.ID)
			if result.Document.Title != "" {
				fmt.Fprintf(w, "Title: %s\n", result.Document.Title)
			}
		}
		if result.Snippet != "" {
			fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Snippet, snippetPreview))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WritePassages writes the passages found in one document.
func WritePassages(w io.Writer, documentID, query string, passages []*models.Passage, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{
			"document_id": documentID,
			"query":       query,
			"passages":    passages,
		})
	}
	if len(passages) == 0 {
		fmt.Fprintf(w, "No passages found in %s\n", documentID)
		return nil
	}
	fmt.Fprintf(w, "\n%d passages from %s\n\n", len(passages), documentID)
	for i, p := range passages {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[%d] chunk %d | %s score %.4f\n", i+1, p.ChunkIndex, p.Method, p.Score)
		fmt.Fprintf(w, "\n%s\n\n", utils.Preview(p.Text, passagePreview))
	}
	return nil
}

// WriteDocuments writes a document list.
func WriteDocuments(w io.Writer, docs []*models.DocumentInfo, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"documents": docs, "total": len(docs)})
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents")
		return nil
	}
	for _, d := range docs {
		writeDocumentLine(w, d)
	}
	fmt.Fprintf(w, "\n%d documents\n", len(docs))
	return nil
}

// WriteDocument writes one document's info.
func WriteDocument(w io.Writer, doc *models.DocumentInfo, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, doc)
	}
	fmt.Fprintf(w, "ID: %s\n", doc.ID)
	if doc.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", doc.Title)
	}
	fmt.Fprintf(w, "Chunks: %d\n", doc.ChunkCount)
	fmt.Fprintf(w, "Embeddings: %s\n", yesNo(doc.HasEmbeddings))
	fmt.Fprintf(w, "Added: %s\n", doc.AddedAt.Format("2006-01-02 15:04:05"))
	for _, k := range sortedKeys(doc.Metadata) {
		fmt.Fprintf(w, "  %s: %s\n", k, doc.Metadata[k])
	}
	return nil
}

func writeDocumentLine(w io.Writer, d *models.DocumentInfo) {
	title := TruncateWords(d.Title, 12)
	if title == "" {
		title = "-"
	}
	fmt.Fprintf(w, "%-40s %4d chunks  embeddings:%-3s  %s\n", d.ID, d.ChunkCount, yesNo(d.HasEmbeddings), title)
}

// WriteStats writes store statistics.
func WriteStats(w io.Writer, stats *models.Stats, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, stats)
	}
	fmt.Fprintf(w, "Documents:          %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "Chunks:             %d\n", stats.TotalChunks)
	fmt.Fprintf(w, "Avg chunks per doc: %.2f\n", stats.AvgChunksPerDocument)
	fmt.Fprintf(w, "Embeddings:         %s\n", yesNo(stats.HasEmbeddings))
	if stats.EmbeddingModel != "" {
		fmt.Fprintf(w, "Embedding model:    %s\n", stats.EmbeddingModel)
	}
	fmt.Fprintf(w, "Vector index:       %s (%d vectors, %d orphaned)\n",
		yesNo(stats.HasIndex), stats.IndexSize, stats.OrphanedVectors)
	return nil
}

// WriteIngestResults writes the outcome of ingesting files or text.
func WriteIngestResults(w io.Writer, results []*indexer.Result, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, results)
	}
	for _, r := range results {
		if r.Skipped {
			fmt.Fprintf(w, "unchanged %s\n", r.DocumentID)
			continue
		}
		fmt.Fprintf(w, "ingested  %s (%d chunks, %d chars, embeddings: %s)\n",
			r.DocumentID, r.ChunkCount, r.TextLength, yesNo(r.HasEmbeddings))
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
