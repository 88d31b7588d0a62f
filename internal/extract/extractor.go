// Package extract provides text extraction from PDF, office and plain text documents.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileTooLarge is returned when a document exceeds the configured maximum size.
var ErrFileTooLarge = errors.New("file too large")

// SupportedExtensions lists the extensions with a dedicated extractor.
var SupportedExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md", ".rst"}

// Supported reports whether ext (with leading dot, any case) has a dedicated extractor.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Extractor extracts plain text from document files.
type Extractor struct {
	maxSize int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxSize rejects documents larger than n bytes. Zero or less disables the limit.
func WithMaxSize(n int64) Option {
	return func(e *Extractor) {
		e.maxSize = n
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSize returns the size limit in bytes, zero when unlimited.
func (e *Extractor) MaxSize() int64 {
	return e.maxSize
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if err := e.checkSize(info.Size()); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as
// plain text. PDF text carries "--- Page N ---" markers before every page.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if err := e.checkSize(int64(len(content))); err != nil {
		return "", err
	}
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractOffice(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

func (e *Extractor) checkSize(size int64) error {
	if e.maxSize > 0 && size > e.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, e.maxSize)
	}
	return nil
}
