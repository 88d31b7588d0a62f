package docstore

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxDocumentIDLength is the longest accepted document id, in bytes.
const MaxDocumentIDLength = 256

// Sentinels for errors.Is; each typed error below matches exactly one of them.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("document not found")
	ErrEmbedding   = errors.New("embedding failed")
	ErrPersistence = errors.New("persistence failed")
)

// ValidationError reports a malformed argument. It is returned before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown document id on info and delete paths.
type NotFoundError struct {
	DocumentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.DocumentID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// EmbeddingError wraps a failure to embed text or query the vector index. It is never
// returned by Search; searches degrade to lexical scoring instead.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Is matches ErrEmbedding.
func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// PersistenceError wraps a failure to write the snapshot or the index artifact.
// The in-memory state is still updated and queryable when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// ValidateDocumentID checks that id is non-blank, at most MaxDocumentIDLength bytes and
// free of control characters.
func ValidateDocumentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "document_id", Reason: "must not be empty"}
	}
	if len(id) > MaxDocumentIDLength {
		return &ValidationError{Field: "document_id", Reason: fmt.Sprintf("longer than %d bytes", MaxDocumentIDLength)}
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return &ValidationError{Field: "document_id", Reason: "contains control characters"}
	}
	return nil
}

func validateQuery(query string, topK int) error {
	if strings.TrimSpace(query) == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if topK <= 0 {
		return &ValidationError{Field: "top_k", Reason: fmt.Sprintf("must be positive, got %d", topK)}
	}
	return nil
}
