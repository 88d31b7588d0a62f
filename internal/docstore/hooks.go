package docstore

import (
	"context"

	"github.com/hyperjump/pagewise/internal/models"
)

// Hook observes committed changes, for secondary indexes kept in sync with the store.
// Hooks run after the store lock is released; their errors are logged, not returned.
type Hook interface {
	DocumentIngested(ctx context.Context, doc *models.DocumentInfo, chunks []*models.Chunk) error
	DocumentDeleted(ctx context.Context, documentID string) error
}
