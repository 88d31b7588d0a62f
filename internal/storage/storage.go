// Package storage persists the document store metadata snapshot.
package storage

import (
	"context"

	"github.com/hyperjump/pagewise/internal/models"
)

// SnapshotStore saves and loads the full metadata snapshot. Save replaces whatever was
// stored before in one transaction, so a failed save leaves the previous snapshot intact.
type SnapshotStore interface {
	Save(ctx context.Context, snap *models.Snapshot) error
	// Load returns the stored snapshot, or an empty one when nothing has been saved.
	Load(ctx context.Context) (*models.Snapshot, error)
	Close() error
}
