package docstore

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/pagewise/internal/models"
)

// persistLocked writes the metadata snapshot and then the index artifact. It ignores
// cancellation of ctx so a caller giving up cannot leave disk behind memory.
// Caller holds the write lock.
func (s *Store) persistLocked(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	snap := &models.Snapshot{
		Documents:           s.documents,
		Chunks:              s.chunks,
		NextChunkID:         s.nextChunkID,
		EmbeddingDimensions: s.dims,
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		perr := &PersistenceError{Op: "save metadata snapshot", Err: err}
		s.logger.Error("persist failed", zap.Error(perr))
		return perr
	}
	if s.index != nil {
		if err := s.index.Save(s.indexPath); err != nil {
			perr := &PersistenceError{Op: "save vector index", Err: err}
			s.logger.Error("persist failed", zap.Error(perr))
			return perr
		}
	}
	s.logger.Debug("persisted store", zap.Int("documents", len(s.documents)), zap.Int("chunks", len(s.chunks)))
	return nil
}

// Flush writes the current state to disk.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}
