package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/pagewise/internal/models"
)

const (
	metaNextChunkID = "next_chunk_id"
	metaDimensions  = "embedding_dimensions"
)

// SQLiteSnapshotStore implements SnapshotStore using SQLite.
type SQLiteSnapshotStore struct {
	db *sql.DB
}

// NewSQLiteSnapshotStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteSnapshotStore(dbPath string) (*SQLiteSnapshotStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteSnapshotStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		chunk_count INTEGER NOT NULL,
		added_at TIMESTAMP NOT NULL,
		has_embeddings INTEGER NOT NULL DEFAULT 0,
		metadata TEXT
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		embedding BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_chunk ON chunks(document_id, chunk_index);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Save replaces the stored snapshot with snap in a single transaction.
func (s *SQLiteSnapshotStore) Save(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"documents", "chunks", "store_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, title, chunk_count, added_at, has_embeddings, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer docStmt.Close()

	for _, doc := range snap.Documents {
		var metadataJSON []byte
		if len(doc.Metadata) > 0 {
			if metadataJSON, err = json.Marshal(doc.Metadata); err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
		}
		if _, err := docStmt.ExecContext(ctx,
			doc.ID, doc.Title, doc.ChunkCount, doc.AddedAt, doc.HasEmbeddings, string(metadataJSON),
		); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, content, chunk_index, created_at, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	for _, chunk := range snap.Chunks {
		if _, err := chunkStmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.Text, chunk.ChunkIndex, chunk.CreatedAt, EncodeEmbedding(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ID, err)
		}
	}

	meta := map[string]string{
		metaNextChunkID: strconv.FormatInt(snap.NextChunkID, 10),
		metaDimensions:  strconv.Itoa(snap.EmbeddingDimensions),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO store_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Load reads the stored snapshot. Chunks whose document is missing are skipped and each
// document's ChunkIDs are rebuilt in chunk_index order.
func (s *SQLiteSnapshotStore) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := models.NewSnapshot()

	if err := s.loadMeta(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadDocuments(ctx, snap); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, chunk_index, created_at, embedding
		 FROM chunks ORDER BY document_id, chunk_index`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var chunk models.Chunk
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &chunk.ChunkIndex, &chunk.CreatedAt, &blob); err != nil {
			return nil, err
		}
		doc, ok := snap.Documents[chunk.DocumentID]
		if !ok {
			continue
		}
		emb, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk.ID, err)
		}
		chunk.Embedding = emb
		snap.Chunks[chunk.ID] = &chunk
		doc.ChunkIDs = append(doc.ChunkIDs, chunk.ID)
		if chunk.ID >= snap.NextChunkID {
			snap.NextChunkID = chunk.ID + 1
		}
	}
	return snap, rows.Err()
}

func (s *SQLiteSnapshotStore) loadMeta(ctx context.Context, snap *models.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM store_meta`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		switch k {
		case metaNextChunkID:
			if snap.NextChunkID, err = strconv.ParseInt(v, 10, 64); err != nil {
				return fmt.Errorf("invalid %s %q: %w", k, v, err)
			}
		case metaDimensions:
			if snap.EmbeddingDimensions, err = strconv.Atoi(v); err != nil {
				return fmt.Errorf("invalid %s %q: %w", k, v, err)
			}
		}
	}
	return rows.Err()
}

func (s *SQLiteSnapshotStore) loadDocuments(ctx context.Context, snap *models.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, chunk_count, added_at, has_embeddings, metadata FROM documents`,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var doc models.Document
		var title, metadataJSON sql.NullString
		if err := rows.Scan(&doc.ID, &title, &doc.ChunkCount, &doc.AddedAt, &doc.HasEmbeddings, &metadataJSON); err != nil {
			return err
		}
		doc.Title = title.String
		if metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
				return fmt.Errorf("failed to unmarshal metadata for %s: %w", doc.ID, err)
			}
		}
		snap.Documents[doc.ID] = &doc
	}
	return rows.Err()
}

// Close closes the database connection.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}
