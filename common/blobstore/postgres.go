package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lyzr/cdn/common/db"
	"github.com/lyzr/cdn/common/models"
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS cached_blob (
		cache_key  TEXT PRIMARY KEY,
		content    BYTEA NOT NULL,
		size_bytes BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresStore keeps blobs inline in the cached_blob table
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore creates the store and makes sure its table exists
func NewPostgresStore(ctx context.Context, database *db.DB) (*PostgresStore, error) {
	if _, err := database.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create cached_blob table: %w", err)
	}
	return &PostgresStore{db: database}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT content FROM cached_blob WHERE cache_key = $1`

	var content []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached blob content: %w", err)
	}

	return content, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, data []byte) error {
	return s.Create(ctx, &models.CachedBlob{
		CacheKey:  key,
		Content:   data,
		SizeBytes: int64(len(data)),
		CreatedAt: time.Now().UTC(),
	})
}

// Create upserts a cached blob row
func (s *PostgresStore) Create(ctx context.Context, blob *models.CachedBlob) error {
	query := `
		INSERT INTO cached_blob (cache_key, content, size_bytes, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE
		SET content = EXCLUDED.content,
		    size_bytes = EXCLUDED.size_bytes,
		    created_at = EXCLUDED.created_at
	`

	_, err := s.db.Exec(ctx, query,
		blob.CacheKey,
		blob.Content,
		blob.SizeBytes,
		blob.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cached blob: %w", err)
	}

	return nil
}

// GetByKey retrieves a cached blob with its metadata
func (s *PostgresStore) GetByKey(ctx context.Context, key string) (*models.CachedBlob, error) {
	query := `
		SELECT cache_key, content, size_bytes, created_at
		FROM cached_blob
		WHERE cache_key = $1
	`

	blob := &models.CachedBlob{}
	err := s.db.QueryRow(ctx, query, key).Scan(
		&blob.CacheKey,
		&blob.Content,
		&blob.SizeBytes,
		&blob.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached blob: %w", err)
	}

	return blob, nil
}

// Close is a no-op; the pool is closed by bootstrap
func (s *PostgresStore) Close() error {
	return nil
}
