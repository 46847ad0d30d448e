package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/infra/config"
)

// NewPool opens and pings a connection pool for the configured DSN.
func NewPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Store keeps product documents in a Postgres table with a pgvector column and
// ranks them by cosine distance.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewStore constructs the store over an existing pool.
func NewStore(pool *pgxpool.Pool, table string, logger *slog.Logger) (*Store, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("postgres table cannot be empty")
	}
	return &Store{
		pool:   pool,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger.With("component", "vectorstore.pgvector", "table", table),
	}, nil
}

// EnsureCollection creates the extension and table, then checks the stored dimension.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			product_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			review TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			review_count INTEGER NOT NULL DEFAULT 0,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding VECTOR(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.table, dimension))
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	var stored int
	row := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = to_regclass($1) AND attname = 'embedding'
	`, s.table)
	if err := row.Scan(&stored); err != nil {
		return fmt.Errorf("inspect embedding column: %w", err)
	}
	if stored > 0 && stored != dimension {
		return fmt.Errorf("collection dimension is %d, got %d", stored, dimension)
	}
	s.logger.Debug("collection ready", "dimension", dimension)
	return nil
}

// Upsert inserts the document or replaces the row with the same ID.
func (s *Store) Upsert(ctx context.Context, doc catalog.Document, embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, product_id, title, review, summary, price, rating, review_count, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			title = EXCLUDED.title,
			review = EXCLUDED.review,
			summary = EXCLUDED.summary,
			price = EXCLUDED.price,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
	`, s.table),
		doc.ID, doc.ProductID, doc.Title, doc.Review, doc.Summary, doc.Price, doc.Rating, doc.ReviewCount,
		doc.Metadata(), pgv.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// Search returns the k nearest rows. Score is 1 - cosine distance.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]catalog.ScoredDocument, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid k %d", k)
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, product_id, title, review, summary, price, rating, review_count,
			1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1 ASC
		LIMIT $2
	`, s.table), pgv.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []catalog.ScoredDocument
	for rows.Next() {
		var hit catalog.ScoredDocument
		doc := &hit.Document
		if err := rows.Scan(&doc.ID, &doc.ProductID, &doc.Title, &doc.Review, &doc.Summary,
			&doc.Price, &doc.Rating, &doc.ReviewCount, &hit.Score); err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}

var _ catalog.VectorStore = (*Store)(nil)
