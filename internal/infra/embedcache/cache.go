package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
)

// Store persists query embeddings by key.
type Store interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, embedding []float32, ttl time.Duration) error
}

// Embedder caches query embeddings in front of another embedder. Document
// embeddings are not cached.
type Embedder struct {
	next   catalog.Embedder
	store  Store
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewEmbedder wraps next. model is part of every cache key.
func NewEmbedder(next catalog.Embedder, store Store, model string, ttl time.Duration, logger *slog.Logger) *Embedder {
	return &Embedder{
		next:   next,
		store:  store,
		model:  model,
		ttl:    ttl,
		logger: logger.With("component", "embedcache"),
	}
}

// EmbedQuery serves from the cache when possible. Cache failures degrade to a direct call.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)
	cached, ok, err := e.store.Get(ctx, key)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "error", err)
	} else if ok {
		e.logger.Debug("embedding cache hit")
		return cached, nil
	}

	embedding, err := e.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.store.Set(ctx, key, embedding, e.ttl); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
	return embedding, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.next.EmbedDocuments(ctx, texts)
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + strings.Join(strings.Fields(text), " ")))
	return hex.EncodeToString(sum[:])
}

var _ catalog.Embedder = (*Embedder)(nil)
