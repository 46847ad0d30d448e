package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/infra/config"
	"github.com/yanqian/product-support-bot/internal/infra/embedcache"
	"github.com/yanqian/product-support-bot/internal/infra/llm"
	"github.com/yanqian/product-support-bot/internal/infra/vectorstore/astra"
	"github.com/yanqian/product-support-bot/internal/infra/vectorstore/memory"
	"github.com/yanqian/product-support-bot/internal/infra/vectorstore/pgvector"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

// Vector store providers accepted in vector_store.provider.
const (
	StoreAstra    = "astra"
	StorePGVector = "pgvector"
	StoreMemory   = "memory"
)

func noop() {}

// NewVectorStore builds the configured similarity search backend. The returned
// cleanup releases pooled connections.
func NewVectorStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.VectorStore, func(), error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.VectorStore.Provider))
	switch provider {
	case StoreAstra, "":
		collection := strings.TrimSpace(cfg.AstraDB.CollectionName)
		if collection == "" {
			return nil, noop, apperrors.Wrap(apperrors.CodeConfig, "astra_db.collection_name is not set", nil)
		}
		astraCfg, err := astra.ConfigFromEnv(collection)
		if err != nil {
			return nil, noop, err
		}
		astraCfg.Timeout = cfg.Retriever.Timeout
		store, err := astra.NewStore(astraCfg, logger)
		if err != nil {
			return nil, noop, apperrors.Wrap(apperrors.CodeConfig, "init astra store", err)
		}
		logger.Info("vector store ready", "provider", StoreAstra, "collection", collection)
		return store, noop, nil
	case StorePGVector:
		pool, err := pgvector.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, apperrors.Wrap(apperrors.CodeConfig, "init pgvector store", err)
		}
		store, err := pgvector.NewStore(pool, cfg.Postgres.Table, logger)
		if err != nil {
			pool.Close()
			return nil, noop, apperrors.Wrap(apperrors.CodeConfig, "init pgvector store", err)
		}
		logger.Info("vector store ready", "provider", StorePGVector, "table", cfg.Postgres.Table)
		return store, pool.Close, nil
	case StoreMemory:
		logger.Warn("using in-process vector store, data is lost on exit")
		return memory.NewStore(), noop, nil
	}
	return nil, noop, apperrors.Wrap(apperrors.CodeProvider, fmt.Sprintf("unsupported vector store provider %q", cfg.VectorStore.Provider), nil)
}

// NewEmbedder builds the embedding client and, when enabled, fronts it with the
// query embedding cache. Valkey failures fall back to an in-process cache.
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Embedder, func(), error) {
	embedder, err := llm.LoadEmbeddingClient(ctx, cfg.EmbeddingModel, logger)
	if err != nil {
		return nil, noop, err
	}
	if !cfg.Cache.Enabled {
		return embedder, noop, nil
	}

	var (
		store   embedcache.Store
		cleanup = noop
	)
	client, err := embedcache.NewValkeyClient(ctx, cfg.Cache.Addr)
	if err != nil {
		logger.Error("valkey unavailable, falling back to memory embedding cache", "error", err)
		store = embedcache.NewMemoryStore()
	} else {
		logger.Info("valkey embedding cache enabled", "addr", cfg.Cache.Addr)
		store = embedcache.NewValkeyStore(client, cfg.Cache.Prefix)
		cleanup = client.Close
	}
	return embedcache.NewEmbedder(embedder, store, cfg.EmbeddingModel.ModelName, cfg.Cache.TTL, logger), cleanup, nil
}
