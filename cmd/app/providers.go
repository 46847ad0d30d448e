package main

import (
	"context"
	"log/slog"

	"github.com/yanqian/product-support-bot/internal/bootstrap"
	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/domain/chat"
	"github.com/yanqian/product-support-bot/internal/domain/prompt"
	"github.com/yanqian/product-support-bot/internal/domain/retrieval"
	"github.com/yanqian/product-support-bot/internal/infra/config"
	"github.com/yanqian/product-support-bot/internal/infra/llm"
	"github.com/yanqian/product-support-bot/internal/infra/tokenizer"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

func provideChatConfig(cfg *config.Config) (chat.Config, error) {
	if cfg.Retriever.TopK <= 0 {
		return chat.Config{}, apperrors.Wrap(apperrors.CodeConfig, "retriever.top_k must be a positive integer", nil)
	}
	return chat.Config{
		TopK:              cfg.Retriever.TopK,
		Template:          prompt.ProductBot,
		CompletionTimeout: cfg.LLM.Timeout,
		MaxContextTokens:  cfg.Retriever.MaxContextTokens,
	}, nil
}

func provideRetrieverConfig(cfg *config.Config) retrieval.Config {
	return retrieval.Config{Timeout: cfg.Retriever.Timeout}
}

func provideEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Embedder, func(), error) {
	return bootstrap.NewEmbedder(ctx, cfg, logger)
}

func provideCompleter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Completer, error) {
	return llm.LoadCompletionClient(ctx, cfg.LLM, logger)
}

func provideVectorStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.VectorStore, func(), error) {
	return bootstrap.NewVectorStore(ctx, cfg, logger)
}

func provideTokenCounter(ctx context.Context, cfg *config.Config, logger *slog.Logger) *tokenizer.Counter {
	return tokenizer.Load(ctx, cfg.Retriever.TokenEncoding, logger)
}
