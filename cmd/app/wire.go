//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/yanqian/product-support-bot/internal/bootstrap"
	"github.com/yanqian/product-support-bot/internal/domain/chat"
	"github.com/yanqian/product-support-bot/internal/domain/prompt"
	"github.com/yanqian/product-support-bot/internal/domain/retrieval"
	"github.com/yanqian/product-support-bot/internal/infra/config"
	"github.com/yanqian/product-support-bot/internal/infra/tokenizer"
	httpiface "github.com/yanqian/product-support-bot/internal/interface/http"
	"github.com/yanqian/product-support-bot/pkg/logger"
)

func initializeApp(ctx context.Context) (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatConfig,
		provideRetrieverConfig,
		provideEmbedder,
		provideCompleter,
		provideVectorStore,
		provideTokenCounter,
		prompt.DefaultLibrary,
		retrieval.NewRetriever,
		chat.NewService,
		wire.Bind(new(chat.Retriever), new(*retrieval.Retriever)),
		wire.Bind(new(chat.Renderer), new(*prompt.Library)),
		wire.Bind(new(chat.TokenCounter), new(*tokenizer.Counter)),
		wire.Bind(new(httpiface.ChatService), new(*chat.Service)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
