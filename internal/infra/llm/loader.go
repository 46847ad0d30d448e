package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/infra/config"
	"github.com/yanqian/product-support-bot/internal/infra/llm/gemini"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

// ProviderGoogle selects Gemini through the Google AI API. "gemini" is accepted as an alias.
const ProviderGoogle = "google"

// LoadEmbeddingClient builds the embedding client named by the embedding_model section.
func LoadEmbeddingClient(ctx context.Context, cfg config.ModelConfig, logger *slog.Logger) (catalog.Embedder, error) {
	provider, err := resolveProvider("embedding_model", cfg.Provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "embedding_model.model_name is not set", nil)
	}
	switch provider {
	case ProviderGoogle:
		client, err := newGoogleClient(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("embedding client ready", "provider", provider, "model", cfg.ModelName)
		return gemini.NewEmbedder(client, cfg.ModelName, logger), nil
	}
	return nil, apperrors.Wrap(apperrors.CodeProvider, fmt.Sprintf("unsupported embedding provider %q", cfg.Provider), nil)
}

// LoadCompletionClient builds the completion client named by the llm section.
func LoadCompletionClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (catalog.Completer, error) {
	provider, err := resolveProvider("llm", cfg.Provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "llm.model_name is not set", nil)
	}
	switch provider {
	case ProviderGoogle:
		client, err := newGoogleClient(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("completion client ready", "provider", provider, "model", cfg.ModelName)
		return gemini.NewCompleter(client, cfg.ModelName, cfg.Temperature, logger), nil
	}
	return nil, apperrors.Wrap(apperrors.CodeProvider, fmt.Sprintf("unsupported llm provider %q", cfg.Provider), nil)
}

func resolveProvider(section, name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "google", "gemini":
		return ProviderGoogle, nil
	case "":
		return "", apperrors.Wrap(apperrors.CodeProvider, section+".provider is not set", nil)
	default:
		return "", apperrors.Wrap(apperrors.CodeProvider, fmt.Sprintf("unsupported %s provider %q", section, name), nil)
	}
}

func newGoogleClient(ctx context.Context) (*genai.Client, error) {
	env, err := config.RequireEnv(config.EnvGoogleAPIKey)
	if err != nil {
		return nil, err
	}
	client, err := gemini.NewGenAIClient(ctx, env[config.EnvGoogleAPIKey], "")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeProvider, "initialise gemini client", err)
	}
	return client, nil
}
