package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/product-support-bot/internal/domain/prompt"
	"github.com/yanqian/product-support-bot/internal/infra/config"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

func TestProvideChatConfigRejectsNonPositiveTopK(t *testing.T) {
	for _, k := range []int{0, -1} {
		cfg := &config.Config{Retriever: config.RetrieverConfig{TopK: k}}
		_, err := provideChatConfig(cfg)
		require.True(t, apperrors.IsCode(err, apperrors.CodeConfig), "top_k=%d", k)
	}
}

func TestProvideChatConfigMapsSettings(t *testing.T) {
	cfg := &config.Config{
		Retriever: config.RetrieverConfig{TopK: 3, MaxContextTokens: 500, Timeout: 2 * time.Second},
		LLM:       config.LLMConfig{Timeout: 30 * time.Second},
	}
	chatCfg, err := provideChatConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, 3, chatCfg.TopK)
	require.Equal(t, prompt.ProductBot, chatCfg.Template)
	require.Equal(t, 30*time.Second, chatCfg.CompletionTimeout)
	require.Equal(t, 500, chatCfg.MaxContextTokens)
	require.Equal(t, 2*time.Second, provideRetrieverConfig(cfg).Timeout)
}
