package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/pkg/metrics"
)

// Task types understood by the Gemini embedding endpoint.
const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// NewGenAIClient builds an authenticated Gemini API client. baseURL is optional.
func NewGenAIClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// Embedder calls the Gemini embedding model.
type Embedder struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewEmbedder constructs an embedder for the given model, e.g. "models/text-embedding-004".
func NewEmbedder(client *genai.Client, model string, logger *slog.Logger) *Embedder {
	return &Embedder{
		client: client,
		model:  strings.TrimSpace(model),
		logger: logger.With("component", "llm.gemini.embedder"),
	}
}

// EmbedQuery embeds a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts that will be stored.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, taskRetrievalDocument)
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Role: "user", Parts: []*genai.Part{{Text: text}}}
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: task})
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, item := range resp.Embeddings {
		if item == nil || len(item.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at position %d", i)
		}
		vec := make([]float32, len(item.Values))
		copy(vec, item.Values)
		out[i] = vec
	}
	return out, nil
}

// Completer calls a Gemini chat model with a single-turn prompt.
type Completer struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewCompleter constructs a completer, e.g. for "gemini-2.0-flash".
func NewCompleter(client *genai.Client, model string, temperature float32, logger *slog.Logger) *Completer {
	return &Completer{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: temperature,
		logger:      logger.With("component", "llm.gemini.completer"),
	}
}

// Complete sends the prompt and returns the model's text.
func (c *Completer) Complete(ctx context.Context, prompt string) (catalog.Completion, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return catalog.Completion{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return catalog.Completion{}, fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
		}
		return catalog.Completion{}, errors.New("gemini returned no candidates")
	}

	completion := catalog.Completion{Text: resp.Text()}
	if usage := resp.UsageMetadata; usage != nil {
		completion.Usage = metrics.TokenUsage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return completion, nil
}

var (
	_ catalog.Embedder  = (*Embedder)(nil)
	_ catalog.Completer = (*Completer)(nil)
)
