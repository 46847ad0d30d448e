package catalog

import (
	"context"

	"github.com/yanqian/product-support-bot/pkg/metrics"
)

// Embedder turns text into vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Completion is the generated reply plus the provider's token accounting.
type Completion struct {
	Text  string
	Usage metrics.TokenUsage
}

// Completer maps a prompt to generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// VectorStore persists documents with their embeddings and runs nearest-neighbour search.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, doc Document, embedding []float32) error
	Search(ctx context.Context, embedding []float32, k int) ([]ScoredDocument, error)
}
