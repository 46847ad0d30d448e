package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

// Config holds runtime knobs for retrieval.
type Config struct {
	Timeout time.Duration
}

// Retriever embeds a query and asks the vector store for its nearest documents.
type Retriever struct {
	cfg      Config
	embedder catalog.Embedder
	store    catalog.VectorStore
	logger   *slog.Logger
}

// NewRetriever wires the retrieval component.
func NewRetriever(cfg Config, embedder catalog.Embedder, store catalog.VectorStore, logger *slog.Logger) *Retriever {
	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		logger:   logger.With("component", "retrieval"),
	}
}

// Retrieve returns at most k documents ordered by descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]catalog.ScoredDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgs, "query cannot be empty", nil)
	}
	if k <= 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgs, "k must be positive", nil)
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, apperrors.WrapCall(apperrors.CodeRetrieval, "embed query", err)
	}
	if len(embedding) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "embedding provider returned an empty vector", nil)
	}

	hits, err := r.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, apperrors.WrapCall(apperrors.CodeRetrieval, "vector search", err)
	}
	for _, hit := range hits {
		if strings.TrimSpace(hit.Document.Title) == "" && strings.TrimSpace(hit.Document.Review) == "" {
			return nil, apperrors.Wrap(apperrors.CodeRetrieval, "vector store returned a document without text", nil)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	r.logger.Debug("retrieved documents", "count", len(hits), "k", k, "latency_ms", time.Since(start).Milliseconds())
	return hits, nil
}
