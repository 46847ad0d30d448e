package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/infra/llm/llmtest"
	"github.com/yanqian/product-support-bot/internal/infra/vectorstore/memory"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

var corpus = []catalog.Document{
	{Title: "Wireless Bluetooth Headphones Premium", Review: "These headphones provide crystal clear audio with deep bass. Battery lasts for 20+ hours."},
	{Title: "Gaming Laptop 16GB RAM Intel i7", Review: "This laptop handles all modern games at high settings."},
	{Title: "Smartphone 128GB Storage Dual Camera", Review: "The camera quality is impressive, especially in low light."},
	{Title: "Mechanical Gaming Keyboard RGB", Review: "The mechanical switches are responsive and the RGB lighting is customizable."},
	{Title: "Portable Bluetooth Speaker Waterproof", Review: "Despite its compact size, this speaker delivers powerful sound."},
}

func seededRetriever(t *testing.T) (*Retriever, *memory.Store) {
	t.Helper()
	embedder := llmtest.NewHashEmbedder(256)
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, embedder.Dim))
	for _, doc := range corpus {
		doc.ID = catalog.StableID("", doc.Title, doc.Review)
		vectors, err := embedder.EmbedDocuments(ctx, []string{doc.Content()})
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, doc, vectors[0]))
	}
	return NewRetriever(Config{Timeout: time.Second}, embedder, store, newTestLogger()), store
}

func TestRetrieveFindsIngestedText(t *testing.T) {
	retriever, _ := seededRetriever(t)

	for _, doc := range corpus {
		hits, err := retriever.Retrieve(context.Background(), doc.Content(), 3)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		require.Equal(t, doc.Title, hits[0].Document.Title)
	}

	hits, err := retriever.Retrieve(context.Background(), "gaming laptop with 16GB RAM", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "Gaming Laptop 16GB RAM Intel i7", hits[0].Document.Title)
	require.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestRetrieveRejectsInvalidInputWithoutQuerying(t *testing.T) {
	store := &countingStore{}
	embedder := llmtest.NewHashEmbedder(8)
	retriever := NewRetriever(Config{}, embedder, store, newTestLogger())

	for _, k := range []int{0, -1} {
		_, err := retriever.Retrieve(context.Background(), "headphones", k)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgs))
	}
	_, err := retriever.Retrieve(context.Background(), "   ", 3)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgs))

	require.Zero(t, store.searches)
	require.Zero(t, embedder.Calls())
}

func TestRetrieveWrapsStoreFailures(t *testing.T) {
	store := &countingStore{err: errors.New("connection refused")}
	retriever := NewRetriever(Config{}, llmtest.NewHashEmbedder(8), store, newTestLogger())

	_, err := retriever.Retrieve(context.Background(), "headphones", 3)
	require.True(t, apperrors.IsCode(err, apperrors.CodeRetrieval))
	require.Equal(t, 1, store.searches)
}

func TestRetrieveReportsTimeout(t *testing.T) {
	store := &countingStore{block: true}
	retriever := NewRetriever(Config{Timeout: 20 * time.Millisecond}, llmtest.NewHashEmbedder(8), store, newTestLogger())

	_, err := retriever.Retrieve(context.Background(), "headphones", 3)
	require.True(t, apperrors.IsCode(err, apperrors.CodeTimeout))
}

func TestRetrieveRejectsMalformedHits(t *testing.T) {
	store := &countingStore{hits: []catalog.ScoredDocument{{Score: 0.9}}}
	retriever := NewRetriever(Config{}, llmtest.NewHashEmbedder(8), store, newTestLogger())

	_, err := retriever.Retrieve(context.Background(), "headphones", 3)
	require.True(t, apperrors.IsCode(err, apperrors.CodeRetrieval))
}

func TestRetrieveTrimsAndOrdersHits(t *testing.T) {
	store := &countingStore{hits: []catalog.ScoredDocument{
		{Document: catalog.Document{Title: "low"}, Score: 0.1},
		{Document: catalog.Document{Title: "high"}, Score: 0.9},
		{Document: catalog.Document{Title: "mid"}, Score: 0.5},
	}}
	retriever := NewRetriever(Config{}, llmtest.NewHashEmbedder(8), store, newTestLogger())

	hits, err := retriever.Retrieve(context.Background(), "anything", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "high", hits[0].Document.Title)
	require.Equal(t, "mid", hits[1].Document.Title)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingStore struct {
	searches int
	hits     []catalog.ScoredDocument
	err      error
	block    bool
}

func (s *countingStore) EnsureCollection(context.Context, int) error { return nil }

func (s *countingStore) Upsert(context.Context, catalog.Document, []float32) error { return nil }

func (s *countingStore) Search(ctx context.Context, _ []float32, _ int) ([]catalog.ScoredDocument, error) {
	s.searches++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]catalog.ScoredDocument(nil), s.hits...), nil
}
