package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/infra/llm/llmtest"
	"github.com/yanqian/product-support-bot/internal/infra/vectorstore/memory"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

const sampleCSV = `product_id,product_title,rating,price,summary,review
PROD001,Wireless Bluetooth Headphones,4.5,"₹1,299",Great sound quality,These headphones have amazing sound quality and battery life.
PROD002,Gaming Laptop 16GB RAM,4.8,74999,Excellent performance,Perfect laptop for gaming and professional work.
PROD003,Smartphone 128GB Storage,4.2,15999,Good camera quality,"Camera is great, battery lasts all day."
`

func TestIngestUpsertsEveryRow(t *testing.T) {
	store := memory.NewStore()
	embedder := llmtest.NewHashEmbedder(32)
	svc := NewService(Config{Collection: "test_collection"}, embedder, store, newTestLogger())

	report, err := svc.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 3, report.RowsRead)
	require.Equal(t, 3, report.Upserted)
	require.Equal(t, 32, report.Dimension)
	require.Equal(t, "test_collection", report.Collection)
	require.False(t, report.FinishedAt.Before(report.StartedAt))
	require.Equal(t, 3, store.Len())
	require.Equal(t, 3, embedder.Calls())
}

func TestIngestIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(Config{}, llmtest.NewHashEmbedder(32), store, newTestLogger())

	_, err := svc.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())
}

func TestIngestRejectsMissingColumns(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(Config{}, llmtest.NewHashEmbedder(8), store, newTestLogger())

	_, err := svc.Ingest(context.Background(), strings.NewReader("product_id,title,score\nPROD001,Test Product,4.5\n"))
	require.True(t, apperrors.IsCode(err, apperrors.CodeDataFormat))
	require.Contains(t, err.Error(), "CSV must contain columns:")
	require.Zero(t, store.upserts)
}

func TestIngestBadRowAbortsBeforeAnyUpsert(t *testing.T) {
	tests := map[string]string{
		"empty title":    "product_title,rating,price,review\nGood,4,10,fine\n,4,10,no title\n",
		"empty review":   "product_title,rating,price,review\nGood,4,10,fine\nBad,4,10,\n",
		"bad rating":     "product_title,rating,price,review\nGood,4,10,fine\nBad,great,10,text\n",
		"missing price":  "product_title,rating,price,review\nGood,4,10,fine\nBad,4,,text\n",
		"rating prose":   "product_title,rating,price,review\nGood,4,10,fine\nBad,\"4.5 out of 5\",10,text\n",
		"rating ratio":   "product_title,rating,price,review\nGood,4,10,fine\nBad,4.5/5,10,text\n",
		"decimal comma":  "product_title,rating,price,review\nGood,4,10,fine\nBad,4,\"1.299,00\",text\n",
		"nan price":      "product_title,rating,price,review\nGood,4,10,fine\nBad,4,NaN,text\n",
		"short row":      "product_title,rating,price,review\nGood,4,10,fine\nBad,4\n",
		"header only":    "product_title,rating,price,review\n",
		"empty document": "",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			store := &recordingStore{}
			embedder := llmtest.NewHashEmbedder(8)
			svc := NewService(Config{}, embedder, store, newTestLogger())

			_, err := svc.Ingest(context.Background(), strings.NewReader(body))
			require.True(t, apperrors.IsCode(err, apperrors.CodeDataFormat), "got %v", err)
			require.Zero(t, store.upserts)
			require.Zero(t, embedder.Calls())
		})
	}
}

func TestIngestStopsOnUpsertFailure(t *testing.T) {
	store := &recordingStore{failAt: 2, err: errors.New("astra unavailable")}
	svc := NewService(Config{}, llmtest.NewHashEmbedder(8), store, newTestLogger())

	report, err := svc.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.True(t, apperrors.IsCode(err, apperrors.CodeIngestion))
	require.Contains(t, err.Error(), "1 documents stored")
	require.Equal(t, 1, report.Upserted)
	require.Equal(t, 2, store.upserts)
}

func TestIngestRejectsUnexpectedDimension(t *testing.T) {
	store := &recordingStore{}
	embedder := llmtest.NewHashEmbedder(8)
	svc := NewService(Config{Dimension: 768}, embedder, store, newTestLogger())

	report, err := svc.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.True(t, apperrors.IsCode(err, apperrors.CodeIngestion))
	require.Contains(t, err.Error(), "vector_store.dimension is 768")
	require.Zero(t, report.Dimension)
	require.Zero(t, store.upserts)
	require.Equal(t, 1, embedder.Calls())
}

func TestIngestAcceptsConfiguredDimension(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(Config{Dimension: 8}, llmtest.NewHashEmbedder(8), store, newTestLogger())

	report, err := svc.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 8, report.Dimension)
	require.Equal(t, 3, store.Len())
}

func TestParseDocumentsFields(t *testing.T) {
	docs, err := ParseDocuments(strings.NewReader("\ufeffProduct_Title, Rating ,price,review,total_reviews\nBoAt Rockerz 235v2,4.1,\"₹1,299\",great battery life,\"1,024\"\n"))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	require.Equal(t, "BoAt Rockerz 235v2", doc.Title)
	require.Equal(t, 4.1, doc.Rating)
	require.Equal(t, 1299.0, doc.Price)
	require.Equal(t, 1024, doc.ReviewCount)
	require.Equal(t, catalog.StableID("", doc.Title, doc.Review), doc.ID)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingStore struct {
	upserts int
	failAt  int
	err     error
}

func (s *recordingStore) EnsureCollection(context.Context, int) error { return nil }

func (s *recordingStore) Upsert(context.Context, catalog.Document, []float32) error {
	s.upserts++
	if s.failAt > 0 && s.upserts == s.failAt {
		return s.err
	}
	return nil
}

func (s *recordingStore) Search(context.Context, []float32, int) ([]catalog.ScoredDocument, error) {
	return nil, nil
}
