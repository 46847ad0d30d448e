package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
	"github.com/yanqian/product-support-bot/pkg/util"
)

// Config holds runtime knobs for ingestion.
type Config struct {
	Collection    string
	CallTimeout   time.Duration
	ProgressEvery int
	// Dimension is the expected embedding size. Zero accepts whatever the
	// embedder returns first.
	Dimension int
}

// Report summarises a finished run.
type Report struct {
	Collection string    `json:"collection"`
	RowsRead   int       `json:"rowsRead"`
	Upserted   int       `json:"upserted"`
	Dimension  int       `json:"dimension"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Service loads review rows into the vector store.
type Service struct {
	cfg      Config
	embedder catalog.Embedder
	store    catalog.VectorStore
	logger   *slog.Logger
}

// NewService wires the ingestion pipeline.
func NewService(cfg Config, embedder catalog.Embedder, store catalog.VectorStore, logger *slog.Logger) *Service {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 100
	}
	return &Service{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		logger:   logger.With("component", "ingest.service"),
	}
}

// Ingest validates the whole dataset, then embeds and upserts rows one at a time.
// The first embedding or upsert failure aborts the run.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (Report, error) {
	report := Report{Collection: s.cfg.Collection, StartedAt: util.NowUTC()}

	docs, err := ParseDocuments(r)
	if err != nil {
		return report, err
	}
	report.RowsRead = len(docs)
	s.logger.Info("dataset parsed", "rows", len(docs), "collection", s.cfg.Collection)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, apperrors.Wrap(apperrors.CodeIngestion, fmt.Sprintf("ingestion interrupted after %d documents", report.Upserted), err)
		}
		embedding, err := s.embed(ctx, doc)
		if err != nil {
			return report, apperrors.WrapCall(apperrors.CodeIngestion, fmt.Sprintf("embed row %d (%d documents stored)", i+1, report.Upserted), err)
		}
		if report.Dimension == 0 {
			if s.cfg.Dimension > 0 && len(embedding) != s.cfg.Dimension {
				return report, apperrors.Wrap(apperrors.CodeIngestion, fmt.Sprintf("embedding has dimension %d but vector_store.dimension is %d", len(embedding), s.cfg.Dimension), nil)
			}
			if err := s.store.EnsureCollection(ctx, len(embedding)); err != nil {
				return report, apperrors.WrapCall(apperrors.CodeIngestion, "ensure collection", err)
			}
			report.Dimension = len(embedding)
		} else if len(embedding) != report.Dimension {
			return report, apperrors.Wrap(apperrors.CodeIngestion, fmt.Sprintf("row %d embedding has dimension %d, expected %d", i+1, len(embedding), report.Dimension), nil)
		}
		if err := s.upsert(ctx, doc, embedding); err != nil {
			return report, apperrors.WrapCall(apperrors.CodeIngestion, fmt.Sprintf("upsert row %d (%d documents stored)", i+1, report.Upserted), err)
		}
		report.Upserted++
		if report.Upserted%s.cfg.ProgressEvery == 0 {
			s.logger.Info("ingestion progress", "upserted", report.Upserted, "total", len(docs))
		}
	}

	report.FinishedAt = util.NowUTC()
	s.logger.Info("ingestion finished", "upserted", report.Upserted, "dimension", report.Dimension, "duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds())
	return report, nil
}

func (s *Service) embed(ctx context.Context, doc catalog.Document) ([]float32, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	vectors, err := s.embedder.EmbedDocuments(ctx, []string{doc.Content()})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedding provider returned %d vectors", len(vectors))
	}
	return vectors[0], nil
}

func (s *Service) upsert(ctx context.Context, doc catalog.Document, embedding []float32) error {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.store.Upsert(ctx, doc, embedding)
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}
