// Command ingest loads the product review CSV into the configured vector store
// and then checks that retrieval returns documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yanqian/product-support-bot/internal/bootstrap"
	"github.com/yanqian/product-support-bot/internal/domain/ingest"
	"github.com/yanqian/product-support-bot/internal/domain/retrieval"
	"github.com/yanqian/product-support-bot/internal/infra/config"
	"github.com/yanqian/product-support-bot/internal/infra/dataset"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
	applogger "github.com/yanqian/product-support-bot/pkg/logger"
)

const smokeQuery = "Can you suggest good budget laptops?"

func main() {
	_ = godotenv.Load()

	datasetPath := flag.String("dataset", "", "CSV path or s3://bucket/key (defaults to dataset.path)")
	skipSmoke := flag.Bool("skip-smoke-test", false, "skip the retrieval check after ingestion")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *datasetPath, *skipSmoke); err != nil {
		log.Fatalf("ingestion failed: %v", err)
	}
}

func run(ctx context.Context, datasetPath string, skipSmoke bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := applogger.New().With("command", "ingest")
	if datasetPath == "" {
		datasetPath = cfg.Dataset.Path
	}

	if missing := config.MissingEnv(requiredEnv(cfg, datasetPath)...); len(missing) > 0 {
		return apperrors.Wrap(apperrors.CodeCredential, "missing environment variables: "+strings.Join(missing, ", "), nil)
	}
	logger.Info("environment ok")

	embedder, cleanupEmbedder, err := bootstrap.NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupEmbedder()
	store, cleanupStore, err := bootstrap.NewVectorStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupStore()

	src, err := dataset.Open(ctx, cfg.Dataset, datasetPath, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	svc := ingest.NewService(ingest.Config{
		Collection:  collectionName(cfg),
		CallTimeout: cfg.Retriever.Timeout,
		Dimension:   cfg.VectorStore.Dimension,
	}, embedder, store, logger)
	report, err := svc.Ingest(ctx, src)
	if err != nil {
		return err
	}
	logger.Info("database populated", "rows", report.RowsRead, "upserted", report.Upserted, "collection", report.Collection)

	if skipSmoke {
		return nil
	}
	smokeTest(ctx, cfg, retrieval.NewRetriever(retrieval.Config{Timeout: cfg.Retriever.Timeout}, embedder, store, logger), logger)
	return nil
}

// smokeTest never fails the run; the data is already stored.
func smokeTest(ctx context.Context, cfg *config.Config, retriever *retrieval.Retriever, logger *slog.Logger) {
	k := cfg.Retriever.TopK
	if k <= 0 {
		k = 3
	}
	docs, err := retriever.Retrieve(ctx, smokeQuery, k)
	if err != nil {
		logger.Warn("retriever test failed, the chatbot may still work", "error_code", apperrors.Code(err), "error", err.Error())
		return
	}
	attrs := []any{"query", smokeQuery, "documents", len(docs)}
	if len(docs) > 0 {
		attrs = append(attrs, "sample", preview(docs[0].Document.Content(), 100))
	}
	logger.Info("retriever test passed", attrs...)
}

func requiredEnv(cfg *config.Config, datasetPath string) []string {
	names := []string{config.EnvGoogleAPIKey}
	switch strings.ToLower(strings.TrimSpace(cfg.VectorStore.Provider)) {
	case bootstrap.StoreAstra, "":
		names = append(names, config.EnvAstraEndpoint, config.EnvAstraToken, config.EnvAstraKeyspace)
	}
	if loc, err := dataset.ParseLocation(datasetPath); err == nil && loc.IsRemote() {
		names = append(names, config.EnvS3AccessKey, config.EnvS3SecretKey)
	}
	return names
}

func collectionName(cfg *config.Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.VectorStore.Provider)) {
	case bootstrap.StorePGVector:
		return cfg.Postgres.Table
	case bootstrap.StoreMemory:
		return "memory"
	}
	return cfg.AstraDB.CollectionName
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return fmt.Sprintf("%s...", string(runes[:limit]))
}
