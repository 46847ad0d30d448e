package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yanqian/product-support-bot/internal/infra/config"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	ready  chan string
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With("component", "bootstrap"),
		server: server,
		ready:  make(chan string, 1),
	}
}

// Ready yields the bound address once the listener is open.
func (a *App) Ready() <-chan string {
	return a.ready
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	a.logger.Info("http server starting",
		"address", ln.Addr().String(),
		"vector_store", a.cfg.VectorStore.Provider,
		"llm_model", a.cfg.LLM.ModelName,
		"embedding_model", a.cfg.EmbeddingModel.ModelName,
		"top_k", a.cfg.Retriever.TopK,
	)
	a.ready <- ln.Addr().String()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutdown signal received")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
