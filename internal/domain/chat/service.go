package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/internal/domain/prompt"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
	"github.com/yanqian/product-support-bot/pkg/metrics"
)

// User-facing replies that do not come from the model.
const (
	ApologyReply      = "I'm experiencing technical difficulties right now. Please try again in a moment."
	NoContextReply    = "I'm sorry, I couldn't find any relevant product information for your query. Please try a different search term or make sure the product database has been populated."
	EmptyMessageReply = "Please type a question about a product and I'll do my best to help."
)

const contextSeparator = "\n\n---\n\n"

// Config holds runtime knobs for a chat turn.
type Config struct {
	TopK              int
	Template          string
	CompletionTimeout time.Duration
	MaxContextTokens  int
}

// Retriever finds the documents relevant to a message.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]catalog.ScoredDocument, error)
}

// Renderer fills a named prompt template.
type Renderer interface {
	Render(name string, vars map[string]string) (string, error)
}

// TokenCounter estimates prompt size.
type TokenCounter interface {
	Count(text string) int
}

// Answer is the outcome of a successful turn.
type Answer struct {
	Text      string
	Documents int
	Usage     metrics.TokenUsage
}

// Service runs retrieve → render → complete for one message.
type Service struct {
	cfg       Config
	retriever Retriever
	renderer  Renderer
	completer catalog.Completer
	tokens    TokenCounter
	logger    *slog.Logger
}

// NewService wires the chat domain.
func NewService(cfg Config, retriever Retriever, renderer Renderer, completer catalog.Completer, tokens TokenCounter, logger *slog.Logger) *Service {
	if cfg.Template == "" {
		cfg.Template = prompt.ProductBot
	}
	return &Service{
		cfg:       cfg,
		retriever: retriever,
		renderer:  renderer,
		completer: completer,
		tokens:    tokens,
		logger:    logger.With("component", "chat.service"),
	}
}

// Reply always produces user-facing text. Failures are logged and replaced with an apology.
func (s *Service) Reply(ctx context.Context, message string) string {
	answer, err := s.Answer(ctx, message)
	if err != nil {
		s.logger.Error("chat turn failed", "error_code", apperrors.Code(err), "error", err.Error())
		return ApologyReply
	}
	return answer.Text
}

// Answer runs the turn and reports failures to the caller.
func (s *Service) Answer(ctx context.Context, message string) (Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Answer{Text: EmptyMessageReply}, nil
	}

	docs, err := s.retriever.Retrieve(ctx, message, s.cfg.TopK)
	if err != nil {
		return Answer{}, err
	}
	s.logger.Info("retrieved context", "documents", len(docs))
	if len(docs) == 0 {
		return Answer{Text: NoContextReply}, nil
	}

	rendered, err := s.renderer.Render(s.cfg.Template, map[string]string{
		"context":  s.buildContext(docs),
		"question": message,
	})
	if err != nil {
		return Answer{}, err
	}

	completion, err := s.complete(ctx, rendered)
	if err != nil {
		return Answer{}, err
	}
	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return Answer{}, apperrors.Wrap(apperrors.CodeCompletion, "model returned an empty reply", nil)
	}
	if !completion.Usage.IsZero() {
		s.logger.Info("completion usage", completion.Usage.LogAttrs()...)
	}
	return Answer{Text: text, Documents: len(docs), Usage: completion.Usage}, nil
}

func (s *Service) complete(ctx context.Context, rendered string) (catalog.Completion, error) {
	if s.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CompletionTimeout)
		defer cancel()
	}
	completion, err := s.completer.Complete(ctx, rendered)
	if err != nil {
		return catalog.Completion{}, apperrors.WrapCall(apperrors.CodeCompletion, "completion call failed", err)
	}
	return completion, nil
}

// buildContext joins documents in rank order until the token budget is spent.
// The best match is always kept.
func (s *Service) buildContext(docs []catalog.ScoredDocument) string {
	blocks := make([]string, 0, len(docs))
	used := 0
	for i, doc := range docs {
		block := doc.Document.ContextBlock()
		if s.cfg.MaxContextTokens > 0 && s.tokens != nil {
			cost := s.tokens.Count(block)
			if i > 0 && used+cost > s.cfg.MaxContextTokens {
				s.logger.Debug("context budget reached", "kept", i, "dropped", len(docs)-i)
				break
			}
			used += cost
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, contextSeparator)
}
