package tokenizer

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// loadTimeout bounds the BPE download performed by Load.
const loadTimeout = 15 * time.Second

// Counter counts prompt tokens with a BPE encoding, falling back to a
// rune/word estimate when no encoding is loaded.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New constructs a counter that only estimates.
func New() *Counter {
	return &Counter{}
}

// Load fetches the named encoding up front so requests never wait on it.
// An empty name, a load error or a timeout yields an estimating counter.
func Load(ctx context.Context, encoding string, logger *slog.Logger) *Counter {
	encoding = strings.TrimSpace(encoding)
	if encoding == "" {
		return New()
	}
	logger = logger.With("component", "tokenizer", "encoding", encoding)

	type result struct {
		enc *tiktoken.Tiktoken
		err error
	}
	done := make(chan result, 1)
	go func() {
		enc, err := tiktoken.GetEncoding(encoding)
		done <- result{enc: enc, err: err}
	}()

	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	select {
	case res := <-done:
		if res.err != nil {
			logger.Warn("token encoding unavailable, using estimate", "error", res.err)
			return New()
		}
		logger.Info("token encoding loaded")
		return &Counter{enc: res.enc}
	case <-ctx.Done():
		logger.Warn("token encoding load timed out, using estimate", "error", ctx.Err())
		return New()
	}
}

// Count returns the token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// Estimate over-counts slightly: ~1 token per 4 runes and never below the word count.
func Estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	words := len(strings.Fields(trimmed))
	tokens := utf8.RuneCountInString(trimmed) / 4
	if tokens < words {
		tokens = words
	}
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}
