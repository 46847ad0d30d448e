// Package llmtest provides offline embedding and completion clients for tests.
package llmtest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	"github.com/yanqian/product-support-bot/pkg/metrics"
)

// HashEmbedder maps text to a bag-of-words vector, so texts sharing words land close together.
type HashEmbedder struct {
	Dim int

	mu    sync.Mutex
	calls int
}

// NewHashEmbedder constructs the embedder.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &HashEmbedder{Dim: dim}
}

// Calls reports how many texts were embedded.
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.calls += len(texts)
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.Dim)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%uint32(e.Dim)]++
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// EchoCompleter returns the prompt it was given.
type EchoCompleter struct {
	mu      sync.Mutex
	prompts []string
}

func (c *EchoCompleter) Complete(_ context.Context, prompt string) (catalog.Completion, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return catalog.Completion{Text: prompt, Usage: metrics.TokenUsage{PromptTokens: len(strings.Fields(prompt))}}, nil
}

// Prompts returns every prompt seen so far.
func (c *EchoCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// ErrCompletion is returned by FailingCompleter when Err is nil.
var ErrCompletion = errors.New("completion backend unavailable")

// FailingCompleter always fails.
type FailingCompleter struct {
	Err error
}

func (c FailingCompleter) Complete(context.Context, string) (catalog.Completion, error) {
	if c.Err != nil {
		return catalog.Completion{}, c.Err
	}
	return catalog.Completion{}, ErrCompletion
}

var (
	_ catalog.Embedder  = (*HashEmbedder)(nil)
	_ catalog.Completer = (*EchoCompleter)(nil)
	_ catalog.Completer = FailingCompleter{}
)
