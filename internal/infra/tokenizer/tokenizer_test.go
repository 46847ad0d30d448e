package tokenizer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	require.Equal(t, 0, Estimate("   "))
	require.Equal(t, 1, Estimate("hi"))
	require.Equal(t, 5, Estimate("a b c d e"))
	require.Equal(t, 25, Estimate(strings.Repeat("x", 100)))
}

func TestCounterWithoutEncodingUsesEstimate(t *testing.T) {
	counter := Load(context.Background(), "", newTestLogger())
	text := "Wireless Bluetooth Headphones with deep bass"
	require.Nil(t, counter.enc)
	require.Equal(t, Estimate(text), counter.Count(text))
	require.Zero(t, counter.Count(""))
}

func TestLoadUnknownEncodingFallsBackToEstimate(t *testing.T) {
	counter := Load(context.Background(), "no_such_encoding", newTestLogger())
	text := "Budget earbuds with a long battery life"
	require.Nil(t, counter.enc)
	require.Equal(t, Estimate(text), counter.Count(text))
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	counter := Load(ctx, "no_such_encoding", newTestLogger())
	require.Nil(t, counter.enc)
	require.Equal(t, 2, counter.Count("two words"))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
