package dataset

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/product-support-bot/internal/infra/config"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("data/product_reviews.csv")
	require.NoError(t, err)
	require.False(t, loc.IsRemote())
	require.Equal(t, "data/product_reviews.csv", loc.Path)

	loc, err = ParseLocation("s3://datasets/flipkart/reviews.csv")
	require.NoError(t, err)
	require.True(t, loc.IsRemote())
	require.Equal(t, "datasets", loc.Bucket)
	require.Equal(t, "flipkart/reviews.csv", loc.Key)
	require.Equal(t, "s3://datasets/flipkart/reviews.csv", loc.String())

	_, err = ParseLocation("s3://datasets")
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))

	_, err = ParseLocation("  ")
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
}

func TestOpenLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte("product_title,rating,review,price\n"), 0o600))

	rc, err := Open(context.Background(), config.DatasetConfig{}, path, testLogger())
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Contains(t, string(body), "product_title")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), config.DatasetConfig{}, filepath.Join(t.TempDir(), "nope.csv"), testLogger())
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
	require.Contains(t, err.Error(), "dataset not found")
}

func TestOpenRemoteRequiresEndpointAndCredentials(t *testing.T) {
	_, err := Open(context.Background(), config.DatasetConfig{}, "s3://datasets/reviews.csv", testLogger())
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))

	t.Setenv(config.EnvS3AccessKey, "")
	t.Setenv(config.EnvS3SecretKey, "")
	_, err = Open(context.Background(), config.DatasetConfig{S3Endpoint: "https://example.r2.cloudflarestorage.com"}, "s3://datasets/reviews.csv", testLogger())
	require.True(t, apperrors.IsCode(err, apperrors.CodeCredential))
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint("https://acct.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint("http://localhost:9000"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint("localhost:9000"))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
