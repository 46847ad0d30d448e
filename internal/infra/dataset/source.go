// Package dataset opens the review CSV from disk or from an S3-compatible bucket.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/product-support-bot/internal/infra/config"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

const s3Scheme = "s3://"

// Location is a parsed dataset reference.
type Location struct {
	Path   string
	Bucket string
	Key    string
}

// IsRemote reports whether the location points at an object store.
func (l Location) IsRemote() bool {
	return l.Bucket != ""
}

func (l Location) String() string {
	if l.IsRemote() {
		return s3Scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// ParseLocation accepts a local path or s3://bucket/key.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, apperrors.Wrap(apperrors.CodeConfig, "dataset path cannot be empty", nil)
	}
	if !strings.HasPrefix(strings.ToLower(raw), s3Scheme) {
		return Location{Path: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, apperrors.Wrap(apperrors.CodeConfig, "invalid dataset url", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Location{}, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("dataset url %q must look like s3://bucket/key", raw), nil)
	}
	return Location{Bucket: u.Host, Key: key}, nil
}

// Open returns a reader over the dataset. The caller closes it.
func Open(ctx context.Context, cfg config.DatasetConfig, raw string, logger *slog.Logger) (io.ReadCloser, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	logger = logger.With("component", "dataset", "location", loc.String())
	if !loc.IsRemote() {
		f, err := os.Open(loc.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, apperrors.Wrap(apperrors.CodeConfig, "dataset not found: "+loc.Path, err)
			}
			return nil, apperrors.Wrap(apperrors.CodeConfig, "open dataset", err)
		}
		logger.Info("reading local dataset")
		return f, nil
	}

	client, err := newObjectClient(cfg)
	if err != nil {
		return nil, err
	}
	obj, err := client.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "fetch dataset object", err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, apperrors.Wrap(apperrors.CodeConfig, "stat dataset object", err)
	}
	logger.Info("reading remote dataset", "size", info.Size, "etag", info.ETag)
	return obj, nil
}

func newObjectClient(cfg config.DatasetConfig) (*minio.Client, error) {
	if strings.TrimSpace(cfg.S3Endpoint) == "" {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "dataset.s3_endpoint is required for s3:// datasets", nil)
	}
	env, err := config.RequireEnv(config.EnvS3AccessKey, config.EnvS3SecretKey)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(sanitizeEndpoint(cfg.S3Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(env[config.EnvS3AccessKey], env[config.EnvS3SecretKey], ""),
		Secure:       !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cfg.S3Endpoint)), "http://"),
		Region:       cfg.S3Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "init object storage client", err)
	}
	return client, nil
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
