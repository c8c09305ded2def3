package media_storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type gcsStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
	logger  logger.Logger
}

func NewGCSStore(ctx context.Context, cfg config.Config, log logger.Logger) (service.ObjectStore, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket has not config")
	}

	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	log.Info("Connected to Google Cloud Storage", zap.String("bucket", cfg.Storage.Bucket))
	return &gcsStore{
		client:  client,
		bucket:  cfg.Storage.Bucket,
		baseURL: gcsBaseURL(cfg.Storage.Bucket, cfg.Storage.PublicBaseURL),
		logger:  log,
	}, nil
}

func gcsBaseURL(bucket, publicBase string) string {
	if publicBase != "" {
		return strings.TrimRight(publicBase, "/")
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s", bucket)
}

func (s *gcsStore) Put(ctx context.Context, key string, file io.Reader, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return s.PublicURL(key), nil
}

func (s *gcsStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		s.logger.Warn("GCS object already gone", zap.String("object_key", key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}
