package media_storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/pkg/logger"
)

// CV documents are not images, so they go to Cloudinary's raw delivery type.
const cloudinaryResourceType = "raw"

type cloudinaryStore struct {
	cld     *cloudinary.Cloudinary
	baseURL string
	logger  logger.Logger
}

func NewCloudinaryStore(cfg config.Config, log logger.Logger) (service.ObjectStore, error) {
	if cfg.Cloudinary.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud_name has not config")
	}

	cld, err := cloudinary.NewFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.ApiKey,
		cfg.Cloudinary.ApiSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot init cloudinary: %w", err)
	}

	base := cfg.Storage.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://res.cloudinary.com/%s/%s/upload", cfg.Cloudinary.CloudName, cloudinaryResourceType)
	}

	log.Info("Connected to Cloudinary", zap.String("cloud_name", cfg.Cloudinary.CloudName))
	return &cloudinaryStore{cld: cld, baseURL: strings.TrimRight(base, "/"), logger: log}, nil
}

func (s *cloudinaryStore) Put(ctx context.Context, key string, file io.Reader, _ string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:     key,
		ResourceType: cloudinaryResourceType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload cloudinary: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return s.PublicURL(key), nil
	}
	return result.SecureURL, nil
}

func (s *cloudinaryStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *cloudinaryStore) Delete(ctx context.Context, key string) error {
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     key,
		ResourceType: cloudinaryResourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to delete cloudinary: %s", result.Error.Message)
	}
	return nil
}
