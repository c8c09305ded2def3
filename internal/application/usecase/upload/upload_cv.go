package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

var tracer = otel.Tracer("upload_usecase")

type UploadCVUseCase struct {
	fileRepo   cv.FileRepository
	store      service.ObjectStore
	dispatcher service.AnalysisDispatcher
	logger     logger.Logger
}

func NewUploadCVUseCase(
	r cv.FileRepository,
	s service.ObjectStore,
	d service.AnalysisDispatcher,
	log logger.Logger,
) *UploadCVUseCase {
	return &UploadCVUseCase{fileRepo: r, store: s, dispatcher: d, logger: log}
}

type UploadCVInput struct {
	OwnerID     uuid.UUID
	Filename    string
	ContentType string
	File        io.Reader
}

type UploadCVOutput struct {
	File *cv.File
}

// ObjectKey places a file under its owner's prefix with a random name keeping the original
// extension.
func ObjectKey(ownerID, fileID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%s%s", ownerID, fileID, strings.ToLower(filepath.Ext(filename)))
}

// Execute stores the file, records it and queues its analysis. It returns as soon as the record
// exists; the score arrives later.
func (uc *UploadCVUseCase) Execute(ctx context.Context, in UploadCVInput) (*UploadCVOutput, error) {
	ctx, span := tracer.Start(ctx, "UploadCV")
	defer span.End()

	if in.OwnerID == uuid.Nil {
		return nil, apperror.NotAuthenticated()
	}

	fileID := uuid.New()
	key := ObjectKey(in.OwnerID, fileID, in.Filename)
	l := uc.logger.With(zap.String("file_id", fileID.String()), zap.String("object_key", key))

	fileURL, err := uc.store.Put(ctx, key, in.File, in.ContentType)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.NewStorageUnavailable("failed to upload cv file", err)
	}

	now := time.Now().UTC()
	f := &cv.File{
		ID:        fileID,
		OwnerID:   in.OwnerID,
		Title:     in.Filename,
		FileURL:   fileURL,
		FilePath:  key,
		FileType:  in.ContentType,
		Status:    cv.FileStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.fileRepo.Save(ctx, f); err != nil {
		span.RecordError(err)
		if derr := uc.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			l.Error("Failed to remove orphaned cv blob", derr)
		}
		return nil, err
	}

	job := service.AnalysisJob{
		EventType: service.EventCVUploaded,
		FileID:    f.ID,
		OwnerID:   f.OwnerID,
		FileURL:   f.FileURL,
	}
	if err := uc.dispatcher.Dispatch(ctx, job); err != nil {
		l.Error("Failed to dispatch cv analysis", err)
	}

	span.SetAttributes(attribute.String("file_id", f.ID.String()))
	l.Info("CV file uploaded, analysis queued")
	return &UploadCVOutput{File: f}, nil
}
