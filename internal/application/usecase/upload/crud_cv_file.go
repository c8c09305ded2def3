package upload

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

// List

type ListCVFilesUseCase struct {
	fileRepo cv.FileRepository
}

func NewListCVFilesUseCase(r cv.FileRepository) *ListCVFilesUseCase {
	return &ListCVFilesUseCase{fileRepo: r}
}

type ListCVFilesInput struct{ OwnerID uuid.UUID }
type ListCVFilesOutput struct{ Files []*cv.File }

func (uc *ListCVFilesUseCase) Execute(ctx context.Context, in ListCVFilesInput) (*ListCVFilesOutput, error) {
	if in.OwnerID == uuid.Nil {
		return nil, apperror.NotAuthenticated()
	}
	files, err := uc.fileRepo.ListByOwner(ctx, in.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list cv files failed: %w", err)
	}
	return &ListCVFilesOutput{Files: files}, nil
}

// Get

type GetCVFileUseCase struct {
	fileRepo cv.FileRepository
}

func NewGetCVFileUseCase(r cv.FileRepository) *GetCVFileUseCase {
	return &GetCVFileUseCase{fileRepo: r}
}

type GetCVFileInput struct {
	OwnerID uuid.UUID
	FileID  uuid.UUID
}

func (uc *GetCVFileUseCase) Execute(ctx context.Context, in GetCVFileInput) (*cv.File, error) {
	if in.OwnerID == uuid.Nil {
		return nil, apperror.NotAuthenticated()
	}
	return uc.fileRepo.FindByID(ctx, in.FileID, in.OwnerID)
}

// Remove

type RemoveCVFileUseCase struct {
	fileRepo cv.FileRepository
	store    service.ObjectStore
	logger   logger.Logger
}

func NewRemoveCVFileUseCase(r cv.FileRepository, s service.ObjectStore, log logger.Logger) *RemoveCVFileUseCase {
	return &RemoveCVFileUseCase{fileRepo: r, store: s, logger: log}
}

type RemoveCVFileInput struct {
	OwnerID uuid.UUID
	FileID  uuid.UUID
}

func (uc *RemoveCVFileUseCase) Execute(ctx context.Context, in RemoveCVFileInput) error {
	if in.OwnerID == uuid.Nil {
		return apperror.NotAuthenticated()
	}
	f, err := uc.fileRepo.FindByID(ctx, in.FileID, in.OwnerID)
	if err != nil {
		return err
	}
	if err := uc.fileRepo.Delete(ctx, in.FileID, in.OwnerID); err != nil {
		return err
	}

	if f.FilePath == "" {
		uc.logger.Warn("CV file has no object key, blob left in place", zap.String("file_id", f.ID.String()))
		return nil
	}
	if err := uc.store.Delete(ctx, f.FilePath); err != nil {
		uc.logger.Error("Failed to delete cv blob", err, zap.String("file_id", f.ID.String()), zap.String("object_key", f.FilePath))
	}
	return nil
}
