package cv

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/logger"
)

// List

type ListCVsUseCase struct {
	cvRepo cv.Repository
}

func NewListCVsUseCase(r cv.Repository) *ListCVsUseCase {
	return &ListCVsUseCase{cvRepo: r}
}

type ListCVsInput struct{ OwnerID uuid.UUID }
type ListCVsOutput struct{ CVs []*cv.CV }

func (uc *ListCVsUseCase) Execute(ctx context.Context, in ListCVsInput) (*ListCVsOutput, error) {
	ctx, span := tracer.Start(ctx, "ListCVs")
	defer span.End()

	if err := requireOwner(in.OwnerID); err != nil {
		return nil, err
	}
	cvs, err := uc.cvRepo.ListByOwner(ctx, in.OwnerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list cvs failed: %w", err)
	}
	return &ListCVsOutput{CVs: cvs}, nil
}

// Get

type GetCVUseCase struct {
	cvRepo cv.Repository
}

func NewGetCVUseCase(r cv.Repository) *GetCVUseCase {
	return &GetCVUseCase{cvRepo: r}
}

type GetCVInput struct {
	OwnerID uuid.UUID
	CVID    uuid.UUID
}

func (uc *GetCVUseCase) Execute(ctx context.Context, in GetCVInput) (*cv.CV, error) {
	if err := requireOwner(in.OwnerID); err != nil {
		return nil, err
	}
	return uc.cvRepo.FindByID(ctx, in.CVID, in.OwnerID)
}

// Delete

type DeleteCVUseCase struct {
	cvRepo cv.Repository
	logger logger.Logger
}

func NewDeleteCVUseCase(r cv.Repository, log logger.Logger) *DeleteCVUseCase {
	return &DeleteCVUseCase{cvRepo: r, logger: log}
}

type DeleteCVInput struct {
	OwnerID uuid.UUID
	CVID    uuid.UUID
}

// Execute removes the CV. Deleting the primary CV leaves the owner without one.
func (uc *DeleteCVUseCase) Execute(ctx context.Context, in DeleteCVInput) error {
	ctx, span := tracer.Start(ctx, "DeleteCV")
	defer span.End()

	if err := requireOwner(in.OwnerID); err != nil {
		return err
	}
	if err := uc.cvRepo.Delete(ctx, in.CVID, in.OwnerID); err != nil {
		span.RecordError(err)
		return err
	}
	uc.logger.Info("CV deleted", zap.String("cv_id", in.CVID.String()))
	return nil
}
