package cv

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type UpdateCVUseCase struct {
	cvRepo cv.Repository
	logger logger.Logger
}

func NewUpdateCVUseCase(r cv.Repository, log logger.Logger) *UpdateCVUseCase {
	return &UpdateCVUseCase{cvRepo: r, logger: log}
}

type UpdateCVInput struct {
	OwnerID uuid.UUID
	CVID    uuid.UUID
	Patch   cv.Patch
}

type UpdateCVOutput struct {
	CV *cv.CV
}

func (uc *UpdateCVUseCase) Execute(ctx context.Context, in UpdateCVInput) (*UpdateCVOutput, error) {
	ctx, span := tracer.Start(ctx, "UpdateCV")
	defer span.End()
	span.SetAttributes(attribute.String("cv_id", in.CVID.String()))

	if err := requireOwner(in.OwnerID); err != nil {
		return nil, err
	}

	patch := in.Patch
	if patch.Title != nil {
		t := sanitizeTitle(*patch.Title)
		patch.Title = &t
	}
	if patch.Body != nil {
		b := *patch.Body
		stampVersion(&b)
		patch.Body = &b
	}

	updated, err := uc.cvRepo.Update(ctx, in.CVID, in.OwnerID, patch)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("CV updated", zap.String("cv_id", updated.ID.String()), zap.Bool("is_primary", updated.IsPrimary))
	return &UpdateCVOutput{CV: updated}, nil
}

// SetPrimaryCVUseCase is Update with only the primary flag raised.
type SetPrimaryCVUseCase struct {
	update *UpdateCVUseCase
}

func NewSetPrimaryCVUseCase(update *UpdateCVUseCase) *SetPrimaryCVUseCase {
	return &SetPrimaryCVUseCase{update: update}
}

type SetPrimaryCVInput struct {
	OwnerID uuid.UUID
	CVID    uuid.UUID
}

func (uc *SetPrimaryCVUseCase) Execute(ctx context.Context, in SetPrimaryCVInput) (*UpdateCVOutput, error) {
	primary := true
	return uc.update.Execute(ctx, UpdateCVInput{
		OwnerID: in.OwnerID,
		CVID:    in.CVID,
		Patch:   cv.Patch{IsPrimary: &primary},
	})
}
