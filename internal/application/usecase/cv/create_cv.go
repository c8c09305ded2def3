package cv

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type CreateCVUseCase struct {
	cvRepo cv.Repository
	logger logger.Logger
}

func NewCreateCVUseCase(r cv.Repository, log logger.Logger) *CreateCVUseCase {
	return &CreateCVUseCase{cvRepo: r, logger: log}
}

type CreateCVInput struct {
	OwnerID   uuid.UUID
	Title     string
	Body      *cv.CVData // nil seeds an empty CV
	IsPrimary bool
}

type CreateCVOutput struct {
	CV *cv.CV
}

func (uc *CreateCVUseCase) Execute(ctx context.Context, in CreateCVInput) (*CreateCVOutput, error) {
	ctx, span := tracer.Start(ctx, "CreateCV")
	defer span.End()

	if err := requireOwner(in.OwnerID); err != nil {
		return nil, err
	}

	body := cv.EmptyCVData()
	if in.Body != nil {
		body = *in.Body
	}
	stampVersion(&body)

	now := time.Now().UTC()
	newCV := &cv.CV{
		ID:        uuid.New(),
		OwnerID:   in.OwnerID,
		Title:     sanitizeTitle(in.Title),
		Body:      body,
		IsPrimary: in.IsPrimary,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.cvRepo.Save(ctx, newCV); err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to save cv", err, zap.String("owner_id", in.OwnerID.String()))
		return nil, err
	}

	span.SetAttributes(attribute.String("cv_id", newCV.ID.String()), attribute.Bool("is_primary", newCV.IsPrimary))
	uc.logger.Info("CV created", zap.String("cv_id", newCV.ID.String()), zap.Bool("is_primary", newCV.IsPrimary))
	return &CreateCVOutput{CV: newCV}, nil
}
