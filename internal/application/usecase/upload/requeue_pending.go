package upload

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const requeueBatchSize = 100

// RequeuePendingUseCase dispatches a fresh job for every active file that never got a score, e.g.
// because the broker was down at upload time or the worker gave up on the job.
type RequeuePendingUseCase struct {
	fileRepo   cv.FileRepository
	dispatcher service.AnalysisDispatcher
	logger     logger.Logger
	now        func() time.Time
}

func NewRequeuePendingUseCase(r cv.FileRepository, d service.AnalysisDispatcher, log logger.Logger) *RequeuePendingUseCase {
	return &RequeuePendingUseCase{fileRepo: r, dispatcher: d, logger: log, now: time.Now}
}

type RequeuePendingInput struct {
	// MinAge skips files uploaded so recently that their first job may still be in flight.
	MinAge time.Duration
}

type RequeuePendingOutput struct {
	Requeued int
}

func (uc *RequeuePendingUseCase) Execute(ctx context.Context, in RequeuePendingInput) (*RequeuePendingOutput, error) {
	ctx, span := tracer.Start(ctx, "RequeuePendingCVFiles")
	defer span.End()

	files, err := uc.fileRepo.ListPending(ctx, uc.now().Add(-in.MinAge), requeueBatchSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := &RequeuePendingOutput{}
	for _, f := range files {
		job := service.AnalysisJob{
			EventType: service.EventCVUploaded,
			FileID:    f.ID,
			OwnerID:   f.OwnerID,
			FileURL:   f.FileURL,
		}
		if err := uc.dispatcher.Dispatch(ctx, job); err != nil {
			uc.logger.Error("Failed to requeue cv analysis", err, zap.String("file_id", f.ID.String()))
			continue
		}
		out.Requeued++
	}

	if out.Requeued > 0 {
		uc.logger.Info("Requeued pending cv analyses", zap.Int("count", out.Requeued))
	}
	return out, nil
}

// Run sweeps once immediately and then every interval until ctx is done.
func (uc *RequeuePendingUseCase) Run(ctx context.Context, interval time.Duration, in RequeuePendingInput) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := uc.Execute(ctx, in); err != nil && ctx.Err() == nil {
			uc.logger.Error("Pending cv sweep failed", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
