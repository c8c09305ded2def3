package upload

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type AnalyzeCVUseCase struct {
	fileRepo cv.FileRepository
	analyzer service.CVAnalyzer
	notifier service.AnalysisNotifier
	logger   logger.Logger
}

// NewAnalyzeCVUseCase wires the worker side of the pipeline. notifier may be nil.
func NewAnalyzeCVUseCase(r cv.FileRepository, a service.CVAnalyzer, n service.AnalysisNotifier, log logger.Logger) *AnalyzeCVUseCase {
	return &AnalyzeCVUseCase{fileRepo: r, analyzer: a, notifier: n, logger: log}
}

func (uc *AnalyzeCVUseCase) Execute(ctx context.Context, job service.AnalysisJob) error {
	ctx, span := tracer.Start(ctx, "AnalyzeCV")
	defer span.End()

	l := uc.logger.With(zap.String("file_id", job.FileID.String()), zap.String("event_type", string(job.EventType)))
	l.Info("Processing cv analysis job")

	f, err := uc.fileRepo.FindByURL(ctx, job.FileURL, job.OwnerID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			l.Warn("CV file not found, skipping job")
			return nil
		}
		span.RecordError(err)
		return err
	}

	if f.Analyzed() {
		l.Info("CV file already analyzed, skipping", zap.Int("ai_score", *f.AIScore))
		return nil
	}

	result, err := uc.analyzer.Analyze(ctx, job.FileURL)
	if err != nil {
		span.RecordError(err)
		uc.notify(ctx, l, service.AnalysisEvent{
			EventType: service.EventAnalysisFailed,
			FileID:    f.ID,
			OwnerID:   f.OwnerID,
			FileURL:   f.FileURL,
			At:        time.Now().UTC(),
		})
		return apperror.NewInternal("cv analysis failed", err)
	}

	if err := uc.fileRepo.SaveAnalysis(ctx, job.OwnerID, job.FileURL, result); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			l.Warn("CV file removed during analysis, dropping result")
			return nil
		}
		span.RecordError(err)
		return err
	}

	score := result.Score
	uc.notify(ctx, l, service.AnalysisEvent{
		EventType: service.EventAnalysisCompleted,
		FileID:    f.ID,
		OwnerID:   f.OwnerID,
		FileURL:   f.FileURL,
		Score:     &score,
		At:        time.Now().UTC(),
	})

	l.Info("CV analysis stored", zap.Int("ai_score", score))
	return nil
}

func (uc *AnalyzeCVUseCase) notify(ctx context.Context, l logger.Logger, ev service.AnalysisEvent) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Publish(ctx, ev); err != nil {
		l.Error("Failed to publish analysis event", err)
	}
}
