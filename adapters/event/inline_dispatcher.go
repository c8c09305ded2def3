package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type JobHandler interface {
	Execute(ctx context.Context, job service.AnalysisJob) error
}

// InlineDispatcher runs each job on its own goroutine inside the API process. Jobs outlive the
// request that queued them.
type InlineDispatcher struct {
	handler JobHandler
	logger  logger.Logger
	wg      sync.WaitGroup
}

func NewInlineDispatcher(h JobHandler, log logger.Logger) *InlineDispatcher {
	return &InlineDispatcher{handler: h, logger: log}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, job service.AnalysisJob) error {
	jobCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.handler.Execute(jobCtx, job); err != nil {
			d.logger.Error("Inline analysis job failed", err, zap.String("file_id", job.FileID.String()))
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has returned.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
