package event

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/pkg/logger"
)

const defaultJobTries = 5

// MessageReader is the consumer-group side of *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// AnalysisConsumer feeds TopicCVEvents into a JobHandler. Committing an offset also commits
// everything before it on the partition, so a failing job is retried in place and never skipped
// over while still pending.
type AnalysisConsumer struct {
	reader   MessageReader
	handler  JobHandler
	logger   logger.Logger
	maxTries uint
	backOff  func() backoff.BackOff
}

func NewAnalysisConsumer(r MessageReader, h JobHandler, log logger.Logger) *AnalysisConsumer {
	return &AnalysisConsumer{
		reader:   r,
		handler:  h,
		logger:   log,
		maxTries: defaultJobTries,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 15 * time.Second
			return b
		},
	}
}

// Run consumes until ctx is cancelled. A job that still fails after every try is committed and
// left to the pending sweep, which re-queues rows that never got a score.
func (c *AnalysisConsumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to read message from Kafka", err)
			continue
		}

		l := c.logger.With(zap.String("key", string(msg.Key)), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))

		if err := c.handle(ctx, msg, l); err != nil {
			if ctx.Err() != nil {
				// Not committed: the group resumes from this offset on restart.
				return
			}
			l.Error("Giving up on analysis job, leaving it to the pending sweep", err)
		}

		if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			l.Error("Failed to commit message", err)
		}
	}
}

func (c *AnalysisConsumer) handle(ctx context.Context, msg kafka.Message, l logger.Logger) error {
	job, err := DecodeAnalysisJob(msg)
	if err != nil {
		l.Error("Failed to decode analysis job, skipping", err)
		return nil
	}
	l = l.With(zap.String("file_id", job.FileID.String()))

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.handler.Execute(ctx, job)
	},
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.Warn("Analysis job failed, retrying", zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
	return err
}
