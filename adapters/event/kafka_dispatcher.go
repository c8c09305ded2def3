package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const TopicCVEvents = "cv.events"

const (
	writerBatchTimeout = 10 * time.Millisecond
	writerMaxAttempts  = 3
	publishTimeout     = 10 * time.Second
)

// KafkaDispatcher publishes analysis jobs to TopicCVEvents, keyed by owner so one owner's jobs
// stay on one partition. Publishing happens off the request path; a job that never reaches the
// broker is picked up again by the pending sweep.
type KafkaDispatcher struct {
	writer  *kafka.Writer
	logger  logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewKafkaDispatcher(cfg config.Config, log logger.Logger) (*KafkaDispatcher, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	log.Info("Initialize Kafka producer successfully", zap.String("topic", TopicCVEvents), zap.Strings("brokers", brokers))
	return &KafkaDispatcher{writer: newAnalysisWriter(brokers), logger: log, timeout: publishTimeout}, nil
}

func newAnalysisWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicCVEvents,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           writerBatchTimeout,
		MaxAttempts:            writerMaxAttempts,
		AllowAutoTopicCreation: true,
	}
}

func EncodeAnalysisJob(job service.AnalysisJob) (kafka.Message, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal analysis job: %w", err)
	}
	return kafka.Message{Key: []byte(job.OwnerID.String()), Value: payload}, nil
}

func DecodeAnalysisJob(msg kafka.Message) (service.AnalysisJob, error) {
	var job service.AnalysisJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal analysis job: %w", err)
	}
	if job.FileURL == "" {
		return job, fmt.Errorf("analysis job for file %s has no file_url", job.FileID)
	}
	return job, nil
}

// Dispatch encodes job and publishes it in the background. Only encoding errors are returned.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, job service.AnalysisJob) error {
	msg, err := EncodeAnalysisJob(job)
	if err != nil {
		return err
	}

	pubCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pubCtx, cancel := context.WithTimeout(pubCtx, d.timeout)
		defer cancel()
		if err := d.writer.WriteMessages(pubCtx, msg); err != nil {
			d.logger.Error("Failed to write analysis job to Kafka", err, zap.String("file_id", job.FileID.String()))
			return
		}
		d.logger.Info("Analysis job sent to Kafka", zap.String("file_id", job.FileID.String()))
	}()
	return nil
}

// Close waits for in-flight publishes, then closes the writer.
func (d *KafkaDispatcher) Close() error {
	d.wg.Wait()
	if d.writer == nil {
		return nil
	}
	return d.writer.Close()
}

// NewAnalysisReader builds the worker-side consumer for TopicCVEvents.
func NewAnalysisReader(cfg config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    TopicCVEvents,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}
