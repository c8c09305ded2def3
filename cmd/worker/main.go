package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/adapters/analyzer"
	"github.com/khoahotran/talentsin/adapters/event"
	"github.com/khoahotran/talentsin/adapters/persistence"
	uploadUC "github.com/khoahotran/talentsin/internal/application/usecase/upload"
	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/pkg/logger"
	"github.com/khoahotran/talentsin/pkg/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("FATAL: cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting TalentsIn Analysis Worker...")

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "talentsin-worker")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	defer tracing.Shutdown(tp, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	// Redis for completion events
	redisClient, err := persistence.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Redis", err)
	}
	defer redisClient.Close()

	fileRepo := persistence.NewPostgresCVFileRepo(dbPool, appLogger)

	// Worker Use Case
	analyzeUseCase := uploadUC.NewAnalyzeCVUseCase(
		fileRepo,
		analyzer.NewMockAnalyzer(cfg.Analysis.Delay, appLogger),
		event.NewRedisNotifier(redisClient, appLogger),
		appLogger,
	)

	// Kafka Consumer
	consumer := event.NewAnalysisReader(cfg)
	defer consumer.Close()

	// Producer for the pending sweep
	dispatcher, err := event.NewKafkaDispatcher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot init Kafka producer", err)
	}
	defer dispatcher.Close()

	requeue := uploadUC.NewRequeuePendingUseCase(fileRepo, dispatcher, appLogger)
	go requeue.Run(ctx, cfg.Analysis.SweepInterval, uploadUC.RequeuePendingInput{MinAge: cfg.Analysis.PendingAge})

	appLogger.Info("Worker listening", zap.String("topic", event.TopicCVEvents), zap.String("group_id", cfg.Kafka.GroupID))

	event.NewAnalysisConsumer(consumer, analyzeUseCase, appLogger).Run(ctx)
	appLogger.Info("Worker stopped")
}
