package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/adapters/analyzer"
	"github.com/khoahotran/talentsin/adapters/event"
	httpAdapter "github.com/khoahotran/talentsin/adapters/http"
	"github.com/khoahotran/talentsin/adapters/media_storage"
	"github.com/khoahotran/talentsin/adapters/persistence"
	"github.com/khoahotran/talentsin/internal/application/service"
	authUC "github.com/khoahotran/talentsin/internal/application/usecase/auth"
	cvUC "github.com/khoahotran/talentsin/internal/application/usecase/cv"
	uploadUC "github.com/khoahotran/talentsin/internal/application/usecase/upload"
	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/pkg/auth"
	"github.com/khoahotran/talentsin/pkg/logger"
	"github.com/khoahotran/talentsin/pkg/tracing"
)

const serviceName = "talentsin-api"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("FATAL: cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting TalentsIn API Server...", zap.String("env", cfg.App.Env))

	tp, err := tracing.NewTracerProvider(cfg, appLogger, serviceName)
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	defer tracing.Shutdown(tp, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infrastructure
	dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	redisClient, err := persistence.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Redis", err)
	}
	defer redisClient.Close()

	store, err := newObjectStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot init object store", err, zap.String("provider", cfg.Storage.Provider))
	}

	// Repositories
	userRepo := persistence.NewPostgresUserRepo(dbPool, appLogger)
	cvRepo := persistence.NewPostgresCVRepo(dbPool, appLogger)
	cvFileRepo := persistence.NewPostgresCVFileRepo(dbPool, appLogger)

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	notifier := event.NewRedisNotifier(redisClient, appLogger)

	var (
		dispatcher service.AnalysisDispatcher
		inline     *event.InlineDispatcher
	)
	switch cfg.Analysis.Mode {
	case config.AnalysisInline:
		analyzeUseCase := uploadUC.NewAnalyzeCVUseCase(
			cvFileRepo,
			analyzer.NewMockAnalyzer(cfg.Analysis.Delay, appLogger),
			notifier,
			appLogger,
		)
		inline = event.NewInlineDispatcher(analyzeUseCase, appLogger)
		dispatcher = inline
	default:
		kafkaDispatcher, err := event.NewKafkaDispatcher(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot init Kafka", err)
		}
		defer kafkaDispatcher.Close()
		dispatcher = kafkaDispatcher
	}
	appLogger.Info("Analysis pipeline ready", zap.String("mode", cfg.Analysis.Mode))

	// Use Cases
	loginUseCase := authUC.NewLoginUseCase(userRepo, jwtSvc, appLogger)

	createCVUseCase := cvUC.NewCreateCVUseCase(cvRepo, appLogger)
	updateCVUseCase := cvUC.NewUpdateCVUseCase(cvRepo, appLogger)
	setPrimaryUseCase := cvUC.NewSetPrimaryCVUseCase(updateCVUseCase)
	listCVsUseCase := cvUC.NewListCVsUseCase(cvRepo)
	getCVUseCase := cvUC.NewGetCVUseCase(cvRepo)
	deleteCVUseCase := cvUC.NewDeleteCVUseCase(cvRepo, appLogger)

	uploadCVUseCase := uploadUC.NewUploadCVUseCase(cvFileRepo, store, dispatcher, appLogger)
	listFilesUseCase := uploadUC.NewListCVFilesUseCase(cvFileRepo)
	getFileUseCase := uploadUC.NewGetCVFileUseCase(cvFileRepo)
	removeFileUseCase := uploadUC.NewRemoveCVFileUseCase(cvFileRepo, store, appLogger)

	// In kafka mode the worker owns the pending sweep.
	if inline != nil {
		requeue := uploadUC.NewRequeuePendingUseCase(cvFileRepo, inline, appLogger)
		go requeue.Run(ctx, cfg.Analysis.SweepInterval, uploadUC.RequeuePendingInput{MinAge: cfg.Analysis.PendingAge})
	}

	// HTTP
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Auth: httpAdapter.NewAuthHandler(loginUseCase, appLogger),
		CVs: httpAdapter.NewCVHandler(
			createCVUseCase,
			updateCVUseCase,
			setPrimaryUseCase,
			listCVsUseCase,
			getCVUseCase,
			deleteCVUseCase,
		),
		CVFiles: httpAdapter.NewCVFileHandler(
			uploadCVUseCase,
			listFilesUseCase,
			getFileUseCase,
			removeFileUseCase,
			notifier,
			appLogger,
		),
		JWT:            jwtSvc,
		Logger:         appLogger,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
	if inline != nil {
		inline.Wait()
	}
	appLogger.Info("Server exited")
}

func newObjectStore(ctx context.Context, cfg config.Config, log logger.Logger) (service.ObjectStore, error) {
	switch cfg.Storage.Provider {
	case config.StorageGCS:
		return media_storage.NewGCSStore(ctx, cfg, log)
	default:
		return media_storage.NewCloudinaryStore(cfg, log)
	}
}
