package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Boptone/boptone-ai-sub008/internal/api"
	"github.com/Boptone/boptone-ai-sub008/internal/config"
	"github.com/Boptone/boptone-ai-sub008/internal/repository/queue"
	"github.com/Boptone/boptone-ai-sub008/internal/repository/store"
	"github.com/Boptone/boptone-ai-sub008/internal/service"
	"github.com/Boptone/boptone-ai-sub008/internal/storage"
	"github.com/Boptone/boptone-ai-sub008/internal/telemetry"
	"github.com/Boptone/boptone-ai-sub008/internal/transcode"
	"github.com/Boptone/boptone-ai-sub008/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize metrics
	metrics, err := telemetry.NewDefaultMetricsClient()
	if err != nil {
		telemetry.Logger.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	telemetry.StartMetricsServer(ctx, cfg.MetricsPort)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		telemetry.Logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	queueOpts := queue.Options{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		MaxRetry:      cfg.JobMaxRetry,
		Timeout:       cfg.JobTimeout,
	}
	queueClient, err := queue.NewAsynqClient(queueOpts)
	if err != nil {
		telemetry.Logger.Fatal("Failed to initialize queue client", zap.Error(err))
	}
	defer queueClient.Close()

	objects, err := storage.NewMinioStore(ctx, storage.MinioOptions{
		Endpoint:      cfg.MinioEndpoint,
		AccessKey:     cfg.MinioAccessKey,
		SecretKey:     cfg.MinioSecretKey,
		UseSSL:        cfg.MinioUseSSL,
		Region:        cfg.MinioRegion,
		Bucket:        cfg.Bucket,
		PublicBaseURL: cfg.PublicBaseURL,
		PutRetries:    cfg.PutRetries,
		PutBackoff:    cfg.PutBackoff,
	})
	if err != nil {
		telemetry.Logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Create services container
	svc := service.NewServices(metrics, st, queueClient, objects)

	// Determine mode from environment variable
	mode := strings.ToLower(os.Getenv("APP_MODE"))
	if mode == "" {
		// Default to server mode if not specified
		mode = "server"
	}

	telemetry.Logger.Info("Starting application", zap.String("mode", mode))

	// Run in the appropriate mode
	switch mode {
	case "server", "api":
		server := api.NewServer(svc, cfg.HTTPPort)
		if err := server.Start(ctx); err != nil {
			telemetry.Logger.Fatal("Server error", zap.Error(err))
		}
	case "worker":
		runner := transcode.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath)
		workerSvc := worker.NewWorkerService(svc, runner, cfg.TempDir, queueOpts.RedisConnOpt())

		supervisor := worker.NewSupervisor()
		handle := supervisor.Start(ctx, workerSvc.Start)
		if err := handle.Wait(); err != nil {
			telemetry.Logger.Fatal("Worker error", zap.Error(err))
		}
	default:
		telemetry.Logger.Fatal("Unknown application mode", zap.String("mode", mode))
	}
}
