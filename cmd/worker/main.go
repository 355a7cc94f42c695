package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvstudio/internal/config"
	"cvstudio/internal/database"
	"cvstudio/internal/metrics"
	"cvstudio/internal/pdf"
	"cvstudio/internal/storage"
	"cvstudio/internal/tasks"
	"cvstudio/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database connection ready for worker")

	objects, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	renderer, err := pdf.NewRendererFromConfig(cfg.Render, logger)
	if err != nil {
		log.Fatalf("init renderer: %v", err)
	}

	concurrency := cfg.Render.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}, asynq.Config{
		Concurrency: concurrency,
		Logger:      newAsynqLogger(logger),
	})

	renderHandler := worker.NewRenderTaskHandler(
		database.NewStore(db),
		objects,
		redisClient,
		renderer,
		pdf.DefaultParams(cfg.Render),
		logger,
	)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeCVRender, renderHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.Int("concurrency", concurrency),
		slog.Any("backends", renderer.Backends()),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
