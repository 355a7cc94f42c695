package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvstudio/internal/adapt"
	"cvstudio/internal/api"
	"cvstudio/internal/config"
	"cvstudio/internal/database"
	"cvstudio/internal/pdf"
	"cvstudio/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database migrated")

	objects, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() { _ = queue.Close() }()

	renderer, err := pdf.NewRendererFromConfig(cfg.Render, logger)
	if err != nil {
		log.Fatalf("init renderer: %v", err)
	}

	gateway, closeGateway, err := newGateway(ctx, cfg.Adapter, redisClient, logger)
	if err != nil {
		log.Fatalf("init adaptation gateway: %v", err)
	}
	defer closeGateway()

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		Store:            database.NewStore(db),
		Renderer:         renderer,
		RenderDefaults:   pdf.DefaultParams(cfg.Render),
		Objects:          objects,
		Queue:            queue,
		Redis:            redisClient,
		Gateway:          gateway,
		ClamdAddr:        cfg.Security.ClamdAddr,
		AdaptClientLimit: cfg.Adapter.ClientLimit,
		AllowedOrigins:   cfg.API.AllowedOrigins,
		Logger:           logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown api server failed", slog.Any("error", err))
		}
	}()

	logger.Info("api listening", slog.String("addr", server.Addr), slog.Bool("adapter_enabled", gateway.Enabled()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start api server: %v", err)
	}
}

// newGateway 未配置 API Key 时返回禁用状态的网关，/v1/adapt 将返回 503。
func newGateway(ctx context.Context, cfg config.AdapterConfig, redisClient *redis.Client, logger *slog.Logger) (*adapt.Gateway, func(), error) {
	var sessions adapt.SessionStore = adapt.NewRedisSessionStore(redisClient, cfg.HistoryLimit, cfg.SessionTTL)
	if cfg.SessionStore == "memory" {
		sessions = adapt.NewMemorySessionStore(cfg.HistoryLimit, cfg.MaxSessions, cfg.SessionTTL)
	}
	if !cfg.Enabled() {
		logger.Warn("adapter api key not configured, adaptation disabled")
		return adapt.NewGateway(logger, nil, sessions), func() {}, nil
	}

	completer, err := adapt.NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
	if err != nil {
		return nil, nil, err
	}
	gateway := adapt.NewGateway(logger, completer, sessions, adapt.WithRatePerMinute(cfg.RatePerMin))
	return gateway, func() { _ = completer.Close() }, nil
}
