package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/dagoflow/internal/application/orchestrator"
	"github.com/aescanero/dagoflow/internal/application/registry"
	"github.com/aescanero/dagoflow/internal/application/workers"
	"github.com/aescanero/dagoflow/internal/codereview"
	"github.com/aescanero/dagoflow/internal/config"
	"github.com/aescanero/dagoflow/internal/graphfile"
	memoryevents "github.com/aescanero/dagoflow/pkg/adapters/events/memory"
	redisevents "github.com/aescanero/dagoflow/pkg/adapters/events/redis"
	"github.com/aescanero/dagoflow/pkg/adapters/llm"
	"github.com/aescanero/dagoflow/pkg/adapters/metrics/prometheus"
	memorystorage "github.com/aescanero/dagoflow/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/dagoflow/pkg/adapters/storage/redis"
	"github.com/aescanero/dagoflow/pkg/api/grpc"
	"github.com/aescanero/dagoflow/pkg/api/http"
	"github.com/aescanero/dagoflow/pkg/api/websocket"
	"github.com/aescanero/dagoflow/pkg/ports"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

const janitorInterval = time.Minute

// backend groups the storage and event adapters selected by STORAGE_BACKEND
type backend struct {
	graphs ports.GraphStore
	runs   ports.RunStore
	events ports.EventBus
	close  func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting dagoflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("storage_backend", cfg.Storage.Backend))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}

	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	var llmClient ports.LLMClient
	if cfg.LLM.Enabled() {
		llmClient, err = llm.NewClient(&llm.Config{
			Provider:    cfg.LLM.Provider,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.DefaultModel,
			MaxTokens:   cfg.LLM.DefaultMaxTokens,
			Temperature: cfg.LLM.DefaultTemperature,
			Timeout:     cfg.LLM.RequestTimeout,
			BaseURL:     cfg.LLM.BaseURL,
			Logger:      logger,
		})
		if err != nil {
			logger.Fatal("failed to create LLM client", zap.Error(err))
		}
	} else {
		logger.Info("LLM_API_KEY not set, llm_review disabled")
	}

	// Node handlers and tools
	handlers := registry.New()
	tools := registry.NewTools()
	codereview.Register(handlers, tools, llmClient)

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)

	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	engine := orchestrator.NewEngine(
		handlers,
		tools.View(),
		workerPool,
		store.runs,
		store.events,
		metricsCollector,
		logger,
	)

	orchestratorMgr := orchestrator.NewManager(
		store.graphs,
		store.runs,
		engine,
		orchestrator.NewValidator(),
		logger,
		cfg.Runs.MaxConcurrent,
	)

	// Graphs available at boot
	if err := codereview.RegisterGraphs(ctx, orchestratorMgr, llmClient != nil); err != nil {
		logger.Fatal("failed to register example graphs", zap.Error(err))
	}
	loaded, err := graphfile.RegisterAll(ctx, orchestratorMgr, cfg.Graphs.Files, logger)
	if err != nil {
		logger.Fatal("failed to load graph files", zap.Error(err), zap.String("pattern", cfg.Graphs.Files))
	}

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:         cfg.HTTPPort,
		Orchestrator: orchestratorMgr,
		Logger:       logger,
		Pool:         workerPool,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(orchestratorMgr, store.events, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(grpcServer.Start)

	logger.Info("dagoflow started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.Int("graph_files", loaded))

	// Wait for a signal or a server failure
	<-gctx.Done()
	logger.Info("shutting down", zap.NamedError("cause", context.Cause(gctx)))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	// runs must record their termination before workers go away
	if err := orchestratorMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := store.events.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := store.close(); err != nil {
		logger.Error("storage close error", zap.Error(err))
	}

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("dagoflow shut down complete")
}

// newBackend builds the storage and event adapters for cfg.Storage.Backend
func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.Storage.Backend != config.StorageRedis {
		runs := memorystorage.NewRunStore(logger)
		runs.StartJanitor(ctx, janitorInterval, cfg.Storage.RunRetention)

		return &backend{
			graphs: memorystorage.NewGraphStore(),
			runs:   runs,
			events: memoryevents.NewInMemoryEventBus(logger),
			close:  func() error { return nil },
		}, nil
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	// Test Redis connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	return &backend{
		graphs: redisstorage.NewGraphStore(redisClient, logger),
		runs:   redisstorage.NewRunStore(redisClient, cfg.Storage.RunRetention, logger),
		events: redisevents.NewStreamsEventBus(redisClient, cfg.Redis.StreamMaxLen, logger),
		close:  redisClient.Close,
	}, nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
