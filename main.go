package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/cache"
	"github.com/datalens-ai/datalens-engine/pkg/config"
	"github.com/datalens-ai/datalens-engine/pkg/database"
	"github.com/datalens-ai/datalens-engine/pkg/datasource/postgres"
	"github.com/datalens-ai/datalens-engine/pkg/explain"
	"github.com/datalens-ai/datalens-engine/pkg/handlers"
	"github.com/datalens-ai/datalens-engine/pkg/llm"
	"github.com/datalens-ai/datalens-engine/pkg/logging"
	"github.com/datalens-ai/datalens-engine/pkg/middleware"
	"github.com/datalens-ai/datalens-engine/pkg/pipeline"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
	sqlguard "github.com/datalens-ai/datalens-engine/pkg/sql"
	"github.com/datalens-ai/datalens-engine/pkg/viz"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.String("database", cfg.Database.Database),
		zap.Int("row_cap", cfg.Pipeline.RowCap))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to dataset", zap.Error(err))
	}
	defer db.Close()

	completer, err := llm.NewCompleter(&llm.Config{
		Provider:  cfg.AI.Provider,
		Endpoint:  cfg.AI.Endpoint,
		Model:     cfg.AI.Model,
		APIKey:    cfg.AI.APIKey,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create completion gateway", zap.Error(err))
	}

	executor := postgres.NewExecutor(db.Pool)
	introspector := postgres.NewIntrospector(db.Pool)
	catalog := schema.NewCatalog(introspector, logger)
	guard := sqlguard.NewGuard(cfg.Pipeline.DenyKeywords)
	queryCache := cache.New(cfg.Cache.TTL, logger)

	p := pipeline.New(completer, catalog, guard, executor, pipeline.Config{
		MaxRetries:  cfg.Pipeline.MaxRetries,
		RetryDelay:  cfg.Pipeline.RetryDelay,
		RowCap:      cfg.Pipeline.RowCap,
		CallTimeout: cfg.AI.Timeout,
	}, logger)
	explainer := explain.New(completer, explain.Config{
		Enabled:     cfg.Pipeline.NeedExplanation,
		CallTimeout: cfg.AI.Timeout,
	}, logger)
	inferencer := viz.NewInferencer(logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(p, explainer, inferencer, completer, queryCache, cfg.AI.Timeout, logger).RegisterRoutes(mux)
	handlers.NewSQLHandler(guard, executor, cfg.Pipeline.RowCap, logger).RegisterRoutes(mux)
	handlers.NewTablesHandler(catalog, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting datalens-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}
