package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/warehouse/postgres"
	"github.com/querypilot/querypilot-engine/pkg/config"
	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/extract"
	"github.com/querypilot/querypilot-engine/pkg/handlers"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/logging"
	"github.com/querypilot/querypilot-engine/pkg/retry"
	"github.com/querypilot/querypilot-engine/pkg/schema"
	"github.com/querypilot/querypilot-engine/pkg/services"
	"github.com/querypilot/querypilot-engine/pkg/vectorstore"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("llm_endpoint", cfg.LLM.BaseURL),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx := context.Background()

	// The database may still be coming up at boot; retry transient
	// connection failures, fail fast on real migration errors.
	err = retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		return database.RunMigrations(cfg.Database.ConnectionString(), "migrations", logger)
	})
	if err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to vector store database", zap.Error(err))
	}
	defer db.Close()

	llmClient, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	store := vectorstore.NewPgVectorStore(db.Pool, llmClient, cfg.LLM.EmbeddingModel, logger)

	// The warehouse pool is separate from the vector store database; they
	// may point at the same server in small deployments.
	warehouseURL := cfg.Warehouse.URL
	if warehouseURL == "" {
		warehouseURL = cfg.Database.ConnectionString()
	}
	warehouseDB, err := database.NewConnection(ctx, &database.Config{URL: warehouseURL})
	if err != nil {
		logger.Fatal("Failed to connect to warehouse", zap.Error(err))
	}
	defer warehouseDB.Close()

	catalog, err := schema.LoadPostgres(ctx, warehouseDB.Pool, logger)
	if err != nil {
		logger.Fatal("Failed to load schema catalog", zap.Error(err))
	}

	extractor := extract.NewExtractor(llmClient, logger)

	pipeline := services.NewQueryService(
		llmClient,
		store,
		catalog,
		extractor,
		cfg.Warehouse.AllowedDatasets,
		cfg.LLM.Temperature,
		cfg.LLM.Timeout(),
		logger,
	)

	engine := postgres.NewExecutor(warehouseDB.Pool, cfg.Warehouse.MaxRows, logger)
	gateway := services.NewExecutionGateway(
		engine,
		cfg.Warehouse.AllowedDatasets,
		cfg.Warehouse.MaxBytesBilled,
		cfg.Warehouse.QueryTimeout(),
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(pipeline, gateway, cfg, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting querypilot-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
