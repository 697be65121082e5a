package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/auth"
	"github.com/relaycrm/outreach-engine/pkg/config"
	"github.com/relaycrm/outreach-engine/pkg/database"
	"github.com/relaycrm/outreach-engine/pkg/handlers"
	"github.com/relaycrm/outreach-engine/pkg/middleware"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
	"github.com/relaycrm/outreach-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

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
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Database),
		zap.String("host", cfg.Database.Host))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Migrations run through database/sql (required by golang-migrate).
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	rules := services.DefaultRules()
	if cfg.RulesPath != "" {
		rules, err = services.LoadRules(cfg.RulesPath)
		if err != nil {
			logger.Fatal("Failed to load transition rules", zap.Error(err), zap.String("path", cfg.RulesPath))
		}
		logger.Info("Loaded transition rule overrides", zap.String("path", cfg.RulesPath))
	}

	// Repositories
	leadRepo := repositories.NewLeadRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	userRepo := repositories.NewUserRepository(db)
	reportRepo := repositories.NewReportRepository(db)

	// Services
	authService := auth.NewService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	pipelineService := services.NewPipelineService(leadRepo, eventRepo, taskRepo, rules, logger)
	ingestService := services.NewIngestService(leadRepo, logger)
	leadService := services.NewLeadService(leadRepo, taskRepo, logger)
	taskService := services.NewTaskService(taskRepo, leadRepo, logger)
	reportService := services.NewReportService(reportRepo, eventRepo, logger)

	authMiddleware := auth.NewMiddleware(authService, cfg.Auth.InternalAPIKey, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewLeadsHandler(leadService, ingestService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewEventsHandler(pipelineService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTasksHandler(taskService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewReportsHandler(reportService, logger).RegisterRoutes(mux, authMiddleware)

	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.RequestLogger(logger)(middleware.Metrics(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting outreach-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a development one for local runs.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
