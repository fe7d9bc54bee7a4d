package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/blob"
	"github.com/ekaya-inc/ekaya-notebook/pkg/config"
	"github.com/ekaya-inc/ekaya-notebook/pkg/database"
	"github.com/ekaya-inc/ekaya-notebook/pkg/handlers"
	"github.com/ekaya-inc/ekaya-notebook/pkg/llm"
	"github.com/ekaya-inc/ekaya-notebook/pkg/logging"
	"github.com/ekaya-inc/ekaya-notebook/pkg/mcp"
	mcpauth "github.com/ekaya-inc/ekaya-notebook/pkg/mcp/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-notebook/pkg/middleware"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
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
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.String("error", logging.SanitizeError(err)))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateSecrets(); err != nil {
		return err
	}

	cfg.Database.Host = config.ResolveHostForDocker(cfg.Database.Host)
	if cfg.Redis.Host != "" {
		cfg.Redis.Host = config.ResolveHostForDocker(cfg.Redis.Host)
	}

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.String("redis", redisAddr(cfg)),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("blob_driver", cfg.Blob.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectWithRetry(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return err
	}
	_ = sqlDB.Close()

	revocations := auth.NewMemoryRevocationStore()
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		revocations = auth.NewRedisRevocationStore(redisClient)
	} else {
		logger.Warn("Redis not configured; revoked tokens are kept in memory")
	}

	verifier, err := auth.NewVerifier(ctx, &auth.VerifierConfig{
		Issuer:        cfg.Auth.Issuer,
		Secret:        []byte(cfg.Auth.JWTSecret),
		JWKSEndpoints: cfg.Auth.JWKSEndpoints,
	}, revocations)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}
	defer verifier.Close()

	issuer := auth.NewIssuer(cfg.Auth.Issuer, []byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	sessions := auth.NewSessionManager(
		cfg.Auth.SessionSecret,
		auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain),
		int(cfg.Auth.AccessTokenTTL.Seconds()),
	)
	authService := auth.NewAuthService(verifier, sessions, logger.Named("auth"))
	authMiddleware := auth.NewMiddleware(authService, logger.Named("auth"))

	blobs, err := blob.NewFromConfig(ctx, &cfg.Blob)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var llmClient llm.LLMClient
	switch client, err := llm.NewClientFromConfig(&cfg.LLM, logger); {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("LLM gateway not configured; analyze-report is disabled")
	case err != nil:
		return err
	default:
		llmClient = llm.Instrument(client, llm.NewMetrics(registry))
	}

	// Repositories
	accountRepo := repositories.NewAccountRepository()
	profileRepo := repositories.NewProfileRepository()
	roleRepo := repositories.NewUserRoleRepository()
	projectRepo := repositories.NewProjectRepository()
	analysisRepo := repositories.NewAnalysisRepository()
	datasetRepo := repositories.NewDatasetRepository()
	sectionRepo := repositories.NewSectionRepository()
	auditRepo := repositories.NewAuditRepository()

	// Services
	auditService := services.NewAuditService(auditRepo, logger)
	accountService := services.NewAccountService(accountRepo, profileRepo, roleRepo, issuer, verifier, revocations, logger)
	profileService := services.NewProfileService(profileRepo, accountRepo, roleRepo, projectRepo, blobs, auditService, avatarBaseURL(cfg), logger)
	projectService := services.NewProjectService(projectRepo, analysisRepo, datasetRepo, auditService, logger)
	analysisService := services.NewAnalysisService(projectRepo, analysisRepo, sectionRepo, auditService, logger)
	datasetService := services.NewDatasetService(projectRepo, datasetRepo, auditService, logger)
	sectionService := services.NewSectionService(projectRepo, analysisRepo, sectionRepo, auditService, logger)
	shareService := services.NewShareService(projectRepo, analysisRepo, datasetRepo, sectionRepo, logger)
	reportService := services.NewReportAnalysisService(llmClient, logger)

	userScope := handlers.ScopeMiddleware(database.WithUserContext(db, logger))
	anonScope := handlers.ScopeMiddleware(database.WithAnonymousContext(db, logger))

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewUsersHandler(accountService, profileService, sessions, logger).RegisterRoutes(mux, authMiddleware, userScope, anonScope)
	handlers.NewAvatarsHandler(profileService, logger).RegisterRoutes(mux)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux, authMiddleware, userScope)
	handlers.NewAnalysesHandler(analysisService, logger).RegisterRoutes(mux, authMiddleware, userScope)
	handlers.NewDatasetsHandler(datasetService, logger).RegisterRoutes(mux, authMiddleware, userScope)
	handlers.NewSectionsHandler(sectionService, logger).RegisterRoutes(mux, authMiddleware, userScope)
	handlers.NewSharedHandler(shareService, logger).RegisterRoutes(mux, anonScope)
	handlers.NewAnalyzeReportHandler(reportService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAuditLogsHandler(auditService, logger).RegisterRoutes(mux, authMiddleware, userScope)

	mcpServer := mcp.NewServer(cfg.Version, mcp.NewToolMetrics(registry, logger), logger)
	mcpServer.RegisterTools(&tools.NotebookToolDeps{
		Scopes:         database.NewScopeProvider(db),
		Projects:       projectService,
		Analyses:       analysisService,
		ReportAnalysis: reportService,
		Logger:         logger.Named("mcp-tools"),
	})
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux, mcpauth.NewMiddleware(authService, logger))

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	httpMetrics := middleware.NewHTTPMetrics(registry)
	handler := middleware.Chain(mux,
		middleware.Recoverer(logger),
		middleware.CORS(cfg.AllowedOrigins()),
		httpMetrics.Middleware,
		middleware.RequestLogger(logger),
	)

	srv := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-notebook",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))
		var err error
		if cfg.TLSCertPath != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// avatarBaseURL prefixes stored avatar keys. Without a public bucket URL,
// avatars are served by this server.
func avatarBaseURL(cfg *config.Config) string {
	if cfg.Blob.PublicBaseURL != "" {
		return cfg.Blob.PublicBaseURL
	}
	return strings.TrimRight(cfg.BaseURL, "/") + "/avatars"
}

func redisAddr(cfg *config.Config) string {
	if cfg.Redis.Host == "" {
		return "disabled"
	}
	return fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
}
