package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"research-reports/backend/internal/api"
	"research-reports/backend/internal/auth"
	"research-reports/backend/internal/config"
	"research-reports/backend/internal/logging"
	"research-reports/backend/internal/mcp"
	"research-reports/backend/internal/render"
	"research-reports/backend/internal/repository"
	"research-reports/backend/internal/services"
	"research-reports/backend/internal/tls"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "research-server",
		Short:        "Research report web application",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func setup(configPath string) (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration loading failed: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("logger initialization failed: %w", err)
	}
	return cfg, logger, nil
}

func runMigrate(ctx context.Context, configPath string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewPostgresResearchStore(pool).Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Schema is up to date", "database", cfg.DB.Name)
	return nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"auth_enabled", cfg.Auth.Enabled,
		"temporal_address", cfg.Temporal.Address,
		"genai_model", cfg.GenAI.Model,
	)
	logger.Info("Starting Research Reports", "version", version)

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	logger.Info("Database connected")

	// Workflow submitter
	var submitter services.WorkflowSubmitter
	if cfg.Temporal.Address == "" {
		logger.Warn("temporal.address is empty; research jobs will only be logged")
		submitter = services.NewLogSubmitter(logger)
	} else {
		tc, err := services.DialTemporal(ctx, cfg.Temporal.Address, cfg.Temporal.Namespace, logger)
		if err != nil {
			return err
		}
		defer tc.Close()
		submitter = services.NewTemporalSubmitter(tc, cfg.Temporal.TaskQueue, cfg.Temporal.WorkflowType)
	}

	// Service layer
	researchService := services.NewResearchService(repository.NewPostgresProvider(dbPool), submitter, logger)
	questions, err := services.NewGenAIQuestionGenerator(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model)
	if err != nil {
		return fmt.Errorf("question generator initialization failed: %w", err)
	}
	if cfg.GenAI.APIKey == "" {
		logger.Warn("no GenAI API key configured; follow-up questions are unavailable")
	}
	renderer := render.NewRenderer()
	pdf := render.NewRodPDFGenerator(render.BrowserConfig{
		ControlURL: cfg.PDF.ControlURL,
		Bin:        cfg.PDF.BrowserBin,
		Timeout:    cfg.PDF.RenderTimeout,
	})
	defer pdf.Close()

	templates, err := api.NewTemplates()
	if err != nil {
		return err
	}

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.Renderer = templates
	e.HTTPErrorHandler = api.NewErrorHandler(e, logger)

	// Middleware
	e.Use(otelecho.Middleware("research-reports"))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	}))

	// Initialize authentication
	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}

	// Register auth handlers
	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	// Pages and exports
	srv := &api.Server{
		Research:  researchService,
		Questions: questions,
		Detail:    renderer,
		Reports:   renderer,
		PDF:       pdf,
		Logger:    logger,
		Version:   version,
	}
	e.GET("/healthz", srv.HandleHealth)
	pages := e.Group("", echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterRoutes(pages, srv)

	logger.Info("HTTP handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(researchService, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	if cfg.TLS.Enable {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return errors.New("TLS enabled but cert/key file not provided")
		}
		created, err := tls.EnsureSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		if created {
			logger.Info("Generated self-signed certificate", "cert", cfg.TLS.CertFile, "hosts", cfg.TLS.Hostnames)
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection", "host", cfg.DB.Host, "database", cfg.DB.Name)

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
