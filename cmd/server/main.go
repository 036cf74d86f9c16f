package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/internal/config"
	"github.com/jonasweber/staffwerk/pkg/clients/gmailclient"
	"github.com/jonasweber/staffwerk/pkg/core/lifecycle"
	"github.com/jonasweber/staffwerk/pkg/core/recruiting"
	"github.com/jonasweber/staffwerk/pkg/postgres"
	"github.com/jonasweber/staffwerk/pkg/utils"
	"github.com/jonasweber/staffwerk/pkg/utils/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; explicit environment variables win.
	godotenv.Load()
	env := os.Getenv("STAFFWERK_ENV")

	logger, err := logging.InitLogger("server")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting server", zap.String("environment", env))

	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	oauthClientCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oauthConfig, err := utils.GetOAuthConfig(oauthClientCfg)
	if err != nil {
		return fmt.Errorf("failed to build oauth config: %w", err)
	}
	token, err := utils.GetTokenWithFlow(ctx, oauthConfig, env)
	if err != nil {
		return fmt.Errorf("failed to obtain oauth token: %w", err)
	}

	gmailClient, err := gmailclient.NewClient(ctx, oauthClientCfg, token, cfg.GmailUserID, cfg.GmailSender)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}

	database, err := postgres.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if err := database.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database initialized")

	controller := lifecycle.NewController(database, gmailClient, logger, lifecycleConfig(cfg))

	// Background sweep loop alongside the HTTP surface. Manual triggers
	// via POST /sweep share the controller's singleton guard.
	go controller.Run(ctx, cfg.Lifecycle.SweepInterval.Std(time.Minute))

	srv := &Server{
		store:      database,
		controller: controller,
		cfg:        cfg,
		logger:     logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	srv.RegisterRoutes(e)

	addr := cfg.ServerAddr
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("Listening", zap.String("addr", addr))

	return e.Start(addr)
}

// lifecycleConfig maps the yaml configuration onto the controller tunables.
func lifecycleConfig(cfg *config.Config) lifecycle.Config {
	windows := lifecycle.DefaultWindows()
	windows.ActiveBefore = cfg.Lifecycle.ActiveWindowBefore.Std(windows.ActiveBefore)
	windows.ActiveAfter = cfg.Lifecycle.ActiveWindowAfter.Std(windows.ActiveAfter)
	windows.CompletionGrace = cfg.Lifecycle.CompletionGrace.Std(windows.CompletionGrace)

	plateau := recruiting.DefaultPlateauPolicy()
	if cfg.Recruitment.PlateauAskedFactor > 0 {
		plateau.AskedFactor = cfg.Recruitment.PlateauAskedFactor
	}

	return lifecycle.Config{
		Windows:       windows,
		Plateau:       plateau,
		NotifyTimeout: cfg.Recruitment.NotifyTimeout.Std(10 * time.Second),
	}
}
