package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autoflow-dev/autoflow/internal/app/migrate"
	httpx "github.com/autoflow-dev/autoflow/internal/http"
	"github.com/autoflow-dev/autoflow/internal/repository/postgres"
	"github.com/autoflow-dev/autoflow/internal/service/activity"
	"github.com/autoflow-dev/autoflow/internal/service/auth"
	"github.com/autoflow-dev/autoflow/internal/service/deploy"
	"github.com/autoflow-dev/autoflow/internal/service/github"
	"github.com/autoflow-dev/autoflow/internal/service/project"
	"github.com/autoflow-dev/autoflow/internal/service/trigger"
	"github.com/autoflow-dev/autoflow/internal/service/webhook"
	"github.com/autoflow-dev/autoflow/internal/ws"
	"github.com/autoflow-dev/autoflow/pkg/config"
	"github.com/autoflow-dev/autoflow/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("autoflow-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.APIConfig, log *slog.Logger) error {
	runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir)
	if err != nil {
		return err
	}
	if err := runner.Ensure(ctx); err != nil {
		runner.Close()
		return err
	}
	runner.Close()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := postgres.New(pool, log)

	hub := ws.NewHub(log)
	go hub.Run()

	activitySvc := activity.New(repo, hub, log)
	githubSvc := github.New(log)
	authSvc := auth.New(repo, cfg, log)

	railway := trigger.NewRailway(cfg.RailwayDeployHookURL, cfg.TriggerTimeout, log)
	vercel := trigger.NewVercel(cfg.VercelDeployHookURL, cfg.TriggerTimeout, log)
	registry := trigger.NewRegistry(railway)
	registry.Bind("react", vercel)

	deploySvc := deploy.New(repo, repo, registry, activitySvc, cfg.TriggerTimeout, log)
	webhookSvc := webhook.New(repo, deploySvc, cfg.WebhookSecret, log)
	callbackURL := cfg.PublicURL + "/api/webhooks/github"
	projectSvc := project.New(repo, repo, activitySvc, githubSvc, callbackURL, log)

	var limiter httpx.RateLimiter
	if cfg.RateLimitRedisAddr != "" {
		limiter, err = httpx.NewRedisRateLimiter(cfg.RateLimitRedisAddr,
			cfg.RateLimitRedisPassword, cfg.RateLimitRedisDB)
		if err != nil {
			log.Warn("redis rate limiter unavailable, using in-process limiter",
				slog.String("error", err.Error()))
			limiter = nil
		}
	}

	router := httpx.New(cfg, log, authSvc, projectSvc, deploySvc, webhookSvc,
		activitySvc, githubSvc, hub, limiter).WithPinger(pool)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", slog.String("addr", cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
