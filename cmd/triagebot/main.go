package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/github"
	openaiadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/openai"
	policyadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/policy"
	sqliteadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/triagebot/internal/adapter/driving/http"
	"github.com/ericfisherdev/triagebot/internal/application"
	"github.com/ericfisherdev/triagebot/internal/config"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
	"github.com/ericfisherdev/triagebot/internal/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"policy_dir", cfg.PolicyDir,
		"schedule", cfg.Schedule,
		"repos", cfg.Repos,
		"dry_run", cfg.DryRun,
		"classifier", cfg.HasClassifier(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the audit database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	// 5. Wire driven adapters.
	ghClient := githubadapter.NewClient(cfg.GitHubToken)
	if login, err := ghClient.AuthenticatedUser(ctx); err != nil {
		slog.Warn("could not resolve authenticated github user", "error", err)
	} else {
		slog.Info("github client created", "login", login)
	}

	policies := policyadapter.NewLoader(cfg.PolicyDir)
	runStore := sqliteadapter.NewRunRepo(db)

	var classifier driven.LabelClassifier
	if cfg.HasClassifier() {
		classifier = openaiadapter.NewClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		slog.Info("label classifier enabled", "model", cfg.OpenAIModel)
	}

	// 6. Create the triage service.
	triageSvc := application.NewTriageService(
		ghClient,
		ghClient,
		policies,
		classifier,
		runStore,
		cfg.Repos,
		cfg.DryRun,
		cfg.MaxParallel,
	)
	triageSvc.SetAuditRetention(cfg.AuditRetention)

	var wg sync.WaitGroup

	// 7. Reload policies when files under the policy directory change.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := policies.Watch(ctx); err != nil {
			slog.Warn("policy watcher stopped, policies are cached until restart", "error", err)
		}
	}()

	// 8. Start the periodic sweep.
	if cfg.ScheduleEnabled() {
		scheduler, err := application.NewScheduler(cfg.Schedule, triageSvc, logger)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Start(ctx)
		}()
	} else {
		slog.Info("periodic sweep disabled")
	}

	// 9. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(triageSvc, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("triagebot started",
		"listen_addr", cfg.ListenAddr,
		"schedule", cfg.Schedule,
		"max_parallel", cfg.MaxParallel,
	)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 11. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// Sweeps observe ctx and finish their current item before returning.
	wg.Wait()

	slog.Info("shutdown complete")
	return nil
}
