package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"task-assigner/internal/audit"
	"task-assigner/internal/auth"
	"task-assigner/internal/config"
	"task-assigner/internal/database"
	"task-assigner/internal/models"
	"task-assigner/internal/server"
	"task-assigner/internal/tasks"
	"task-assigner/internal/tracing"
	"task-assigner/internal/users"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
)

var version = "dev"

func main() {
	var (
		configPath  string
		envFile     string
		migrateOnly bool
		seedDemo    bool
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file (overrides CONFIG_FILE)")
	flag.StringVar(&envFile, "env-file", "", "path to an env file (default .env when present)")
	flag.BoolVar(&migrateOnly, "migrate-only", false, "run the schema migration and exit")
	flag.BoolVar(&seedDemo, "seed-demo", false, "create an approved demo employee and manager")
	flag.Parse()

	if err := run(configPath, envFile, migrateOnly, seedDemo); err != nil {
		fmt.Fprintf(os.Stderr, "task-assigner: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, migrateOnly, seedDemo bool) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		Driver:     cfg.DBDriver,
		DSN:        cfg.DBDSN,
		Attempts:   cfg.DBConnectAttempts,
		Logger:     log,
		LogQueries: strings.EqualFold(cfg.LogLevel, "debug"),
	})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if migrateOnly {
		log.Info("migration complete", "driver", cfg.DBDriver)
		return nil
	}

	store := users.New(db)
	if err := store.EnsureAdmin(ctx, log, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if seedDemo {
		if err := store.SeedDemo(ctx, log); err != nil {
			return fmt.Errorf("seed demo users: %w", err)
		}
	}

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init("task-assigner", version, cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("tracing shutdown", "error", err)
			}
		}()
	}

	resolver := auth.NewResolver(store, auth.NewTokens(cfg.JWTSecret, cfg.CredentialTTL))
	resolver.RecheckApproval = cfg.RecheckApproval

	policy := tasks.Policy{
		UpdateAction:         models.TaskAction(cfg.UpdateAuditAction),
		CompleteFromAssigned: cfg.CompleteFromAssigned,
		OpenLogs:             cfg.OpenTaskLogs,
	}
	engine := tasks.NewEngine(db, store, audit.New(db), policy, log)

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewRouter(cfg, server.Deps{
		DB:       db,
		Users:    store,
		Resolver: resolver,
		Engine:   engine,
	}, log)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "api_prefix", cfg.APIPrefix, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}
