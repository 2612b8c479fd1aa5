package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Simplici0/recipecost/internal/config"
	"github.com/Simplici0/recipecost/internal/db"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/migrations"
	"github.com/Simplici0/recipecost/internal/seed"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "recipecost"})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "recipecost",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"db_path": cfg.DB.Path,
	})

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		logg.Error(ctx, "failed to open database", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if cfg.DB.AutoMigrate || cfg.App.IsDev() {
		if err := migrations.Up(ctx, database, logg); err != nil {
			logg.Error(ctx, "failed to run database migrations", err)
			os.Exit(1)
		}
	}

	if cfg.App.SeedDemo {
		if _, err := seed.Run(ctx, database, logg); err != nil {
			logg.Error(ctx, "failed to seed demo catalog", err)
			os.Exit(1)
		}
	}

	srv := newServer(database, logg)
	httpServer := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", httpServer.Addr), "server.listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "server.shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
