package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/Vanaiyalini/TaskTrail/internal/config"
	"github.com/Vanaiyalini/TaskTrail/internal/database"
	"github.com/Vanaiyalini/TaskTrail/internal/routes"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "optional YAML configuration file")
	pflag.Parse()

	cfg := config.MustLoad(configPath)
	log := mustMakeLogger(cfg.LogLevel)

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancelConnect := context.WithTimeout(ctx, 30*time.Second)
	store, err := database.Connect(connectCtx, cfg.DB, log)
	cancelConnect()
	if err != nil {
		log.Error("cannot connect to database", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("closing database", "error", err)
		}
	}()

	lifetime, err := cfg.TokenLifetime()
	if err != nil {
		log.Error("invalid JWT_EXPIRE", "error", err)
		os.Exit(1)
	}
	jwtService, err := services.NewJWTService(cfg.Auth.JWTSecret, lifetime)
	if err != nil {
		log.Error("cannot init token service", "error", err)
		os.Exit(1)
	}

	server := http.Server{
		Addr:              cfg.Addr(),
		Handler:           routes.SetupRouter(cfg, store, jwtService, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", server.Addr, "env", cfg.Env, "driver", cfg.DB.Driver, "token_lifetime", jwtService.Lifetime())
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func mustMakeLogger(logLevel string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(strings.TrimSpace(logLevel)) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
