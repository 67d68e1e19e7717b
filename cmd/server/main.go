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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"acquire-backend/config"
	"acquire-backend/internal/api"
	"acquire-backend/internal/events"
	"acquire-backend/internal/lobby"
	"acquire-backend/internal/notify"
	"acquire-backend/internal/realtime"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	printBanner(cfg.Server.Port)

	manager := lobby.NewManager(lobby.Caps{
		MaxLobbies:            cfg.Limits.MaxLobbies,
		MaxActiveGames:        cfg.Limits.MaxActiveGames,
		LobbyIdleTimeout:      cfg.Limits.LobbyIdleTimeout.Std(),
		GameIdleTimeout:       cfg.Limits.GameIdleTimeout.Std(),
		FinishedGameRetention: cfg.Limits.FinishedGameRetention.Std(),
		CleanupInterval:       cfg.Limits.CleanupInterval.Std(),
	}, nil, logger)

	hub := realtime.NewHub(logger)
	hub.Authorize = func(_ realtime.Namespace, lobbyID, username string) bool {
		rec, err := manager.Get(lobbyID)
		if err != nil {
			return false
		}
		rec.Lock()
		defer rec.Unlock()
		if rec.Game != nil {
			return rec.Game.HasPlayer(username)
		}
		return rec.Lobby.HasPlayer(username)
	}
	bus := events.Multi(hub, notify.NewConsoleReporter())

	router := api.NewRouter(manager, bus, logger, api.Options{
		RateLimitRPS: cfg.Server.RateLimitRPS,
		RateBurst:    cfg.Server.RateBurst,
		WebSocket:    hub.Router(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go manager.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	stop()

	hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	logger.Info("bye")
}

// buildLogger maps the log config onto a zap production or console setup.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
