package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/recallhq/recall/internal/cache"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/database"
	"github.com/recallhq/recall/internal/game"
	"github.com/recallhq/recall/internal/hooks"
	"github.com/recallhq/recall/internal/server"
	"github.com/recallhq/recall/internal/store"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := hooks.New()
	st := store.New()
	transport := server.New(cfg.Server.JWTSecret, bus)

	registry := game.NewRegistry(st, transport, cfg.GameConfig(), cfg.Deck)
	var historian *cache.Historian
	if client := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); client != nil {
		historian = cache.NewHistorian(client)
		registry.SetHistorian(historian)
		logrus.WithField("addr", cfg.Redis.Addr).Info("action historian enabled")
	}
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if pool != nil {
		registry.SetPersister(database.NewPersister(pool))
		defer pool.Close()
		logrus.Info("game state persistence enabled")
	}

	game.BindLifecycle(bus, registry, st)

	coordinator := game.NewCoordinator(registry, transport.RoomManager(), transport)
	if historian != nil {
		coordinator.SetHistorian(historian)
	}
	transport.Coordinator = coordinator

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: transport.Handler(),
	}
	go func() {
		logrus.WithField("addr", cfg.Server.Addr).Info("recall server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
