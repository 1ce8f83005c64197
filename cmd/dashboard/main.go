// Package main запускает дашборд сервисных заказов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/config"
	"github.com/mmeshcher/fieldservice-dashboard/internal/handler"
	"github.com/mmeshcher/fieldservice-dashboard/internal/journal"
	"github.com/mmeshcher/fieldservice-dashboard/internal/order"
	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
	"github.com/mmeshcher/fieldservice-dashboard/internal/team"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	api, err := backend.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	if err != nil {
		sugar.Fatalw("backend client error", "error", err.Error())
	}

	var j journal.Journal = journal.Nop{}
	if cfg.DatabaseURI != "" {
		pg, err := journal.NewPostgresJournal(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("journal initialization error", "error", err.Error())
		}
		j = pg
	} else {
		sugar.Info("DATABASE_URI is not set, transition journal disabled")
	}
	defer j.Close()

	sessions := session.NewManager(api, logger.Named("session"))
	orders := order.NewController(api, sessions, j, logger.Named("order"))
	teams := team.NewService(api, sessions, logger.Named("team"))

	h := handler.NewHandler(sessions, orders, teams, logger)

	r := h.SetupRouter(cfg.AllowedOrigins)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Стартовая проверка сессии, до её завершения защищённые маршруты отвечают 503
	g.Go(func() error {
		snap := sessions.Bootstrap(ctx)
		sugar.Infow("session bootstrap finished", "authenticated", snap.Authenticated)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting dashboard server", "addr", cfg.RunAddress, "api", cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
