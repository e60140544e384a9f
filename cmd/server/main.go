package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/VadimBatsko/kurschat/internal/auditlog"
	"github.com/VadimBatsko/kurschat/internal/exchange"
	"github.com/VadimBatsko/kurschat/internal/privatbank"
	"github.com/VadimBatsko/kurschat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	rates := privatbank.NewClient(privatbank.WithBaseURL(cfg.PrivatBankBaseURL))
	exchanger := exchange.NewService(rates,
		exchange.WithAuditLogger(auditlog.New(cfg.AuditLogPath)),
		exchange.WithMaxDays(cfg.ExchangeMaxDays),
		exchange.WithRequestTimeout(cfg.ExchangeRequestTimeout),
	)

	hub := server.NewHub(cfg, server.RandomName)
	hub.SetHandler(server.NewRouter(hub, exchanger))
	go hub.Run()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(hub))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		slog.Error("HTTP shutdown incomplete", "err", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		slog.Error("hub shutdown incomplete", "err", err)
	}
}
