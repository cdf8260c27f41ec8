package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeeinstein/web-kiosk-screen/internal/adapter/httpserver"
	"github.com/angeeinstein/web-kiosk-screen/internal/adapter/websocket"
	"github.com/angeeinstein/web-kiosk-screen/internal/broadcast"
	"github.com/angeeinstein/web-kiosk-screen/internal/metrics"
	"github.com/angeeinstein/web-kiosk-screen/internal/platform/config"
	"github.com/angeeinstein/web-kiosk-screen/internal/platform/logging"
	"github.com/angeeinstein/web-kiosk-screen/internal/platform/version"
	"github.com/angeeinstein/web-kiosk-screen/internal/screen"
	"github.com/jonboulle/clockwork"
)

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, hub *screen.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Closes every screen and dashboard connection with a close frame.
		hub.Stop()

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func hubHealthCheck(hub *screen.Hub) httpserver.HealthCheck {
	return httpserver.HealthCheck{
		Name: "screen_hub",
		Check: func(_ context.Context) error {
			_, err := hub.Stats()
			return err
		},
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	reg := metrics.NewRegistry()
	screenMetrics := metrics.NewScreenMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	router := broadcast.NewRouter(screenMetrics)
	hub := screen.NewHub(router, clock, screenMetrics)

	wsHandler := websocket.NewHandler(hub, websocket.Config{
		AllowedOrigins: cfg.Origins(),
		IsDevelopment:  cfg.IsDevelopment(),
		MaxConnections: int64(cfg.MaxWebSocketConnections),
		MessageRate:    cfg.WSMessageRate,
		MessageBurst:   cfg.WSMessageBurst,
	}, clock, wsMetrics)

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Screens:          hub,
		WebsocketHandler: wsHandler,
		MetricsHandler:   metrics.Handler(reg),
		HTTPMetrics:      httpMetrics,
		HealthChecks: []httpserver.HealthCheck{
			hubHealthCheck(hub),
			httpserver.UploadDirCheck(cfg.UploadDir),
		},
	})

	done := runGracefulShutdown(cfg, srv, hub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
