package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetpulse/fleetpulse/server/internal/alerts"
	"github.com/fleetpulse/fleetpulse/server/internal/api"
	"github.com/fleetpulse/fleetpulse/server/internal/config"
	"github.com/fleetpulse/fleetpulse/server/internal/store"
	"github.com/fleetpulse/fleetpulse/server/internal/verdicts"
	"github.com/fleetpulse/fleetpulse/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config/server.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve dashboard static files from this directory; leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("fleetpulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"storage_path", cfg.Storage.Path,
		"verdict_ttl", cfg.Verdicts.TTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Fleet catalog and reading history, backed by SQLite.
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.Storage.Path, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	// Live verdict store with background TTL eviction.
	vs := verdicts.New(cfg.Verdicts.TTL)
	go vs.Run(ctx)

	// Alerts engine — evaluates rules on every incoming cycle report.
	alertEngine := alerts.New(cfg.Alerts)

	// WebSocket hub — broadcasts the live verdict set to dashboard clients.
	hub := ws.New(vs, cfg.Verdicts.BroadcastInterval)
	go hub.Run(ctx)

	// Combined HTTP server: REST API + WebSocket hub on HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(st, vs, alertEngine, cfg.Server.Auth))
	httpMux.Handle("/ws/feed", hub)

	// Optional: serve a pre-built dashboard from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("fleetpulse-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
