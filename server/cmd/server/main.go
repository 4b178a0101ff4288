package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/entryrpc"
	"github.com/benchboard/benchboard/server/internal/alerts"
	"github.com/benchboard/benchboard/server/internal/api"
	"github.com/benchboard/benchboard/server/internal/auth"
	"github.com/benchboard/benchboard/server/internal/config"
	"github.com/benchboard/benchboard/server/internal/metrics"
	"github.com/benchboard/benchboard/server/internal/receiver"
	"github.com/benchboard/benchboard/server/internal/store"
	"github.com/benchboard/benchboard/server/internal/ws"
)

// summaryInterval is how often the WebSocket hub pushes a summary.
const summaryInterval = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("benchboard-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	sc := cfg.Server

	slog.Info("config loaded",
		"grpc_port", sc.GRPCPort,
		"http_port", sc.HTTPPort,
		"auth_mode", sc.Auth.Mode,
		"storage", sc.Storage.Backend,
		"data_file", sc.DataFile.Path,
		"max_items", sc.History.MaxItems,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(sc.History.RepoURL, sc.History.MaxItems)
	closeStorage, err := openStorage(ctx, st, sc)
	if err != nil {
		slog.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer closeStorage()

	alertEngine, err := alerts.New(sc.Alerts)
	if err != nil {
		slog.Error("failed to create alert engine", "err", err)
		os.Exit(1)
	}
	warn, alert, _ := sc.Alerts.Thresholds()

	m := metrics.New()
	recv := receiver.New(st, alertEngine, m)

	// gRPC server with optional API key authentication interceptor.
	interceptor := auth.APIKeyInterceptor(
		sc.Auth.Mode,
		sc.Auth.EffectiveHeader(),
		sc.Auth.Key(),
	)
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	entryrpc.RegisterEntryServiceServer(grpcSrv, recv)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", sc.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port",
			"port", sc.GRPCPort, "err", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("gRPC receiver listening", "port", sc.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	apiHandler := api.New(api.Options{
		Store:    st,
		Alerts:   alertEngine,
		Receiver: recv,
		Warn:     warn,
		Alert:    alert,
		Auth:     sc.Auth,
	})

	// WebSocket hub: relays appends and pushes summaries to dashboards.
	hub := ws.New(st, summaryInterval, apiHandler.Summary)
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", m.Handler())
	httpMux.Handle("/", apiHandler)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           m.Middleware(httpMux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	// Alert settings reload live; everything else needs a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			if err := alertEngine.Reconfigure(next.Server.Alerts); err != nil {
				slog.Warn("config reload: alerts not applied", "err", err)
				return
			}
			slog.Info("config reloaded", "alert_threshold", next.Server.Alerts.Threshold,
				"webhooks", len(next.Server.Alerts.Webhooks))
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("benchboard-server shutting down")
	grpcSrv.GracefulStop()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// openStorage restores history into st from the configured backends and
// registers them as sinks. The returned func closes them.
func openStorage(ctx context.Context, st *store.Store, sc config.ServerConfig) (func(), error) {
	closeFn := func() {}

	var db *store.Database
	var err error
	switch sc.Storage.Backend {
	case "sqlite":
		db, err = store.OpenSQLite(sc.Storage.Path)
	case "postgres":
		db, err = store.OpenPostgres(sc.Storage.DSN())
	}
	if err != nil {
		return nil, err
	}
	if db != nil {
		d, err := db.Load(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := st.Replace(d); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s history: %w", db.Backend(), err)
		}
		st.AddSink(db)
		closeFn = func() { db.Close() }
		slog.Info("history loaded from database", "backend", db.Backend(), "entries", st.Count())
	}

	if path := sc.DataFile.Path; path != "" {
		// The database wins when both hold history.
		if st.Count() == 0 {
			// A missing file reads as empty history.
			d, err := datajs.ReadFile(path)
			if err != nil {
				closeFn()
				return nil, err
			}
			if err := st.Replace(d); err != nil {
				closeFn()
				return nil, fmt.Errorf("data file %s: %w", path, err)
			}
			slog.Info("history loaded from data file", "path", path, "entries", st.Count())
		}
		st.AddSink(store.NewFileSink(path))
		if sc.DataFile.Watch {
			go func() {
				if err := store.WatchFile(ctx, st, path); err != nil {
					slog.Error("data file watch stopped", "path", path, "err", err)
				}
			}()
		}
	}

	return closeFn, nil
}
