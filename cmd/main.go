package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/shootsim/internal/adapters/http/api"
	"github.com/okian/shootsim/internal/adapters/http/swagger"
	app "github.com/okian/shootsim/internal/app"
	"github.com/okian/shootsim/internal/config"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return errors.Join(errors.New("failed to load config"), err)
	}

	if err := logger.Init(logger.WithJSON(cfg.LogJSON)); err != nil {
		return errors.Join(errors.New("failed to initialize logging"), err)
	}
	defer func() { _ = logger.Sync() }()
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.SetEnabled(cfg.MetricsEnabled)
	registerRuntimeCollectors()

	svc := app.New(
		app.WithConfig(cfg),
		app.WithLogger(loggerInstance.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		return errors.Join(errors.New("failed to start service"), err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return errors.Join(errors.New("HTTP server failed"), err)
		}
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
	return nil
}

// newMux registers the docs and business API routes.
func newMux(ctx context.Context, svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	stats := api.StatsFunc(func(ctx context.Context) any { return svc.Stats(ctx) })
	api.NewServer(svc, stats, cfg.MaxSessionsLimit).Register(ctx, mux)
	return mux
}

// registerRuntimeCollectors adds Go runtime and process metrics to the
// service registry served on /healthz.
func registerRuntimeCollectors() {
	reg := metrics.GetRegistry()
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// startServiceMetricsUpdater refreshes the queue gauges from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := svc.Stats(ctx)
			metrics.UpdateQueueSize("shots", st.QueueLength)
			metrics.UpdateSceneTargets(st.Scene.Targets)
		}
	}
}
