package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/leadscore/internal/adapters/http/api"
	"github.com/okian/leadscore/internal/adapters/http/site"
	"github.com/okian/leadscore/internal/adapters/http/swagger"
	"github.com/okian/leadscore/internal/adapters/repository"
	app "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/config"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// The default Go collectors live on the global registry; ours is custom.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService loads the dataset and the model artifact. Either failing is
// fatal: there is nothing to serve without both.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	store, err := repository.LoadFile(ctx, cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	model, err := scoring.LoadFile(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	log.Info(ctx, "model loaded",
		logger.String("path", cfg.ModelPath),
		logger.Int("trees", model.Forest.Trees()),
	)

	opts := []app.Option{
		app.WithStore(store),
		app.WithModel(model),
		app.WithDefaultSort(cfg.Sort()),
		app.WithLogger(log.Named("service")),
	}
	if cfg.EncodeWithModel {
		opts = append(opts, app.WithCodeTable(model.Codes))
	}
	svc, err := app.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// newMux wires the docs, the dashboard and the lead API onto one mux.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithCORSOrigin(cfg.CORSOrigin),
		api.WithLogger(log.Named("api")),
	)
	apiServer.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes system gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
