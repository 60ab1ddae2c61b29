package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/intervue/internal/adapters/device/synthetic"
	"github.com/okian/intervue/internal/adapters/http/api"
	"github.com/okian/intervue/internal/adapters/http/swagger"
	"github.com/okian/intervue/internal/adapters/http/ws"
	"github.com/okian/intervue/internal/adapters/media"
	"github.com/okian/intervue/internal/adapters/submission"
	"github.com/okian/intervue/internal/adapters/telemetry"
	app "github.com/okian/intervue/internal/app"
	"github.com/okian/intervue/internal/config"
	"github.com/okian/intervue/internal/domain/dedupe"
	"github.com/okian/intervue/internal/recording"
	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 45 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> dotenv -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logging
	var logOpts []logger.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logger.WithOutputFile(cfg.LogFile))
	}
	if err := logger.Init(logOpts...); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	hub := ws.NewHub(ws.WithLogger(loggerInstance.Named("ws")))
	defer hub.Close()

	svc := newService(cfg, hub, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, hub),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.BackendURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService wires the session registry from configuration.
func newService(cfg *config.Config, hub *ws.Hub, log logger.Logger) *app.Service {
	persister := telemetry.New(cfg.BackendURL,
		telemetry.WithPath(cfg.TelemetryPath),
		telemetry.WithTimeout(cfg.TelemetryTimeout()),
		telemetry.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.TelemetryDedupeSize))),
		telemetry.WithLogger(log.Named("telemetry")),
	)
	submitter := submission.New(cfg.BackendURL,
		submission.WithPath(cfg.SubmissionPath),
		submission.WithTimeout(cfg.SubmissionTimeout()),
		submission.WithLogger(log.Named("submission")),
	)

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithPlatform(synthetic.New()),
		app.WithSubmitter(submitter),
		app.WithTelemetry(persister),
		app.WithProjector(hub),
		app.WithMaxSessions(cfg.MaxSessions),
		app.WithControllerOptions(
			recording.WithFaceInterval(cfg.FaceSampleInterval()),
			recording.WithAudioInterval(cfg.AudioSampleInterval()),
			recording.WithChunkInterval(cfg.ChunkInterval()),
			recording.WithElapsedInterval(cfg.ElapsedTick()),
			recording.WithAcquireTimeout(cfg.AcquireTimeout()),
			recording.WithLanguage(cfg.SpeechLanguage),
			recording.WithNativeFaceDetection(cfg.NativeFaceDetection),
			recording.WithBuffer(cfg.EventBuffer),
		),
	}
	if cfg.MediaDir != "" {
		opts = append(opts, app.WithMediaSink(media.NewFileSink(cfg.MediaDir)))
	}
	return app.New(opts...)
}

// newMux registers the docs and the control-plane routes.
func newMux(ctx context.Context, svc *app.Service, hub *ws.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, hub, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

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
