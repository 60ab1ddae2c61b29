package drill

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/intervue/internal/adapters/device/synthetic"
	"github.com/okian/intervue/internal/adapters/media"
	"github.com/okian/intervue/internal/adapters/mq/queue"
	"github.com/okian/intervue/internal/adapters/mq/worker"
	"github.com/okian/intervue/internal/adapters/submission"
	"github.com/okian/intervue/internal/adapters/telemetry"
	service "github.com/okian/intervue/internal/app"
	"github.com/okian/intervue/internal/domain/dedupe"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/internal/recording"
	"github.com/okian/intervue/pkg/logger"
)

const collectorShutdownTimeout = 5 * time.Second

// frameCounter counts frames applied across every session.
type frameCounter struct {
	session.NopSink
	n atomic.Int64
}

func (f *frameCounter) FrameSampled(context.Context, string, signal.Frame) {
	f.n.Add(1)
}

type counters struct {
	submitted atomic.Int64
	failed    atomic.Int64
	retries   atomic.Int64
	completed atomic.Int64
}

// Run executes a complete drill: every session records for the configured
// duration, stops and submits its answer.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("drill")
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var collector *Collector
	if cfg.BackendURL == "" {
		c, err := StartCollector(cfg.Sessions, cfg.FailEvery)
		if err != nil {
			return Report{}, fmt.Errorf("start collector: %w", err)
		}
		collector = c
		cfg.BackendURL = c.URL()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), collectorShutdownTimeout)
			defer scancel()
			_ = c.Close(sctx)
		}()
	}

	log.Info(ctx, "starting drill",
		logger.String("backend", cfg.BackendURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("duration", cfg.Duration),
		logger.Bool("stub", collector != nil),
	)

	persister := telemetry.New(cfg.BackendURL,
		telemetry.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))),
	)
	frames := &frameCounter{}
	opts := []service.Option{
		service.WithPlatform(synthetic.New(synthetic.WithSpeechScript(cfg.SpeechEvery, cfg.Answer...))),
		service.WithSubmitter(submission.New(cfg.BackendURL)),
		service.WithTelemetry(persister),
		service.WithMaxSessions(cfg.Sessions),
		service.WithControllerOptions(
			recording.WithFaceInterval(cfg.FaceInterval),
			recording.WithSinks(frames),
		),
	}
	if cfg.MediaDir != "" {
		opts = append(opts, service.WithMediaSink(media.NewFileSink(cfg.MediaDir)))
	}
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return Report{}, err
	}

	var cnt counters
	interviewID := uuid.NewString()
	jobs := queue.NewInMemoryQueue[int](queue.WithCapacity(cfg.Sessions), queue.WithName("drill"))
	pool := worker.NewPool[int](cfg.Workers, jobs, worker.HandlerFunc[int](func(ctx context.Context, i int) error {
		return runSession(ctx, svc, cfg, interviewID, i, &cnt)
	}))
	pool.Start(ctx)

	for i := 0; i < cfg.Sessions; i++ {
		if !jobs.Enqueue(ctx, i) {
			log.Warn(ctx, "session not scheduled", logger.Int("session", i))
		}
	}
	_ = jobs.Close()
	waitErr := pool.Wait(ctx)

	stopCtx := context.WithoutCancel(ctx)
	if err := svc.Stop(stopCtx); err != nil {
		log.Warn(ctx, "service stop failed", logger.Error(err))
	}

	report := Report{
		Sessions:      cfg.Sessions,
		Submitted:     int(cnt.submitted.Load()),
		Failed:        int(cnt.failed.Load()),
		Retries:       int(cnt.retries.Load()),
		Completed:     int(cnt.completed.Load()),
		FramesSampled: int(frames.n.Load()),
		Duration:      time.Since(start),
	}
	if collector != nil {
		report.FramesReceived = collector.Frames()
	}

	log.Info(ctx, "drill finished",
		logger.Int("submitted", report.Submitted),
		logger.Int("failed", report.Failed),
		logger.Int("retries", report.Retries),
		logger.Int("completed", report.Completed),
		logger.Int("framesSampled", report.FramesSampled),
		logger.Int("framesReceived", report.FramesReceived),
		logger.Duration("duration", report.Duration),
	)
	if waitErr != nil {
		return report, waitErr
	}
	return report, nil
}

// runSession drives one question from creation to submission.
func runSession(ctx context.Context, svc *service.Service, cfg Config, interviewID string, i int, cnt *counters) error {
	log := logger.Get().Named("drill")
	c, err := svc.CreateSession(ctx, "q-"+strconv.Itoa(i), interviewID)
	if err != nil {
		cnt.failed.Add(1)
		return fmt.Errorf("session %d: %w", i, err)
	}
	defer func() {
		_, _ = svc.CloseSession(context.WithoutCancel(ctx), c.ID())
	}()

	if err := c.Start(ctx); err != nil {
		cnt.failed.Add(1)
		return fmt.Errorf("session %d start: %w", i, err)
	}
	select {
	case <-time.After(cfg.Duration):
	case <-ctx.Done():
	}
	if err := c.Stop(context.WithoutCancel(ctx)); err != nil {
		cnt.failed.Add(1)
		return fmt.Errorf("session %d stop: %w", i, err)
	}

	for attempt := 0; ; attempt++ {
		out, err := c.Submit(ctx)
		if err == nil {
			cnt.submitted.Add(1)
			if out.Navigation == submission.Complete {
				cnt.completed.Add(1)
			}
			return nil
		}
		var rerr *recording.Error
		if attempt >= cfg.SubmitRetries || !errors.As(err, &rerr) || !rerr.Retryable {
			cnt.failed.Add(1)
			return fmt.Errorf("session %d submit: %w", i, err)
		}
		cnt.retries.Add(1)
		log.Debug(ctx, "retrying submission", logger.Int("session", i), logger.Int("attempt", attempt+1))
	}
}
