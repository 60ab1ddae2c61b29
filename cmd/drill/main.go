package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/intervue/internal/drill"
	"github.com/okian/intervue/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("drill failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		cfg      drill.Config
		logLevel string
		logFile  string
	)

	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Run simulated interview sessions end to end",
		Long: `drill records, stops and submits a batch of simulated interview answers.

Without --backend an in-process stub collector answers telemetry and
submissions, so the capture pipeline can be exercised on its own.`,
		Example: `  drill --sessions 32 --workers 8 --duration 10s
  drill --backend http://localhost:5000 --sessions 4
  drill --fail-every 3 --retries 1`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var logOpts []logger.Option
			if logFile != "" {
				logOpts = append(logOpts, logger.WithOutputFile(logFile))
			}
			if err := logger.Init(logOpts...); err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}

			report, err := drill.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"sessions=%d submitted=%d failed=%d retries=%d completed=%d frames_sampled=%d frames_received=%d duration=%s\n",
				report.Sessions, report.Submitted, report.Failed, report.Retries, report.Completed,
				report.FramesSampled, report.FramesReceived, report.Duration)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d sessions failed", report.Failed, report.Sessions)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BackendURL, "backend", "", "Base URL of the interview backend (default: in-process stub)")
	flags.IntVar(&cfg.Sessions, "sessions", drill.DefaultSessions, "Number of sessions to run")
	flags.IntVar(&cfg.Workers, "workers", drill.DefaultWorkers, "Number of sessions run concurrently")
	flags.DurationVar(&cfg.Duration, "duration", drill.DefaultDuration, "Recording time per session")
	flags.DurationVar(&cfg.FaceInterval, "face-interval", drill.DefaultFaceInterval, "Face sampling period")
	flags.DurationVar(&cfg.SpeechEvery, "speech-every", drill.DefaultSpeechEvery, "Interval between scripted transcript lines")
	flags.StringSliceVar(&cfg.Answer, "answer", drill.DefaultAnswer, "Scripted answer lines")
	flags.IntVar(&cfg.SubmitRetries, "retries", drill.DefaultSubmitRetries, "Extra attempts after a retryable submission failure")
	flags.IntVar(&cfg.FailEvery, "fail-every", 0, "Stub only: reject every n-th submission")
	flags.StringVar(&cfg.MediaDir, "media-dir", "", "Directory for recorded answers (default: not stored)")
	flags.DurationVar(&cfg.Timeout, "timeout", drill.DefaultTimeout, "Bound on the whole drill")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "Also write logs to this rotated file")
	return cmd
}
