package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x6d61/rawget/internal/config"
	"github.com/0x6d61/rawget/internal/engine"
	"github.com/0x6d61/rawget/internal/history"
	"github.com/0x6d61/rawget/internal/logger"
	"github.com/0x6d61/rawget/internal/report"
	"github.com/0x6d61/rawget/internal/transport"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "GET one or more paths from a host",
		Long: `Fetch sends "GET <path> HTTP/1.1" with "Connection: Close" for each path,
in order, over a fresh TCP connection. The report (status code and headers)
goes to stdout; bodies follow it on stdout, or go to --output.`,
		Args: cobra.NoArgs,
		RunE: runFetch,
	}

	d := config.Defaults()

	// Target flags
	cmd.Flags().String("host", d.Host, "Server host name")
	cmd.Flags().Int("port", d.Port, "Server TCP port")
	cmd.Flags().StringArrayP("path", "p", nil, "Request path (repeatable; default "+d.Path+")")

	// Connection flags
	cmd.Flags().Duration("timeout", 0, "Deadline for each fetch (0 waits forever)")
	cmd.Flags().Float64("rps", 0, "Maximum fetches per second (0 = unlimited)")
	cmd.Flags().Bool("legacy-parse", false, "Split header lines on bare CR")
	cmd.Flags().Bool("stop-on-error", false, "Stop at the first failed fetch")

	// Output flags
	cmd.Flags().StringP("output", "o", "", "Write response bodies to this file")
	cmd.Flags().Bool("brief", false, "Omit headers from the text report")

	return cmd
}

// runFetch wires config, logger, transport, history and report together
// and runs every requested fetch.
func runFetch(cmd *cobra.Command, args []string) error {
	// ------------------------------------------------------------------ //
	// 1. Configuration and logging
	// ------------------------------------------------------------------ //
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	paths, _ := cmd.Flags().GetStringArray("path")
	if len(paths) == 0 {
		paths = []string{cfg.Path}
	}
	stopOnError, _ := cmd.Flags().GetBool("stop-on-error")
	outputPath, _ := cmd.Flags().GetString("output")
	brief, _ := cmd.Flags().GetBool("brief")

	reporter, err := report.New(cfg.Format)
	if err != nil {
		return err
	}
	if tr, ok := reporter.(*report.TextReporter); ok {
		tr.Brief = brief
	}

	// ------------------------------------------------------------------ //
	// 2. Transport client
	// ------------------------------------------------------------------ //
	client, err := transport.NewClient(transport.ClientOptions{
		Timeout:   cfg.Timeout,
		ParseMode: cfg.ParseMode(),
		MaxRPS:    cfg.RPS,
		Logger:    log.Named("transport"),
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	// ------------------------------------------------------------------ //
	// 3. History store (optional)
	// ------------------------------------------------------------------ //
	store, err := history.NewStore(cfg.HistoryStore, cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// ------------------------------------------------------------------ //
	// 4. Run (CTRL+C cancels between fetches and aborts the one in flight)
	// ------------------------------------------------------------------ //
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	runner := engine.NewRunner(client, &engine.RunConfig{StopOnError: stopOnError},
		engine.WithLogger(log.Named("engine")),
		engine.WithRecorder(historyRecorder(store, log.Named("history"))),
		engine.WithProgressCallback(func(msg string) { progressf(cmd, "%s", msg) }),
	)

	target := &engine.Target{Host: cfg.Host, Port: cfg.Port, Paths: paths}
	progressf(cmd, "Target: %s:%d", cfg.Host, cfg.Port)

	result, runErr := runner.Run(ctx, target)
	if result == nil {
		return runErr
	}

	// ------------------------------------------------------------------ //
	// 5. Report, then bodies
	// ------------------------------------------------------------------ //
	stdout := cmd.OutOrStdout()
	if err := reporter.Generate(context.Background(), result, stdout); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", outputPath, err)
		}
		defer f.Close()
		if err := writeBodies(f, result, false); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
	} else if reporter.Format() == "text" {
		if err := writeBodies(stdout, result, true); err != nil {
			return err
		}
	}

	log.Debug("run finished",
		zap.Int64("requests", result.RequestCount),
		zap.Int("succeeded", result.Succeeded()),
		zap.Duration("elapsed", result.EndTime.Sub(result.StartTime)),
	)

	if runErr != nil {
		return runErr
	}
	if failed := len(result.Fetches) - result.Succeeded(); failed > 0 {
		return fmt.Errorf("%d of %d fetch(es) failed", failed, len(result.Fetches))
	}
	return nil
}

// historyRecorder saves each fetch outcome to store, logging when the
// status code differs from the previous record for the same target.
func historyRecorder(store history.Store, log *zap.Logger) engine.Recorder {
	return engine.RecorderFunc(func(ctx context.Context, f *engine.FetchResult) error {
		rec := history.NewRecord(f.Request, f.Response, f.Err, f.StartedAt)
		prev, err := store.Latest(ctx, rec.Target)
		if err != nil {
			return err
		}
		if prev != nil && prev.StatusCode != rec.StatusCode {
			log.Info("status changed since last fetch",
				zap.String("target", rec.Target),
				zap.String("previous", prev.StatusCode),
				zap.String("current", rec.StatusCode),
				zap.Time("previous_at", prev.FetchedAt),
			)
		}
		return store.Save(ctx, rec)
	})
}

// writeBodies writes the body of every successful fetch to w in fetch
// order. With labels set and more than one fetch, each body is preceded by
// a "==> target <==" line.
func writeBodies(w io.Writer, result *engine.RunResult, labels bool) error {
	labels = labels && len(result.Fetches) > 1
	for i := range result.Fetches {
		f := &result.Fetches[i]
		if !f.OK() {
			continue
		}
		if labels {
			if _, err := fmt.Fprintf(w, "==> %s <==\n", f.Request.Target()); err != nil {
				return err
			}
		}
		if _, err := w.Write(f.Response.Body); err != nil {
			return err
		}
	}
	return nil
}
