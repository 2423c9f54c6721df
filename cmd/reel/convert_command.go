package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reel/internal/batch"
	"reel/internal/config"
	"reel/internal/engine"
	"reel/internal/logging"
	"reel/internal/logs"
	"reel/internal/media"
	"reel/internal/preflight"
	"reel/internal/queue"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var targetFlag string
	var qualityFlag string
	var outputFlag string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert video files in one batch run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, ctx, args, targetFlag, qualityFlag, outputFlag, verbose)
		},
	}

	cmd.Flags().StringVar(&targetFlag, "to", "", "Target container format (default from config)")
	cmd.Flags().StringVarP(&qualityFlag, "quality", "q", "", "Quality preset: high, medium, or low (default from config)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Directory for converted files (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Mirror engine logs to the terminal")
	return cmd
}

func runConvert(cmd *cobra.Command, ctx *commandContext, args []string, targetFlag, qualityFlag, outputFlag string, verbose bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	targetValue := strings.TrimSpace(targetFlag)
	if targetValue == "" {
		targetValue = cfg.Batch.DefaultFormat
	}
	format, ok := media.ParseFormat(targetValue)
	if !ok {
		return media.ErrUnknownFormat(targetValue)
	}

	qualityValue := strings.TrimSpace(qualityFlag)
	if qualityValue == "" {
		qualityValue = cfg.Batch.DefaultQuality
	}
	quality, ok := media.ParseQuality(qualityValue)
	if !ok {
		return fmt.Errorf("unknown quality preset %q (choose high, medium, or low)", qualityValue)
	}

	// Hard environment failures stop the run before any job is registered.
	// Advisory failures describe degraded operation and only warn.
	results := preflight.RunAll(cmd.Context(), cfg)
	if blocking := preflight.Blocking(results); len(blocking) > 0 {
		for _, check := range blocking {
			fmt.Fprintln(out, renderStatusLine(check.Name, statusError, check.Detail, colorize))
		}
		return fmt.Errorf("environment is not ready; fix the checks above or run `reel status`")
	}
	for _, check := range preflight.Failures(results) {
		fmt.Fprintln(out, renderStatusLine(check.Name, statusWarn, check.Detail, colorize))
	}

	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := buildConvertLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job database: %w", err)
	}
	defer store.Close()

	if failed, _, err := store.FailStuckConverting(signalCtx); err == nil && failed > 0 {
		fmt.Fprintf(out, "Marked %d interrupted jobs from a previous run as failed\n", failed)
	}

	session := engine.NewSession(cfg, logger)
	defer session.Terminate()

	coordinator := batch.NewCoordinator(cfg, store, session, logger,
		batch.WithEvents(newConvertEvents(out)))

	jobIDs := make([]string, 0, len(args))
	for _, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return err
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read source %s: %w", arg, err)
		}
		job, err := coordinator.RegisterFile(signalCtx, filepath.Base(path), payload)
		if err != nil {
			return err
		}
		if _, err := coordinator.SetTargetFormat(signalCtx, job.ID, format.String()); err != nil {
			return err
		}
		if _, err := coordinator.SetQualityPreset(signalCtx, job.ID, quality.String()); err != nil {
			return err
		}
		jobIDs = append(jobIDs, job.ID)
	}

	summary, err := coordinator.Run(signalCtx, jobIDs)
	if err != nil {
		return err
	}

	// Post-run work still proceeds after Ctrl-C; only cancelation is
	// severed so completed jobs get saved and the summary stays accurate.
	persistCtx := context.WithoutCancel(signalCtx)

	var saveFailures []string
	for _, id := range jobIDs {
		job, err := coordinator.Job(persistCtx, id)
		if err != nil || job.Status != queue.StatusCompleted {
			continue
		}
		destination, err := coordinator.SaveResult(persistCtx, id, strings.TrimSpace(outputFlag))
		if err != nil {
			saveFailures = append(saveFailures, fmt.Sprintf("%s: %v", job.SourceName, err))
			continue
		}
		fmt.Fprintf(out, "Saved %s\n", destination)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Completed %d of %d in %s\n", summary.Completed, summary.Total, formatElapsed(summary.Elapsed))
	if summary.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d jobs\n", summary.Skipped)
	}

	if summary.Failed > 0 {
		for _, id := range jobIDs {
			job, err := coordinator.Job(persistCtx, id)
			if err != nil || job.Status != queue.StatusFailed {
				continue
			}
			fmt.Fprintf(out, "  %s: %s\n", job.SourceName, job.ErrorMessage)
		}
		return fmt.Errorf("%d of %d conversions failed", summary.Failed, summary.Total)
	}
	if len(saveFailures) > 0 {
		return fmt.Errorf("saving results failed: %s", strings.Join(saveFailures, "; "))
	}
	return nil
}

// buildConvertLogger writes engine and batch logs to the log file so the
// terminal stays reserved for progress output. Verbose mirrors them to
// stdout as well.
func buildConvertLogger(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	logPath := logs.PointerPath(cfg.Paths.LogDir)
	outputs := []string{logPath}
	errorOutputs := []string{logPath}
	if verbose {
		outputs = append([]string{"stdout"}, outputs...)
		errorOutputs = append([]string{"stderr"}, errorOutputs...)
	}
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: errorOutputs,
	})
}
