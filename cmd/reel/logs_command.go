package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent run log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runLogs(cmd, logs.PointerPath(cfg.Paths.LogDir), lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new entries as they are written")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of trailing entries to show (0 for the whole log)")
	return cmd
}

func runLogs(cmd *cobra.Command, path string, lines int, follow bool) error {
	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	limit := lines
	if limit < 0 {
		limit = 0
	}
	// Trailing reads start from the end; a zero limit means the whole log.
	offset := int64(-1)
	if limit == 0 {
		offset = 0
	}

	printed := false
	for {
		result, err := logs.Tail(signalCtx, path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail run log: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(out, line)
			printed = true
		}
		offset = result.Offset
		limit = 0

		if !follow {
			if !printed {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		select {
		case <-signalCtx.Done():
			return nil
		default:
		}
	}
}
