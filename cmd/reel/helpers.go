package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/queue"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func dashIfEmpty(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func jobProgressCell(job *queue.Job) string {
	switch job.Status {
	case queue.StatusConverting:
		if job.ConversionSpeed != "" {
			return fmt.Sprintf("%d%% (%s)", job.ProgressPercent, job.ConversionSpeed)
		}
		return fmt.Sprintf("%d%%", job.ProgressPercent)
	case queue.StatusCompleted:
		return "100%"
	case queue.StatusFailed:
		return fmt.Sprintf("%d%%", job.ProgressPercent)
	default:
		return "-"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
