package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// probeDuration asks ffprobe for the container duration of the staged input.
// Real-mode percent reporting depends on it; callers treat failures as
// "duration unknown" and skip percent computation.
func probeDuration(ctx context.Context, binary, inputPath string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		inputPath,
	}
	out, err := commandContext(ctx, binary, args...).Output()
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	value := strings.TrimSpace(string(out))
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("probe duration: no value reported")
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
