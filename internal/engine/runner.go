package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reel/internal/media"
)

var commandContext = exec.CommandContext

// runReal stages the input under a synthetic name in a per-call workspace,
// executes the engine, and reads back the produced output. The workspace is
// removed on every path, including partial failures after execution.
func (s *Session) runReal(ctx context.Context, tools Toolchain, workDir string, input []byte, sourceName string, target media.Format, quality media.Quality, onProgress ProgressFunc) ([]byte, string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.terminated:
			cancel()
		case <-runCtx.Done():
		}
	}()

	jobDir, err := os.MkdirTemp(workDir, "job-")
	if err != nil {
		return nil, "", fmt.Errorf("create job workspace: %w", err)
	}
	defer os.RemoveAll(jobDir)

	inputPath := filepath.Join(jobDir, "input"+sourceExtension(sourceName))
	outputPath := filepath.Join(jobDir, "output."+target.Extension())
	if err := os.WriteFile(inputPath, input, 0o644); err != nil {
		return nil, "", fmt.Errorf("stage input: %w", err)
	}

	var totalMS int64
	if duration, err := probeDuration(runCtx, tools.FFprobe, inputPath); err == nil {
		totalMS = duration.Milliseconds()
	}

	args := append([]string{"-hide_banner", "-nostats", "-progress", "pipe:1"}, BuildArgs(inputPath, outputPath, target, quality)...)
	cmd := commandContext(runCtx, tools.FFmpeg, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("start engine: %w", err)
	}

	started := time.Now()
	speed := ""
	last := 0
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "speed":
			if v := strings.TrimSpace(value); v != "" && v != "N/A" {
				speed = v
			}
		case "out_time_ms":
			// ffmpeg reports out_time_ms in microseconds despite the name.
			us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || totalMS <= 0 {
				continue
			}
			percent := int(float64(us) / 1000 / float64(totalMS) * 100)
			if percent > 99 {
				percent = 99
			}
			if percent > last {
				last = percent
				if onProgress != nil {
					onProgress(Progress{Percent: percent, Elapsed: time.Since(started), Speed: speed, Mode: ModeReal})
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return nil, "", fmt.Errorf("read engine progress: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, "", fmt.Errorf("engine run: %w: %s", err, tailString(stderr.String(), 512))
	}

	out, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read output: %w", err)
	}
	if onProgress != nil {
		onProgress(Progress{Percent: 100, Elapsed: time.Since(started), Speed: speed, Mode: ModeReal})
	}
	return out, speed, nil
}

func sourceExtension(sourceName string) string {
	ext := strings.ToLower(filepath.Ext(sourceName))
	if ext == "" {
		return ".bin"
	}
	return ext
}

// tailString keeps the last max bytes of engine stderr for error context.
func tailString(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
