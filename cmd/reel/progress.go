package main

import (
	"fmt"
	"io"
	"time"

	"reel/internal/batch"
)

// convertEvents renders batch progress for the convert command. On a
// terminal the active job's progress is rewritten in place; otherwise each
// job produces a single start line finished by its outcome, keeping piped
// output free of control characters.
type convertEvents struct {
	out         io.Writer
	interactive bool
	lineWidth   int
}

func newConvertEvents(out io.Writer) *convertEvents {
	return &convertEvents{out: out, interactive: shouldColorize(out)}
}

func (e *convertEvents) BatchStarted(batchID string, jobCount int) {
	if jobCount == 1 {
		fmt.Fprintln(e.out, "Starting 1 conversion")
		return
	}
	fmt.Fprintf(e.out, "Starting %d conversions\n", jobCount)
}

func (e *convertEvents) JobStarted(jobID, sourceName string) {
	if e.interactive {
		fmt.Fprintf(e.out, "Converting %s\n", sourceName)
		return
	}
	fmt.Fprintf(e.out, "Converting %s ... ", sourceName)
}

func (e *convertEvents) JobProgress(jobID string, percent int, elapsed time.Duration, speed string) {
	if !e.interactive {
		return
	}
	line := fmt.Sprintf("  %3d%%", percent)
	if speed != "" {
		line += fmt.Sprintf(" (%s)", speed)
	}
	e.rewriteLine(line)
}

func (e *convertEvents) JobCompleted(jobID string, resultBytes int64, elapsed time.Duration) {
	line := fmt.Sprintf("done in %s (%s)", formatElapsed(elapsed), formatBytes(resultBytes))
	if e.interactive {
		e.rewriteLine("  " + line)
		fmt.Fprintln(e.out)
		e.lineWidth = 0
		return
	}
	fmt.Fprintln(e.out, line)
}

func (e *convertEvents) JobFailed(jobID, reason string) {
	line := fmt.Sprintf("failed (%s)", reason)
	if e.interactive {
		e.rewriteLine("  " + line)
		fmt.Fprintln(e.out)
		e.lineWidth = 0
		return
	}
	fmt.Fprintln(e.out, line)
}

func (e *convertEvents) BatchCompleted(summary batch.Summary) {}

// rewriteLine repaints the current terminal line, padding so a shorter
// write fully covers the previous one.
func (e *convertEvents) rewriteLine(line string) {
	if len(line) > e.lineWidth {
		e.lineWidth = len(line)
	}
	fmt.Fprintf(e.out, "\r%-*s", e.lineWidth, line)
}
