package main

import (
	"testing"
	"time"

	"reel/internal/queue"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Fatalf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(0); got != "-" {
		t.Fatalf("formatElapsed(0) = %q, want -", got)
	}
	if got := formatElapsed(1500 * time.Millisecond); got != "1.5s" {
		t.Fatalf("formatElapsed(1.5s) = %q", got)
	}
	if got := formatElapsed(90 * time.Second); got != "1m30s" {
		t.Fatalf("formatElapsed(90s) = %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abcdefghij"); got != "abcdefgh" {
		t.Fatalf("shortID long = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID short = %q", got)
	}
}

func TestJobProgressCell(t *testing.T) {
	pending := &queue.Job{Status: queue.StatusPending}
	if got := jobProgressCell(pending); got != "-" {
		t.Fatalf("pending cell = %q", got)
	}

	converting := &queue.Job{Status: queue.StatusConverting, ProgressPercent: 42, ConversionSpeed: "1.2x"}
	if got := jobProgressCell(converting); got != "42% (1.2x)" {
		t.Fatalf("converting cell = %q", got)
	}

	completed := &queue.Job{Status: queue.StatusCompleted, ProgressPercent: 100}
	if got := jobProgressCell(completed); got != "100%" {
		t.Fatalf("completed cell = %q", got)
	}

	failed := &queue.Job{Status: queue.StatusFailed, ProgressPercent: 60}
	if got := jobProgressCell(failed); got != "60%" {
		t.Fatalf("failed cell = %q", got)
	}
}
