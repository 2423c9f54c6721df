package main

import "testing"

func TestCLIFormatsCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"formats"}, "")
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	requireContains(t, out, "mp4")
	requireContains(t, out, "H.264 / AAC")
	requireContains(t, out, "VP9 / Opus")
	requireContains(t, out, "crf 18, preset slow")
	requireContains(t, out, "0.8x")
}
