package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"reel/internal/engine"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/services"
)

func TestCLIJobsShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job, err := env.store.NewJob(ctx, "Festival Cut.mov", 9<<20, media.QualityHigh)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "show", job.ID}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, job.ID)
	requireContains(t, out, "Festival Cut")
	requireContains(t, out, "pending")
	requireContains(t, out, "9.0 MiB")

	out, _, err = runCLI(t, []string{"jobs", "show", job.ID, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show --json: %v", err)
	}
	requireContains(t, out, `"displayTitle": "Festival Cut"`)
	requireContains(t, out, `"quality": "high"`)

	_, _, err = runCLI(t, []string{"jobs", "show", "missing"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCLIJobsShowFailedFields(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job, err := env.store.NewJob(ctx, "Broken Clip.wmv", 1024, media.DefaultQuality)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	job.MarkConverting(engine.ModeSimulated, time.Now())
	job.ApplyProgress(35)
	job.MarkFailed(services.ReasonConversionFailed, "engine exited with status 1", time.Now())
	if err := env.store.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "show", job.ID}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, "Failure:")
	requireContains(t, out, services.ReasonConversionFailed)
	requireContains(t, out, "engine exited with status 1")
	requireContains(t, out, "35%")
}

func TestCLIJobsRemoveCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job, err := env.store.NewJob(ctx, "Short Clip.webm", 512, media.DefaultQuality)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "remove", job.ID}, env.configPath)
	if err != nil {
		t.Fatalf("jobs remove: %v", err)
	}
	requireContains(t, out, "Removed job")
	if got, err := env.store.GetByID(ctx, job.ID); err != nil || got != nil {
		t.Fatalf("expected job gone after remove, got %+v err=%v", got, err)
	}

	converting, err := env.store.NewJob(ctx, "Busy Clip.mkv", 512, media.DefaultQuality)
	if err != nil {
		t.Fatalf("NewJob converting: %v", err)
	}
	converting.MarkConverting(engine.ModeSimulated, time.Now())
	if err := env.store.Update(ctx, converting); err != nil {
		t.Fatalf("update converting: %v", err)
	}

	out, _, err = runCLI(t, []string{"jobs", "remove", converting.ID}, env.configPath)
	if err != nil {
		t.Fatalf("jobs remove converting: %v", err)
	}
	requireContains(t, out, "removal deferred")

	flagged, err := env.store.GetByID(ctx, converting.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if flagged == nil || !flagged.RemoveRequested {
		t.Fatalf("expected removal flag on converting job, got %+v", flagged)
	}
	if flagged.Status != queue.StatusConverting {
		t.Fatalf("converting job should stay converting, got %s", flagged.Status)
	}

	_, _, err = runCLI(t, []string{"jobs", "remove", "missing"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCLIJobsRetryByID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	pending, err := env.store.NewJob(ctx, "Waiting.mp4", 256, media.DefaultQuality)
	if err != nil {
		t.Fatalf("NewJob pending: %v", err)
	}
	failed, err := env.store.NewJob(ctx, "Crashed.avi", 256, media.DefaultQuality)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	failed.MarkFailed(services.ReasonEngineUnavailable, "engine terminated", time.Now())
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("update failed job: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "retry", failed.ID, pending.ID, "missing"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs retry: %v", err)
	}
	requireContains(t, out, "reset for retry")
	requireContains(t, out, "is not in failed state")
	requireContains(t, out, "Job missing not found")

	reset, err := env.store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reset.Status != queue.StatusPending {
		t.Fatalf("expected failed job reset to pending, got %s", reset.Status)
	}
}

func TestCLIJobsHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewJob(ctx, "Sample.mp4", 1024, media.DefaultQuality); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs health: %v", err)
	}
	requireContains(t, out, "pending")
	requireContains(t, out, "== Database ==")
	requireContains(t, out, "all columns present")
	requireContains(t, out, "Total jobs")
}
