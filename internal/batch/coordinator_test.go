package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/testsupport"
)

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	c := NewCoordinator(cfg, store, nil, logging.NewNop(), opts...)
	return c, store
}

func TestRegisterFileCreatesPendingJob(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	payload := testsupport.Payload(4096)
	job, err := c.RegisterFile(ctx, "Vacation Clip.mkv", payload)
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}

	if job.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.HasTargetFormat() {
		t.Fatalf("target format should start unassigned, got %q", job.TargetFormat)
	}
	if job.Quality != media.QualityMedium {
		t.Fatalf("quality = %s, want configured default medium", job.Quality)
	}
	if job.SourceBytes != int64(len(payload)) {
		t.Fatalf("source bytes = %d, want %d", job.SourceBytes, len(payload))
	}

	entries, held := c.VaultSize()
	if entries != 1 || held != int64(len(payload)) {
		t.Fatalf("vault = (%d, %d), want (1, %d)", entries, held, len(payload))
	}

	// The coordinator must own its copy of the bytes.
	payload[0] ^= 0xFF
	stored, ok := c.payload(job.ID)
	if !ok {
		t.Fatalf("payload missing from vault")
	}
	if stored[0] == payload[0] {
		t.Fatalf("vault shares memory with the caller's slice")
	}
}

func TestRegisterFileRejectsEmptyInput(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.RegisterFile(ctx, "  ", testsupport.Payload(16)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank filename error = %v, want validation", err)
	}
	if _, err := c.RegisterFile(ctx, "clip.mp4", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty payload error = %v, want validation", err)
	}
}

func TestRegisterFileScrubsUnsafeNames(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	job, err := c.RegisterFile(ctx, "../../escape/Trip Footage.mkv", testsupport.Payload(64))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}
	if job.SourceName != "..-..-escape-Trip Footage.mkv" {
		t.Fatalf("stored name = %q, want separators scrubbed", job.SourceName)
	}

	if _, err := c.RegisterFile(ctx, `?"<>|`, testsupport.Payload(64)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("all-unsafe name error = %v, want validation", err)
	}
}

func TestRegisterFileEnforcesSizeLimit(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.cfg.Batch.MaxSourceMiB = 1
	ctx := context.Background()

	if _, err := c.RegisterFile(ctx, "big.mkv", testsupport.Payload(1<<20+1)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("oversized payload error = %v, want validation", err)
	}
	if _, err := c.RegisterFile(ctx, "fits.mkv", testsupport.Payload(1<<20)); err != nil {
		t.Fatalf("payload at the limit rejected: %v", err)
	}
}

func TestSetTargetFormatOnlyWhilePending(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	job, err := c.RegisterFile(ctx, "clip.mkv", testsupport.Payload(64))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}

	updated, err := c.SetTargetFormat(ctx, job.ID, "WebM")
	if err != nil {
		t.Fatalf("SetTargetFormat: %v", err)
	}
	if updated.TargetFormat != media.FormatWebM {
		t.Fatalf("target = %s, want webm", updated.TargetFormat)
	}

	if _, err := c.SetTargetFormat(ctx, job.ID, "mpeg9"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown format error = %v, want validation", err)
	}
	if _, err := c.SetTargetFormat(ctx, "no-such-job", "mp4"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown job error = %v, want not found", err)
	}

	updated.MarkConverting("real", time.Now())
	if err := store.Update(ctx, updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := c.SetTargetFormat(ctx, job.ID, "mp4"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("frozen format error = %v, want validation", err)
	}
}

func TestSetQualityPresetOnlyWhilePending(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	job, err := c.RegisterFile(ctx, "clip.avi", testsupport.Payload(64))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}

	updated, err := c.SetQualityPreset(ctx, job.ID, "high")
	if err != nil {
		t.Fatalf("SetQualityPreset: %v", err)
	}
	if updated.Quality != media.QualityHigh {
		t.Fatalf("quality = %s, want high", updated.Quality)
	}

	if _, err := c.SetQualityPreset(ctx, job.ID, "ludicrous"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown preset error = %v, want validation", err)
	}

	updated.MarkFailed(services.ReasonConversionFailed, "boom", time.Now())
	if err := store.Update(ctx, updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := c.SetQualityPreset(ctx, job.ID, "low"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("terminal preset error = %v, want validation", err)
	}
}

func TestRemoveJobPendingRemovesImmediately(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	job, err := c.RegisterFile(ctx, "clip.mov", testsupport.Payload(64))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}

	removed, err := c.RemoveJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if !removed {
		t.Fatalf("pending removal should be immediate")
	}

	row, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row != nil {
		t.Fatalf("job row survived removal")
	}
	if entries, held := c.VaultSize(); entries != 0 || held != 0 {
		t.Fatalf("vault = (%d, %d) after removal, want empty", entries, held)
	}

	if _, err := c.RemoveJob(ctx, job.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second removal error = %v, want not found", err)
	}
}

func TestRemoveJobConvertingDefersRemoval(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	job, err := c.RegisterFile(ctx, "clip.mp4", testsupport.Payload(64))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}
	job.MarkConverting("real", time.Now())
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	removed, err := c.RemoveJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if removed {
		t.Fatalf("converting job must not be removed mid-run")
	}

	row, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row == nil {
		t.Fatalf("converting job disappeared")
	}
	if !row.RemoveRequested {
		t.Fatalf("removal flag not recorded")
	}
	if entries, _ := c.VaultSize(); entries == 0 {
		t.Fatalf("payload must survive until the conversion settles")
	}
}

func TestIsBatchReady(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	ready, err := c.IsBatchReady(ctx, nil)
	if err != nil || ready {
		t.Fatalf("empty selection = (%v, %v), want (false, nil)", ready, err)
	}

	job, err := c.RegisterFile(ctx, "clip.mkv", testsupport.Payload(64))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}

	ready, err = c.IsBatchReady(ctx, []string{job.ID})
	if err != nil || ready {
		t.Fatalf("format-less job = (%v, %v), want (false, nil)", ready, err)
	}

	if _, err := c.SetTargetFormat(ctx, job.ID, "mp4"); err != nil {
		t.Fatalf("SetTargetFormat: %v", err)
	}
	ready, err = c.IsBatchReady(ctx, []string{job.ID})
	if err != nil || !ready {
		t.Fatalf("configured job = (%v, %v), want (true, nil)", ready, err)
	}

	ready, err = c.IsBatchReady(ctx, []string{job.ID, "removed-job"})
	if err != nil || ready {
		t.Fatalf("unknown id in selection = (%v, %v), want (false, nil)", ready, err)
	}
}

func TestGetResultRequiresCompletedJob(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	job, err := c.RegisterFile(ctx, "clip.flv", testsupport.Payload(64))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}

	if _, _, err := c.GetResult(ctx, job.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("pending result error = %v, want validation", err)
	}
	if _, _, err := c.GetResult(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown job result error = %v, want not found", err)
	}

	output := []byte("finished-bytes")
	job.TargetFormat = media.FormatMP4
	job.MarkCompleted(int64(len(output)), "1.4x", 2*time.Second, time.Now())
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	c.storeResult(job.ID, output)

	data, row, err := c.GetResult(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if !bytes.Equal(data, output) {
		t.Fatalf("result bytes mismatch")
	}
	if row.Status != queue.StatusCompleted {
		t.Fatalf("returned row status = %s, want completed", row.Status)
	}
}

func TestSaveResultWritesVerifiedCopy(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	payload := testsupport.Payload(128)
	job, err := c.RegisterFile(ctx, "Family Trip 2019.mkv", payload)
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}
	output := []byte("converted-output-bytes")
	job.TargetFormat = media.FormatWebM
	job.MarkCompleted(int64(len(output)), "1.1x", time.Second, time.Now())
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	c.storeResult(job.ID, output)

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := c.SaveResult(ctx, job.ID, dir)
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if filepath.Base(path) != "Family Trip 2019.webm" {
		t.Fatalf("result name = %s, want source stem with target extension", filepath.Base(path))
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if !bytes.Equal(written, output) {
		t.Fatalf("written bytes differ from the held result")
	}

	row, err := store.GetByID(ctx, job.ID)
	if err != nil || row == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.ResultPath != path {
		t.Fatalf("result path = %q, want %q", row.ResultPath, path)
	}

	// The staged intermediate copy must not linger.
	leftovers, err := filepath.Glob(filepath.Join(c.cfg.Paths.StagingDir, "result-*"))
	if err != nil {
		t.Fatalf("glob staging: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("staging leftovers: %v", leftovers)
	}
}

func TestSaveResultRequiresDestination(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()
	c.cfg.Paths.OutputDir = ""

	job, err := c.RegisterFile(ctx, "clip.mp4", testsupport.Payload(32))
	if err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}
	job.TargetFormat = media.FormatMP4
	job.MarkCompleted(4, "1.0x", time.Second, time.Now())
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	c.storeResult(job.ID, []byte("data"))

	_, err = c.SaveResult(ctx, job.ID, "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing destination error = %v, want validation", err)
	}
	if err != nil && !strings.Contains(err.Error(), "output directory") {
		t.Fatalf("error should name the output directory, got %v", err)
	}
}
