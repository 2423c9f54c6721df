package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reel/internal/fileutil"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/textutil"
)

// RegisterFile records a new pending job for the given source content and
// keeps the bytes in memory for the eventual conversion. The target format
// starts unassigned; the job is not runnable until one is set.
func (c *Coordinator) RegisterFile(ctx context.Context, sourceName string, payload []byte) (*queue.Job, error) {
	// Names arrive from the API as well as the CLI; scrub them before they
	// are stored and joined into staging or output paths.
	name := textutil.SanitizeFileName(sourceName)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "batch", "register", "source filename is required", nil)
	}
	if len(payload) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "register", "source content is empty", nil)
	}
	if limit := c.cfg.MaxSourceBytes(); limit > 0 && int64(len(payload)) > limit {
		return nil, services.Wrap(services.ErrValidation, "batch", "register",
			fmt.Sprintf("source exceeds the %d MiB limit", c.cfg.Batch.MaxSourceMiB), nil)
	}

	quality := media.DefaultQuality
	if q, ok := media.ParseQuality(c.cfg.Batch.DefaultQuality); ok {
		quality = q
	}

	job, err := c.store.NewJob(ctx, name, int64(len(payload)), quality)
	if err != nil {
		return nil, err
	}

	held := make([]byte, len(payload))
	copy(held, payload)
	c.mu.Lock()
	c.payloads[job.ID] = held
	c.mu.Unlock()

	c.logger.Info("file registered",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.SourceName),
		logging.Int64("source_bytes", job.SourceBytes))
	return job, nil
}

// SetTargetFormat assigns the target container format for a pending job.
func (c *Coordinator) SetTargetFormat(ctx context.Context, jobID, value string) (*queue.Job, error) {
	format, ok := media.ParseFormat(value)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "batch", "configure", "", media.ErrUnknownFormat(value))
	}
	job, err := c.configurableJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.TargetFormat = format
	if err := c.store.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// SetQualityPreset assigns the quality preset for a pending job.
func (c *Coordinator) SetQualityPreset(ctx context.Context, jobID, value string) (*queue.Job, error) {
	quality, ok := media.ParseQuality(value)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "batch", "configure",
			fmt.Sprintf("unknown quality preset %q", value), nil)
	}
	job, err := c.configurableJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Quality = quality
	if err := c.store.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// configurableJob loads a job and verifies its settings may still change.
func (c *Coordinator) configurableJob(ctx context.Context, jobID string) (*queue.Job, error) {
	job, err := c.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.CanConfigure() {
		return nil, services.Wrap(services.ErrValidation, "batch", "configure",
			fmt.Sprintf("job %s is %s; settings can only change while pending", job.ID, job.Status), nil)
	}
	return job, nil
}

// RemoveJob removes a job. Pending and terminal jobs are removed
// immediately along with any held payloads. A converting job cannot be
// interrupted; it is flagged instead and disposed of once its conversion
// settles. The return value reports whether the removal happened now.
func (c *Coordinator) RemoveJob(ctx context.Context, jobID string) (bool, error) {
	job, err := c.Job(ctx, jobID)
	if err != nil {
		return false, err
	}

	if job.IsConverting() {
		flagged, err := c.store.RequestRemoval(ctx, jobID)
		if err != nil {
			return false, err
		}
		if flagged {
			c.logger.Info("removal deferred until conversion settles",
				logging.String(logging.FieldJobID, jobID))
			return false, nil
		}
		// The job settled between the read and the flag; remove directly.
	}

	if _, err := c.store.Remove(ctx, jobID); err != nil {
		return false, err
	}
	c.dropPayload(jobID)
	c.logger.Info("job removed", logging.String(logging.FieldJobID, jobID))
	return true, nil
}

// RetryJobs resets failed jobs back to pending for a fresh conversion
// attempt and reports how many were reset.
func (c *Coordinator) RetryJobs(ctx context.Context, jobIDs ...string) (int64, error) {
	return c.store.RetryFailed(ctx, jobIDs...)
}

// Job returns a single job by ID.
func (c *Coordinator) Job(ctx context.Context, jobID string) (*queue.Job, error) {
	job, err := c.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "batch", "lookup",
			fmt.Sprintf("unknown job %s", jobID), nil)
	}
	return job, nil
}

// Jobs lists jobs, optionally filtered by status, in registration order.
func (c *Coordinator) Jobs(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	return c.store.List(ctx, statuses...)
}

// IsBatchReady reports whether the selection can start a batch: at least
// one job, every ID known, and every job carrying a target format. A job
// removed before the batch starts makes the selection not ready.
func (c *Coordinator) IsBatchReady(ctx context.Context, jobIDs []string) (bool, error) {
	if len(jobIDs) == 0 {
		return false, nil
	}
	for _, id := range jobIDs {
		job, err := c.store.GetByID(ctx, id)
		if err != nil {
			return false, err
		}
		if job == nil || !job.HasTargetFormat() {
			return false, nil
		}
	}
	return true, nil
}

// GetResult returns the converted content for a completed job together
// with its job row. Results exist only for completed jobs and only while
// the coordinator still holds them.
func (c *Coordinator) GetResult(ctx context.Context, jobID string) ([]byte, *queue.Job, error) {
	job, err := c.Job(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != queue.StatusCompleted {
		return nil, nil, services.Wrap(services.ErrValidation, "batch", "result",
			fmt.Sprintf("job %s is %s; results exist only for completed jobs", job.ID, job.Status), nil)
	}
	c.mu.Lock()
	data, ok := c.results[jobID]
	c.mu.Unlock()
	if !ok {
		return nil, nil, services.Wrap(services.ErrNotFound, "batch", "result",
			fmt.Sprintf("result content for job %s is no longer held", jobID), nil)
	}
	return data, job, nil
}

// SaveResult writes a completed job's output into dir, falling back to the
// configured output directory when dir is empty, and records the
// destination on the job. The bytes land in the staging area first and are
// copied with checksum verification so a torn write to external storage
// never passes for a finished result.
func (c *Coordinator) SaveResult(ctx context.Context, jobID, dir string) (string, error) {
	data, job, err := c.GetResult(ctx, jobID)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(dir) == "" {
		dir = c.cfg.Paths.OutputDir
	}
	if strings.TrimSpace(dir) == "" {
		return "", services.Wrap(services.ErrValidation, "batch", "save", "no output directory configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.MkdirAll(c.cfg.Paths.StagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	staged := filepath.Join(c.cfg.Paths.StagingDir, "result-"+job.ID+"."+job.TargetFormat.Extension())
	if err := fileutil.WriteFileAtomic(staged, data, 0o644); err != nil {
		return "", fmt.Errorf("stage result: %w", err)
	}
	defer os.Remove(staged)

	destination := filepath.Join(dir, media.OutputName(job.SourceName, job.TargetFormat))
	if err := fileutil.CopyFileVerified(staged, destination); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}

	job.ResultPath = destination
	if err := c.store.Update(ctx, job); err != nil {
		return "", err
	}
	c.logger.Info("result saved",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", destination),
		logging.Int64("result_bytes", job.ResultBytes))
	return destination, nil
}
