package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reel/internal/engine"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
)

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeSkipped
)

// StartBatch launches an asynchronous batch run over the given jobs.
// It returns immediately after validating the selection; completion is
// observable through job state, attached Events, or Wait. Only one batch
// may run at a time.
func (c *Coordinator) StartBatch(ctx context.Context, jobIDs []string) error {
	runCtx, err := c.begin(ctx, jobIDs)
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runBatch(runCtx, jobIDs)
	}()
	return nil
}

// Run executes a batch synchronously and returns its summary. Job
// failures are recorded on the jobs, never returned; the error covers
// only coordinator-level refusals such as an unready selection.
func (c *Coordinator) Run(ctx context.Context, jobIDs []string) (Summary, error) {
	runCtx, err := c.begin(ctx, jobIDs)
	if err != nil {
		return Summary{}, err
	}
	c.wg.Add(1)
	defer c.wg.Done()
	return c.runBatch(runCtx, jobIDs), nil
}

// runBatch drives the sequential conversion loop. Every job settles
// independently; the loop continues past failures and stops early only
// when the run context is cancelled.
func (c *Coordinator) runBatch(ctx context.Context, jobIDs []string) Summary {
	batchID := uuid.NewString()
	ctx = services.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, c.logger)
	start := time.Now()

	summary := Summary{BatchID: batchID, Total: len(jobIDs)}
	defer func() {
		summary.Elapsed = time.Since(start)
		c.end(summary)
		logger.Info("batch completed",
			logging.String(logging.FieldEventType, "batch_completed"),
			logging.Int("completed", summary.Completed),
			logging.Int("failed", summary.Failed),
			logging.Int("skipped", summary.Skipped),
			logging.Duration("batch_duration", summary.Elapsed))
		c.events.BatchCompleted(summary)
	}()

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("job_count", len(jobIDs)))
	c.events.BatchStarted(batchID, len(jobIDs))

	if err := c.engine.Initialize(ctx); err != nil {
		// A terminated session still fails each job individually below.
		logging.WarnWithContext(logger, "engine session unavailable", "engine_unavailable",
			logging.Error(err))
	}

	for i, id := range jobIDs {
		if ctx.Err() != nil {
			summary.Skipped += len(jobIDs) - i
			logger.Info("batch cancelled; remaining jobs stay pending",
				logging.Int("remaining", len(jobIDs)-i))
			break
		}
		switch c.processJob(ctx, id) {
		case outcomeCompleted:
			summary.Completed++
		case outcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}
	return summary
}

// processJob runs one job from pending to a terminal state. Jobs that
// were removed or already left the pending state are skipped silently.
func (c *Coordinator) processJob(ctx context.Context, jobID string) outcome {
	job, err := c.store.GetByID(ctx, jobID)
	if err != nil {
		logging.WarnWithContext(c.logger, "job lookup failed; skipping", "job_lookup_failed",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return outcomeSkipped
	}
	if job == nil {
		c.logger.Debug("job removed before its turn", logging.String(logging.FieldJobID, jobID))
		return outcomeSkipped
	}
	if job.Status != queue.StatusPending {
		c.logger.Debug("job not pending; skipping",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("status", string(job.Status)))
		return outcomeSkipped
	}

	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, c.logger)

	payload, ok := c.payload(job.ID)
	if !ok {
		// Source bytes live only for the life of the process; a row that
		// survived a restart cannot be converted again without re-registering.
		c.failJob(ctx, logger, job, services.Wrap(services.ErrConversion, "batch", "convert",
			"source content is no longer held; register the file again", nil))
		return outcomeFailed
	}

	job.MarkConverting(c.engine.Mode(), time.Now())
	if err := c.store.Update(ctx, job); err != nil {
		logging.WarnWithContext(logger, "could not persist converting state", "persist_failed",
			logging.Error(err))
	}
	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "conversion_started"),
		logging.String("source", job.SourceName),
		logging.String("target_format", job.TargetFormat.String()),
		logging.String("quality", job.Quality.String()))
	c.events.JobStarted(job.ID, job.SourceName)

	start := time.Now()
	lastPersisted := -1
	result, err := c.engine.Convert(ctx, payload, job.SourceName, job.TargetFormat, job.Quality, func(p engine.Progress) {
		job.ApplyProgress(p.Percent)
		if p.Speed != "" {
			job.ConversionSpeed = p.Speed
		}
		job.EngineMode = p.Mode
		if job.ProgressPercent != lastPersisted {
			lastPersisted = job.ProgressPercent
			if err := c.store.Update(ctx, job); err != nil {
				logger.Debug("progress persist failed", logging.Error(err))
			}
		}
		c.events.JobProgress(job.ID, job.ProgressPercent, p.Elapsed, p.Speed)
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil && !c.engine.Terminated() {
			err = services.Wrap(services.ErrConversion, "batch", "convert", queue.ShutdownFailureMessage, nil)
		}
		c.failJob(ctx, logger, job, err)
		return outcomeFailed
	}

	c.storeResult(job.ID, result.Output)
	job.MarkCompleted(int64(len(result.Output)), result.Speed, elapsed, time.Now())
	job.EngineMode = result.Mode
	c.finalizeJob(ctx, logger, job)
	logger.Info("conversion completed",
		logging.String(logging.FieldEventType, "conversion_completed"),
		logging.String(logging.FieldEngineMode, result.Mode),
		logging.Int64("result_bytes", job.ResultBytes),
		logging.String("speed", job.ConversionSpeed),
		logging.Duration("conversion_duration", elapsed))
	c.events.JobCompleted(job.ID, job.ResultBytes, elapsed)
	return outcomeCompleted
}

// failJob records a terminal failure on the job. Callers see only the
// failure classification; the raw cause stays in the job row and logs.
func (c *Coordinator) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, convErr error) {
	reason := services.FailureReason(convErr)
	job.MarkFailed(reason, convErr.Error(), time.Now())
	c.finalizeJob(ctx, logger, job)
	logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
		logging.Alert("conversion_failed"),
		logging.String("failure_reason", reason),
		logging.String("source", job.SourceName),
		logging.Error(convErr))
	c.events.JobFailed(job.ID, reason)
}

// finalizeJob persists a terminal job state, honoring a removal requested
// while the conversion ran. The write is detached from the run context so
// a cancelled batch still records its final transition.
func (c *Coordinator) finalizeJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	persistCtx := context.WithoutCancel(ctx)

	fresh, err := c.store.GetByID(persistCtx, job.ID)
	if err == nil && fresh != nil && fresh.RemoveRequested {
		if _, err := c.store.Remove(persistCtx, job.ID); err != nil {
			logging.WarnWithContext(logger, "deferred removal failed", "persist_failed",
				logging.Error(err))
			return
		}
		c.dropPayload(job.ID)
		logger.Info("job removed after conversion settled",
			logging.String(logging.FieldEventType, "job_removed"))
		return
	}
	if err == nil && fresh == nil {
		// Row already gone; nothing to persist.
		c.dropPayload(job.ID)
		return
	}

	if err := c.store.Update(persistCtx, job); err != nil {
		logging.ErrorWithContext(logger, "could not persist terminal job state", "persist_failed",
			logging.Alert("persist_failed"),
			logging.Error(err))
	}
}
