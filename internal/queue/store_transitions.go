package queue

import (
	"context"
	"fmt"
	"time"

	"reel/internal/services"
)

// FailStuckConverting sweeps jobs left in the converting state by a previous
// process. Payload bytes only live in memory, so an interrupted conversion
// cannot resume: jobs flagged for deferred removal are dropped and the rest
// are failed in place with their last observed progress.
func (s *Store) FailStuckConverting(ctx context.Context) (failed int64, dropped int64, err error) {
	dropRes, err := s.execWithRetry(
		ctx,
		`DELETE FROM conversion_jobs WHERE status = ? AND remove_requested = 1`,
		StatusConverting,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("drop removed converting jobs: %w", err)
	}
	dropped, err = dropRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("rows affected: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	failRes, err := s.execWithRetry(
		ctx,
		`UPDATE conversion_jobs
         SET status = ?, failure_reason = ?, error_message = ?,
             result_bytes = 0, result_path = NULL, updated_at = ?, finished_at = ?
         WHERE status = ?`,
		StatusFailed,
		services.ReasonConversionFailed,
		ShutdownFailureMessage,
		now,
		now,
		StatusConverting,
	)
	if err != nil {
		return 0, dropped, fmt.Errorf("fail stuck converting jobs: %w", err)
	}
	failed, err = failRes.RowsAffected()
	if err != nil {
		return 0, dropped, fmt.Errorf("rows affected: %w", err)
	}
	return failed, dropped, nil
}

// RequestRemoval flags a converting job for removal once its run reaches a
// terminal state. Returns false when the job is not currently converting.
func (s *Store) RequestRemoval(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE conversion_jobs SET remove_requested = 1, updated_at = ? WHERE id = ? AND status = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusConverting,
	)
	if err != nil {
		return false, fmt.Errorf("request removal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RetryFailed moves failed jobs back to pending for another run. Outcome
// fields are cleared; target format and quality survive so a retried job can
// start as soon as a batch runs.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE conversion_jobs
            SET status = ?, progress_percent = 0, conversion_speed = NULL, engine_mode = NULL,
                failure_reason = NULL, error_message = NULL, elapsed_ms = 0,
                started_at = NULL, finished_at = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE conversion_jobs
        SET status = ?, progress_percent = 0, conversion_speed = NULL, engine_mode = NULL,
            failure_reason = NULL, error_message = NULL, elapsed_ms = 0,
            started_at = NULL, finished_at = NULL, updated_at = ?
        WHERE status = ? AND id IN (` + placeholders + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}
