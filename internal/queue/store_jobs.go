package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"reel/internal/media"
	"reel/internal/services"
)

// NewJob inserts a pending job for an uploaded source file. The display title
// and source format hint are derived from the file name; the target format is
// left unset until the caller chooses one.
func (s *Store) NewJob(ctx context.Context, sourceName string, sourceBytes int64, quality media.Quality) (*Job, error) {
	sourceName = strings.TrimSpace(sourceName)
	if sourceName == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "new job", "source file name required", nil)
	}
	if sourceBytes < 0 {
		return nil, services.Wrap(services.ErrValidation, "queue", "new job", "source size cannot be negative", nil)
	}
	if quality == "" {
		quality = media.DefaultQuality
	}
	if _, ok := media.ParseQuality(string(quality)); !ok {
		return nil, services.Wrap(services.ErrValidation, "queue", "new job", fmt.Sprintf("unknown quality preset %q", quality), nil)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO conversion_jobs (
            id, source_name, display_title, source_bytes, source_format,
            quality, status, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		sourceName,
		media.DeriveTitle(sourceName),
		sourceBytes,
		nullableString(media.SourceHint(sourceName)),
		string(quality),
		StatusPending,
		0,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Missing jobs return (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM conversion_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job. The remove_requested flag is
// deliberately not written here: it is set out of band by RequestRemoval
// while a conversion runs, and a caller holding a stale struct must not be
// able to clear it.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE conversion_jobs
         SET source_name = ?, display_title = ?, source_bytes = ?, source_format = ?,
             target_format = ?, quality = ?, status = ?, progress_percent = ?,
             conversion_speed = ?, engine_mode = ?, result_bytes = ?, result_path = ?,
             failure_reason = ?, error_message = ?, elapsed_ms = ?,
             updated_at = ?, started_at = ?, finished_at = ?
         WHERE id = ?`,
		job.SourceName,
		nullableString(job.DisplayTitle),
		job.SourceBytes,
		nullableString(job.SourceFormat),
		nullableString(string(job.TargetFormat)),
		string(job.Quality),
		job.Status,
		job.ProgressPercent,
		nullableString(job.ConversionSpeed),
		nullableString(job.EngineMode),
		job.ResultBytes,
		nullableString(job.ResultPath),
		nullableString(job.FailureReason),
		nullableString(job.ErrorMessage),
		job.ElapsedMS,
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM conversion_jobs`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM conversion_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs from the catalog.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM conversion_jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs from the catalog.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM conversion_jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs from the catalog.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM conversion_jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}
