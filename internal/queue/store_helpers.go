package queue

import (
	"database/sql"
	"errors"
	"time"

	"reel/internal/media"
)

const jobColumns = "id, source_name, display_title, source_bytes, source_format, target_format, quality, status, progress_percent, conversion_speed, engine_mode, result_bytes, result_path, failure_reason, error_message, remove_requested, elapsed_ms, created_at, updated_at, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		sourceName      string
		displayTitle    sql.NullString
		sourceBytes     sql.NullInt64
		sourceFormat    sql.NullString
		targetFormat    sql.NullString
		quality         sql.NullString
		statusStr       string
		progressPercent sql.NullInt64
		conversionSpeed sql.NullString
		engineMode      sql.NullString
		resultBytes     sql.NullInt64
		resultPath      sql.NullString
		failureReason   sql.NullString
		errorMessage    sql.NullString
		removeRequested sql.NullInt64
		elapsedMS       sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceName,
		&displayTitle,
		&sourceBytes,
		&sourceFormat,
		&targetFormat,
		&quality,
		&statusStr,
		&progressPercent,
		&conversionSpeed,
		&engineMode,
		&resultBytes,
		&resultPath,
		&failureReason,
		&errorMessage,
		&removeRequested,
		&elapsedMS,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		SourceName:      sourceName,
		DisplayTitle:    displayTitle.String,
		SourceBytes:     sourceBytes.Int64,
		SourceFormat:    sourceFormat.String,
		TargetFormat:    media.Format(targetFormat.String),
		Quality:         media.Quality(quality.String),
		Status:          Status(statusStr),
		ProgressPercent: int(progressPercent.Int64),
		ConversionSpeed: conversionSpeed.String,
		EngineMode:      engineMode.String,
		ResultBytes:     resultBytes.Int64,
		ResultPath:      resultPath.String,
		FailureReason:   failureReason.String,
		ErrorMessage:    errorMessage.String,
		ElapsedMS:       elapsedMS.Int64,
	}
	if removeRequested.Valid {
		job.RemoveRequested = removeRequested.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
