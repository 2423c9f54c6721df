package api

import (
	"time"

	"reel/internal/batch"
	"reel/internal/queue"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a conversion job in a transport-friendly format. The raw
// error message stays internal; consumers see the failure classification.
type Job struct {
	ID              string `json:"id"`
	SourceName      string `json:"sourceName"`
	DisplayTitle    string `json:"displayTitle"`
	SourceBytes     int64  `json:"sourceBytes"`
	SourceFormat    string `json:"sourceFormat,omitempty"`
	TargetFormat    string `json:"targetFormat,omitempty"`
	Quality         string `json:"quality"`
	Status          string `json:"status"`
	ProgressPercent int    `json:"progressPercent"`
	ConversionSpeed string `json:"conversionSpeed,omitempty"`
	EngineMode      string `json:"engineMode,omitempty"`
	ResultBytes     int64  `json:"resultBytes,omitempty"`
	FailureReason   string `json:"failureReason,omitempty"`
	RemoveRequested bool   `json:"removeRequested,omitempty"`
	ElapsedMS       int64  `json:"elapsedMs,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
	StartedAt       string `json:"startedAt,omitempty"`
	FinishedAt      string `json:"finishedAt,omitempty"`
}

// FromJob converts a queue row into its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:              job.ID,
		SourceName:      job.SourceName,
		DisplayTitle:    job.DisplayTitle,
		SourceBytes:     job.SourceBytes,
		SourceFormat:    job.SourceFormat,
		TargetFormat:    string(job.TargetFormat),
		Quality:         string(job.Quality),
		Status:          string(job.Status),
		ProgressPercent: job.ProgressPercent,
		ConversionSpeed: job.ConversionSpeed,
		EngineMode:      job.EngineMode,
		ResultBytes:     job.ResultBytes,
		FailureReason:   job.FailureReason,
		RemoveRequested: job.RemoveRequested,
		ElapsedMS:       job.ElapsedMS,
		CreatedAt:       formatTime(job.CreatedAt),
		UpdatedAt:       formatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		dto.StartedAt = formatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = formatTime(*job.FinishedAt)
	}
	return dto
}

// FromJobs converts a slice of queue rows, preserving order.
func FromJobs(jobs []*queue.Job) []Job {
	dtos := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		dtos = append(dtos, FromJob(job))
	}
	return dtos
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// RegisterResponse reports the job created for an uploaded source file.
type RegisterResponse struct {
	Job   Job  `json:"job"`
	Ready bool `json:"ready"`
}

// ConfigureRequest carries pending-job setting changes.
type ConfigureRequest struct {
	TargetFormat string `json:"targetFormat,omitempty"`
	Quality      string `json:"quality,omitempty"`
}

// RemoveResponse reports whether a removal happened now or was deferred.
type RemoveResponse struct {
	Removed  bool `json:"removed"`
	Deferred bool `json:"deferred"`
}

// RetryResponse reports how many jobs were reset to pending.
type RetryResponse struct {
	Retried int64 `json:"retried"`
}

// BatchStartRequest selects the jobs for a batch run. An empty selection
// means every pending job that already has a target format.
type BatchStartRequest struct {
	JobIDs []string `json:"jobIds"`
}

// BatchStartResponse acknowledges an accepted batch run.
type BatchStartResponse struct {
	Started  bool     `json:"started"`
	JobIDs   []string `json:"jobIds"`
	JobCount int      `json:"jobCount"`
}

// BatchSummary mirrors batch.Summary for API consumers.
type BatchSummary struct {
	BatchID   string `json:"batchId"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	ElapsedMS int64  `json:"elapsedMs"`
}

// FromSummary converts a batch outcome into its API representation.
func FromSummary(summary *batch.Summary) *BatchSummary {
	if summary == nil {
		return nil
	}
	return &BatchSummary{
		BatchID:   summary.BatchID,
		Total:     summary.Total,
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		ElapsedMS: summary.Elapsed.Milliseconds(),
	}
}

// BatchStatusResponse reports whether a batch is running and the outcome
// of the last finished run.
type BatchStatusResponse struct {
	Running     bool          `json:"running"`
	LastSummary *BatchSummary `json:"lastSummary,omitempty"`
}

// HealthResponse reports liveness and job catalog counts.
type HealthResponse struct {
	Status string         `json:"status"`
	Jobs   map[string]int `json:"jobs"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
