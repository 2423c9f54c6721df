package queue

import (
	"strings"
	"time"

	"reel/internal/media"
)

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ShutdownFailureMessage is the error message recorded when converting jobs
// are failed because the process stopped mid-run.
const ShutdownFailureMessage = "conversion interrupted by shutdown"

var allStatuses = []Status{
	StatusPending,
	StatusConverting,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job represents a conversion job persisted in SQLite.
//
// Payload and result bytes are intentionally absent: the batch coordinator
// owns them in memory while the process runs. A job row only carries the
// scalar facts needed to list, resume, and report on jobs.
type Job struct {
	ID              string
	SourceName      string
	DisplayTitle    string
	SourceBytes     int64
	SourceFormat    string
	TargetFormat    media.Format
	Quality         media.Quality
	Status          Status
	ProgressPercent int
	ConversionSpeed string
	EngineMode      string
	ResultBytes     int64
	ResultPath      string
	FailureReason   string
	ErrorMessage    string
	RemoveRequested bool
	ElapsedMS       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Converting int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsTerminal reports whether the job reached a terminal state.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsConverting reports whether the job is actively converting.
func (j Job) IsConverting() bool {
	return j.Status == StatusConverting
}

// CanConfigure reports whether target format and quality may still change.
// Both freeze once the job leaves the pending state.
func (j Job) CanConfigure() bool {
	return j.Status == StatusPending
}

// HasTargetFormat reports whether a target format has been chosen.
func (j Job) HasTargetFormat() bool {
	return j.TargetFormat != ""
}

// ApplyProgress raises the progress percentage, clamping to [0, 100].
// Regressions are ignored so observed progress never moves backwards.
func (j *Job) ApplyProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > j.ProgressPercent {
		j.ProgressPercent = percent
	}
}

// MarkConverting transitions the job into the converting state.
func (j *Job) MarkConverting(engineMode string, now time.Time) {
	started := now.UTC()
	j.Status = StatusConverting
	j.EngineMode = engineMode
	j.ProgressPercent = 0
	j.FailureReason = ""
	j.ErrorMessage = ""
	j.StartedAt = &started
}

// MarkCompleted records a successful conversion outcome.
func (j *Job) MarkCompleted(resultBytes int64, speed string, elapsed time.Duration, now time.Time) {
	finished := now.UTC()
	j.Status = StatusCompleted
	j.ProgressPercent = 100
	j.ResultBytes = resultBytes
	j.ConversionSpeed = speed
	j.ElapsedMS = elapsed.Milliseconds()
	j.FailureReason = ""
	j.ErrorMessage = ""
	j.FinishedAt = &finished
}

// MarkFailed records a failed conversion outcome. The progress percentage is
// frozen where the run stopped.
func (j *Job) MarkFailed(reason, message string, now time.Time) {
	finished := now.UTC()
	j.Status = StatusFailed
	j.FailureReason = reason
	j.ErrorMessage = message
	j.ResultBytes = 0
	j.ResultPath = ""
	j.FinishedAt = &finished
}
