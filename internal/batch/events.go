package batch

import "time"

// Events receives notifications as a batch run progresses. Implementations
// must be fast and must not block; the coordinator invokes them inline on
// the conversion goroutine.
type Events interface {
	// BatchStarted fires once when a batch run begins.
	BatchStarted(batchID string, jobCount int)

	// JobStarted fires when a job transitions into the converting state.
	JobStarted(jobID, sourceName string)

	// JobProgress fires for each progress update of the active job.
	JobProgress(jobID string, percent int, elapsed time.Duration, speed string)

	// JobCompleted fires when a job finishes successfully.
	JobCompleted(jobID string, resultBytes int64, elapsed time.Duration)

	// JobFailed fires when a job reaches the failed state. The reason is
	// the caller-visible classification, not the raw cause.
	JobFailed(jobID, reason string)

	// BatchCompleted fires once after the final job settles.
	BatchCompleted(summary Summary)
}

// NoopEvents discards every notification. It is the default when no
// observer is attached.
type NoopEvents struct{}

func (NoopEvents) BatchStarted(string, int) {}

func (NoopEvents) JobStarted(string, string) {}

func (NoopEvents) JobProgress(string, int, time.Duration, string) {}

func (NoopEvents) JobCompleted(string, int64, time.Duration) {}

func (NoopEvents) JobFailed(string, string) {}

func (NoopEvents) BatchCompleted(Summary) {}
