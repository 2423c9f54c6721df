package engine

import (
	"context"
	"math"
	"time"

	"reel/internal/media"
	"reel/internal/services"
)

const (
	simulatedSteps   = 20
	simulatedFloor   = 3 * time.Second
	simulatedCeiling = 10 * time.Second
)

// simulatedDuration scales the synthetic conversion time with input size,
// one second per megabyte, clamped to the 3s..10s window.
func simulatedDuration(sizeBytes int) time.Duration {
	d := time.Duration(float64(sizeBytes) / 1_000_000 * float64(time.Second))
	if d < simulatedFloor {
		return simulatedFloor
	}
	if d > simulatedCeiling {
		return simulatedCeiling
	}
	return d
}

// simulate runs the degraded pipeline: a timed pass-through that reports
// synthetic progress in twenty equal steps and returns the input bytes
// unchanged. It aborts between steps when the context is cancelled or the
// session is terminated.
func (s *Session) simulate(ctx context.Context, input []byte, quality media.Quality, onProgress ProgressFunc) ([]byte, error) {
	step := simulatedDuration(len(input)) / simulatedSteps
	speed := quality.SimulatedSpeedLabel()
	started := time.Now()

	timer := time.NewTimer(step)
	defer timer.Stop()
	for i := 1; i <= simulatedSteps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.terminated:
			return nil, services.Wrap(services.ErrEngineUnavailable, "engine", "simulate", "Session terminated during conversion", nil)
		case <-timer.C:
		}
		if i < simulatedSteps {
			timer.Reset(step)
		}
		if onProgress != nil {
			onProgress(Progress{
				Percent: int(math.Round(float64(i) / simulatedSteps * 100)),
				Elapsed: time.Since(started),
				Speed:   speed,
				Mode:    ModeSimulated,
			})
		}
	}
	return input, nil
}
