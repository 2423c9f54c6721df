package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEngineInit marks a failure to acquire or verify the engine bundle.
	// Recovered locally: the session degrades to the simulated pipeline.
	ErrEngineInit = errors.New("engine init error")
	// ErrConversion marks an engine execution or staging I/O failure during
	// a real conversion attempt. Recovered locally per call.
	ErrConversion = errors.New("conversion error")
	// ErrEngineUnavailable marks work requested after the session was
	// explicitly terminated. Surfaced to the job as a terminal failure.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrValidation marks caller input that cannot be accepted.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups of unknown jobs.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// Caller-visible failure classifications. Granular causes stay internal;
// a failed job reports exactly one of these strings.
const (
	ReasonConversionFailed  = "ConversionFailed"
	ReasonEngineUnavailable = "EngineUnavailable"
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureReason maps a terminal job error to the classification string
// recorded on the job. Everything that is not an explicit
// engine-unavailable failure collapses into the generic classification;
// raw causes are never surfaced to the presentation layer.
func FailureReason(err error) string {
	if errors.Is(err, ErrEngineUnavailable) {
		return ReasonEngineUnavailable
	}
	return ReasonConversionFailed
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
