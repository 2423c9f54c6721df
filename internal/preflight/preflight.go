package preflight

import (
	"context"
	"strings"

	"reel/internal/config"
)

// Result reports the outcome of a single preflight check. Advisory
// failures describe degraded operation rather than a blocked run.
type Result struct {
	Name     string
	Passed   bool
	Advisory bool
	Detail   string
}

// RunAll executes all applicable readiness checks for the given config.
// Checks whose feature is not configured are skipped.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Artifact cache", cfg.Paths.ArtifactDir))

	if strings.TrimSpace(cfg.Paths.OutputDir) != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}

	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, cfg.Batch.MinFreeSpaceGiB))

	if strings.TrimSpace(cfg.Engine.ArtifactBaseURL) != "" {
		results = append(results, CheckArtifactEndpoint(ctx, cfg.Engine.ArtifactBaseURL))
	}

	return results
}

// AllPassed reports whether every check passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// Failures returns only the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Blocking returns the failed checks that should stop a run. Advisory
// failures are excluded.
func Blocking(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Advisory {
			failed = append(failed, result)
		}
	}
	return failed
}
