package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"reel/internal/config"
)

// Requirement defines an external binary reel relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a required binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// EngineRequirements lists the external binaries the conversion engine
// executes. With an artifact endpoint configured the engine installs its
// own toolchain, so missing PATH binaries stop being fatal; the same goes
// for ffmpeg when the simulated fallback is allowed. ffprobe only feeds
// progress estimation and is always optional.
func EngineRequirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	fetched := strings.TrimSpace(cfg.Engine.ArtifactBaseURL) != ""
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for real conversions",
			Optional:    fetched || cfg.Engine.AllowSimulation,
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Estimates conversion progress",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
