package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/preflight"
	"reel/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment and job catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			section := func(title string) {
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(out, line)
				}
			}

			section("Configuration")
			if ctx.configExists {
				fmt.Fprintln(out, renderStatusLine("Config file", statusOK, ctx.configPath, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config file", statusInfo,
					fmt.Sprintf("%s (not found; defaults in use)", ctx.configPath), colorize))
			}
			fmt.Fprintln(out, directoryStatusLine("Staging", cfg.Paths.StagingDir, colorize))
			fmt.Fprintln(out, directoryStatusLine("Artifact cache", cfg.Paths.ArtifactDir, colorize))
			if strings.TrimSpace(cfg.Paths.OutputDir) != "" {
				fmt.Fprintln(out, directoryStatusLine("Output", cfg.Paths.OutputDir, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Output", statusWarn,
					"not configured (results stay in memory until saved)", colorize))
			}
			space := preflight.CheckFreeSpace("Free space", cfg.Paths.StagingDir, cfg.Batch.MinFreeSpaceGiB)
			fmt.Fprintln(out, renderStatusLine("Free space", okKind(space.Passed), space.Detail, colorize))
			fmt.Fprintln(out, renderStatusLine("Defaults", statusInfo,
				fmt.Sprintf("%s / %s, sources up to %d MiB", cfg.Batch.DefaultFormat, cfg.Batch.DefaultQuality, cfg.Batch.MaxSourceMiB), colorize))

			fmt.Fprintln(out)
			section("Engine")
			for _, status := range preflight.CheckBinaries(preflight.EngineRequirements(cfg)) {
				fmt.Fprintln(out, binaryStatusLine(status, colorize))
			}
			if strings.TrimSpace(cfg.Engine.ArtifactBaseURL) == "" {
				fmt.Fprintln(out, renderStatusLine("Artifact endpoint", statusInfo, "not configured", colorize))
			} else {
				endpoint := preflight.CheckArtifactEndpoint(cmd.Context(), cfg.Engine.ArtifactBaseURL)
				kind := statusOK
				if !endpoint.Passed {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Artifact endpoint", kind, endpoint.Detail, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Simulation", statusInfo,
				"fallback "+enabledDisabled(cfg.Engine.AllowSimulation), colorize))

			fmt.Fprintln(out)
			section("Jobs")
			renderJobsSection(cmd, ctx, out, colorize)
			return nil
		},
	}
}

func renderJobsSection(cmd *cobra.Command, ctx *commandContext, out io.Writer, colorize bool) {
	cfg := ctx.configValue()
	store, err := queue.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
		return
	}
	defer store.Close()

	fmt.Fprintln(out, renderStatusLine("Database", statusOK, cfg.DatabasePath(), colorize))
	health, err := store.Health(cmd.Context())
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Job counts", statusError, err.Error(), colorize))
		return
	}
	if health.Total == 0 {
		fmt.Fprintln(out, renderStatusLine("Job counts", statusInfo, "no jobs registered", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Job counts", statusInfo,
		fmt.Sprintf("%d total (%d pending, %d converting, %d completed, %d failed)",
			health.Total, health.Pending, health.Converting, health.Completed, health.Failed), colorize))
}

func directoryStatusLine(label, path string, colorize bool) string {
	result := preflight.CheckDirectoryAccess(label, path)
	if result.Passed {
		return renderStatusLine(label, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(label, statusError, result.Detail, colorize)
}

func binaryStatusLine(status preflight.Status, colorize bool) string {
	if status.Available {
		return renderStatusLine(status.Name, statusOK, status.Command, colorize)
	}
	kind := statusError
	if status.Optional {
		kind = statusWarn
	}
	detail := status.Detail
	if status.Description != "" {
		detail = fmt.Sprintf("%s (%s)", status.Detail, status.Description)
	}
	return renderStatusLine(status.Name, kind, detail, colorize)
}

func enabledDisabled(value bool) string {
	if value {
		return "enabled"
	}
	return "disabled"
}
