package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/api"
	"reel/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage the conversion job catalog",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversion jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, value := range listStatuses {
				status, ok := queue.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.FromJobs(jobs))
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs registered")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						job.DisplayTitle,
						dashIfEmpty(job.TargetFormat.String()),
						job.Quality.String(),
						string(job.Status),
						jobProgressCell(job),
						formatBytes(job.SourceBytes),
						formatTimestamp(job.CreatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Format", "Quality", "Status", "Progress", "Size", "Created"},
					rows,
					6,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				if asJSON {
					return writeJSON(cmd, api.FromJob(job))
				}

				out := cmd.OutOrStdout()
				field := func(label, value string) {
					fmt.Fprintf(out, "  %-14s %s\n", label+":", value)
				}
				field("ID", job.ID)
				field("Source", job.SourceName)
				field("Title", job.DisplayTitle)
				field("Size", formatBytes(job.SourceBytes))
				field("Format", dashIfEmpty(job.SourceFormat)+" -> "+dashIfEmpty(job.TargetFormat.String()))
				field("Quality", job.Quality.String())
				field("Status", string(job.Status))
				field("Progress", jobProgressCell(job))
				field("Engine mode", dashIfEmpty(job.EngineMode))
				if job.Status == queue.StatusCompleted {
					field("Result size", formatBytes(job.ResultBytes))
					field("Result path", dashIfEmpty(job.ResultPath))
				}
				if job.Status == queue.StatusFailed {
					field("Failure", dashIfEmpty(job.FailureReason))
					field("Error", dashIfEmpty(job.ErrorMessage))
				}
				field("Removal asked", yesNo(job.RemoveRequested))
				field("Created", formatTimestamp(job.CreatedAt))
				if job.StartedAt != nil {
					field("Started", formatTimestamp(*job.StartedAt))
				}
				if job.FinishedAt != nil {
					field("Finished", formatTimestamp(*job.FinishedAt))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of field lines")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove JOB_ID",
		Short: "Remove a job from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				job, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}

				// A converting row belongs to a live run; flag it instead of
				// yanking it out from under the coordinator.
				if job.IsConverting() {
					flagged, err := store.RequestRemoval(cmd.Context(), job.ID)
					if err != nil {
						return err
					}
					if flagged {
						fmt.Fprintf(out, "Job %s is converting; removal deferred until it settles\n", shortID(job.ID))
						return nil
					}
				}

				removed, err := store.Remove(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("job %s not found", args[0])
				}
				fmt.Fprintf(out, "Removed job %s\n", shortID(job.ID))
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [JOB_ID...]",
		Short: "Reset failed jobs back to pending",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					retried, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", retried)
					return nil
				}

				for _, id := range args {
					job, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					switch {
					case job == nil:
						fmt.Fprintf(out, "Job %s not found\n", id)
					case job.Status != queue.StatusFailed:
						fmt.Fprintf(out, "Job %s is not in failed state\n", id)
					default:
						if _, err := store.RetryFailed(cmd.Context(), id); err != nil {
							return err
						}
						fmt.Fprintf(out, "Job %s reset for retry\n", shortID(id))
					}
				}
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				switch {
				case clearCompleted:
					removed, err := store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed jobs\n", removed)
				case clearFailed:
					removed, err := store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed jobs\n", removed)
				default:
					removed, err := store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d jobs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	return cmd
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report job catalog health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(cmd.OutOrStdout())

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(out, "No jobs registered")
				} else {
					rows := make([][]string, 0, len(stats))
					for _, status := range queue.AllStatuses() {
						if count, ok := stats[status]; ok {
							rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
						}
					}
					fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, 1))
				}

				health, err := store.CheckHealth(cmd.Context())
				for _, line := range renderSectionHeader("Database", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Path", statusInfo, health.DBPath, colorize))
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Connection", statusError, err.Error(), colorize))
					return nil
				}
				fmt.Fprintln(out, renderStatusLine("Readable", okKind(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize))
				fmt.Fprintln(out, renderStatusLine("Jobs table", okKind(health.TableExists), yesNo(health.TableExists), colorize))
				if len(health.MissingColumns) > 0 {
					fmt.Fprintln(out, renderStatusLine("Schema", statusError,
						fmt.Sprintf("missing columns: %v", health.MissingColumns), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Schema", statusOK, "all columns present", colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Integrity", okKind(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize))
				fmt.Fprintln(out, renderStatusLine("Total jobs", statusInfo, fmt.Sprintf("%d", health.TotalJobs), colorize))
				return nil
			})
		},
	}
}

func okKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
