package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortsmith/internal/api"
	"shortsmith/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "submit <script.json>",
		Short: "Submit a scene script for rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadScript(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id, err := client.Submit(cmd.Context(), req)
			if err != nil {
				return daemonError(err)
			}
			if !wait {
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.SubmitResponse{ID: id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", id)
				return nil
			}
			status, err := waitForJob(cmd, client, id, interval)
			if err != nil {
				return err
			}
			return printJobStatus(cmd, ctx, status)
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the job is ready or failed")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval with --wait")
	return cmd
}

// waitForJob polls until the job reaches a terminal status.
func waitForJob(cmd *cobra.Command, client *api.Client, id string, interval time.Duration) (api.JobStatus, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastProgress := -1
	for {
		status, err := client.Status(cmd.Context(), id)
		if err != nil {
			return api.JobStatus{}, daemonError(err)
		}
		if queue.Status(status.Status).Terminal() {
			return status, nil
		}
		if status.Progress != lastProgress {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %3d%% %s\n", id, status.Progress, status.Stage)
			lastProgress = status.Progress
		}
		select {
		case <-cmd.Context().Done():
			return api.JobStatus{}, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's status and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return daemonError(err)
			}
			return printJobStatus(cmd, ctx, status)
		},
	}
}

func printJobStatus(cmd *cobra.Command, ctx *commandContext, status api.JobStatus) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, status)
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	message := fmt.Sprintf("%s (%d%%)", status.Status, status.Progress)
	if status.Stage != "" {
		message += " stage=" + status.Stage
	}
	fmt.Fprintln(out, renderStatusLine(status.ID, jobStatusKind(status.Status), message, colorize))
	if status.Error != "" {
		fmt.Fprintln(out, renderStatusLine("error", statusError, status.Error, colorize))
	}
	return nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobs, err := client.List(cmd.Context(), statuses...)
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprintln(out, renderJobTable(jobs, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (queued, processing, ready, failed)")
	return cmd
}

func renderJobTable(jobs []api.Job, colorize bool) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		detail := job.OutputPath
		if job.ErrorMessage != "" {
			detail = job.ErrorMessage
		}
		rows = append(rows, []string{
			job.ID,
			colorStatus(job.Status, colorize),
			strconv.Itoa(job.Progress) + "%",
			job.Stage,
			strconv.Itoa(job.Attempts),
			job.UpdatedAt,
			truncate(detail, 60),
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Progress", "Stage", "Attempts", "Updated", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job with its scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.Describe(cmd.Context(), args[0])
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.JobResponse{Job: job})
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Job "+job.ID, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("status", jobStatusKind(job.Status), fmt.Sprintf("%s (%d%%)", job.Status, job.Progress), colorize))
			if job.Stage != "" {
				fmt.Fprintln(out, renderStatusLine("stage", statusInfo, job.Stage, colorize))
			}
			if job.ErrorMessage != "" {
				fmt.Fprintln(out, renderStatusLine("error", statusError, job.ErrorKind+": "+job.ErrorMessage, colorize))
			}
			if job.OutputPath != "" {
				fmt.Fprintln(out, renderStatusLine("output", statusOK, job.OutputPath, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("attempts", statusInfo, strconv.Itoa(job.Attempts), colorize))

			rows := make([][]string, 0, len(job.Scenes))
			for i, sc := range job.Scenes {
				rows = append(rows, []string{
					strconv.Itoa(i),
					truncate(sc.Text, 48),
					yesNo(sc.Audio.URL != ""),
					strconv.FormatFloat(sc.Duration(), 'f', 2, 64),
					strconv.Itoa(len(sc.Videos)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Text", "Narrated", "Seconds", "Clips"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <job-id> <scenes.json>",
		Short: "Replace a job's scenes; only changed scenes are narrated again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadScript(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id, err := client.Edit(cmd.Context(), args[0], api.EditRequest{Scenes: req.Scenes})
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.SubmitResponse{ID: id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s updated\n", id)
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Requeue a failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Retry(cmd.Context(), args[0]); err != nil {
				return daemonError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s requeued\n", args[0])
			return nil
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove ready and failed jobs from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			removed, err := client.ClearFinished(cmd.Context())
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]int64{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished job(s)\n", removed)
			return nil
		},
	}
}

func newReplaceVideosCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replace-videos <job-id> <scene-index>",
		Short: "Drop a scene's clips so the next render searches again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil || index < 0 {
				return fmt.Errorf("invalid scene index %q", args[1])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.ReplaceVideos(cmd.Context(), args[0], index); err != nil {
				return daemonError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scene %d of job %s will get new footage\n", index, args[0])
			return nil
		},
	}
}

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List narration voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Voices(cmd.Context(), language)
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			rows := make([][]string, 0, len(resp.Voices))
			for _, v := range resp.Voices {
				rows = append(rows, []string{v.Name, v.Language, v.Engine, v.Gender})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Voice", "Language", "Engine", "Gender"}, rows, nil))
			fmt.Fprintf(out, "Source: %s\n", resp.Source)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "Only voices for this language")
	return cmd
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
