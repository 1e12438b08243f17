package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortsmith/internal/api"
	"shortsmith/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the render daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&development, "development", false, "Include source locations in log output")
	cmd.AddCommand(newDaemonStatusCommand(ctx))
	return cmd
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, database, and stage health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.DaemonStatus(cmd.Context())
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			printDaemonStatus(cmd, status)
			return nil
		},
	}
}

func printDaemonStatus(cmd *cobra.Command, status api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runKind := statusError
	if status.Running {
		runKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("running", runKind, fmt.Sprintf("%s (pid %d)", yesNo(status.Running), status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("api", statusInfo, status.Bind, colorize))

	dbKind := statusOK
	dbMessage := fmt.Sprintf("%d jobs, schema v%d", status.Database.TotalJobs, status.Database.SchemaVersion)
	if status.Database.Error != "" || !status.Database.Integrity {
		dbKind = statusError
		dbMessage = status.Database.Error
	}
	fmt.Fprintln(out, renderStatusLine("database", dbKind, dbMessage, colorize))

	wf := status.Workflow
	fmt.Fprintln(out, renderStatusLine("workers", statusInfo, fmt.Sprintf("%d (in flight %d, pending %d, retrying %d)", wf.Workers, len(wf.InFlight), wf.QueueDepth, len(wf.Retrying)), colorize))
	for _, st := range []string{"queued", "processing", "ready", "failed"} {
		fmt.Fprintln(out, renderStatusLine(st, jobStatusKind(st), fmt.Sprintf("%d", wf.QueueStats[st]), colorize))
	}
	if wf.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("last error", statusWarn, wf.LastError, colorize))
	}

	for _, line := range renderSectionHeader("Stages", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, h := range wf.StageHealth {
		kind := statusOK
		message := "ready"
		if !h.Ready {
			kind = statusError
			message = h.Detail
		}
		fmt.Fprintln(out, renderStatusLine(h.Name, kind, message, colorize))
	}
}
