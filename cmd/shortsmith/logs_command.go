package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shortsmith/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "shortsmith.log")
			opts := logs.TailOptions{Offset: -1, Limit: lines, JobID: jobID}
			out := cmd.OutOrStdout()

			if follow {
				return logs.Follow(cmd.Context(), path, opts, func(line string) {
					fmt.Fprintln(out, line)
				})
			}
			result, err := logs.Tail(path, opts)
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show lines for this job ID")
	return cmd
}
