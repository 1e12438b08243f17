package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shortsmith/internal/preflight"
)

type preflightResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, ffmpeg, and external services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			if ctx.jsonOutput() {
				out := make([]preflightResult, 0, len(results))
				for _, r := range results {
					out = append(out, preflightResult(r))
				}
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				colorize := shouldColorize(w)
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(w, line)
				}
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(w, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}
			if preflight.Failed(results) {
				return errors.New("one or more preflight checks failed")
			}
			return nil
		},
	}
}
