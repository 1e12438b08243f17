package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shortsmith/internal/api"
	"shortsmith/internal/renderspec"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "plan <script.json>",
		Short: "Preview the compiled timeline and caption pages of a script",
		Long: "Compile a script into frame segments and caption cues without rendering.\n" +
			"Scenes without narration use their durationSec. Runs locally unless --remote is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadScript(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var plan api.PlanPreview
			if remote {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				if plan, err = client.Plan(cmd.Context(), req); err != nil {
					return daemonError(err)
				}
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				renderCfg, err := renderspec.Decode(req.Config, cfg.Render.Defaults)
				if err != nil {
					return err
				}
				if plan, err = api.BuildPlan(req.Scenes, renderCfg); err != nil {
					return err
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, plan)
			}
			printPlan(cmd, plan)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Compile on the daemon instead of locally")
	return cmd
}

func printPlan(cmd *cobra.Command, plan api.PlanPreview) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Timeline", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d frames at %d fps (%.2fs), padding %d frames, fade from frame %d\n",
		plan.TotalFrames, plan.FPS, plan.DurationSec, plan.PaddingFrames, plan.FadeStartFrame)

	segments := make([][]string, 0, len(plan.Segments))
	for _, seg := range plan.Segments {
		segments = append(segments, []string{
			strconv.Itoa(seg.SceneIndex),
			strconv.Itoa(seg.StartFrame),
			strconv.Itoa(seg.DurationFrames),
			strconv.FormatFloat(seg.StartSec, 'f', 3, 64),
			strconv.FormatFloat(seg.DurationSec, 'f', 3, 64),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Scene", "Start", "Frames", "Start (s)", "Length (s)"},
		segments,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	if len(plan.Cues) == 0 {
		fmt.Fprintln(out, "No captions (scenes carry no word timings)")
		return
	}
	for _, line := range renderSectionHeader("Captions", colorize) {
		fmt.Fprintln(out, line)
	}
	cues := make([][]string, 0, len(plan.Cues))
	for _, cue := range plan.Cues {
		cues = append(cues, []string{
			strconv.Itoa(cue.SceneIndex),
			strconv.FormatInt(cue.StartMs, 10),
			strconv.FormatInt(cue.EndMs, 10),
			cue.Text,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Scene", "Start (ms)", "End (ms)", "Text"},
		cues,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
	))
}
