package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo67100/MFDeltaLat/internal/dataset"
	"github.com/ludo67100/MFDeltaLat/internal/figures"
)

func newLatencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latency",
		Short: "Plot mossy fibre first-spike latencies and jitter",
		Long: `Read one sheet per rosette from the latency workbook and plot the
first-spike latencies (Stim#1) as a swarm with mean +/- SD, next to a
histogram of each latency's deviation from its rosette mean.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.FigurePath("Fig1D")
			}

			w, err := dataset.Open(cfg.WorkbookPath(cfg.Figures.Latencies))
			if err != nil {
				return err
			}
			defer w.Close()

			rosettes, err := figures.ReadRosettes(w)
			if err != nil {
				return fmt.Errorf("reading %s: %w", w.Path(), err)
			}
			summary, err := figures.Latency(output, rosettes)
			if err != nil {
				return fmt.Errorf("latency figure: %w", err)
			}
			newLogger(cmd, cfg).Info("figure written", "path", output, "rosettes", len(rosettes))

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"figure":  output,
					"summary": summary,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rosettes: %d\n", len(summary.Rosettes))
			fmt.Fprintf(out, "Avg. latency: %.3f +/- %.3f ms\n", summary.AvgLatency, summary.LatencySD)
			fmt.Fprintf(out, "Avg. jitter:  %.4f +/- %.3f ms\n", summary.AvgJitter, summary.JitterSD)
			fmt.Fprintf(out, "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("output", "", "Figure path (default <output_dir>/Fig1D.<format>)")
	return cmd
}
