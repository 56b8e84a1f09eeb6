package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo67100/MFDeltaLat/internal/figures"
)

func newProportionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proportions",
		Short: "Plot the response-group proportions",
		Long: `Draw one pie chart per stimulation protocol showing the share of
recorded cells in each response group.

Counts default to the published ones; override them with --single and
--surface, four counts each in group order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.FigurePath("Fig2G")
			}

			pies := figures.DefaultPies()
			for i, flag := range []string{"single", "surface"} {
				if !cmd.Flags().Changed(flag) {
					continue
				}
				counts, _ := cmd.Flags().GetFloat64Slice(flag)
				pies[i].Values = counts
			}

			if err := figures.Proportions(output, pies...); err != nil {
				return fmt.Errorf("proportions figure: %w", err)
			}
			newLogger(cmd, cfg).Info("figure written", "path", output)

			type share struct {
				figures.Pie
				Percent []float64 `json:"percent"`
			}
			shares := make([]share, len(pies))
			for i, p := range pies {
				pct, err := p.Percentages()
				if err != nil {
					return err
				}
				shares[i] = share{Pie: p, Percent: pct}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"figure": output,
					"pies":   shares,
				})
			}
			out := cmd.OutOrStdout()
			for _, s := range shares {
				fmt.Fprintln(out, s.Title)
				for j, label := range s.Labels {
					fmt.Fprintf(out, "  %-16s %3g  %5.1f%%\n", label, s.Values[j], s.Percent[j])
				}
			}
			fmt.Fprintf(out, "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("output", "", "Figure path (default <output_dir>/Fig2G.<format>)")
	cmd.Flags().Float64Slice("single", nil, "Single-stimulation counts per group")
	cmd.Flags().Float64Slice("surface", nil, "Surface-stimulation counts per group")
	return cmd
}
