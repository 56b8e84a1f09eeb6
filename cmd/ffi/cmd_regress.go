package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ludo67100/MFDeltaLat/internal/figures"
	"github.com/ludo67100/MFDeltaLat/internal/stats"
)

func newRegressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Fit inhibitory against excitatory charge",
		Long: `Regress |IPSQ| on |EPSQ| for the single and surface protocols and for
both merged, with a 95% confidence band. One figure is drawn per cell
group (FFI, beyond FFI) and one for all cells.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			single, surface, closeAll, err := openProtocols(cfg)
			if err != nil {
				return err
			}
			defer closeAll()
			logger := newLogger(cmd, cfg)

			type result struct {
				Figure string `json:"figure"`
				figures.RegressionSummary
			}
			var results []result

			for _, g := range figures.Groups {
				a, err := figures.ReadGroupCharges(single, g)
				if err != nil {
					return fmt.Errorf("single %s: %w", g.Label, err)
				}
				b, err := figures.ReadGroupCharges(surface, g)
				if err != nil {
					return fmt.Errorf("surface %s: %w", g.Label, err)
				}
				path := cfg.FigurePath("Fig3_" + strings.ReplaceAll(g.Label, " ", "_"))
				s, err := figures.Regression(path, "Linear fit - Single & Surface data in "+g.Label, a, b)
				if err != nil {
					return fmt.Errorf("group %s: %w", g.Label, err)
				}
				logger.Info("figure written", "path", path, "group", g.Label)
				results = append(results, result{Figure: path, RegressionSummary: s})
			}

			a, err := figures.ReadCharges(single)
			if err != nil {
				return fmt.Errorf("single: %w", err)
			}
			b, err := figures.ReadCharges(surface)
			if err != nil {
				return fmt.Errorf("surface: %w", err)
			}
			path := cfg.FigurePath("Fig3_merged")
			s, err := figures.Regression(path, "Linear fit - Single & Surface data", a, b)
			if err != nil {
				return fmt.Errorf("merged: %w", err)
			}
			logger.Info("figure written", "path", path)
			results = append(results, result{Figure: path, RegressionSummary: s})

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s (%s)\n", r.Title, filepath.Base(r.Figure))
				printFit(cmd, "Single", r.Single)
				printFit(cmd, "Surface", r.Surface)
				printFit(cmd, "Single + Surface", r.Both)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	return cmd
}

func printFit(cmd *cobra.Command, name string, f stats.Fit) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %-17s n=%-3d slope=%.4g intercept=%.4g r=%.4f p=%.4g\n",
		name+":", f.N, f.Slope, f.Intercept, f.R, f.P)
}
