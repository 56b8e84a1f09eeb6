package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ludo67100/MFDeltaLat/internal/config"
	"github.com/ludo67100/MFDeltaLat/internal/dataset"
	"github.com/ludo67100/MFDeltaLat/internal/figures"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare single and surface stimulation features",
		Long: `Compare every feature column of the single-stimulation workbook with
the same column of the surface-stimulation workbook.

Each feature is tested with Mann-Whitney U when either sample fails the
Shapiro-Wilk normality test, otherwise with Student's t (equal variances
by Levene) or Welch's t.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.FigurePath("Fig1E")
			}

			single, surface, closeAll, err := openProtocols(cfg)
			if err != nil {
				return err
			}
			defer closeAll()

			results, err := figures.Compare(output, single, surface, cfg.Figures.Alpha)
			if err != nil {
				return fmt.Errorf("compare figure: %w", err)
			}
			newLogger(cmd, cfg).Info("figure written", "path", output, "features", len(results))

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"figure":   output,
					"alpha":    cfg.Figures.Alpha,
					"features": results,
				})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FEATURE\tSINGLE\tSURFACE\tTEST\tSTATISTIC\tP")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%.4g +/- %.3g (n=%d)\t%.4g +/- %.3g (n=%d)\t%s\t%.4g\t%.4g\n",
					r.Feature, r.A.Mean, r.A.SD, r.A.N, r.B.Mean, r.B.SD, r.B.N, r.Test, r.Statistic, r.P)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("output", "", "Figure path (default <output_dir>/Fig1E.<format>)")
	return cmd
}

// openProtocols opens the first sheet of the single and surface workbooks.
func openProtocols(cfg *config.Config) (single, surface *dataset.Table, closeAll func(), err error) {
	var books []*dataset.Workbook
	closeAll = func() {
		for _, w := range books {
			w.Close()
		}
	}

	tables := make([]*dataset.Table, 2)
	for i, name := range []string{cfg.Figures.Single, cfg.Figures.Surface} {
		w, err := dataset.Open(cfg.WorkbookPath(name))
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		books = append(books, w)
		if tables[i], err = w.First(); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("reading %s: %w", w.Path(), err)
		}
	}
	return tables[0], tables[1], closeAll, nil
}
