package figures

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ludo67100/MFDeltaLat/internal/dataset"
	"github.com/ludo67100/MFDeltaLat/internal/stats"
)

// CompareBins is the number of shared bin edges in a feature panel.
const CompareBins = 20

// FeatureComparison is the test outcome for one feature.
type FeatureComparison struct {
	Feature string `json:"feature"`
	stats.Comparison
}

// CompareFeatures runs the test-selection rule on every column of single,
// pairing it with the same column of surface.
func CompareFeatures(single, surface *dataset.Table, alpha float64) ([]FeatureComparison, error) {
	out := make([]FeatureComparison, 0, len(single.Columns))
	for _, feature := range single.Columns {
		a, err := single.Column(feature)
		if err != nil {
			return nil, err
		}
		b, err := surface.Column(feature)
		if err != nil {
			return nil, err
		}
		c, err := stats.Compare(a, b, alpha)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", feature, err)
		}
		out = append(out, FeatureComparison{Feature: feature, Comparison: c})
	}
	return out, nil
}

// Compare draws one panel per feature: density histograms of both
// protocols on shared bins with a KDE curve each, titled with the
// selected test's p-value.
func Compare(path string, single, surface *dataset.Table, alpha float64) ([]FeatureComparison, error) {
	results, err := CompareFeatures(single, surface, alpha)
	if err != nil {
		return nil, err
	}

	panels := make([]*plot.Plot, 0, len(results))
	for _, r := range results {
		a, _ := single.Column(r.Feature)
		b, _ := surface.Column(r.Feature)
		p, err := featurePanel(r, a, b)
		if err != nil {
			return results, err
		}
		panels = append(panels, p)
	}

	width := vg.Length(len(panels)) * 4 * vg.Centimeter
	err = render(path, width, 5*vg.Centimeter, func(dc draw.Canvas) error {
		drawRow(suptitle(dc, "Single vs Surface"), panels)
		return nil
	})
	return results, err
}

func featurePanel(r FeatureComparison, a, b []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "p=" + strconv.FormatFloat(r.P, 'g', -1, 64)
	p.X.Label.Text = r.Feature

	lo, hi, err := stats.Range(a, b)
	if err != nil {
		return nil, fmt.Errorf("feature %s: %w", r.Feature, err)
	}
	if lo == hi {
		return nil, fmt.Errorf("feature %s: %w", r.Feature, stats.ErrZeroRange)
	}
	edges := stats.Linspace(lo, hi, CompareBins)

	for i, xs := range [][]float64{a, b} {
		col := Orange
		if i == 1 {
			col = Grey
		}
		p.Add(histogram(edges, stats.HistogramCounts(xs, edges, true), withAlpha(col, 0.3)))

		grid, dens := stats.KDECurve(xs)
		if grid == nil || dens[0] != dens[0] {
			continue
		}
		line, err := plotter.NewLine(xys(grid, dens))
		if err != nil {
			return nil, fmt.Errorf("feature %s kde: %w", r.Feature, err)
		}
		line.LineStyle.Color = col
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
	}
	return p, nil
}
