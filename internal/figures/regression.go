package figures

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ludo67100/MFDeltaLat/internal/dataset"
	"github.com/ludo67100/MFDeltaLat/internal/stats"
)

// Columns used by the charge regression.
const (
	EPSQColumn  = "EPSQ_pC"
	IPSQColumn  = "IPSQ_pC"
	GroupColumn = "Group"
)

// RegressionConfidence is the confidence level of the fitted band.
const RegressionConfidence = 0.95

// Group is a cell class in the Group column.
type Group struct {
	Value float64
	Label string
}

// Groups are the two classes regressed separately.
var Groups = []Group{
	{Value: 1, Label: "FFI"},
	{Value: 0, Label: "beyond FFI"},
}

// Charges holds absolute excitatory and inhibitory charges.
type Charges struct {
	EPSQ []float64 `json:"epsq"`
	IPSQ []float64 `json:"ipsq"`
}

// ReadCharges takes |EPSQ| and |IPSQ| from t.
func ReadCharges(t *dataset.Table) (Charges, error) {
	e, err := t.Column(EPSQColumn)
	if err != nil {
		return Charges{}, err
	}
	i, err := t.Column(IPSQColumn)
	if err != nil {
		return Charges{}, err
	}
	return Charges{EPSQ: stats.Abs(e), IPSQ: stats.Abs(i)}, nil
}

// ReadGroupCharges is ReadCharges restricted to one group.
func ReadGroupCharges(t *dataset.Table, g Group) (Charges, error) {
	sub, err := t.Filter(GroupColumn, g.Value)
	if err != nil {
		return Charges{}, err
	}
	return ReadCharges(sub)
}

func (c Charges) concat(o Charges) Charges {
	return Charges{
		EPSQ: append(append([]float64{}, c.EPSQ...), o.EPSQ...),
		IPSQ: append(append([]float64{}, c.IPSQ...), o.IPSQ...),
	}
}

// RegressionSummary holds the three fits of a regression figure.
type RegressionSummary struct {
	Title   string    `json:"title"`
	Single  stats.Fit `json:"single"`
	Surface stats.Fit `json:"surface"`
	Both    stats.Fit `json:"both"`
}

// FitCharges regresses IPSQ on EPSQ for each protocol and for both merged.
func FitCharges(single, surface Charges) (RegressionSummary, error) {
	var s RegressionSummary
	var err error
	if s.Single, err = stats.LinearRegression(single.EPSQ, single.IPSQ, RegressionConfidence); err != nil {
		return s, fmt.Errorf("single: %w", err)
	}
	if s.Surface, err = stats.LinearRegression(surface.EPSQ, surface.IPSQ, RegressionConfidence); err != nil {
		return s, fmt.Errorf("surface: %w", err)
	}
	both := single.concat(surface)
	if s.Both, err = stats.LinearRegression(both.EPSQ, both.IPSQ, RegressionConfidence); err != nil {
		return s, fmt.Errorf("single + surface: %w", err)
	}
	return s, nil
}

// Regression draws the mosaic: merged data on the left spanning two rows,
// single and surface on the right. Each panel has the scatter, a dashed
// fit and its confidence band.
func Regression(path, title string, single, surface Charges) (RegressionSummary, error) {
	s, err := FitCharges(single, surface)
	if err != nil {
		return s, err
	}
	s.Title = title

	both := newChargePlot("Single + Surface")
	singleP := newChargePlot("Single")
	surfaceP := newChargePlot("Surface")

	layers := []struct {
		p   *plot.Plot
		c   Charges
		fit stats.Fit
		col color.RGBA
	}{
		{singleP, single, s.Single, Orange},
		{both, single, s.Single, Orange},
		{surfaceP, surface, s.Surface, Grey},
		{both, surface, s.Surface, Grey},
	}
	for _, l := range layers {
		if err := addFit(l.p, l.c, l.fit, l.col, true); err != nil {
			return s, err
		}
	}
	if err := addFit(both, Charges{}, s.Both, Black, false); err != nil {
		return s, err
	}

	err = render(path, 13*vg.Centimeter, 10*vg.Centimeter, func(dc draw.Canvas) error {
		dc = suptitle(dc, title)
		halves := draw.Tiles{Rows: 1, Cols: 2, PadX: vg.Millimeter * 3}
		both.Draw(halves.At(dc, 0, 0))
		right := halves.At(dc, 1, 0)
		stack := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter * 3}
		canvases := plot.Align([][]*plot.Plot{{singleP}, {surfaceP}}, stack, right)
		singleP.Draw(canvases[0][0])
		surfaceP.Draw(canvases[1][0])
		return nil
	})
	return s, err
}

func newChargePlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "EPSQs (pC)"
	p.Y.Label.Text = "IPSQs (pC)"
	return p
}

// addFit adds the band, the dashed fit line and, when scatter is set, the
// points of c.
func addFit(p *plot.Plot, c Charges, fit stats.Fit, col color.RGBA, scatter bool) error {
	b := fit.Band
	poly, err := band(b.X, b.Lower, b.Upper, withAlpha(col, 0.2))
	if err != nil {
		return err
	}
	line, err := plotter.NewLine(xys(b.X, b.Nominal))
	if err != nil {
		return err
	}
	line.LineStyle.Color = col
	line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(poly, line)

	if scatter {
		sc, err := plotter.NewScatter(xys(c.EPSQ, c.IPSQ))
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = col
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
	}
	return nil
}
