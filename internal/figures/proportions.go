package figures

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Pie is one pie chart of group counts.
type Pie struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// ProportionLabels are the response groups of the recorded cells.
var ProportionLabels = []string{"Group 1", "Group 2 E first", "Group 2 I first", "Group 3"}

// DefaultPies are the published group counts per stimulation protocol.
func DefaultPies() []Pie {
	return []Pie{
		{Title: "Single stim.", Labels: ProportionLabels, Values: []float64{29, 6, 10, 4}},
		{Title: "Surface stim.", Labels: ProportionLabels, Values: []float64{20, 24, 10, 10}},
	}
}

// Percentages returns each value's share of the total in percent.
func (p Pie) Percentages() ([]float64, error) {
	if len(p.Labels) != len(p.Values) {
		return nil, fmt.Errorf("pie %q: %d labels for %d values", p.Title, len(p.Labels), len(p.Values))
	}
	var total float64
	for _, v := range p.Values {
		if v < 0 {
			return nil, fmt.Errorf("pie %q: negative value %v", p.Title, v)
		}
		total += v
	}
	if total == 0 {
		return nil, fmt.Errorf("pie %q: all values are zero", p.Title)
	}
	out := make([]float64, len(p.Values))
	for i, v := range p.Values {
		out[i] = 100 * v / total
	}
	return out, nil
}

// Proportions draws the pies side by side and writes them to path.
func Proportions(path string, pies ...Pie) error {
	plots := make([]*plot.Plot, 0, len(pies))
	for _, pie := range pies {
		pct, err := pie.Percentages()
		if err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = pie.Title
		p.HideAxes()
		p.Add(&pieChart{labels: pie.Labels, pct: pct, start: math.Pi / 2})
		plots = append(plots, p)
	}
	return render(path, vg.Length(len(plots))*7*vg.Centimeter, 7*vg.Centimeter, func(dc draw.Canvas) error {
		drawRow(dc, plots)
		return nil
	})
}

// pieChart draws counter-clockwise wedges from start, with the percentage
// inside each wedge and its label outside.
type pieChart struct {
	labels []string
	pct    []float64
	start  float64
}

func (pc *pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	center := c.Center()
	r := 0.8 * math.Min(float64(c.Max.X-c.Min.X), float64(c.Max.Y-c.Min.Y)) / 2
	rad := vg.Length(r)

	sty := plt.Title.TextStyle
	sty.Font.Size = vg.Points(7)
	sty.XAlign = text.XCenter
	sty.YAlign = text.YCenter

	angle := pc.start
	for i, pct := range pc.pct {
		sweep := 2 * math.Pi * pct / 100
		var path vg.Path
		path.Move(center)
		path.Arc(center, rad, angle, sweep)
		path.Close()
		c.SetColor(pieColors[i%len(pieColors)])
		c.Fill(path)

		mid := angle + sweep/2
		at := func(f float64) vg.Point {
			return vg.Point{
				X: center.X + vg.Length(f*r*math.Cos(mid)),
				Y: center.Y + vg.Length(f*r*math.Sin(mid)),
			}
		}
		c.FillText(sty, at(0.6), fmt.Sprintf("%.1f%%", pct))
		c.FillText(sty, at(1.15), pc.labels[i])
		angle += sweep
	}
}
