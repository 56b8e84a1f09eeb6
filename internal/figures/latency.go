package figures

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ludo67100/MFDeltaLat/internal/dataset"
	"github.com/ludo67100/MFDeltaLat/internal/stats"
)

// LatencyColumn holds the first-stimulus latencies in each rosette sheet.
const LatencyColumn = "Stim#1"

// Rosette is one recorded mossy-fibre rosette.
type Rosette struct {
	Name      string    `json:"name"`
	Latencies []float64 `json:"latencies"`
}

// LatencySummary is the numeric content of the latency figure.
type LatencySummary struct {
	Rosettes []stats.Summary `json:"rosettes"`
	// AvgLatency and LatencySD are the mean and SD of the rosette means.
	AvgLatency float64 `json:"avg_latency"`
	LatencySD  float64 `json:"latency_sd"`
	// AvgJitter is the mean absolute deviation of every latency from its
	// rosette's mean; JitterSD is the SD of those deviations.
	AvgJitter float64 `json:"avg_jitter"`
	JitterSD  float64 `json:"jitter_sd"`
}

// MarshalJSON writes undefined statistics, e.g. of empty rosettes, as null.
func (s LatencySummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rosettes   []stats.Summary `json:"rosettes"`
		AvgLatency *float64        `json:"avg_latency"`
		LatencySD  *float64        `json:"latency_sd"`
		AvgJitter  *float64        `json:"avg_jitter"`
		JitterSD   *float64        `json:"jitter_sd"`
	}{
		Rosettes:   s.Rosettes,
		AvgLatency: stats.Finite(s.AvgLatency),
		LatencySD:  stats.Finite(s.LatencySD),
		AvgJitter:  stats.Finite(s.AvgJitter),
		JitterSD:   stats.Finite(s.JitterSD),
	})
}

// ReadRosettes loads the latency column of every sheet, in sheet order.
func ReadRosettes(w *dataset.Workbook) ([]Rosette, error) {
	var out []Rosette
	for _, sheet := range w.Sheets() {
		t, err := w.Table(sheet)
		if err != nil {
			return nil, err
		}
		col, err := t.Column(LatencyColumn)
		if err != nil {
			return nil, err
		}
		out = append(out, Rosette{Name: sheet, Latencies: col})
	}
	return out, nil
}

// SummarizeLatencies computes the latency and jitter statistics.
func SummarizeLatencies(rs []Rosette) LatencySummary {
	var s LatencySummary
	var means, centered []float64
	for _, r := range rs {
		d := stats.Describe(r.Latencies, 1)
		s.Rosettes = append(s.Rosettes, d)
		means = append(means, d.Mean)
		centered = append(centered, stats.Center(r.Latencies)...)
	}

	lat := stats.Describe(means, 0)
	s.AvgLatency, s.LatencySD = lat.Mean, lat.SD
	s.AvgJitter = stats.Describe(stats.Abs(centered), 0).Mean
	s.JitterSD = stats.Describe(centered, 0).SD
	return s
}

// JitterEdges are the histogram bin edges of the centred latencies, in ms.
func JitterEdges() []float64 {
	return stats.Arange(-0.15, 0.15, 0.01)
}

// Latency draws the swarm of first-spike latencies with per-rosette mean ±
// SD next to the histogram of centred latencies, and writes it to path.
func Latency(path string, rs []Rosette) (LatencySummary, error) {
	if len(rs) == 0 {
		return LatencySummary{}, fmt.Errorf("latency figure: no rosettes: %w", stats.ErrTooFewSamples)
	}
	s := SummarizeLatencies(rs)

	swarm := plot.New()
	swarm.Title.Text = fmt.Sprintf("Avg. Lat = %s +/- %s ms", round(s.AvgLatency, 2), round(s.LatencySD, 2))
	swarm.Y.Label.Text = "First spike latency from stim onset [ms]"
	swarm.X.Min, swarm.X.Max = -0.5, 0.5
	swarm.HideX()
	swarm.Legend.Top = true

	hist := plot.New()
	hist.Title.Text = fmt.Sprintf("Avg. Jitter = %s +/- %s ms", round(s.AvgJitter, 3), round(s.JitterSD, 2))
	hist.X.Label.Text = "Jitter [ms]"
	hist.Y.Label.Text = "Count"
	edges := JitterEdges()

	for i, r := range rs {
		col := rosetteColors[i%len(rosetteColors)]
		vals := stats.DropNaN(r.Latencies)

		offsets := Beeswarm(vals, 0.01*spread(vals), 0.02)
		pts := make(plotter.XYs, len(vals))
		for j, v := range vals {
			pts[j] = plotter.XY{X: offsets[j], Y: v}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return s, fmt.Errorf("rosette %s swarm: %w", r.Name, err)
		}
		sc.GlyphStyle.Color = withAlpha(col, 0.2)
		sc.GlyphStyle.Radius = vg.Points(1.5)
		swarm.Add(sc)

		d := s.Rosettes[i]
		if math.IsNaN(d.Mean) {
			continue
		}
		sd := d.SD
		if math.IsNaN(sd) {
			sd = 0
		}
		mean, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: d.Mean}})
		if err != nil {
			return s, err
		}
		mean.GlyphStyle.Color = col
		mean.GlyphStyle.Shape = rosetteGlyphs[i%len(rosetteGlyphs)]
		mean.GlyphStyle.Radius = vg.Points(3)
		bar, err := plotter.NewYErrorBars(meanSD{mean: d.Mean, sd: sd})
		if err != nil {
			return s, err
		}
		bar.LineStyle.Color = col
		swarm.Add(bar, mean)
		swarm.Legend.Add(fmt.Sprintf("Rosette_%d", i+1), mean)

		counts := stats.HistogramCounts(stats.Center(r.Latencies), edges, false)
		hist.Add(histogram(edges, counts, withAlpha(col, 0.5)))
	}

	err := render(path, 18*vg.Centimeter, 8*vg.Centimeter, func(dc draw.Canvas) error {
		drawRow(dc, []*plot.Plot{swarm, hist})
		return nil
	})
	return s, err
}

// meanSD is a single point with a symmetric vertical error.
type meanSD struct{ mean, sd float64 }

func (m meanSD) Len() int                       { return 1 }
func (m meanSD) XY(int) (float64, float64)      { return 0, m.mean }
func (m meanSD) YError(int) (low, high float64) { return m.sd, m.sd }

// Beeswarm returns horizontal offsets that keep points whose values lie
// within yTol of each other at least step apart. Offsets alternate right
// and left of zero.
func Beeswarm(ys []float64, yTol, step float64) []float64 {
	order := make([]int, len(ys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ys[order[a]] < ys[order[b]] })

	offsets := make([]float64, len(ys))
	var placed []int
	for _, i := range order {
		for k := 0; ; k++ {
			// 0, +1, -1, +2, -2, ...
			slot := float64((k + 1) / 2)
			if k%2 == 0 {
				slot = -slot
			}
			x := slot * step
			if !collides(ys, offsets, placed, ys[i], x, yTol, step) {
				offsets[i] = x
				break
			}
		}
		placed = append(placed, i)
	}
	return offsets
}

func collides(ys, offsets []float64, placed []int, y, x, yTol, step float64) bool {
	for _, j := range placed {
		if math.Abs(ys[j]-y) <= yTol && math.Abs(offsets[j]-x) < step*0.999 {
			return true
		}
	}
	return false
}

func spread(xs []float64) float64 {
	lo, hi, err := stats.Range(xs)
	if err != nil || hi == lo {
		return 1
	}
	return hi - lo
}
