// Package figures renders the paper's figures with gonum/plot. Each
// figure function computes its statistics, draws, and writes a file whose
// format follows the path's extension.
package figures

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Colors used across figures.
var (
	Orange = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	Grey   = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	Black  = color.RGBA{A: 0xff}

	// rosetteColors follow the order red, blue, green, purple, orange.
	rosetteColors = []color.RGBA{
		{R: 0xff, A: 0xff},
		{B: 0xff, A: 0xff},
		{G: 0x80, A: 0xff},
		{R: 0x80, B: 0x80, A: 0xff},
		{R: 0xff, G: 0xa5, A: 0xff},
	}
	rosetteGlyphs = []draw.GlyphDrawer{
		draw.CircleGlyph{},
		draw.PyramidGlyph{},
		draw.SquareGlyph{},
		draw.TriangleGlyph{},
		draw.BoxGlyph{},
	}

	// pieColors is the default qualitative cycle.
	pieColors = []color.RGBA{
		{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
		{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
		{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
		{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
		{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
		{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	}
)

const titleBand = vg.Length(20)

// withAlpha returns c with its alpha scaled to a in [0, 1].
func withAlpha(c color.RGBA, a float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a * 255)}
}

// formatOf maps a file extension to a canvas format name.
func formatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "pdf", "png", "svg", "eps", "jpg", "jpeg", "tif", "tiff":
		return ext, nil
	case "":
		return "", fmt.Errorf("%s: missing figure file extension", path)
	default:
		return "", fmt.Errorf("%s: unsupported figure format %q", path, ext)
	}
}

// render creates a canvas of the given size, lets fn draw on it, and
// writes the result to path.
func render(path string, w, h vg.Length, fn func(dc draw.Canvas) error) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	c, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return fmt.Errorf("creating %s canvas: %w", format, err)
	}
	if err := fn(draw.New(c)); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating figure directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating figure file: %w", err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing figure %s: %w", path, err)
	}
	return f.Close()
}

// suptitle draws a centred title across the top of dc and returns the
// canvas below it.
func suptitle(dc draw.Canvas, title string) draw.Canvas {
	if title == "" {
		return dc
	}
	sty := plot.New().Title.TextStyle
	sty.XAlign = text.XCenter
	sty.YAlign = text.YTop
	pt := vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - 4}
	dc.FillText(sty, pt, title)
	return draw.Crop(dc, 0, 0, 0, -titleBand)
}

// drawRow lays plots out side by side on dc.
func drawRow(dc draw.Canvas, plots []*plot.Plot) {
	if len(plots) == 0 {
		return
	}
	tiles := draw.Tiles{Rows: 1, Cols: len(plots), PadX: vg.Millimeter * 2, PadY: vg.Millimeter * 2,
		PadTop: vg.Millimeter, PadBottom: vg.Millimeter, PadLeft: vg.Millimeter, PadRight: vg.Millimeter}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)
	for j, p := range plots {
		p.Draw(canvases[0][j])
	}
}

// histogram builds a filled histogram from precomputed bin heights.
func histogram(edges, heights []float64, fill color.Color) *plotter.Histogram {
	h := &plotter.Histogram{FillColor: fill}
	h.LineStyle.Width = 0
	for i, y := range heights {
		h.Bins = append(h.Bins, plotter.HistogramBin{Min: edges[i], Max: edges[i+1], Weight: y})
	}
	if len(edges) > 1 {
		h.Width = edges[1] - edges[0]
	}
	return h
}

// band builds a shaded polygon between lower and upper over x.
func band(x, lower, upper []float64, fill color.Color) (*plotter.Polygon, error) {
	pts := make(plotter.XYs, 0, 2*len(x))
	for i := range x {
		pts = append(pts, plotter.XY{X: x[i], Y: upper[i]})
	}
	for i := len(x) - 1; i >= 0; i-- {
		pts = append(pts, plotter.XY{X: x[i], Y: lower[i]})
	}
	poly, err := plotter.NewPolygon(pts)
	if err != nil {
		return nil, err
	}
	poly.Color = fill
	poly.LineStyle.Width = 0
	return poly, nil
}

// xys pairs x and y, dropping pairs with a NaN.
func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if x[i] != x[i] || y[i] != y[i] {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	return pts
}

// round formats v rounded to digits decimals without trailing zeros.
func round(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'f', digits, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
