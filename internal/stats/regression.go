package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// BandPoints is the number of abscissae in a regression band.
const BandPoints = 100

// Band is a fitted line with a confidence band evaluated on X.
type Band struct {
	X         []float64 `json:"x"`
	Nominal   []float64 `json:"nominal"`
	Lower     []float64 `json:"lower"`
	Upper     []float64 `json:"upper"`
	HalfWidth []float64 `json:"half_width"`
}

// Fit is an ordinary least-squares line y = Intercept + Slope*x.
type Fit struct {
	N               int     `json:"n"`
	Slope           float64 `json:"slope"`
	Intercept       float64 `json:"intercept"`
	R               float64 `json:"r"`
	R2              float64 `json:"r2"`
	P               float64 `json:"p"`
	StdErr          float64 `json:"stderr"`
	InterceptStdErr float64 `json:"intercept_stderr"`
	Band            Band    `json:"band"`
}

// LinearRegression fits y on x, dropping pairs with a NaN. P tests a zero
// slope. The band is the conf-level confidence interval of the mean
// response over the range of x.
func LinearRegression(x, y []float64, conf float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("regression: x and y lengths differ (%d != %d)", len(x), len(y))
	}
	if conf <= 0 || conf >= 1 {
		return Fit{}, fmt.Errorf("regression: confidence must be in (0, 1), got %v", conf)
	}
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	n := len(xs)
	if n < 3 {
		return Fit{}, fmt.Errorf("regression needs at least 3 points, got %d: %w", n, ErrTooFewSamples)
	}
	if floats.Max(xs) == floats.Min(xs) {
		return Fit{}, fmt.Errorf("regression: %w", ErrZeroRange)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	xbar, ybar := stat.Mean(xs, nil), stat.Mean(ys, nil)
	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := xs[i]-xbar, ys[i]-ybar
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}

	f := Fit{N: n, Slope: slope, Intercept: intercept}
	df := float64(n - 2)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	if syy > 0 {
		f.R = math.Max(-1, math.Min(1, sxy/math.Sqrt(sxx*syy)))
	}
	f.R2 = f.R * f.R
	if f.R2 >= 1 {
		f.P = 0
	} else {
		tstat := f.R * math.Sqrt(df/(1-f.R2))
		f.P = 2 * t.CDF(-math.Abs(tstat))
	}
	f.StdErr = math.Sqrt((1 - f.R2) * syy / sxx / df)
	f.InterceptStdErr = f.StdErr * math.Sqrt(sxx/float64(n)+xbar*xbar)

	var ssres float64
	for i := range xs {
		r := ys[i] - (intercept + slope*xs[i])
		ssres += r * r
	}
	s := math.Sqrt(ssres / df)
	q := t.Quantile(1 - (1-conf)/2)

	b := Band{X: Linspace(floats.Min(xs), floats.Max(xs), BandPoints)}
	b.Nominal = make([]float64, len(b.X))
	b.Lower = make([]float64, len(b.X))
	b.Upper = make([]float64, len(b.X))
	b.HalfWidth = make([]float64, len(b.X))
	for i, px := range b.X {
		nom := intercept + slope*px
		hw := q * s * math.Sqrt(1/float64(n)+(px-xbar)*(px-xbar)/sxx)
		b.Nominal[i] = nom
		b.HalfWidth[i] = hw
		b.Lower[i] = nom - hw
		b.Upper[i] = nom + hw
	}
	f.Band = b
	return f, nil
}
