package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// KDEPoints and KDECut shape the default evaluation grid: KDEPoints values
// spanning KDECut bandwidths beyond the data on either side.
const (
	KDEPoints = 200
	KDECut    = 3
)

// ScottBandwidth is the Gaussian kernel bandwidth sd·n^(-1/5).
func ScottBandwidth(xs []float64) float64 {
	v := DropNaN(xs)
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil) * math.Pow(float64(len(v)), -0.2)
}

// KDE evaluates a Gaussian kernel density estimate of xs at grid.
// NaNs are dropped. The result is NaN everywhere when the bandwidth is
// undefined or zero.
func KDE(xs, grid []float64) []float64 {
	v := DropNaN(xs)
	out := make([]float64, len(grid))
	h := ScottBandwidth(v)
	if math.IsNaN(h) || h == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	k := distuv.Normal{Mu: 0, Sigma: h}
	inv := 1 / float64(len(v))
	for i, g := range grid {
		var d float64
		for _, x := range v {
			d += k.Prob(g - x)
		}
		out[i] = d * inv
	}
	return out
}

// KDECurve evaluates the estimate on the default grid around the data.
func KDECurve(xs []float64) (grid, density []float64) {
	v := DropNaN(xs)
	h := ScottBandwidth(v)
	if len(v) == 0 || math.IsNaN(h) {
		return nil, nil
	}
	grid = Linspace(floats.Min(v)-KDECut*h, floats.Max(v)+KDECut*h, KDEPoints)
	return grid, KDE(v, grid)
}
