// Package stats implements the statistics used by the figure pipelines:
// descriptive summaries, normality and variance tests, two-sample
// location tests, the test-selection rule, and linear regression with a
// confidence band.
package stats

import (
	"encoding/json"
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrTooFewSamples is returned when a test needs more observations.
	ErrTooFewSamples = errors.New("too few samples")
	// ErrZeroRange is returned when all observations are identical.
	ErrZeroRange = errors.New("all observations are identical")
)

// Summary is a sample's size, mean and standard deviation.
type Summary struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// MarshalJSON writes undefined moments as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		N    int      `json:"n"`
		Mean *float64 `json:"mean"`
		SD   *float64 `json:"sd"`
	}{s.N, Finite(s.Mean), Finite(s.SD)})
}

// Finite returns &v, or nil when v is NaN or infinite. JSON encodes nil
// as null where a bare NaN would fail.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Describe summarises xs ignoring NaNs. ddof is the delta degrees of
// freedom of the SD (0 for population, 1 for sample). An empty sample
// gives NaN mean and SD.
func Describe(xs []float64, ddof int) Summary {
	v := DropNaN(xs)
	s := Summary{N: len(v), Mean: math.NaN(), SD: math.NaN()}
	if len(v) == 0 {
		return s
	}
	s.Mean = stat.Mean(v, nil)
	if len(v)-ddof <= 0 {
		return s
	}
	var ss float64
	for _, x := range v {
		d := x - s.Mean
		ss += d * d
	}
	s.SD = math.Sqrt(ss / float64(len(v)-ddof))
	return s
}

// DropNaN returns the non-NaN values of xs in order.
func DropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Abs returns |x| elementwise.
func Abs(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Abs(x)
	}
	return out
}

// Center subtracts the NaN-ignoring mean from every value.
func Center(xs []float64) []float64 {
	m := Describe(xs, 0).Mean
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x - m
	}
	return out
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// Arange returns start, start+step, ... strictly below stop.
func Arange(start, stop, step float64) []float64 {
	if step <= 0 || stop <= start {
		return nil
	}
	n := int(math.Ceil((stop - start) / step))
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// HistogramCounts bins xs into the half-open intervals [edges[i],
// edges[i+1]), the last bin closed on the right. NaNs and values outside
// the edges are dropped. With density the counts are normalised so the
// histogram integrates to one.
func HistogramCounts(xs, edges []float64, density bool) []float64 {
	if len(edges) < 2 {
		return nil
	}
	counts := make([]float64, len(edges)-1)
	last := edges[len(edges)-1]
	var total float64
	for _, x := range xs {
		if math.IsNaN(x) || x < edges[0] || x > last {
			continue
		}
		i := sort.SearchFloat64s(edges, x)
		// SearchFloat64s finds the first edge >= x.
		if i < len(edges) && edges[i] == x {
			if i == len(edges)-1 {
				i--
			}
		} else {
			i--
		}
		counts[i]++
		total++
	}
	if density && total > 0 {
		for i := range counts {
			counts[i] /= total * (edges[i+1] - edges[i])
		}
	}
	return counts
}

// Range returns the min and max of the non-NaN values of all samples.
func Range(samples ...[]float64) (lo, hi float64, err error) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		for _, x := range s {
			if math.IsNaN(x) {
				continue
			}
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, ErrTooFewSamples
	}
	return lo, hi, nil
}

func sorted(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

func median(sortedXs []float64) float64 {
	n := len(sortedXs)
	if n%2 == 1 {
		return sortedXs[n/2]
	}
	return (sortedXs[n/2-1] + sortedXs[n/2]) / 2
}
