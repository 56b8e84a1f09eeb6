// Package sweep enumerates the parameter space of the feedforward-inhibition
// network study: the Cartesian product of seven independently configured
// axes, visited in a fixed, restartable order.
package sweep

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyAxis is returned when an axis has no values.
var ErrEmptyAxis = errors.New("sweep axis is empty")

// Axis names, in enumeration order (outermost first).
const (
	AxisFreq  = "stim_freq"
	AxisDelay = "ei_delay"
	AxisCount = "stim_count"
	AxisUe    = "ue"
	AxisAe    = "ae"
	AxisUi    = "ui"
	AxisAi    = "ai"
)

// Axis is a named ordered sequence of values for one swept quantity.
type Axis struct {
	Name   string
	Values []float64
}

// NewAxis copies values so later mutation by the caller can't leak in.
func NewAxis(name string, values ...float64) Axis {
	return Axis{Name: name, Values: append([]float64(nil), values...)}
}

// Len returns the number of values on the axis.
func (a Axis) Len() int { return len(a.Values) }

// Indices holds the position of a Combination along each axis.
type Indices struct {
	Freq, Delay, Count, Ue, Ae, Ui, Ai int
}

// Combination is one point of the parameter space. It fully determines a
// simulation run.
type Combination struct {
	Freq  float64
	Delay float64
	Count int
	Ue    float64
	Ae    float64
	Ui    float64
	Ai    float64

	Index Indices
}

// Interval returns the inter-stimulus interval in ms, rounded to 0.1 ms.
func (c Combination) Interval() float64 {
	return Interval(c.Freq)
}

// Label is the deterministic base name for the run's output files. The four
// synaptic axes contribute their index, the stimulus axes their value.
func (c Combination) Label() string {
	var b strings.Builder
	b.WriteString("neuron_")
	fmt.Fprintf(&b, "Ue_%d_Ae_%d_Ui_%d_Ai_%d", c.Index.Ue, c.Index.Ae, c.Index.Ui, c.Index.Ai)
	b.WriteString("_freq_")
	b.WriteString(FormatFloat(c.Freq))
	b.WriteString("_delay_")
	b.WriteString(FormatFloat(c.Delay))
	b.WriteString("_count_")
	b.WriteString(strconv.Itoa(c.Count))
	return b.String()
}

// Key identifies the combination in a run ledger.
func (c Combination) Key() string { return c.Label() }

// Interval converts a stimulus frequency (Hz) into an inter-stimulus
// interval in ms, rounded to one decimal place with ties to even.
func Interval(freq float64) float64 {
	return math.RoundToEven(1000/freq*10) / 10
}

// FormatFloat renders v the way the published trace files are named:
// integral values keep a trailing ".0", others use the shortest repr.
func FormatFloat(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Space is the Cartesian product of the seven sweep axes.
type Space struct {
	axes [7]Axis
	size int
}

// NewSpace builds a parameter space. Axes are given in enumeration order,
// outermost first. An empty axis is a configuration error.
func NewSpace(freq, delay, count, ue, ae, ui, ai Axis) (*Space, error) {
	s := &Space{axes: [7]Axis{freq, delay, count, ue, ae, ui, ai}, size: 1}
	for _, a := range s.axes {
		if a.Len() == 0 {
			return nil, fmt.Errorf("%s: %w", a.Name, ErrEmptyAxis)
		}
		s.size *= a.Len()
	}
	for _, v := range count.Values {
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%s: value %v is not an integer", count.Name, v)
		}
	}
	for _, v := range freq.Values {
		if v <= 0 {
			return nil, fmt.Errorf("%s: frequency must be positive, got %v", freq.Name, v)
		}
	}
	return s, nil
}

// Len returns the number of combinations, the product of all axis lengths.
func (s *Space) Len() int { return s.size }

// Axes returns the axes in enumeration order.
func (s *Space) Axes() []Axis {
	out := make([]Axis, len(s.axes))
	copy(out, s.axes[:])
	return out
}

// At returns the i-th combination. The innermost axis (Ai) varies fastest.
func (s *Space) At(i int) Combination {
	if i < 0 || i >= s.size {
		panic(fmt.Sprintf("sweep: index %d out of range [0,%d)", i, s.size))
	}

	var idx [7]int
	rem := i
	for k := len(s.axes) - 1; k >= 0; k-- {
		n := s.axes[k].Len()
		idx[k] = rem % n
		rem /= n
	}

	return Combination{
		Freq:  s.axes[0].Values[idx[0]],
		Delay: s.axes[1].Values[idx[1]],
		Count: int(s.axes[2].Values[idx[2]]),
		Ue:    s.axes[3].Values[idx[3]],
		Ae:    s.axes[4].Values[idx[4]],
		Ui:    s.axes[5].Values[idx[5]],
		Ai:    s.axes[6].Values[idx[6]],
		Index: Indices{
			Freq: idx[0], Delay: idx[1], Count: idx[2],
			Ue: idx[3], Ae: idx[4], Ui: idx[5], Ai: idx[6],
		},
	}
}

// All yields every combination with its ordinal. Each call starts over.
func (s *Space) All() iter.Seq2[int, Combination] {
	return func(yield func(int, Combination) bool) {
		for i := 0; i < s.size; i++ {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}
