// Package stimulus builds the spike-time trains that drive the granule-cell
// (excitatory) and interneuron (inhibitory) inputs of the network.
package stimulus

import "fmt"

// FallbackOnset is the single spike time used when a train is requested
// with no stimuli.
const FallbackOnset = 500.0

// DefaultStart is the onset of the first stimulus in ms.
const DefaultStart = 200.0

// Train is an ordered sequence of spike onset times in ms.
type Train []float64

// Excitatory returns count stimuli at start + i*interval. A count of zero or
// less yields a single spike at FallbackOnset regardless of start and
// interval.
func Excitatory(count int, interval, start float64) Train {
	if count <= 0 {
		return Train{FallbackOnset}
	}
	t := make(Train, count)
	for i := range t {
		t[i] = start + interval*float64(i)
	}
	return t
}

// Inhibitory shifts exc by delay. A negative delay places inhibition before
// excitation.
func Inhibitory(exc Train, delay float64) Train {
	t := make(Train, len(exc))
	for i, v := range exc {
		t[i] = v + delay
	}
	return t
}

// Last returns the final spike time, or 0 for an empty train.
func (t Train) Last() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1]
}

// Validate reports an error if the train goes backwards in time.
func (t Train) Validate() error {
	for i := 1; i < len(t); i++ {
		if t[i] < t[i-1] {
			return fmt.Errorf("spike %d at %v ms precedes spike %d at %v ms", i, t[i], i-1, t[i-1])
		}
	}
	return nil
}
