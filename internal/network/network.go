package network

import (
	"fmt"
	"math/rand/v2"

	"github.com/ludo67100/MFDeltaLat/internal/stimulus"
	"github.com/ludo67100/MFDeltaLat/internal/sweep"
	"gonum.org/v1/gonum/stat/distuv"
)

// Node ids follow creation order in the simulator: the population first, then
// relays, recorders, and generators. Recorder file names embed their id.
const (
	offsetParrotExc = iota + 1
	offsetParrotInh
	offsetSpikeRecorder
	offsetVoltmeter
	offsetPoisson
	offsetGamma
	offsetGenExc
	offsetGenInh
)

// Network is the complete declarative description of one simulation run.
type Network struct {
	Label string

	Neuron    NeuronParams
	InitialVm []float64

	ExcTrain stimulus.Train
	InhTrain stimulus.Train

	Noise      NoiseParams
	Background StaticSynapse

	ExcSynapse TsodyksParams
	InhSynapse TsodyksParams

	// InhWeightOverride replaces the inhibitory relay's outgoing weights
	// after wiring, before the run starts.
	InhWeightOverride float64

	// Duration is the simulated time in ms.
	Duration float64
}

// Build describes the network for combination c. src seeds the initial
// membrane potentials; pass a fixed source for reproducible runs.
func Build(c sweep.Combination, p Params, src rand.Source) (*Network, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network params: %w", err)
	}
	if c.Ue == 0 || c.Ui == 0 {
		return nil, fmt.Errorf("%s: release probability must be non-zero (Ue=%v, Ui=%v)", c.Label(), c.Ue, c.Ui)
	}

	exc := stimulus.Excitatory(c.Count, c.Interval(), p.StimStart)
	inh := stimulus.Inhibitory(exc, c.Delay)

	vm := distuv.Uniform{Min: p.VmInitMin, Max: p.VmInitMax, Src: src}
	initial := make([]float64, p.Trials)
	for i := range initial {
		initial[i] = vm.Rand()
	}

	inhWeight := -c.Ai / c.Ui

	return &Network{
		Label:     c.Label(),
		Neuron:    p.Neuron,
		InitialVm: initial,
		ExcTrain:  exc,
		InhTrain:  inh,
		Noise:     p.Noise,
		Background: StaticSynapse{
			Weight: p.BackgroundWeight,
			Delay:  1.0,
		},
		ExcSynapse: TsodyksParams{
			SynapseTiming: p.Exc,
			U:             c.Ue,
			Delay:         0.1,
			Weight:        c.Ae / c.Ue,
			InitU:         0,
			InitX:         1,
		},
		InhSynapse: TsodyksParams{
			SynapseTiming: p.Inh,
			U:             c.Ui,
			Delay:         0.1,
			Weight:        inhWeight,
			InitU:         0,
			InitX:         1,
		},
		InhWeightOverride: inhWeight * p.InhWeightBoost,
		Duration:          inh.Last() + p.Tail,
	}, nil
}

// Trials is the population size; each neuron is one trial.
func (n *Network) Trials() int { return len(n.InitialVm) }

// SpikeRecorderID is the simulator id of the spike recorder.
func (n *Network) SpikeRecorderID() int { return n.Trials() + offsetSpikeRecorder }

// VoltmeterID is the simulator id of the voltmeter.
func (n *Network) VoltmeterID() int { return n.Trials() + offsetVoltmeter }

// SpikeFile is the name of the spike-time artifact written by the simulator.
func (n *Network) SpikeFile() string {
	return spikeFile(n.Label, n.SpikeRecorderID())
}

// VoltageFile is the name of the membrane-voltage artifact.
func (n *Network) VoltageFile() string {
	return fmt.Sprintf("%s-%d-0.dat", n.Label, n.VoltmeterID())
}

// SpikeFileName computes the spike artifact name without building the
// network, so a sweep can test for it before doing any work.
func SpikeFileName(label string, trials int) string {
	return spikeFile(label, trials+offsetSpikeRecorder)
}

func spikeFile(label string, recorderID int) string {
	return fmt.Sprintf("%s-%d-0.gdf", label, recorderID)
}
