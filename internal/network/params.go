// Package network describes the feedforward-inhibition model: a population
// of conductance-based integrate-and-fire neurons, one per trial, driven by
// relayed granule-cell and interneuron stimulus trains through short-term
// plastic synapses, on top of Poisson and sinusoidal gamma background noise.
//
// The description is declarative. Integration is left to the simulator
// backend in package simulator.
package network

import "fmt"

// NeuronParams are the iaf_cond_alpha parameters of each population neuron.
type NeuronParams struct {
	VTh      float64 `json:"V_th" yaml:"v_th"`
	VReset   float64 `json:"V_reset" yaml:"v_reset"`
	TRef     float64 `json:"t_ref" yaml:"t_ref"`
	GL       float64 `json:"g_L" yaml:"g_l"`
	Cm       float64 `json:"C_m" yaml:"c_m"`
	EEx      float64 `json:"E_ex" yaml:"e_ex"`
	EIn      float64 `json:"E_in" yaml:"e_in"`
	TauSynEx float64 `json:"tau_syn_ex" yaml:"tau_syn_ex"`
	TauSynIn float64 `json:"tau_syn_in" yaml:"tau_syn_in"`
	EL       float64 `json:"E_L" yaml:"e_l"`
}

func (np *NeuronParams) Defaults() {
	np.VTh = -55
	np.VReset = -70
	np.TRef = 2
	np.GL = 13.5
	np.Cm = 250
	np.EEx = 0
	np.EIn = -80
	np.TauSynEx = 1
	np.TauSynIn = 5
	np.EL = -70
}

// SynapseTiming holds the fixed time constants of a Tsodyks-Markram synapse.
// U and the weight are swept and live on the Combination.
type SynapseTiming struct {
	TauPsc float64 `json:"tau_psc" yaml:"tau_psc"`
	TauRec float64 `json:"tau_rec" yaml:"tau_rec"`
	TauFac float64 `json:"tau_fac" yaml:"tau_fac"`
}

// TsodyksParams is a full tsodyks_synapse parameter set.
type TsodyksParams struct {
	SynapseTiming
	U      float64 `json:"U"`
	Delay  float64 `json:"delay"`
	Weight float64 `json:"weight"`
	// u and x are the initial utilisation and available resources.
	InitU float64 `json:"u"`
	InitX float64 `json:"x"`
}

// StaticSynapse is a fixed-weight connection.
type StaticSynapse struct {
	Weight float64 `json:"weight"`
	Delay  float64 `json:"delay"`
}

// NoiseParams configure the background drive that keeps the neurons firing
// like Purkinje cells.
type NoiseParams struct {
	// PoissonRate is the poisson_generator rate in Hz.
	PoissonRate float64 `json:"poisson_rate" yaml:"poisson_rate"`
	// GammaRate, GammaAmplitude and GammaFreq configure the
	// sinusoidal_gamma_generator (mean rate, modulation depth, modulation
	// frequency). Phase and order are fixed.
	GammaRate      float64 `json:"gamma_rate" yaml:"gamma_rate"`
	GammaAmplitude float64 `json:"gamma_ac" yaml:"gamma_ac"`
	GammaFreq      float64 `json:"gamma_freq" yaml:"gamma_freq"`
	GammaPhase     float64 `json:"gamma_phase" yaml:"gamma_phase"`
	GammaOrder     float64 `json:"gamma_order" yaml:"gamma_order"`
}

func (np *NoiseParams) Defaults() {
	np.PoissonRate = 900
	np.GammaRate = 2000
	np.GammaAmplitude = 10
	np.GammaFreq = 157
	np.GammaPhase = 0
	np.GammaOrder = 4
}

// Params are the fixed (non-swept) parameters of a run.
type Params struct {
	Trials    int     `json:"trials" yaml:"trials"`
	StimStart float64 `json:"stim_start" yaml:"stim_start"`

	Neuron NeuronParams `json:"neuron" yaml:"neuron"`
	Noise  NoiseParams  `json:"noise" yaml:"noise"`

	Exc SynapseTiming `json:"exc_synapse" yaml:"exc_synapse"`
	Inh SynapseTiming `json:"inh_synapse" yaml:"inh_synapse"`

	// BackgroundWeight is the static weight of the noise connections.
	BackgroundWeight float64 `json:"background_weight" yaml:"background_weight"`
	// InhWeightBoost scales the inhibitory relay's outgoing weights once the
	// network is wired.
	InhWeightBoost float64 `json:"inh_weight_boost" yaml:"inh_weight_boost"`

	// VmInitMin and VmInitMax bound the uniform initial membrane potential.
	VmInitMin float64 `json:"vm_init_min" yaml:"vm_init_min"`
	VmInitMax float64 `json:"vm_init_max" yaml:"vm_init_max"`

	// Tail is simulated past the last inhibitory spike, in ms.
	Tail float64 `json:"tail" yaml:"tail"`
}

// Defaults sets the published model parameters.
func (p *Params) Defaults() {
	p.Trials = 200
	p.StimStart = 200
	p.Neuron.Defaults()
	p.Noise.Defaults()
	p.Exc = SynapseTiming{TauPsc: 1.5, TauRec: 30, TauFac: 500}
	p.Inh = SynapseTiming{TauPsc: 1.5, TauRec: 100, TauFac: 800}
	p.BackgroundWeight = 0.5
	p.InhWeightBoost = 1.5
	p.VmInitMin = -70
	p.VmInitMax = -58
	p.Tail = 300
}

// Validate checks the parameters can describe a runnable network.
func (p *Params) Validate() error {
	if p.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", p.Trials)
	}
	if p.VmInitMax <= p.VmInitMin {
		return fmt.Errorf("vm_init_max (%v) must exceed vm_init_min (%v)", p.VmInitMax, p.VmInitMin)
	}
	if p.Neuron.Cm <= 0 {
		return fmt.Errorf("neuron C_m must be positive, got %v", p.Neuron.Cm)
	}
	if p.Tail < 0 {
		return fmt.Errorf("tail must be non-negative, got %v", p.Tail)
	}
	return nil
}
