package simulator

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/ludo67100/MFDeltaLat/internal/network"
)

// scriptTemplate targets the PyNEST 2.x API (spike_detector, syn_spec
// 'model' key, to_file recording). Creation order fixes the node ids that
// network.Network uses to name its artifacts.
var scriptTemplate = template.Must(template.New("nest").Parse(`# generated by ffi; one run of {{.Label}}
import nest

nest.set_verbosity('M_WARNING')
nest.ResetKernel()
nest.SetKernelStatus({{.Kernel}})

pur = nest.Create('iaf_cond_alpha', {{.Trials}}, {{.Neuron}})
nest.SetStatus(pur, [{'V_m': v} for v in {{.InitialVm}}])

parrot_ex = nest.Create('parrot_neuron', 1)
parrot_in = nest.Create('parrot_neuron', 1)

sd = nest.Create('spike_detector', 1)
nest.SetStatus(sd, {{.SpikeRecorder}})
vm = nest.Create('voltmeter', 1)
nest.SetStatus(vm, {{.Voltmeter}})

poi = nest.Create('poisson_generator', 1, {{.Poisson}})
gamma_stim = nest.Create('sinusoidal_gamma_generator', 1, {{.Gamma}})

gex = nest.Create('spike_generator', 1, {'spike_times': {{.ExcTrain}}})
gin = nest.Create('spike_generator', 1, {'spike_times': {{.InhTrain}}})

nest.Connect(gex, parrot_ex)
nest.Connect(gin, parrot_in)

nest.CopyModel('tsodyks_synapse', 'syn_exc', {{.ExcSynapse}})
nest.CopyModel('tsodyks_synapse', 'syn_inh', {{.InhSynapse}})
nest.CopyModel('static_synapse', 'syn_static', {{.Static}})

nest.Connect(parrot_ex, pur, syn_spec={'model': 'syn_exc'})
nest.Connect(parrot_in, pur, syn_spec={'model': 'syn_inh'})
nest.Connect(gamma_stim, pur, syn_spec={'model': 'syn_static'})
nest.Connect(poi, pur, syn_spec={'model': 'syn_static'})

nest.Connect(pur, sd)
nest.Connect(vm, pur)

nest.SetStatus(nest.GetConnections(parrot_in), {'weight': {{.InhOverride}}})
nest.Simulate({{.Duration}})
`))

// ScriptOptions are kernel-level settings rendered into every script.
type ScriptOptions struct {
	// DataPath is where the simulator writes its trace files.
	DataPath string
	// Seed seeds the simulator's noise generators; 0 leaves NEST's default.
	Seed uint64
}

type scriptData struct {
	Label         string
	Kernel        string
	Trials        int
	Neuron        string
	InitialVm     string
	SpikeRecorder string
	Voltmeter     string
	Poisson       string
	Gamma         string
	ExcTrain      string
	InhTrain      string
	ExcSynapse    string
	InhSynapse    string
	Static        string
	InhOverride   string
	Duration      string
}

// RenderScript writes the PyNEST program that simulates n.
func RenderScript(w io.Writer, n *network.Network, opts ScriptOptions) error {
	if n.Trials() == 0 {
		return fmt.Errorf("network %s has no neurons", n.Label)
	}
	if err := n.ExcTrain.Validate(); err != nil {
		return fmt.Errorf("excitatory train: %w", err)
	}
	if err := n.InhTrain.Validate(); err != nil {
		return fmt.Errorf("inhibitory train: %w", err)
	}

	kernel := pyDict{{"data_path", pyString(opts.DataPath)}, {"overwrite_files", "True"}}
	if opts.Seed != 0 {
		kernel = append(kernel,
			pyItem{"grng_seed", strconv.FormatUint(opts.Seed, 10)},
			pyItem{"rng_seeds", "[" + strconv.FormatUint(opts.Seed+1, 10) + "]"},
		)
	}

	np := n.Neuron
	data := scriptData{
		Label:  n.Label,
		Kernel: kernel.String(),
		Trials: n.Trials(),
		Neuron: pyDict{
			{"V_th", pyFloat(np.VTh)},
			{"V_reset", pyFloat(np.VReset)},
			{"t_ref", pyFloat(np.TRef)},
			{"g_L", pyFloat(np.GL)},
			{"C_m", pyFloat(np.Cm)},
			{"E_ex", pyFloat(np.EEx)},
			{"E_in", pyFloat(np.EIn)},
			{"tau_syn_ex", pyFloat(np.TauSynEx)},
			{"tau_syn_in", pyFloat(np.TauSynIn)},
			{"E_L", pyFloat(np.EL)},
		}.String(),
		InitialVm: pyList(n.InitialVm),
		SpikeRecorder: pyDict{
			{"label", pyString(n.Label)},
			{"to_file", "True"},
			{"to_memory", "False"},
		}.String(),
		Voltmeter: pyDict{
			{"label", pyString(n.Label)},
			{"to_file", "True"},
			{"to_memory", "False"},
			{"withtime", "True"},
		}.String(),
		Poisson: pyDict{{"rate", pyFloat(n.Noise.PoissonRate)}}.String(),
		Gamma: pyDict{
			{"rate", pyFloat(n.Noise.GammaRate)},
			{"amplitude", pyFloat(n.Noise.GammaAmplitude)},
			{"frequency", pyFloat(n.Noise.GammaFreq)},
			{"phase", pyFloat(n.Noise.GammaPhase)},
			{"order", pyFloat(n.Noise.GammaOrder)},
		}.String(),
		ExcTrain:    pyList(n.ExcTrain),
		InhTrain:    pyList(n.InhTrain),
		ExcSynapse:  tsodyksDict(n.ExcSynapse).String(),
		InhSynapse:  tsodyksDict(n.InhSynapse).String(),
		Static:      pyDict{{"weight", pyFloat(n.Background.Weight)}, {"delay", pyFloat(n.Background.Delay)}}.String(),
		InhOverride: pyFloat(n.InhWeightOverride),
		Duration:    pyFloat(n.Duration),
	}

	return scriptTemplate.Execute(w, data)
}

// Script renders n into a string.
func Script(n *network.Network, opts ScriptOptions) (string, error) {
	var buf bytes.Buffer
	if err := RenderScript(&buf, n, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func tsodyksDict(s network.TsodyksParams) pyDict {
	return pyDict{
		{"tau_psc", pyFloat(s.TauPsc)},
		{"tau_rec", pyFloat(s.TauRec)},
		{"tau_fac", pyFloat(s.TauFac)},
		{"U", pyFloat(s.U)},
		{"delay", pyFloat(s.Delay)},
		{"weight", pyFloat(s.Weight)},
		{"u", pyFloat(s.InitU)},
		{"x", pyFloat(s.InitX)},
	}
}

type pyItem struct {
	key   string
	value string
}

// pyDict renders as a Python dict literal, keys in insertion order.
type pyDict []pyItem

func (d pyDict) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, it := range d {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pyString(it.key))
		b.WriteString(": ")
		b.WriteString(it.value)
	}
	b.WriteByte('}')
	return b.String()
}

func pyFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "float('nan')"
	case math.IsInf(v, 1):
		return "float('inf')"
	case math.IsInf(v, -1):
		return "float('-inf')"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func pyList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = pyFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func pyString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}
