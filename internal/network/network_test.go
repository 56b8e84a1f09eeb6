package network

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/ludo67100/MFDeltaLat/internal/stimulus"
	"github.com/ludo67100/MFDeltaLat/internal/sweep"
)

func singleCase() sweep.Combination {
	return sweep.Combination{Freq: 10, Delay: 0, Count: 5, Ue: 0.03, Ae: 2.0, Ui: 0.3, Ai: 1.5}
}

func defaultParams() Params {
	var p Params
	p.Defaults()
	return p
}

func TestParamsDefaults(t *testing.T) {
	p := defaultParams()
	if p.Trials != 200 {
		t.Errorf("Trials = %d, want 200", p.Trials)
	}
	if p.Neuron.VTh != -55 || p.Neuron.GL != 13.5 || p.Neuron.Cm != 250 {
		t.Errorf("Neuron = %+v, want published iaf_cond_alpha params", p.Neuron)
	}
	if p.Exc.TauFac != 500 || p.Inh.TauFac != 800 {
		t.Errorf("TauFac exc/inh = %v/%v, want 500/800", p.Exc.TauFac, p.Inh.TauFac)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero trials", func(p *Params) { p.Trials = 0 }},
		{"inverted vm range", func(p *Params) { p.VmInitMin, p.VmInitMax = -58, -70 }},
		{"zero capacitance", func(p *Params) { p.Neuron.Cm = 0 }},
		{"negative tail", func(p *Params) { p.Tail = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestBuild(t *testing.T) {
	p := defaultParams()
	c := singleCase()

	n, err := Build(c, p, rand.NewPCG(1, 2))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if n.Label != c.Label() {
		t.Errorf("Label = %q, want %q", n.Label, c.Label())
	}
	if n.Trials() != 200 {
		t.Errorf("Trials() = %d, want 200", n.Trials())
	}

	wantExc := stimulus.Train{200, 300, 400, 500, 600}
	for i, v := range wantExc {
		if n.ExcTrain[i] != v || n.InhTrain[i] != v {
			t.Errorf("spike %d: exc=%v inh=%v, want %v", i, n.ExcTrain[i], n.InhTrain[i], v)
		}
	}

	if n.Duration != 900 {
		t.Errorf("Duration = %v, want 900", n.Duration)
	}

	if math.Abs(n.ExcSynapse.Weight-2.0/0.03) > 1e-9 {
		t.Errorf("exc weight = %v, want %v", n.ExcSynapse.Weight, 2.0/0.03)
	}
	if n.ExcSynapse.U != 0.03 || n.ExcSynapse.TauRec != 30 || n.ExcSynapse.InitX != 1 {
		t.Errorf("ExcSynapse = %+v", n.ExcSynapse)
	}
	if math.Abs(n.InhSynapse.Weight-(-5.0)) > 1e-9 {
		t.Errorf("inh weight = %v, want -5", n.InhSynapse.Weight)
	}
	if math.Abs(n.InhWeightOverride-(-7.5)) > 1e-9 {
		t.Errorf("InhWeightOverride = %v, want -7.5", n.InhWeightOverride)
	}
	if n.Background.Weight != 0.5 || n.Background.Delay != 1 {
		t.Errorf("Background = %+v, want {0.5 1}", n.Background)
	}
}

func TestBuild_InitialVmRange(t *testing.T) {
	p := defaultParams()
	n, err := Build(singleCase(), p, rand.NewPCG(7, 7))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	distinct := make(map[float64]bool)
	for i, v := range n.InitialVm {
		if v < p.VmInitMin || v >= p.VmInitMax {
			t.Errorf("InitialVm[%d] = %v outside [%v,%v)", i, v, p.VmInitMin, p.VmInitMax)
		}
		distinct[v] = true
	}
	if len(distinct) < len(n.InitialVm)/2 {
		t.Errorf("only %d distinct initial potentials out of %d", len(distinct), len(n.InitialVm))
	}
}

func TestBuild_SeedIsReproducible(t *testing.T) {
	p := defaultParams()
	a, _ := Build(singleCase(), p, rand.NewPCG(3, 4))
	b, _ := Build(singleCase(), p, rand.NewPCG(3, 4))
	for i := range a.InitialVm {
		if a.InitialVm[i] != b.InitialVm[i] {
			t.Fatalf("InitialVm[%d] differs: %v vs %v", i, a.InitialVm[i], b.InitialVm[i])
		}
	}
}

func TestBuild_NegativeDelayAndFallback(t *testing.T) {
	p := defaultParams()
	c := singleCase()
	c.Delay = -5
	c.Count = 0

	n, err := Build(c, p, rand.NewPCG(1, 1))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(n.ExcTrain) != 1 || n.ExcTrain[0] != stimulus.FallbackOnset {
		t.Errorf("ExcTrain = %v, want [%v]", n.ExcTrain, stimulus.FallbackOnset)
	}
	if n.InhTrain[0] != stimulus.FallbackOnset-5 {
		t.Errorf("InhTrain = %v, want [%v]", n.InhTrain, stimulus.FallbackOnset-5)
	}
	if n.Duration != stimulus.FallbackOnset-5+300 {
		t.Errorf("Duration = %v, want %v", n.Duration, stimulus.FallbackOnset-5+300)
	}
}

func TestBuild_Errors(t *testing.T) {
	p := defaultParams()
	c := singleCase()
	c.Ue = 0
	if _, err := Build(c, p, rand.NewPCG(1, 1)); err == nil {
		t.Error("Build() with Ue=0: error = nil, want error")
	}

	p.Trials = 0
	if _, err := Build(singleCase(), p, rand.NewPCG(1, 1)); err == nil {
		t.Error("Build() with zero trials: error = nil, want error")
	}
}

func TestArtifactNames(t *testing.T) {
	p := defaultParams()
	p.Trials = 100
	n, err := Build(singleCase(), p, rand.NewPCG(1, 1))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := n.SpikeRecorderID(); got != 103 {
		t.Errorf("SpikeRecorderID() = %d, want 103", got)
	}
	if got := n.VoltmeterID(); got != 104 {
		t.Errorf("VoltmeterID() = %d, want 104", got)
	}

	wantSpike := n.Label + "-103-0.gdf"
	if got := n.SpikeFile(); got != wantSpike {
		t.Errorf("SpikeFile() = %q, want %q", got, wantSpike)
	}
	if got := SpikeFileName(n.Label, 100); got != wantSpike {
		t.Errorf("SpikeFileName() = %q, want %q", got, wantSpike)
	}
	if got, want := n.VoltageFile(), n.Label+"-104-0.dat"; got != want {
		t.Errorf("VoltageFile() = %q, want %q", got, want)
	}
}
