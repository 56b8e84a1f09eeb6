package stimulus

import (
	"math"
	"testing"
)

func TestExcitatory(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		interval float64
		start    float64
	}{
		{"single", 1, 100, 200},
		{"five at 10Hz", 5, 100, 200},
		{"seven at 175Hz", 7, 5.7, 200},
		{"offset start", 3, 33.3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Excitatory(tt.count, tt.interval, tt.start)
			if len(got) != tt.count {
				t.Fatalf("len = %d, want %d", len(got), tt.count)
			}
			for i, v := range got {
				want := tt.start + float64(i)*tt.interval
				if v != want {
					t.Errorf("spike %d = %v, want %v", i, v, want)
				}
				if i > 0 && v <= got[i-1] {
					t.Errorf("spike %d = %v not strictly after %v", i, v, got[i-1])
				}
			}
		})
	}
}

func TestExcitatory_Fallback(t *testing.T) {
	for _, count := range []int{0, -1, -7} {
		got := Excitatory(count, 12.5, 42)
		if len(got) != 1 || got[0] != FallbackOnset {
			t.Errorf("Excitatory(%d) = %v, want [%v]", count, got, FallbackOnset)
		}
	}
}

func TestInhibitory(t *testing.T) {
	exc := Excitatory(5, 100, DefaultStart)
	for _, delay := range []float64{-5, -1, 0, 2.5, 6} {
		inh := Inhibitory(exc, delay)
		if len(inh) != len(exc) {
			t.Fatalf("delay %v: len = %d, want %d", delay, len(inh), len(exc))
		}
		for i := range exc {
			if math.Abs(inh[i]-exc[i]-delay) > 1e-12 {
				t.Errorf("delay %v: inh[%d]-exc[%d] = %v", delay, i, i, inh[i]-exc[i])
			}
		}
		if err := inh.Validate(); err != nil {
			t.Errorf("delay %v: Validate() = %v", delay, err)
		}
	}
}

func TestInhibitory_DoesNotAlias(t *testing.T) {
	exc := Excitatory(2, 10, 0)
	inh := Inhibitory(exc, 1)
	inh[0] = 99
	if exc[0] != 0 {
		t.Errorf("Inhibitory() aliased its input: exc = %v", exc)
	}
}

func TestTrain_Last(t *testing.T) {
	if got := (Train{}).Last(); got != 0 {
		t.Errorf("empty Last() = %v, want 0", got)
	}
	if got := Excitatory(5, 100, 200).Last(); got != 600 {
		t.Errorf("Last() = %v, want 600", got)
	}
}

func TestTrain_Validate(t *testing.T) {
	if err := (Train{1, 1, 2}).Validate(); err != nil {
		t.Errorf("non-decreasing train: Validate() = %v", err)
	}
	if err := (Train{1, 3, 2}).Validate(); err == nil {
		t.Error("decreasing train: Validate() = nil, want error")
	}
}
