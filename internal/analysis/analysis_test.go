package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestPowerOfTwo(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0}, {1, 1}, {3, 2}, {4, 4}, {1000, 512}, {1024, 1024},
	}
	for _, tt := range tests {
		if got := PowerOfTwo(tt.n); got != tt.want {
			t.Errorf("PowerOfTwo(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	const freq = 2.5
	data := make([]float64, 1100)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*freq*float64(i)*dt)
	}

	got, err := DominantFrequency(data, dt)
	if err != nil {
		t.Fatal(err)
	}
	// 1024 samples at 100 Hz give a bin width of ~0.098 Hz.
	if math.Abs(got-freq) > 0.1 {
		t.Errorf("dominant frequency = %v, want ~%v", got, freq)
	}
}

func TestPowerSpectrumRemovesMean(t *testing.T) {
	data := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	spec, err := PowerSpectrum(data, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Power) != 5 {
		t.Fatalf("expected 5 bins, got %d", len(spec.Power))
	}
	for i, p := range spec.Power {
		if p > 1e-20 {
			t.Errorf("bin %d has power %v for a constant signal", i, p)
		}
	}
	if spec.Freqs[4] != 0.5 {
		t.Errorf("nyquist = %v, want 0.5", spec.Freqs[4])
	}
}

func TestTooShort(t *testing.T) {
	if _, err := PowerSpectrum([]float64{1, 2, 3}, 1); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
}

func TestPhasePortrait(t *testing.T) {
	var pos, vel []float64
	for i := 0; i < 200; i++ {
		th := 2 * math.Pi * float64(i) / 200
		pos = append(pos, math.Cos(th))
		vel = append(vel, -math.Sin(th))
	}
	vel = append(vel, 99)

	p := NewPhasePortrait(pos, vel)
	if len(p.Points) != 200 {
		t.Fatalf("expected 200 points, got %d", len(p.Points))
	}

	out := p.ASCII(40, 20)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 20 {
		t.Errorf("expected 20 rows, got %d", len(lines))
	}
	if !strings.Contains(out, "•") || !strings.Contains(out, "┼") {
		t.Error("expected points and crossing axes")
	}

	if (*PhasePortrait)(nil).ASCII(10, 10) != "" {
		t.Error("nil portrait should render empty")
	}
}
