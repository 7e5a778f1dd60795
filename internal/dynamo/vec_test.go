package dynamo

import (
	"math"
	"testing"
)

func TestVecArithmetic(t *testing.T) {
	a := V(1, 2, 3)
	b := V(4, 5, 6)

	if got := Add(a, b); got != V(5, 7, 9) {
		t.Errorf("Add failed: got %v", got)
	}
	if got := Sub(b, a); got != V(3, 3, 3) {
		t.Errorf("Sub failed: got %v", got)
	}
	if got := Scale(2, a); got != V(2, 4, 6) {
		t.Errorf("Scale failed: got %v", got)
	}
	if got := Dot(a, b); got != 32 {
		t.Errorf("Dot failed: got %v", got)
	}
}

func TestVecLength(t *testing.T) {
	tests := []struct {
		v        Vec3
		expected float64
	}{
		{V(3, 4, 0), 5},
		{V(0, 0, 0), 0},
		{V(1, 2, 2), 3},
	}

	for _, tt := range tests {
		if got := Length(tt.v); math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("Length(%v) = %v, want %v", tt.v, got, tt.expected)
		}
	}

	if d := Distance(V(1, 1, 1), V(1, 4, 5)); math.Abs(d-5) > 1e-12 {
		t.Errorf("Distance = %v, want 5", d)
	}
}

func TestNormalize(t *testing.T) {
	n := Normalize(V(0, 0, 2))
	if n != V(0, 0, 1) {
		t.Errorf("Normalize = %v", n)
	}

	if z := Normalize(Vec3{}); z != (Vec3{}) {
		t.Errorf("zero vector should normalize to zero, got %v", z)
	}
}

func TestHasNaN(t *testing.T) {
	tests := []struct {
		name string
		v    Vec3
		bad  bool
	}{
		{"finite", V(1, 2, 3), false},
		{"nan", V(math.NaN(), 0, 0), true},
		{"+inf", V(0, math.Inf(1), 0), true},
		{"-inf", V(0, 0, math.Inf(-1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasNaN(tt.v); got != tt.bad {
				t.Errorf("HasNaN() = %v, want %v", got, tt.bad)
			}
		})
	}
}
