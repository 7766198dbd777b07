package vmath

import (
	"math"
	"testing"
)

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"full turn", TwoPi, 0},
		{"negative quarter", -math.Pi / 2, 3 * math.Pi / 2},
		{"many turns", 7*TwoPi + 1, 1},
		{"tiny negative", -1e-18, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAngle(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got < 0 || got >= TwoPi {
				t.Errorf("NormalizeAngle(%v) = %v out of [0, 2π)", tt.in, got)
			}
		})
	}
}

func TestAngleDiff(t *testing.T) {
	if d := AngleDiff(0.1, TwoPi-0.1); math.Abs(d+0.2) > 1e-9 {
		t.Errorf("Expected -0.2, got %v", d)
	}
	if d := ForwardDelta(TwoPi-0.1, 0.1); math.Abs(d-0.2) > 1e-9 {
		t.Errorf("Expected forward delta 0.2, got %v", d)
	}
}

func TestEaseOutCubicShape(t *testing.T) {
	for _, ease := range []EasingFunc{EaseOutCubic, EaseOutQuart} {
		if ease(0) != 0 {
			t.Errorf("Expected ease(0) = 0, got %v", ease(0))
		}
		if ease(1) != 1 {
			t.Errorf("Expected ease(1) = 1 exactly, got %v", ease(1))
		}
		if ease(-1) != 0 || ease(2) != 1 {
			t.Error("Expected progress to clamp to [0, 1]")
		}

		prev := ease(0)
		for i := 1; i <= 1000; i++ {
			cur := ease(float64(i) / 1000)
			if cur <= prev {
				t.Fatalf("Expected strictly increasing curve at step %d: %v <= %v", i, cur, prev)
			}
			prev = cur
		}

		// Slope near the end approaches zero
		h := 1e-4
		slope := (ease(1) - ease(1-h)) / h
		if slope > 1e-3 {
			t.Errorf("Expected vanishing slope near 1, got %v", slope)
		}
	}
}

func TestPolarGridRoundTrip(t *testing.T) {
	dx, dy := PolarToGrid(math.Pi/2, 10, 2)
	if dx != 0 || dy != 10 {
		t.Errorf("Expected (0,10) straight down, got (%d,%d)", dx, dy)
	}
	angle, radius := GridToPolar(20, 0, 2)
	if angle != 0 || math.Abs(radius-10) > 1e-9 {
		t.Errorf("Expected angle 0 radius 10, got %v %v", angle, radius)
	}
}

func TestFastRandFloat64Range(t *testing.T) {
	r := NewFastRand(42)
	for i := 0; i < 10000; i++ {
		f := r.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
	}
	if NewFastRand(0).Next() == 0 {
		t.Error("Expected zero seed to be replaced")
	}
}
