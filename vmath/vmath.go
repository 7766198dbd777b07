package vmath

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
)

// TwoPi is one full rotation in radians
const TwoPi = 2 * math.Pi

// --- Angles ---

// NormalizeAngle wraps angle to [0, 2π)
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	// Mod of a tiny negative value can round up to exactly 2π
	if a >= TwoPi {
		a = 0
	}
	return a
}

// ForwardDelta returns the counter-rotation distance from 'from' to 'to'
// Result in [0, 2π)
func ForwardDelta(from, to float64) float64 {
	return NormalizeAngle(to - from)
}

// AngleDiff returns shortest signed difference between angles
// Result in [-π, π]
func AngleDiff(from, to float64) float64 {
	diff := NormalizeAngle(to) - NormalizeAngle(from)
	if diff > math.Pi {
		diff -= TwoPi
	} else if diff < -math.Pi {
		diff += TwoPi
	}
	return diff
}

// PolarToGrid converts a screen angle and radius to cell offsets from center
// Terminal cells are roughly twice as tall as wide, so x is stretched by aspect
func PolarToGrid(angle, radius, aspect float64) (int, int) {
	dx := math.Cos(angle) * radius * aspect
	dy := math.Sin(angle) * radius
	return int(math.Round(dx)), int(math.Round(dy))
}

// GridToPolar is the inverse of PolarToGrid for a cell offset from center
func GridToPolar(dx, dy int, aspect float64) (angle, radius float64) {
	fx := float64(dx) / aspect
	fy := float64(dy)
	return NormalizeAngle(math.Atan2(fy, fx)), math.Hypot(fx, fy)
}

// Clamp01 limits v to [0, 1]
func Clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// --- Randomness ---

// FastRand is a xorshift64 generator, not safe for concurrent use
type FastRand struct {
	state uint64
}

func NewFastRand(seed uint64) *FastRand {
	if seed == 0 {
		seed = 1
	}
	return &FastRand{state: seed}
}

// NewSeededFastRand seeds from crypto/rand, falling back to a fixed seed
func NewSeededFastRand() *FastRand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return NewFastRand(0x9E3779B97F4A7C15)
	}
	return NewFastRand(binary.LittleEndian.Uint64(b[:]))
}

func (r *FastRand) Next() uint64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

func (r *FastRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() % uint64(n))
}

// Float64 returns a value in [0, 1) using the top 53 bits
func (r *FastRand) Float64() float64 {
	return float64(r.Next()>>11) / (1 << 53)
}
