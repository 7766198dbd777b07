package spin

import (
	"context"
	"math"
	"time"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/vmath"
	"github.com/lixenwraith/guild-wheel/wheel"
)

// minLandingMargin keeps the landing angle clear of float drift in the
// final rotation even when no epsilon is configured
const minLandingMargin = 1e-6

// RandSource is the randomness used for landing angle and turn count
// vmath.FastRand satisfies it
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// Session is the ephemeral state of one spin
// The candidate set and layout are frozen at creation; target and final
// rotation are computed once when the winner arrives and never again
type Session struct {
	id       uint64
	state    State
	criteria authority.Criteria
	layout   wheel.Layout

	result    authority.Result
	winnerIdx int

	target        float64
	startRotation float64
	finalRotation float64
	turns         int

	start    time.Time
	duration time.Duration
	easing   vmath.EasingFunc

	cancel context.CancelFunc
}

func (s *Session) ID() uint64                   { return s.id }
func (s *Session) State() State                 { return s.state }
func (s *Session) Criteria() authority.Criteria { return s.criteria }
func (s *Session) Layout() wheel.Layout         { return s.layout }
func (s *Session) WinnerIndex() int             { return s.winnerIdx }
func (s *Session) Target() float64              { return s.target }
func (s *Session) StartRotation() float64       { return s.startRotation }
func (s *Session) FinalRotation() float64       { return s.finalRotation }
func (s *Session) Turns() int                   { return s.turns }
func (s *Session) Duration() time.Duration      { return s.duration }
func (s *Session) StartedAt() time.Time         { return s.start }

// Advance returns the rotation for elapsed time since the animation started
// Pure with respect to the session: the same elapsed always yields the same angle
// At full progress it returns exactly FinalRotation
func (s *Session) Advance(elapsed time.Duration) (rotation float64, done bool) {
	progress := 1.0
	if s.duration > 0 {
		progress = vmath.Clamp01(float64(elapsed) / float64(s.duration))
	}
	if progress >= 1 {
		return s.finalRotation, true
	}
	return vmath.Lerp(s.startRotation, s.finalRotation, s.easing(progress)), false
}

// PlanLanding picks a landing angle strictly inside segment index and the
// final rotation that brings it under the pointer after 'turns' full turns
//
// The landing angle is uniform over the segment shrunk by epsilon on both
// sides (capped at a quarter of the segment width) so it never sits on a
// boundary. Rotation convention: the wheel-local angle under the pointer
// equals rotation modulo 2π.
func PlanLanding(layout wheel.Layout, index int, startRotation float64, turns int, epsilon float64, rnd RandSource) (target, final float64) {
	start, end := layout.Range(index)
	width := end - start
	margin := math.Min(math.Max(epsilon, minLandingMargin), width/4)

	target = start + margin + rnd.Float64()*(width-2*margin)
	if layout.AngleToIndex(target) != index {
		target = layout.Segment(index).Mid
	}
	target = vmath.NormalizeAngle(target)

	final = startRotation + float64(turns)*vmath.TwoPi + vmath.ForwardDelta(startRotation, target)
	return target, final
}
