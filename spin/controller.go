package spin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/constants"
	"github.com/lixenwraith/guild-wheel/vmath"
	"github.com/lixenwraith/guild-wheel/wheel"
)

// Picker is the slice of the authority the controller calls during a spin
type Picker interface {
	PickWinner(ctx context.Context, c authority.Criteria) (authority.Result, error)
}

// Listener receives the outcome of each spin
// SpinResolved fires exactly once per successful spin, SpinAborted at most
// once per failed spin; never both for the same spin
type Listener interface {
	SpinResolved(result authority.Result)
	SpinAborted(kind ErrorKind, err error)
}

// Renderer draws the wheel; called once per tick with everything it needs
// highlight is the winning segment index after resolution, -1 otherwise
type Renderer interface {
	Render(layout wheel.Layout, rotation float64, highlight int)
}

// Options tune the animation; zero values fall back to defaults
type Options struct {
	Duration        time.Duration
	MinTurns        int
	MaxTurns        int
	ZeroOffset      float64
	BoundaryEpsilon float64
	Easing          vmath.EasingFunc
	Rand            RandSource
	Logger          *slog.Logger

	// Dispatch runs the authority call; defaults to a new goroutine
	Dispatch func(func())

	// OnTransition observes every state change
	OnTransition func(from, to State, session uint64)
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = constants.DefaultSpinDuration
	}
	if o.MinTurns < constants.MinTurnsFloor {
		o.MinTurns = constants.DefaultMinTurns
	}
	if o.MaxTurns < o.MinTurns {
		o.MaxTurns = max(constants.DefaultMaxTurns, o.MinTurns)
	}
	if o.BoundaryEpsilon <= 0 {
		o.BoundaryEpsilon = constants.DefaultBoundaryEpsilon
	}
	if o.Easing == nil {
		o.Easing = vmath.EaseOutCubic
	}
	if o.Rand == nil {
		o.Rand = vmath.NewSeededFastRand()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Dispatch == nil {
		o.Dispatch = func(fn func()) { go fn() }
	}
	return o
}

// response carries an authority answer back to the frame loop
type response struct {
	session uint64
	result  authority.Result
	err     error
}

// Controller owns the spin lifecycle
//
// Single mutator: Spin, Tick, SetCandidates and Teardown must all be called
// from the host's frame loop. The authority call runs elsewhere and only
// hands its answer over through a channel that Tick drains.
type Controller struct {
	picker   Picker
	listener Listener
	renderer Renderer
	opts     Options
	log      *slog.Logger

	live       wheel.CandidateSet
	liveLayout wheel.Layout
	pending    *wheel.CandidateSet

	state     State
	session   *Session
	nextID    uint64
	rotation  float64
	highlight int

	responses chan response
	done      chan struct{}
	torndown  bool
}

// NewController creates an idle controller with an empty wheel
func NewController(picker Picker, listener Listener, renderer Renderer, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		picker:     picker,
		listener:   listener,
		renderer:   renderer,
		opts:       opts,
		log:        opts.Logger.With("component", "spin"),
		liveLayout: wheel.NewLayout(wheel.CandidateSet{}, opts.ZeroOffset),
		state:      StateIdle,
		highlight:  -1,
		responses:  make(chan response, 1),
		done:       make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State { return c.state }

// Rotation returns the most recently rendered rotation
func (c *Controller) Rotation() float64 { return c.rotation }

// Highlight returns the highlighted winner index, -1 when none
func (c *Controller) Highlight() int { return c.highlight }

// Session returns the in-flight session, nil when idle
func (c *Controller) Session() *Session { return c.session }

// Layout returns what is on screen: the frozen layout during a spin,
// the live layout otherwise
func (c *Controller) Layout() wheel.Layout {
	if c.session != nil {
		return c.session.layout
	}
	return c.liveLayout
}

// HasPending reports whether a candidate update is waiting for the spin to end
func (c *Controller) HasPending() bool { return c.pending != nil }

// SetCandidates replaces the live candidate set
// During a spin the update is buffered and applied once the session ends
func (c *Controller) SetCandidates(set wheel.CandidateSet) {
	if c.torndown {
		return
	}
	if c.session != nil {
		c.pending = &set
		c.log.Debug("candidate update deferred", "session", c.session.id, "count", set.Len())
		return
	}
	c.applyCandidates(set)
}

func (c *Controller) applyCandidates(set wheel.CandidateSet) {
	if !set.SameOrder(c.live) {
		c.highlight = -1
	}
	c.live = set
	c.liveLayout = wheel.NewLayout(set, c.opts.ZeroOffset)
	c.pending = nil
}

// Spin starts a spin for criteria
// Returns false when the call was ignored: a spin is already in flight or
// the controller has been torn down
func (c *Controller) Spin(ctx context.Context, criteria authority.Criteria) bool {
	if c.torndown || c.state != StateIdle {
		c.log.Debug("spin ignored", "state", c.state, "torndown", c.torndown)
		return false
	}

	c.nextID++
	id := c.nextID

	if c.liveLayout.Empty() {
		c.transition(StateAborted, id)
		c.emitAborted(KindNoEligibleCandidates, authority.ErrNoEligibleCandidates)
		c.transition(StateIdle, id)
		return true
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	c.session = &Session{
		id:        id,
		state:     StateRequesting,
		criteria:  criteria,
		layout:    c.liveLayout,
		winnerIdx: -1,
		duration:  c.opts.Duration,
		easing:    c.opts.Easing,
		cancel:    cancel,
	}
	c.transition(StateRequesting, id)

	picker, out, done := c.picker, c.responses, c.done
	c.opts.Dispatch(func() {
		result, err := picker.PickWinner(sessionCtx, criteria)
		select {
		case out <- response{session: id, result: result, err: err}:
		case <-done:
		}
	})
	return true
}

// Tick advances the controller to now and renders one frame
// After Teardown it does nothing
func (c *Controller) Tick(now time.Time) {
	if c.torndown {
		return
	}
	c.drain(now)

	if c.state == StateAnimating {
		s := c.session
		rotation, done := s.Advance(now.Sub(s.start))
		c.rotation = rotation
		if done {
			c.highlight = s.winnerIdx
			c.render(s.layout)
			c.resolve()
			return
		}
		c.render(s.layout)
		return
	}

	c.render(c.Layout())
}

// Teardown stops the controller for good: no further ticks are processed,
// the in-flight authority call is cancelled and any late answer is dropped
// No events are emitted
func (c *Controller) Teardown() {
	if c.torndown {
		return
	}
	c.torndown = true
	close(c.done)
	if s := c.session; s != nil {
		s.cancel()
		c.log.Debug("session discarded by teardown", "session", s.id, "state", s.state)
		c.transition(StateIdle, s.id)
		c.session = nil
	}
}

func (c *Controller) drain(now time.Time) {
	for {
		select {
		case r := <-c.responses:
			c.handleResponse(r, now)
		default:
			return
		}
	}
}

func (c *Controller) handleResponse(r response, now time.Time) {
	s := c.session
	if s == nil || s.id != r.session || s.state != StateRequesting {
		c.log.Debug("stale authority response dropped",
			"session", r.session, "kind", KindSessionSuperseded, "error", ErrSessionSuperseded)
		return
	}

	if r.err != nil {
		c.abort(Classify(r.err), r.err)
		return
	}

	idx := s.layout.IndexOf(r.result.WinnerID)
	if idx < 0 {
		c.abort(KindAuthorityRejected,
			fmt.Errorf("winner %q is not on the displayed wheel: %w", r.result.WinnerID, authority.ErrRejected))
		return
	}

	turns := c.opts.MinTurns + c.opts.Rand.Intn(c.opts.MaxTurns-c.opts.MinTurns+1)
	start := vmath.NormalizeAngle(c.rotation)
	target, final := PlanLanding(s.layout, idx, start, turns, c.opts.BoundaryEpsilon, c.opts.Rand)

	s.result = r.result
	s.winnerIdx = idx
	s.turns = turns
	s.target = target
	s.startRotation = start
	s.finalRotation = final
	s.start = now
	c.rotation = start
	// The previous winner stays lit until the wheel actually moves
	c.highlight = -1

	c.log.Debug("winner received",
		"session", s.id, "winner", r.result.WinnerID, "index", idx,
		"target", target, "turns", turns, "final", final)
	c.transition(StateAnimating, s.id)
}

func (c *Controller) resolve() {
	s := c.session
	c.transition(StateResolved, s.id)
	s.cancel()
	c.session = nil
	c.rotation = vmath.NormalizeAngle(c.rotation)

	c.log.Info("spin resolved", "session", s.id, "winner", s.result.WinnerID, "quality", s.criteria.Quality)
	if c.listener != nil {
		c.listener.SpinResolved(s.result)
	}
	c.transition(StateIdle, s.id)
	c.applyPending()
}

func (c *Controller) abort(kind ErrorKind, err error) {
	s := c.session
	c.transition(StateAborted, s.id)
	s.cancel()
	c.session = nil

	c.emitAborted(kind, err)
	c.transition(StateIdle, s.id)
	c.applyPending()
}

func (c *Controller) emitAborted(kind ErrorKind, err error) {
	c.log.Warn("spin aborted", "kind", kind, "error", err)
	if c.listener != nil {
		c.listener.SpinAborted(kind, err)
	}
}

func (c *Controller) applyPending() {
	if c.pending != nil {
		c.applyCandidates(*c.pending)
	}
}

func (c *Controller) render(layout wheel.Layout) {
	if c.renderer != nil {
		c.renderer.Render(layout, c.rotation, c.highlight)
	}
}

func (c *Controller) transition(to State, session uint64) {
	from := c.state
	if !canTransition(from, to) {
		panic(fmt.Sprintf("spin: invalid transition %s -> %s (session %d)", from, to, session))
	}
	c.state = to
	if c.session != nil && c.session.id == session {
		c.session.state = to
	}
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, to, session)
	}
}
