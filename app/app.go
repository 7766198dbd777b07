// Package app hosts the reward wheel in a terminal: it owns the frame loop,
// turns key presses into controller calls and draws the chrome around the wheel.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/constants"
	"github.com/lixenwraith/guild-wheel/engine"
	"github.com/lixenwraith/guild-wheel/render"
	"github.com/lixenwraith/guild-wheel/spin"
	"github.com/lixenwraith/guild-wheel/status"
	"github.com/lixenwraith/guild-wheel/wheel"
)

// Sounds is the audio surface the app drives
type Sounds interface {
	PlaySpin()
	StopSpin()
	PlayTick()
	PlayWin()
	PlayError()
	Muted() bool
	SetMuted(muted bool)
}

type silentSounds struct{ muted bool }

func (*silentSounds) PlaySpin()         {}
func (*silentSounds) StopSpin()         {}
func (*silentSounds) PlayTick()         {}
func (*silentSounds) PlayWin()          {}
func (*silentSounds) PlayError()        {}
func (s *silentSounds) Muted() bool     { return s.muted }
func (s *silentSounds) SetMuted(m bool) { s.muted = m }

// Options configures an App; zero values take defaults
type Options struct {
	Criteria authority.Criteria
	Spin     spin.Options
	FPS      int
	Clock    engine.TimeProvider
	Logger   *slog.Logger
	Sounds   Sounds

	// RefreshTimeout bounds one candidate fetch
	RefreshTimeout time.Duration

	// CrashHandler receives panics from the input goroutine so the caller
	// can restore the terminal; nil lets the panic propagate
	CrashHandler func(r any)

	// Stats receives session counters; nil allocates a private registry
	Stats *status.Registry
}

// App is the terminal host for one wheel
//
// Everything below runs on the scheduler goroutine: frames, key handling and
// the completion of background fetches, which are posted back to it.
type App struct {
	screen tcell.Screen
	auth   authority.Authority
	sched  *engine.FrameScheduler
	ctrl   *spin.Controller
	wheel  *render.WheelRenderer
	sounds Sounds
	clock  engine.TimeProvider
	log    *slog.Logger

	refreshTimeout time.Duration
	onCrash        func(r any)

	// dispatch runs background fetches; post hands their results to the loop
	dispatch func(func())
	post     func(func()) bool

	ctx      context.Context
	criteria authority.Criteria

	notice      string
	noticeBg    tcell.Color
	noticeUntil time.Time
	banner      string

	stats       *status.Registry
	started     *atomic.Int64
	resolved    *atomic.Int64
	aborted     *atomic.Int64
	refreshFail *atomic.Int64
	ticks       *atomic.Int64
	waitMs      *status.AtomicFloat
	lastWinner  *status.AtomicString
	lastAbort   *status.AtomicString
	requestedAt time.Time

	refreshSeq   uint64
	refreshing   bool
	spinQueued   bool
	pointerIndex int
	lastTick     time.Time
	lastManual   time.Time
	quit         bool
}

// New builds an app drawing on screen and asking auth for candidates and winners
func New(screen tcell.Screen, auth authority.Authority, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = engine.NewMonotonicTimeProvider()
	}
	if opts.Sounds == nil {
		opts.Sounds = &silentSounds{}
	}
	if opts.FPS <= 0 {
		opts.FPS = constants.DefaultFPS
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = constants.DefaultAuthorityTimeout
	}
	if opts.Stats == nil {
		opts.Stats = status.NewRegistry()
	}
	if opts.Criteria.Quality == "" {
		opts.Criteria.Quality = authority.QualitySilver
	}

	a := &App{
		screen:         screen,
		auth:           auth,
		sched:          engine.NewFrameScheduler(opts.FPS, opts.Clock),
		sounds:         opts.Sounds,
		clock:          opts.Clock,
		log:            opts.Logger.With("component", "app"),
		refreshTimeout: opts.RefreshTimeout,
		onCrash:        opts.CrashHandler,
		dispatch:       func(fn func()) { go fn() },
		ctx:            context.Background(),
		criteria:       opts.Criteria,
		noticeBg:       render.RgbStatusBg,
		pointerIndex:   -1,
		stats:          opts.Stats,
		started:        opts.Stats.Ints.Get(status.SpinsStarted),
		resolved:       opts.Stats.Ints.Get(status.SpinsResolved),
		aborted:        opts.Stats.Ints.Get(status.SpinsAborted),
		refreshFail:    opts.Stats.Ints.Get(status.RefreshFailures),
		ticks:          opts.Stats.Ints.Get(status.TicksPlayed),
		waitMs:         opts.Stats.Floats.Get(status.AuthorityWaitMs),
		lastWinner:     opts.Stats.Strings.Get(status.LastWinner),
		lastAbort:      opts.Stats.Strings.Get(status.LastAbortKind),
	}
	a.post = a.sched.Post
	a.wheel = render.NewWheelRenderer(screen, a.wheelArea())

	spinOpts := opts.Spin
	if spinOpts.Logger == nil {
		spinOpts.Logger = opts.Logger
	}
	observe := spinOpts.OnTransition
	spinOpts.OnTransition = func(from, to spin.State, session uint64) {
		a.observeTransition(from, to)
		if observe != nil {
			observe(from, to, session)
		}
	}
	a.ctrl = spin.NewController(auth, a, a.wheel, spinOpts)
	return a
}

// Controller exposes the spin controller, mainly for inspection
func (a *App) Controller() *spin.Controller { return a.ctrl }

// Stats exposes the session counters
func (a *App) Stats() *status.Registry { return a.stats }

// Criteria returns the criteria the next spin will use
func (a *App) Criteria() authority.Criteria { return a.criteria }

// Run blocks until the user quits or ctx ends, then tears the controller down
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.ctx = ctx

	go a.pollInput()
	a.refresh(false)

	err := a.sched.Run(ctx, a.frame)
	// Late fetches and key events are refused from here on
	a.sched.Stop()

	a.ctrl.Teardown()
	a.sounds.StopSpin()
	a.log.Info("wheel stopped", "frames", a.sched.FrameCount())

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop ends Run from any goroutine
func (a *App) Stop() { a.sched.Stop() }

// pollInput forwards terminal events to the loop until the screen closes
func (a *App) pollInput() {
	if a.onCrash != nil {
		defer func() {
			if r := recover(); r != nil {
				a.onCrash(r)
			}
		}()
	}
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		if !a.post(func() { a.handleEvent(ev) }) {
			return
		}
	}
}

// frame advances and draws one frame; false stops the loop
func (a *App) frame(now time.Time) bool {
	a.ctrl.Tick(now)
	a.trackPointer(now)
	a.drawChrome(now)
	a.screen.Show()
	return !a.quit
}

// trackPointer clicks each time a segment boundary passes the pointer
func (a *App) trackPointer(now time.Time) {
	if a.ctrl.State() != spin.StateAnimating {
		a.pointerIndex = -1
		return
	}
	idx := a.ctrl.Layout().AngleToIndex(a.ctrl.Rotation())
	if idx == a.pointerIndex {
		return
	}
	if a.pointerIndex >= 0 && now.Sub(a.lastTick) >= constants.TickSoundMinGap {
		a.sounds.PlayTick()
		a.ticks.Add(1)
		a.lastTick = now
	}
	a.pointerIndex = idx
}

func (a *App) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
		a.wheel.SetArea(a.wheelArea())
	case *tcell.EventKey:
		a.handleKey(ev)
	}
}

func (a *App) handleKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.quit = true
		return
	case tcell.KeyEnter:
		a.requestSpin()
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch ev.Rune() {
	case ' ':
		a.requestSpin()
	case 'q', 'Q':
		a.quit = true
	case 'r', 'R':
		a.manualRefresh()
	case 'g', 'G':
		a.setQuality(authority.QualityGold)
	case 's', 'S':
		a.setQuality(authority.QualitySilver)
	case 'm', 'M':
		muted := !a.sounds.Muted()
		a.sounds.SetMuted(muted)
		switch {
		case muted:
			a.flash("Sound off", render.RgbStatusBg)
		case a.sounds.Muted():
			a.flash("Audio unavailable", render.RgbErrorBg)
		default:
			a.flash("Sound on", render.RgbStatusBg)
		}
	}
}

func (a *App) setQuality(q authority.Quality) {
	if a.criteria.Quality == q {
		return
	}
	a.criteria.Quality = q
	a.banner = ""
	a.flash(fmt.Sprintf("Quality: %s", q), render.RgbStatusBg)
	a.refresh(false)
}

// manualRefresh reloads the pool unless the user just asked for it
func (a *App) manualRefresh() {
	now := a.clock.Now()
	if !a.lastManual.IsZero() && now.Sub(a.lastManual) < constants.RefreshDebounce {
		return
	}
	a.lastManual = now
	a.refresh(false)
}

// requestSpin refreshes the candidates and spins once they land, so the
// wheel always shows the pool the authority is about to draw from
func (a *App) requestSpin() {
	if a.spinQueued || a.ctrl.State() != spin.StateIdle {
		return
	}
	a.spinQueued = true
	a.refresh(true)
}

// refresh fetches candidates in the background; only the newest fetch is applied
func (a *App) refresh(thenSpin bool) {
	a.refreshSeq++
	seq := a.refreshSeq
	crit := a.criteria
	a.refreshing = true

	ctx, auth, timeout := a.ctx, a.auth, a.refreshTimeout
	a.dispatch(func() {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		set, err := auth.ListEligible(fetchCtx, crit)
		cancel()
		a.post(func() { a.applyRefresh(seq, crit, set, err, thenSpin) })
	})
}

func (a *App) applyRefresh(seq uint64, crit authority.Criteria, set wheel.CandidateSet, err error, thenSpin bool) {
	if seq != a.refreshSeq {
		a.log.Debug("stale refresh dropped", "seq", seq, "latest", a.refreshSeq)
		if thenSpin {
			a.spinQueued = false
		}
		return
	}
	a.refreshing = false

	if err != nil {
		a.spinQueued = false
		a.refreshFail.Add(1)
		kind := spin.Classify(err)
		a.log.Warn("candidate refresh failed", "quality", crit.Quality, "kind", kind, "error", err)
		a.sounds.PlayError()
		a.flash(kind.Message(), render.RgbErrorBg)
		return
	}

	a.ctrl.SetCandidates(set)
	a.log.Debug("candidates refreshed", "quality", crit.Quality, "count", set.Len())

	if !thenSpin {
		return
	}
	a.spinQueued = false
	if a.ctrl.Spin(a.ctx, crit) && a.ctrl.State() == spin.StateRequesting {
		a.sounds.PlaySpin()
		a.flash("Spinning...", render.RgbStatusBg)
	}
}

// SpinResolved implements spin.Listener
func (a *App) SpinResolved(res authority.Result) {
	a.resolved.Add(1)
	a.lastWinner.Store(res.Winner.DisplayLabel())
	a.sounds.StopSpin()
	a.sounds.PlayWin()
	a.banner = winnerBanner(res)
	a.flash(rewardStatus(res), render.RgbWinnerBg)
}

// SpinAborted implements spin.Listener
func (a *App) SpinAborted(kind spin.ErrorKind, err error) {
	a.aborted.Add(1)
	a.lastAbort.Store(kind.String())
	a.sounds.StopSpin()
	a.sounds.PlayError()
	a.flash(kind.Message(), render.RgbErrorBg)
}

// observeTransition times the authority round trip of each spin and drops
// the last winner's banner once the wheel starts moving
func (a *App) observeTransition(from, to spin.State) {
	switch {
	case to == spin.StateRequesting:
		a.started.Add(1)
		a.requestedAt = a.clock.Now()
	case from == spin.StateRequesting && to == spin.StateAnimating:
		a.banner = ""
		wait := a.clock.Now().Sub(a.requestedAt)
		a.waitMs.Set(float64(wait.Microseconds()) / 1000)
	}
}

// flash shows msg in the status bar for a while
func (a *App) flash(msg string, bg tcell.Color) {
	a.notice = msg
	a.noticeBg = bg
	a.noticeUntil = a.clock.Now().Add(constants.StatusMessageTimeout)
}

func winnerBanner(res authority.Result) string {
	w := res.Winner
	s := fmt.Sprintf("Winner: %s", w.DisplayLabel())
	if rank := w.Meta["rank"]; rank != "" {
		s += fmt.Sprintf("  %s", rank)
	}
	if days := w.Meta["days_in_guild"]; days != "" {
		s += fmt.Sprintf("  %s days", days)
	}
	if res.Reward.Compensation {
		s += "  (compensation)"
	}
	return s
}

func rewardStatus(res authority.Result) string {
	st := res.Reward.Status
	msg := fmt.Sprintf("%s reward recorded, %d left this cycle", res.Reward.Quality, st.EligibleCount)
	if st.Reset {
		msg = fmt.Sprintf("%s reward recorded, cycle complete and pool reset", res.Reward.Quality)
	}
	return msg
}
