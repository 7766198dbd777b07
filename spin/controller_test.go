package spin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/vmath"
	"github.com/lixenwraith/guild-wheel/wheel"
)

// fakePicker returns a canned answer and counts calls
// When gate is set the call blocks until gate is closed
type fakePicker struct {
	mu       sync.Mutex
	calls    int
	result   authority.Result
	err      error
	gate     chan struct{}
	returned chan struct{}
}

func (p *fakePicker) PickWinner(ctx context.Context, _ authority.Criteria) (authority.Result, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.gate != nil {
		<-p.gate
	}
	if p.returned != nil {
		defer close(p.returned)
	}
	return p.result, p.err
}

func (p *fakePicker) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type abortEvent struct {
	kind ErrorKind
	err  error
}

type recordingListener struct {
	resolved []authority.Result
	aborted  []abortEvent
}

func (l *recordingListener) SpinResolved(r authority.Result) { l.resolved = append(l.resolved, r) }
func (l *recordingListener) SpinAborted(k ErrorKind, err error) {
	l.aborted = append(l.aborted, abortEvent{k, err})
}

type frame struct {
	layout    wheel.Layout
	rotation  float64
	highlight int
}

type recordingRenderer struct {
	frames []frame
}

func (r *recordingRenderer) Render(l wheel.Layout, rotation float64, highlight int) {
	r.frames = append(r.frames, frame{l, rotation, highlight})
}

func (r *recordingRenderer) last() frame { return r.frames[len(r.frames)-1] }

type transitionLog struct {
	steps []string
}

func (t *transitionLog) observe(from, to State, _ uint64) {
	t.steps = append(t.steps, from.String()+"->"+to.String())
}

func candidates(t *testing.T, ids ...string) wheel.CandidateSet {
	t.Helper()
	cs := make([]wheel.Candidate, len(ids))
	for i, id := range ids {
		cs[i] = wheel.Candidate{ID: id, Label: id}
	}
	set, err := wheel.NewCandidateSet(cs)
	if err != nil {
		t.Fatalf("NewCandidateSet: %v", err)
	}
	return set
}

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	picker   *fakePicker
	listener *recordingListener
	renderer *recordingRenderer
	log      *transitionLog
	ctrl     *Controller
}

func newHarness(t *testing.T, picker *fakePicker, syncDispatch bool) *harness {
	t.Helper()
	h := &harness{
		picker:   picker,
		listener: &recordingListener{},
		renderer: &recordingRenderer{},
		log:      &transitionLog{},
	}
	opts := Options{
		Duration:        2 * time.Second,
		MinTurns:        2,
		MaxTurns:        4,
		BoundaryEpsilon: 0.02,
		Rand:            vmath.NewFastRand(7),
		OnTransition:    h.log.observe,
	}
	if syncDispatch {
		opts.Dispatch = func(fn func()) { fn() }
	}
	h.ctrl = NewController(picker, h.listener, h.renderer, opts)
	return h
}

func winner(id string) authority.Result {
	return authority.Result{WinnerID: id, Winner: wheel.Candidate{ID: id, Label: id}}
}

func TestSpinFourCandidatesLandsOnWinner(t *testing.T) {
	picker := &fakePicker{result: winner("C")}
	h := newHarness(t, picker, true)
	h.ctrl.SetCandidates(candidates(t, "A", "B", "C", "D"))

	if !h.ctrl.Spin(context.Background(), authority.Criteria{Quality: authority.QualitySilver}) {
		t.Fatal("Expected spin to be accepted")
	}
	if h.ctrl.State() != StateRequesting {
		t.Fatalf("Expected requesting, got %s", h.ctrl.State())
	}

	h.ctrl.Tick(t0)
	if h.ctrl.State() != StateAnimating {
		t.Fatalf("Expected animating after response, got %s", h.ctrl.State())
	}

	s := h.ctrl.Session()
	if s.Target() <= math.Pi || s.Target() >= 3*math.Pi/2 {
		t.Errorf("Expected target in (π, 3π/2), got %v", s.Target())
	}
	if idx := s.Layout().AngleToIndex(s.Target()); idx != 2 {
		t.Errorf("Expected target to map to index 2, got %d", idx)
	}
	wantFinal := float64(s.Turns())*vmath.TwoPi + s.Target()
	if math.Abs(s.FinalRotation()-wantFinal) > 1e-12 {
		t.Errorf("Expected final rotation k·2π + target = %v, got %v", wantFinal, s.FinalRotation())
	}
	if s.Turns() < 2 {
		t.Errorf("Expected at least 2 full turns, got %d", s.Turns())
	}
	final := s.FinalRotation()

	// Winner is never highlighted before the wheel stops
	h.ctrl.Tick(t0.Add(time.Second))
	if h.renderer.last().highlight != -1 {
		t.Error("Expected no highlight mid-animation")
	}

	h.ctrl.Tick(t0.Add(2 * time.Second))
	if h.ctrl.State() != StateIdle {
		t.Fatalf("Expected idle after resolution, got %s", h.ctrl.State())
	}
	if len(h.listener.resolved) != 1 || h.listener.resolved[0].WinnerID != "C" {
		t.Fatalf("Expected one resolution for C, got %+v", h.listener.resolved)
	}
	if len(h.listener.aborted) != 0 {
		t.Errorf("Expected no aborts, got %+v", h.listener.aborted)
	}
	if picker.Calls() != 1 {
		t.Errorf("Expected exactly one PickWinner call, got %d", picker.Calls())
	}

	last := h.renderer.last()
	if last.rotation != final {
		t.Errorf("Expected final frame at exactly %v, got %v", final, last.rotation)
	}
	if last.highlight != 2 {
		t.Errorf("Expected highlight on C (2), got %d", last.highlight)
	}
	if idx := last.layout.AngleToIndex(last.rotation); idx != 2 {
		t.Errorf("Expected pointer to rest on C, got index %d", idx)
	}

	want := []string{"idle->requesting", "requesting->animating", "animating->resolved", "resolved->idle"}
	if fmt.Sprint(h.log.steps) != fmt.Sprint(want) {
		t.Errorf("Expected transitions %v, got %v", want, h.log.steps)
	}
}

func TestSpinIsNoOpWhileBusy(t *testing.T) {
	picker := &fakePicker{result: winner("B")}
	h := newHarness(t, picker, true)
	h.ctrl.SetCandidates(candidates(t, "A", "B"))

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	if h.ctrl.Spin(context.Background(), authority.Criteria{}) {
		t.Error("Expected re-entrant spin while requesting to be ignored")
	}

	h.ctrl.Tick(t0)
	if h.ctrl.Spin(context.Background(), authority.Criteria{}) {
		t.Error("Expected re-entrant spin while animating to be ignored")
	}
	if picker.Calls() != 1 {
		t.Errorf("Expected one authority call, got %d", picker.Calls())
	}

	h.ctrl.Tick(t0.Add(3 * time.Second))
	if !h.ctrl.Spin(context.Background(), authority.Criteria{}) {
		t.Error("Expected spin to be accepted again once idle")
	}
	if picker.Calls() != 2 {
		t.Errorf("Expected second authority call, got %d", picker.Calls())
	}
}

func TestSpinEmptySetAbortsWithoutCallingAuthority(t *testing.T) {
	picker := &fakePicker{result: winner("A")}
	h := newHarness(t, picker, true)

	if !h.ctrl.Spin(context.Background(), authority.Criteria{}) {
		t.Fatal("Expected spin call to be handled")
	}
	if picker.Calls() != 0 {
		t.Errorf("Expected zero authority calls, got %d", picker.Calls())
	}
	if len(h.listener.aborted) != 1 || h.listener.aborted[0].kind != KindNoEligibleCandidates {
		t.Fatalf("Expected NoEligibleCandidates abort, got %+v", h.listener.aborted)
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("Expected idle, got %s", h.ctrl.State())
	}
	want := []string{"idle->aborted", "aborted->idle"}
	if fmt.Sprint(h.log.steps) != fmt.Sprint(want) {
		t.Errorf("Expected transitions %v, got %v", want, h.log.steps)
	}
}

func TestSpinSingletonAnimatesFullDuration(t *testing.T) {
	picker := &fakePicker{result: winner("solo")}
	h := newHarness(t, picker, true)
	h.ctrl.SetCandidates(candidates(t, "solo"))

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	h.ctrl.Tick(t0)
	final := h.ctrl.Session().FinalRotation()
	if final < 2*vmath.TwoPi {
		t.Errorf("Expected at least two turns, final rotation %v", final)
	}

	prev := h.ctrl.Rotation()
	for ms := 100; ms < 2000; ms += 100 {
		h.ctrl.Tick(t0.Add(time.Duration(ms) * time.Millisecond))
		if h.ctrl.State() != StateAnimating {
			t.Fatalf("Expected still animating at %dms, got %s", ms, h.ctrl.State())
		}
		if h.ctrl.Rotation() <= prev {
			t.Fatalf("Expected rotation to advance at %dms", ms)
		}
		prev = h.ctrl.Rotation()
	}

	h.ctrl.Tick(t0.Add(2 * time.Second))
	if len(h.listener.resolved) != 1 || h.listener.resolved[0].WinnerID != "solo" {
		t.Fatalf("Expected resolution for solo, got %+v", h.listener.resolved)
	}
}

func TestTeardownDuringAnimationStopsTicks(t *testing.T) {
	picker := &fakePicker{result: winner("A")}
	h := newHarness(t, picker, true)
	h.ctrl.SetCandidates(candidates(t, "A", "B", "C"))

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	h.ctrl.Tick(t0)
	h.ctrl.Tick(t0.Add(500 * time.Millisecond))

	frames := len(h.renderer.frames)
	rotation := h.ctrl.Rotation()
	h.ctrl.Teardown()

	h.ctrl.Tick(t0.Add(5 * time.Second))
	if len(h.renderer.frames) != frames {
		t.Error("Expected no frames after teardown")
	}
	if h.ctrl.Rotation() != rotation {
		t.Error("Expected rotation untouched after teardown")
	}
	if len(h.listener.resolved)+len(h.listener.aborted) != 0 {
		t.Error("Expected no events after teardown")
	}
	if h.ctrl.Spin(context.Background(), authority.Criteria{}) {
		t.Error("Expected spin to be refused after teardown")
	}
}

func TestTeardownDiscardsLateAuthorityResponse(t *testing.T) {
	picker := &fakePicker{
		result:   winner("A"),
		gate:     make(chan struct{}),
		returned: make(chan struct{}),
	}
	h := newHarness(t, picker, false)
	h.ctrl.SetCandidates(candidates(t, "A", "B"))

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	h.ctrl.Tick(t0)
	if h.ctrl.State() != StateRequesting {
		t.Fatalf("Expected requesting while authority is blocked, got %s", h.ctrl.State())
	}

	h.ctrl.Teardown()
	close(picker.gate)
	select {
	case <-picker.returned:
	case <-time.After(2 * time.Second):
		t.Fatal("authority call never returned")
	}

	h.ctrl.Tick(t0.Add(time.Second))
	h.ctrl.Tick(t0.Add(5 * time.Second))

	if h.ctrl.State() != StateIdle || h.ctrl.Session() != nil {
		t.Errorf("Expected idle with no session, got %s", h.ctrl.State())
	}
	if len(h.listener.resolved)+len(h.listener.aborted) != 0 {
		t.Error("Expected late response to emit nothing")
	}
	if h.ctrl.Rotation() != 0 {
		t.Errorf("Expected rotation untouched, got %v", h.ctrl.Rotation())
	}
}

func TestAsyncSpinResolves(t *testing.T) {
	picker := &fakePicker{result: winner("B"), returned: make(chan struct{})}
	h := newHarness(t, picker, false)
	h.ctrl.SetCandidates(candidates(t, "A", "B", "C"))

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	select {
	case <-picker.returned:
	case <-time.After(2 * time.Second):
		t.Fatal("authority call never returned")
	}

	// The send happens right after the picker returns
	now := t0
	for i := 0; i < 200 && h.ctrl.State() == StateRequesting; i++ {
		time.Sleep(time.Millisecond)
		h.ctrl.Tick(now)
	}
	if h.ctrl.State() != StateAnimating {
		t.Fatalf("Expected animating, got %s", h.ctrl.State())
	}
	h.ctrl.Tick(now.Add(2 * time.Second))
	if len(h.listener.resolved) != 1 {
		t.Fatalf("Expected one resolution, got %d", len(h.listener.resolved))
	}
}

func TestAuthorityFailureAbortsWithoutMovingWheel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"unreachable", fmt.Errorf("dial: %w", authority.ErrUnreachable), KindAuthorityUnreachable},
		{"rejected", fmt.Errorf("bad criteria: %w", authority.ErrRejected), KindAuthorityRejected},
		{"empty pool", fmt.Errorf("pool: %w", authority.ErrNoEligibleCandidates), KindNoEligibleCandidates},
		{"unknown", errors.New("boom"), KindAuthorityUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picker := &fakePicker{result: winner("B")}
			h := newHarness(t, picker, true)
			h.ctrl.SetCandidates(candidates(t, "A", "B"))

			// A resolved spin leaves B highlighted
			h.ctrl.Spin(context.Background(), authority.Criteria{})
			h.ctrl.Tick(t0)
			h.ctrl.Tick(t0.Add(2 * time.Second))
			h.ctrl.Tick(t0.Add(2*time.Second + 16*time.Millisecond))
			before := h.renderer.last()
			if before.highlight != 1 {
				t.Fatalf("Expected B highlighted after first spin, got %d", before.highlight)
			}

			picker.err = tt.err
			h.ctrl.Spin(context.Background(), authority.Criteria{})
			if h.ctrl.Highlight() != 1 {
				t.Errorf("Expected highlight kept while requesting, got %d", h.ctrl.Highlight())
			}
			h.ctrl.Tick(t0.Add(3 * time.Second))

			if len(h.listener.aborted) != 1 {
				t.Fatalf("Expected one abort, got %d", len(h.listener.aborted))
			}
			ev := h.listener.aborted[0]
			if ev.kind != tt.want {
				t.Errorf("Expected kind %s, got %s", tt.want, ev.kind)
			}
			if !errors.Is(ev.err, tt.err) {
				t.Errorf("Expected original error to be surfaced, got %v", ev.err)
			}
			if len(h.listener.resolved) != 1 {
				t.Errorf("Expected only the first spin resolved, got %d", len(h.listener.resolved))
			}
			if h.ctrl.State() != StateIdle {
				t.Errorf("Expected idle, got %s", h.ctrl.State())
			}
			after := h.renderer.last()
			if after.rotation != before.rotation {
				t.Errorf("Expected wheel unchanged, rotation %v -> %v", before.rotation, after.rotation)
			}
			if after.highlight != before.highlight {
				t.Errorf("Expected highlight unchanged, %d -> %d", before.highlight, after.highlight)
			}
		})
	}
}

func TestWinnerMissingFromFrozenSetIsRejected(t *testing.T) {
	h := newHarness(t, &fakePicker{result: winner("Z")}, true)
	h.ctrl.SetCandidates(candidates(t, "A", "B"))

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	h.ctrl.Tick(t0)

	if len(h.listener.aborted) != 1 || h.listener.aborted[0].kind != KindAuthorityRejected {
		t.Fatalf("Expected AuthorityRejected, got %+v", h.listener.aborted)
	}
	if !errors.Is(h.listener.aborted[0].err, authority.ErrRejected) {
		t.Errorf("Expected error to wrap ErrRejected, got %v", h.listener.aborted[0].err)
	}
}

func TestCandidateUpdatesDeferredUntilSessionEnds(t *testing.T) {
	h := newHarness(t, &fakePicker{result: winner("B")}, true)
	original := candidates(t, "A", "B", "C")
	h.ctrl.SetCandidates(original)

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	h.ctrl.Tick(t0)
	target := h.ctrl.Session().Target()

	// Reordered roster arrives mid-spin
	h.ctrl.SetCandidates(candidates(t, "C", "B", "A", "D"))
	if !h.ctrl.HasPending() {
		t.Fatal("Expected update to be buffered")
	}
	h.ctrl.Tick(t0.Add(time.Second))
	if !h.ctrl.Layout().Set().SameOrder(original) {
		t.Error("Expected frozen layout on screen during the spin")
	}
	if h.ctrl.Session().Target() != target {
		t.Error("Expected target to stay fixed mid-animation")
	}

	h.ctrl.Tick(t0.Add(2 * time.Second))
	if h.ctrl.HasPending() {
		t.Error("Expected pending update applied after resolution")
	}
	if h.ctrl.Layout().Len() != 4 {
		t.Errorf("Expected new layout of 4, got %d", h.ctrl.Layout().Len())
	}
	if h.ctrl.Highlight() != -1 {
		t.Error("Expected highlight cleared when order changed")
	}
}

func TestStaleResponseIsDropped(t *testing.T) {
	h := newHarness(t, &fakePicker{result: winner("A")}, true)
	h.ctrl.SetCandidates(candidates(t, "A", "B"))

	h.ctrl.responses <- response{session: 99, result: winner("B")}
	h.ctrl.Tick(t0)

	if h.ctrl.State() != StateIdle {
		t.Errorf("Expected idle, got %s", h.ctrl.State())
	}
	if len(h.listener.resolved)+len(h.listener.aborted) != 0 {
		t.Error("Expected stale response to be silent")
	}
}

func TestSecondSpinStartsFromRestingRotation(t *testing.T) {
	picker := &fakePicker{result: winner("D")}
	h := newHarness(t, picker, true)
	h.ctrl.SetCandidates(candidates(t, "A", "B", "C", "D"))

	h.ctrl.Spin(context.Background(), authority.Criteria{})
	h.ctrl.Tick(t0)
	h.ctrl.Tick(t0.Add(2 * time.Second))
	rest := h.ctrl.Rotation()

	picker.result = winner("A")
	h.ctrl.Spin(context.Background(), authority.Criteria{})
	h.ctrl.Tick(t0.Add(3 * time.Second))
	s := h.ctrl.Session()
	if math.Abs(s.StartRotation()-rest) > 1e-12 {
		t.Errorf("Expected second spin to start at %v, got %v", rest, s.StartRotation())
	}
	if s.Layout().AngleToIndex(s.FinalRotation()) != 0 {
		t.Error("Expected second spin to land on A")
	}
	if s.FinalRotation()-s.StartRotation() < 2*vmath.TwoPi {
		t.Error("Expected at least two full turns from the resting position")
	}
}
