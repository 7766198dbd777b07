package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const inboxSize = 64

// ErrAlreadyRunning is returned when Run is entered twice concurrently
var ErrAlreadyRunning = errors.New("frame scheduler already running")

// FrameScheduler is the host loop: it owns one goroutine on which both
// frame ticks and posted work run, so everything it drives has a single
// mutator and needs no locks
type FrameScheduler struct {
	interval time.Duration
	clock    TimeProvider

	inbox chan func()

	frameCount atomic.Uint64
	running    atomic.Bool

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewFrameScheduler creates a scheduler ticking at fps frames per second
func NewFrameScheduler(fps int, clock TimeProvider) *FrameScheduler {
	if fps <= 0 {
		fps = 60
	}
	if clock == nil {
		clock = NewMonotonicTimeProvider()
	}
	return &FrameScheduler{
		interval: time.Second / time.Duration(fps),
		clock:    clock,
		inbox:    make(chan func(), inboxSize),
		stopChan: make(chan struct{}),
	}
}

// Interval returns the frame period
func (fs *FrameScheduler) Interval() time.Duration { return fs.interval }

// FrameCount returns the number of frames ticked so far
func (fs *FrameScheduler) FrameCount() uint64 { return fs.frameCount.Load() }

// Post queues fn to run on the loop goroutine between frames
// Safe from any goroutine; returns false once the scheduler has stopped
func (fs *FrameScheduler) Post(fn func()) bool {
	select {
	case <-fs.stopChan:
		return false
	default:
	}
	select {
	case fs.inbox <- fn:
		return true
	case <-fs.stopChan:
		return false
	}
}

// Stop ends Run; safe to call more than once
func (fs *FrameScheduler) Stop() {
	fs.stopOnce.Do(func() {
		close(fs.stopChan)
	})
}

// Run blocks, calling frame once per interval and posted work in between,
// until ctx is done, Stop is called or frame returns false
func (fs *FrameScheduler) Run(ctx context.Context, frame func(now time.Time) bool) error {
	if !fs.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer fs.running.Store(false)

	ticker := time.NewTicker(fs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-fs.stopChan:
			return nil
		case fn := <-fs.inbox:
			fn()
		case <-ticker.C:
			fs.frameCount.Add(1)
			if !frame(fs.clock.Now()) {
				fs.Stop()
				return nil
			}
		}
	}
}
