package audio

import (
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/guild-wheel/constants"
)

// SoundManager plays the wheel's sounds through one speaker mixer
// Every method is safe before Initialize and after Cleanup; without an audio
// device the app runs silent
type SoundManager struct {
	mu          sync.Mutex
	cfg         *Config
	mixer       *beep.Mixer
	spin        *beep.Ctrl
	initialized bool
	muted       bool

	// speakerOwned is false when the mixer is driven by something other than the speaker
	speakerOwned bool
}

// NewSoundManager creates a sound manager; nil cfg means DefaultConfig
func NewSoundManager(cfg *Config) *SoundManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &SoundManager{cfg: cfg, mixer: &beep.Mixer{}}
}

// Initialize opens the speaker; a no-op when audio is disabled or already open
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized || !sm.cfg.Enabled {
		return nil
	}

	rate := beep.SampleRate(sm.cfg.SampleRate)
	if err := speaker.Init(rate, rate.N(constants.AudioBufferDuration)); err != nil {
		return err
	}

	speaker.Play(sm.mixer)
	sm.initialized = true
	sm.speakerOwned = true
	return nil
}

// Cleanup stops all sounds
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	sm.withMixer(func() {
		if sm.spin != nil {
			sm.spin.Paused = true
		}
		sm.mixer.Clear()
	})
	sm.spin = nil
	sm.initialized = false
}

// Muted reports whether sounds are suppressed, either by SetMuted or
// because no device is open
func (sm *SoundManager) Muted() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return !sm.active()
}

// SetMuted toggles output without touching the device; muting also stops the spin whir
func (sm *SoundManager) SetMuted(muted bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.muted = muted
	if muted {
		sm.stopSpinLocked()
	}
}

// PlaySpin starts the whir loop; repeated calls keep the running loop
func (sm *SoundManager) PlaySpin() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.active() {
		return
	}
	if sm.spin != nil && !sm.spin.Paused {
		return
	}

	whir := NewWhirGenerator(beep.SampleRate(sm.cfg.SampleRate))
	ctrl := &beep.Ctrl{Streamer: newVolume(whir, sm.cfg.MasterVolume), Paused: false}
	sm.spin = ctrl
	sm.withMixer(func() { sm.mixer.Add(ctrl) })
}

// StopSpin silences the whir loop
func (sm *SoundManager) StopSpin() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stopSpinLocked()
}

func (sm *SoundManager) stopSpinLocked() {
	if sm.spin == nil {
		return
	}
	ctrl := sm.spin
	sm.withMixer(func() {
		ctrl.Paused = true
		// A paused Ctrl streams silence forever; drop it from the mixer
		ctrl.Streamer = nil
	})
	sm.spin = nil
}

// PlayTick plays the boundary click
func (sm *SoundManager) PlayTick() { sm.playOnce(SoundTick) }

// PlayWin plays the resolution chime
func (sm *SoundManager) PlayWin() { sm.playOnce(SoundWin) }

// PlayError plays the abort buzz
func (sm *SoundManager) PlayError() { sm.playOnce(SoundError) }

func (sm *SoundManager) playOnce(s SoundType) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.active() {
		return
	}
	streamer := GetSoundEffect(s, sm.cfg)
	if streamer == nil {
		return
	}
	sm.withMixer(func() { sm.mixer.Add(streamer) })
}

// Playing returns the number of streamers currently in the mixer
func (sm *SoundManager) Playing() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	n := 0
	sm.withMixer(func() { n = sm.mixer.Len() })
	return n
}

func (sm *SoundManager) active() bool {
	return sm.initialized && !sm.muted
}

// withMixer runs fn under the speaker lock when the speaker drives the mixer
// Caller holds sm.mu
func (sm *SoundManager) withMixer(fn func()) {
	if sm.speakerOwned {
		speaker.Lock()
		defer speaker.Unlock()
	}
	fn()
}
