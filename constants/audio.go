package constants

import "time"

// Audio Output
const (
	// AudioSampleRate is the speaker sample rate in Hz
	AudioSampleRate = 48000

	// AudioBufferDuration is the speaker buffer length
	AudioBufferDuration = 100 * time.Millisecond

	// DefaultMasterVolume applies when no volume is configured
	DefaultMasterVolume = 0.6
)

// Tick Sound Timing (pointer crosses a segment boundary)
const (
	TickSoundDuration = 25 * time.Millisecond
	TickSoundAttack   = 2 * time.Millisecond
	TickSoundRelease  = 15 * time.Millisecond

	// TickSoundMinGap suppresses ticks closer together than this
	TickSoundMinGap = 30 * time.Millisecond
)

// Error Sound Timing
const (
	ErrorSoundDuration = 180 * time.Millisecond
	ErrorSoundAttack   = 5 * time.Millisecond
	ErrorSoundRelease  = 60 * time.Millisecond
)

// Win Chime Timing (three rising notes)
const (
	WinSoundNoteDuration = 110 * time.Millisecond
	WinSoundLastDuration = 420 * time.Millisecond
	WinSoundAttack       = 5 * time.Millisecond
	WinSoundNoteRelease  = 50 * time.Millisecond
	WinSoundLastRelease  = 340 * time.Millisecond
)

// Spin Whir
const (
	// SpinWhirCycle is one rise-and-fall period of the whir loop
	SpinWhirCycle = 600 * time.Millisecond

	SpinWhirLowHz  = 90.0
	SpinWhirHighHz = 170.0
)
