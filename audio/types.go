package audio

import "github.com/lixenwraith/guild-wheel/constants"

// SoundType represents different sound effects
type SoundType int

const (
	SoundTick  SoundType = iota // Pointer crosses a segment boundary
	SoundWin                    // Spin resolved
	SoundError                  // Spin aborted
	soundTypeCount
)

func (s SoundType) String() string {
	switch s {
	case SoundTick:
		return "tick"
	case SoundWin:
		return "win"
	case SoundError:
		return "error"
	default:
		return "unknown"
	}
}

// Config controls audio output
type Config struct {
	// Enabled allows the speaker to open; muting is separate
	Enabled       bool
	SampleRate    int
	MasterVolume  float64
	EffectVolumes [soundTypeCount]float64
}

// DefaultConfig returns enabled audio at the default volume
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		SampleRate:   constants.AudioSampleRate,
		MasterVolume: constants.DefaultMasterVolume,
		EffectVolumes: [soundTypeCount]float64{
			SoundTick:  0.35,
			SoundWin:   0.8,
			SoundError: 0.6,
		},
	}
}

// effectVolume is the final linear gain for a sound type
func (c *Config) effectVolume(s SoundType) float64 {
	if s < 0 || s >= soundTypeCount {
		return 0
	}
	return c.EffectVolumes[s] * c.MasterVolume
}
