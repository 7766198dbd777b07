package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/lixenwraith/guild-wheel/constants"
	"github.com/lixenwraith/guild-wheel/vmath"
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveTriangle
	WaveNoise
)

// oscillator generates a fixed-length raw wave
type oscillator struct {
	freq     float64
	phase    float64
	duration int
	position int
	wave     WaveType
	rate     beep.SampleRate
	noise    *vmath.FastRand
}

// NewOscillator creates a new oscillator for wave generation
func NewOscillator(freq float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &oscillator{
		freq:     freq,
		duration: rate.N(duration),
		wave:     wave,
		rate:     rate,
		noise:    vmath.NewFastRand(uint64(freq*1000) + 1),
	}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1.0
			} else {
				val = -1.0
			}
		case WaveTriangle:
			val = 4*math.Abs(o.phase-0.5) - 1
		case WaveNoise:
			val = o.noise.Float64()*2 - 1
		}

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope applies linear attack/release shaping to a stream
type envelope struct {
	streamer       beep.Streamer
	position       int
	attackSamples  int
	releaseSamples int
	totalSamples   int
}

// NewEnvelope wraps s with an attack ramp and a release fade ending at duration
func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer:       s,
		attackSamples:  rate.N(attack),
		releaseSamples: rate.N(release),
		totalSamples:   rate.N(duration),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)

	releaseStart := e.totalSamples - e.releaseSamples
	for i := 0; i < n; i++ {
		if e.position >= e.totalSamples {
			return i, i > 0
		}

		vol := 1.0
		if e.position < e.attackSamples {
			vol = float64(e.position) / float64(e.attackSamples)
		}
		if e.releaseSamples > 0 && e.position >= releaseStart {
			vol = math.Min(vol, float64(e.totalSamples-e.position)/float64(e.releaseSamples))
		}

		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// newVolume wraps s in a linear gain; math.Log2(0) is -Inf so zero is silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// CreateTickSound generates a short click for a segment boundary passing the pointer
func CreateTickSound(cfg *Config) beep.Streamer {
	rate := beep.SampleRate(cfg.SampleRate)

	click := NewOscillator(1800.0, constants.TickSoundDuration, WaveTriangle, rate)
	shaped := NewEnvelope(click, constants.TickSoundDuration, constants.TickSoundAttack, constants.TickSoundRelease, rate)

	return newVolume(shaped, cfg.effectVolume(SoundTick))
}

// CreateWinSound generates a rising C major arpeggio
func CreateWinSound(cfg *Config) beep.Streamer {
	rate := beep.SampleRate(cfg.SampleRate)

	note := func(freq float64, d, release time.Duration) beep.Streamer {
		osc := NewOscillator(freq, d, WaveSine, rate)
		return NewEnvelope(osc, d, constants.WinSoundAttack, release, rate)
	}

	sequence := beep.Seq(
		note(523.25, constants.WinSoundNoteDuration, constants.WinSoundNoteRelease),
		note(659.25, constants.WinSoundNoteDuration, constants.WinSoundNoteRelease),
		beep.Mix(
			newVolume(note(783.99, constants.WinSoundLastDuration, constants.WinSoundLastRelease), 0.7),
			newVolume(note(1567.98, constants.WinSoundLastDuration, constants.WinSoundLastRelease), 0.3),
		),
	)

	return newVolume(sequence, cfg.effectVolume(SoundWin))
}

// CreateErrorSound generates a low descending buzz for an aborted spin
func CreateErrorSound(cfg *Config) beep.Streamer {
	rate := beep.SampleRate(cfg.SampleRate)

	half := constants.ErrorSoundDuration / 2
	first := NewEnvelope(NewOscillator(180.0, half, WaveSquare, rate), half, constants.ErrorSoundAttack, constants.ErrorSoundAttack, rate)
	second := NewEnvelope(NewOscillator(120.0, half, WaveSquare, rate), half, constants.ErrorSoundAttack, constants.ErrorSoundRelease, rate)

	return newVolume(beep.Seq(first, second), cfg.effectVolume(SoundError)*0.5)
}

// GetSoundEffect returns the one-shot streamer for the given type
func GetSoundEffect(soundType SoundType, cfg *Config) beep.Streamer {
	switch soundType {
	case SoundTick:
		return CreateTickSound(cfg)
	case SoundWin:
		return CreateWinSound(cfg)
	case SoundError:
		return CreateErrorSound(cfg)
	default:
		return nil
	}
}

// WhirGenerator is an endless low sweep played while the wheel turns
type WhirGenerator struct {
	sr    beep.SampleRate
	pos   int
	cycle int
	phase float64
}

// NewWhirGenerator creates a whir generator
func NewWhirGenerator(sr beep.SampleRate) *WhirGenerator {
	return &WhirGenerator{sr: sr, cycle: sr.N(constants.SpinWhirCycle)}
}

func (g *WhirGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		cyclePos := float64(g.pos%g.cycle) / float64(g.cycle)
		freq := constants.SpinWhirLowHz + (constants.SpinWhirHighHz-constants.SpinWhirLowHz)*math.Sin(cyclePos*math.Pi)

		amplitude := 0.12 * (0.6 + 0.4*math.Sin(cyclePos*2*math.Pi))
		sample := amplitude * math.Sin(2*math.Pi*g.phase)

		samples[i][0] = sample
		samples[i][1] = sample

		g.phase += freq / float64(g.sr)
		g.phase -= math.Floor(g.phase)
		g.pos++
	}
	return len(samples), true
}

func (g *WhirGenerator) Err() error { return nil }
