package audio

import (
	"math"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
)

// Oscillator waveform names understood by the browser synth
const (
	OscSine     = "sine"
	OscTriangle = "triangle"
)

// Profile is the timbre of one category
type Profile struct {
	BaseFreq    float64 `json:"base_freq"`
	Chord       []int   `json:"chord"`
	FilterFreq  float64 `json:"filter_freq"`
	FilterQ     float64 `json:"filter_q"`
	ReverbDecay float64 `json:"reverb_decay"`
	PadDetune   float64 `json:"pad_detune"`
	SparkleLow  float64 `json:"sparkle_low"`
	SparkleHigh float64 `json:"sparkle_high"`
	ChorusDepth float64 `json:"chorus_depth"`
	Oscillator  string  `json:"oscillator"`
	Character   string  `json:"character"`
}

var profiles = map[soundscape.Category]Profile{
	soundscape.MandarinCedarwood: {
		BaseFreq: 196, Chord: []int{0, 4, 7, 11},
		FilterFreq: 1000, FilterQ: 0.6, ReverbDecay: 3.5, PadDetune: 4,
		SparkleLow: 700, SparkleHigh: 1200, ChorusDepth: 0.3,
		Oscillator: OscSine, Character: "warm",
	},
	soundscape.EucalyptusHinoki: {
		BaseFreq: 330, Chord: []int{0, 7, 12, 19},
		FilterFreq: 2200, FilterQ: 0.3, ReverbDecay: 5, PadDetune: 1,
		SparkleLow: 1400, SparkleHigh: 2400, ChorusDepth: 0.15,
		Oscillator: OscTriangle, Character: "airy",
	},
	soundscape.BergamotAmber: {
		BaseFreq: 261, Chord: []int{0, 4, 7, 14},
		FilterFreq: 1600, FilterQ: 0.5, ReverbDecay: 3, PadDetune: 3,
		SparkleLow: 1000, SparkleHigh: 1800, ChorusDepth: 0.25,
		Oscillator: OscTriangle, Character: "bright",
	},
	soundscape.BlackteaPalo: {
		BaseFreq: 146, Chord: []int{0, 3, 7, 10},
		FilterFreq: 800, FilterQ: 0.8, ReverbDecay: 5, PadDetune: 6,
		SparkleLow: 500, SparkleHigh: 900, ChorusDepth: 0.4,
		Oscillator: OscSine, Character: "deep",
	},
}

// ProfileFor returns the timbre of c, falling back to the default category
func ProfileFor(c soundscape.Category) Profile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[soundscape.DefaultCategory]
}

// sprayScale maps horizontal position to a semitone offset
var sprayScale = [...]int{0, 2, 4, 7, 9, 12, 14}

// ScaleInterval returns the semitone offset for normalized x
func ScaleInterval(x float64) int {
	i := int(math.Floor(clamp01(x) * float64(len(sprayScale))))
	if i >= len(sprayScale) {
		i = len(sprayScale) - 1
	}
	return sprayScale[i]
}

func transpose(freq float64, semitones int) float64 {
	return freq * math.Pow(2, float64(semitones)/12)
}

// ChordFrequencies returns the pad chord of p
func (p Profile) ChordFrequencies() []float64 {
	out := make([]float64, len(p.Chord))
	for i, s := range p.Chord {
		out[i] = transpose(p.BaseFreq, s)
	}
	return out
}

// SprayFrequency is the pitch of a spray click at x
func (p Profile) SprayFrequency(x float64) float64 {
	base := p.SparkleLow + (p.SparkleHigh-p.SparkleLow)*0.3
	return transpose(base, ScaleInterval(x))
}

// ChimeFrequencies is the two-note capture chime at x
func (p Profile) ChimeFrequencies(x float64) (float64, float64) {
	f1 := p.SparkleHigh * (0.8 + clamp01(x)*0.4)
	return f1, f1 * 1.5
}

// NoteFrequency is the pitch of a recorded note during loop playback
func (p Profile) NoteFrequency(x float64) float64 {
	return transpose(p.SparkleLow, ScaleInterval(x))
}

// FocusFrequency is the short blip played when focus changes
func (p Profile) FocusFrequency(focus float64) float64 {
	return p.BaseFreq * (1 + clamp01(focus))
}

// Params are the continuous synth parameters driven by clarity, focus and note count
type Params struct {
	Clarity    float64 `json:"clarity"`
	FilterFreq float64 `json:"filter_freq"`
	Detune     float64 `json:"detune"`
	PadGain    float64 `json:"pad_gain"`
	ReverbWet  float64 `json:"reverb_wet"`
}

// ParamsFor computes the synth parameters. clarity is the effective clarity.
func (p Profile) ParamsFor(clarity, focus float64, noteCount int) Params {
	focus = clamp01(focus)
	boost := math.Min(float64(max(noteCount, 0))*0.02, 0.12)
	return Params{
		Clarity:    clamp01(clarity),
		FilterFreq: 300 + focus*p.FilterFreq,
		Detune:     p.PadDetune * (1 - focus*0.9),
		PadGain:    0.1 + focus*0.1 + boost,
		ReverbWet:  0.55 - focus*0.15,
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
