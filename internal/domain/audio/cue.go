package audio

import "github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"

// CueKind names an instruction for the browser synth
type CueKind string

const (
	CueStart    CueKind = "start"     // attack the pad chord
	CueStop     CueKind = "stop"      // release everything
	CueTimbre   CueKind = "timbre"    // crossfade to a category's pad
	CueParams   CueKind = "params"    // ramp continuous parameters
	CueFocus    CueKind = "focus"     // focus blip
	CueSpray    CueKind = "spray"     // percussive click
	CueCapture  CueKind = "capture"   // two-note chime
	CueClosure  CueKind = "closure"   // closure swell
	CueLock     CueKind = "lock"      // stable arpeggio
	CueLoopNote CueKind = "loop_note" // one step of a loop player
	CueLoopStop CueKind = "loop_stop"
)

// Tone is one scheduled note of a cue
type Tone struct {
	Frequency  float64 `json:"frequency"`
	OffsetMs   int64   `json:"offset_ms,omitempty"`
	DurationMs int64   `json:"duration_ms"`
}

// Cue is a single instruction to the audio collaborator
type Cue struct {
	Kind     CueKind             `json:"kind"`
	Category soundscape.Category `json:"scent,omitempty"`
	Tones    []Tone              `json:"tones,omitempty"`
	Gain     float64             `json:"gain,omitempty"`
	Params   *Params             `json:"params,omitempty"`
	Timbre   *Profile            `json:"timbre,omitempty"`
	NoteID   string              `json:"note_id,omitempty"`
}

// Sink receives cues. Implementations must not block for long.
type Sink interface {
	PlayCue(Cue)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Cue)

// PlayCue calls f(c)
func (f SinkFunc) PlayCue(c Cue) { f(c) }

func chordTones(freqs []float64, stepMs, durationMs int64) []Tone {
	tones := make([]Tone, len(freqs))
	for i, f := range freqs {
		tones[i] = Tone{Frequency: f, OffsetMs: int64(i) * stepMs, DurationMs: durationMs}
	}
	return tones
}

func octaveUp(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = f * 2
	}
	return out
}
