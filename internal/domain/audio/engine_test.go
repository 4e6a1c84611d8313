package audio

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cueRecorder struct {
	mu   sync.Mutex
	cues []Cue
}

func (r *cueRecorder) PlayCue(c Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, c)
}

func (r *cueRecorder) ofKind(k CueKind) []Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Cue
	for _, c := range r.cues {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

func (r *cueRecorder) count(k CueKind) int {
	return len(r.ofKind(k))
}

func startedEngine(t *testing.T, cfg Config) (*Engine, *cueRecorder) {
	t.Helper()
	rec := &cueRecorder{}
	e := NewEngine(rec, nil, cfg)
	t.Cleanup(e.Close)
	e.OnEvent(soundscape.Event{Kind: soundscape.EventAudio, Active: true, Clarity: 0.2, Focus: 0.5})
	return e, rec
}

func TestScaleInterval(t *testing.T) {
	tests := []struct {
		x    float64
		want int
	}{
		{0, 0},
		{0.14, 0},
		{0.15, 2},
		{0.5, 7},
		{0.99, 14},
		{1, 14},
		{-3, 0},
		{7, 14},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScaleInterval(tt.x), "x=%v", tt.x)
	}
}

func TestProfileFrequencies(t *testing.T) {
	p := ProfileFor(soundscape.EucalyptusHinoki)

	chord := p.ChordFrequencies()
	require.Len(t, chord, 4)
	assert.InDelta(t, 330, chord[0], 1e-9)
	assert.InDelta(t, 660, chord[2], 1e-9)

	// base = 1400 + 1000*0.3, interval 0
	assert.InDelta(t, 1700, p.SprayFrequency(0), 1e-9)
	assert.InDelta(t, 3400, p.SprayFrequency(0.8), 1e-9)

	f1, f2 := p.ChimeFrequencies(0.5)
	assert.InDelta(t, 2400, f1, 1e-9)
	assert.InDelta(t, 3600, f2, 1e-9)

	assert.InDelta(t, 1400, p.NoteFrequency(0), 1e-9)
	assert.InDelta(t, 495, p.FocusFrequency(0.5), 1e-9)

	assert.Equal(t, ProfileFor(soundscape.DefaultCategory), ProfileFor("unknown"))
}

func TestParamsFor(t *testing.T) {
	p := ProfileFor(soundscape.BlackteaPalo)

	low := p.ParamsFor(0.3, 0, 0)
	assert.InDelta(t, 300, low.FilterFreq, 1e-9)
	assert.InDelta(t, 6, low.Detune, 1e-9)
	assert.InDelta(t, 0.1, low.PadGain, 1e-9)
	assert.InDelta(t, 0.55, low.ReverbWet, 1e-9)

	high := p.ParamsFor(0.3, 1, 100)
	assert.InDelta(t, 1100, high.FilterFreq, 1e-9)
	assert.InDelta(t, 0.6, high.Detune, 1e-9)
	assert.InDelta(t, 0.2+0.12, high.PadGain, 1e-9)
	assert.InDelta(t, 0.4, high.ReverbWet, 1e-9)
}

func TestEngineIgnoresCuesBeforeAudioStarts(t *testing.T) {
	rec := &cueRecorder{}
	e := NewEngine(rec, nil, Config{})
	defer e.Close()

	e.OnEvent(soundscape.Event{Kind: soundscape.EventSpray, Category: soundscape.BergamotAmber, X: 0.5})
	e.OnEvent(soundscape.Event{Kind: soundscape.EventCapture, Category: soundscape.BergamotAmber, X: 0.5})
	e.OnEvent(soundscape.Event{
		Kind:     soundscape.EventLoop,
		Category: soundscape.BergamotAmber,
		Active:   true,
		Notes:    []soundscape.Note{{ID: "note_1", X: 0.2}},
	})

	assert.Empty(t, rec.cues)
	assert.False(t, e.Looping(soundscape.BergamotAmber))
}

func TestEngineSprayAndCapture(t *testing.T) {
	engine, r := startedEngine(t, Config{})
	require.Equal(t, 1, r.count(CueStart))

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventSpray, Category: soundscape.MandarinCedarwood, X: 0.5, SprayStrength: 1})
	sprays := r.ofKind(CueSpray)
	require.Len(t, sprays, 1)
	assert.InDelta(t, ProfileFor(soundscape.MandarinCedarwood).SprayFrequency(0.5), sprays[0].Tones[0].Frequency, 1e-9)
	assert.InDelta(t, 1.0, sprays[0].Gain, 1e-9)

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventCapture, Category: soundscape.MandarinCedarwood, X: 0})
	chimes := r.ofKind(CueCapture)
	require.Len(t, chimes, 1)
	require.Len(t, chimes[0].Tones, 2)
	assert.InDelta(t, 960, chimes[0].Tones[0].Frequency, 1e-9)
	assert.InDelta(t, 1440, chimes[0].Tones[1].Frequency, 1e-9)
	assert.Equal(t, int64(80), chimes[0].Tones[1].OffsetMs)
}

func TestEngineParamsFollowClarityAndFocus(t *testing.T) {
	engine, rec := startedEngine(t, Config{})

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventFocus, Clarity: 0.5, Focus: 1})
	assert.Equal(t, 1, rec.count(CueFocus))

	params := rec.ofKind(CueParams)
	last := params[len(params)-1].Params
	require.NotNil(t, last)
	assert.InDelta(t, 0.5, last.Clarity, 1e-9)
	assert.InDelta(t, 0.4, last.ReverbWet, 1e-9)

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventNoteCount, NoteCount: 3, Focus: 1})
	params = rec.ofKind(CueParams)
	last = params[len(params)-1].Params
	assert.InDelta(t, 0.2+0.06, last.PadGain, 1e-9)
}

func TestEngineModeCues(t *testing.T) {
	var completed atomic.Int32
	engine, rec := startedEngine(t, Config{
		ClosureHold: 10 * time.Millisecond,
		OnClosureComplete: func() bool {
			completed.Add(1)
			return true
		},
	})

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventMode, PrevMode: soundscape.ModeNeutralizing, Mode: soundscape.ModeClosure})
	assert.Equal(t, 1, rec.count(CueClosure))
	require.Eventually(t, func() bool { return completed.Load() == 1 }, time.Second, 5*time.Millisecond)

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventMode, PrevMode: soundscape.ModeClosure, Mode: soundscape.ModeStable})
	assert.Equal(t, 1, rec.count(CueLock))
}

func TestEngineClosureCancelledOnRegress(t *testing.T) {
	var completed atomic.Int32
	engine, _ := startedEngine(t, Config{
		ClosureHold: 50 * time.Millisecond,
		OnClosureComplete: func() bool {
			completed.Add(1)
			return true
		},
	})

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventMode, Mode: soundscape.ModeClosure})
	engine.OnEvent(soundscape.Event{Kind: soundscape.EventMode, Mode: soundscape.ModeNeutralizing})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), completed.Load())
}

func TestEngineLoopPlayer(t *testing.T) {
	engine, rec := startedEngine(t, Config{LoopInterval: 5 * time.Millisecond})
	notes := []soundscape.Note{
		{ID: "note_a", X: 0},
		{ID: "note_b", X: 0.5},
	}

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventLoop, Category: soundscape.EucalyptusHinoki, Active: true, Notes: notes})
	require.True(t, engine.Looping(soundscape.EucalyptusHinoki))

	require.Eventually(t, func() bool { return rec.count(CueLoopNote) >= 4 }, time.Second, 5*time.Millisecond)
	played := rec.ofKind(CueLoopNote)
	assert.Equal(t, "note_a", played[0].NoteID)
	assert.Equal(t, "note_b", played[1].NoteID)
	assert.Equal(t, "note_a", played[2].NoteID)

	// a second category loops independently
	engine.OnEvent(soundscape.Event{Kind: soundscape.EventLoop, Category: soundscape.BlackteaPalo, Active: true, Notes: notes[:1]})
	assert.True(t, engine.Looping(soundscape.BlackteaPalo))

	engine.OnEvent(soundscape.Event{Kind: soundscape.EventLoop, Category: soundscape.EucalyptusHinoki, Active: false})
	assert.False(t, engine.Looping(soundscape.EucalyptusHinoki))
	assert.True(t, engine.Looping(soundscape.BlackteaPalo))
	assert.Equal(t, 1, rec.count(CueLoopStop))

	// stopping audio silences every loop
	engine.OnEvent(soundscape.Event{Kind: soundscape.EventAudio, Active: false})
	assert.False(t, engine.Looping(soundscape.BlackteaPalo))
	assert.Equal(t, 1, rec.count(CueStop))
}

func TestEngineWithStore(t *testing.T) {
	st, err := soundscape.NewStore(t.Context(), soundscape.DefaultProfile(soundscape.VariantTracks), nil, soundscape.Options{})
	require.NoError(t, err)
	defer st.Close()

	rec := &cueRecorder{}
	engine := NewEngine(rec, nil, Config{LoopInterval: 5 * time.Millisecond})
	defer engine.Close()
	engine.Sync(st.Snapshot())
	st.AddListener(engine)

	st.SetClarity(0.5)
	st.Spray(0.3, 0.3)
	require.Equal(t, 1, rec.count(CueSpray))

	ent, ok := st.SpawnTick(time.Now())
	require.True(t, ok)
	_, ok = st.CaptureEntity(ent.ID)
	require.True(t, ok)
	assert.Equal(t, 1, rec.count(CueCapture))

	require.True(t, st.ToggleTrackLoop(soundscape.DefaultCategory))
	assert.True(t, engine.Looping(soundscape.DefaultCategory))

	st.ClearTrack(soundscape.DefaultCategory)
	assert.False(t, engine.Looping(soundscape.DefaultCategory))
}

func TestEngineClosedIgnoresEvents(t *testing.T) {
	engine, rec := startedEngine(t, Config{})
	engine.Close()
	engine.Close()

	n := len(rec.cues)
	engine.OnEvent(soundscape.Event{Kind: soundscape.EventSpray, X: 0.1})
	assert.Len(t, rec.cues, n)
}
