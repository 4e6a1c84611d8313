package audio

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

const (
	DefaultLoopInterval = 600 * time.Millisecond
	DefaultClosureHold  = 3 * time.Second
)

// Config configures an Engine
type Config struct {
	LoopInterval time.Duration
	// ClosureHold is how long the closure cue plays before OnClosureComplete
	// is invoked. Zero disables the callback.
	ClosureHold       time.Duration
	OnClosureComplete func() bool
}

// Engine turns store events into cues and runs one loop player per looping
// category. It implements soundscape.Listener.
type Engine struct {
	sink    Sink
	logger  *zap.Logger
	metrics *monitoring.Metrics
	cfg     Config

	mu        sync.Mutex
	active    bool
	category  soundscape.Category
	clarity   float64
	focus     float64
	noteCount int
	loops     map[soundscape.Category]*loopPlayer
	closure   *time.Timer
	closed    bool
}

type loopPlayer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an audio engine that writes cues to sink
func NewEngine(sink Sink, logger *zap.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = DefaultLoopInterval
	}
	return &Engine{
		sink:     sink,
		logger:   logger,
		cfg:      cfg,
		category: soundscape.DefaultCategory,
		loops:    make(map[soundscape.Category]*loopPlayer),
	}
}

// WithMetrics attaches a metrics collector
func (e *Engine) WithMetrics(m *monitoring.Metrics) *Engine {
	e.metrics = m
	return e
}

// Sync seeds the engine from a snapshot taken at start-up
func (e *Engine) Sync(snap soundscape.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.category = snap.Category
	e.clarity = snap.EffectiveClarity
	e.focus = snap.Focus
	e.active = snap.AudioStarted
	e.noteCount = 0
	for _, t := range snap.Tracks {
		e.noteCount += len(t.Notes)
	}
}

// OnEvent implements soundscape.Listener
func (e *Engine) OnEvent(ev soundscape.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	switch ev.Kind {
	case soundscape.EventAudio:
		e.clarity = soundscape.EffectiveClarity(ev.Clarity, ev.Focus)
		e.focus = ev.Focus
		e.noteCount = ev.NoteCount
		e.active = ev.Active
		if ev.Active {
			p := ProfileFor(e.category)
			e.play(Cue{Kind: CueStart, Category: e.category, Tones: chordTones(p.ChordFrequencies(), 0, 0), Timbre: &p})
			e.playParams()
			return
		}
		e.stopAllLoops()
		e.play(Cue{Kind: CueStop})

	case soundscape.EventCategory:
		e.category = ev.Category
		e.noteCount = ev.NoteCount
		if !e.active {
			return
		}
		p := ProfileFor(ev.Category)
		e.play(Cue{Kind: CueTimbre, Category: ev.Category, Tones: chordTones(p.ChordFrequencies(), 0, 0), Timbre: &p})
		e.playParams()

	case soundscape.EventClarity:
		e.clarity = soundscape.EffectiveClarity(ev.Clarity, ev.Focus)
		if e.active {
			e.playParams()
		}

	case soundscape.EventFocus:
		e.focus = ev.Focus
		e.clarity = soundscape.EffectiveClarity(ev.Clarity, ev.Focus)
		e.noteCount = ev.NoteCount
		if !e.active {
			return
		}
		p := ProfileFor(e.category)
		e.play(Cue{Kind: CueFocus, Category: e.category, Tones: []Tone{{Frequency: p.FocusFrequency(ev.Focus), DurationMs: 150}}})
		e.playParams()

	case soundscape.EventNoteCount:
		e.noteCount = ev.NoteCount
		if e.active {
			e.playParams()
		}

	case soundscape.EventSpray:
		if !e.active {
			return
		}
		p := ProfileFor(ev.Category)
		e.play(Cue{
			Kind:     CueSpray,
			Category: ev.Category,
			Tones:    []Tone{{Frequency: p.SprayFrequency(ev.X), DurationMs: 350}},
			Gain:     0.5 + 0.5*ev.SprayStrength,
		})

	case soundscape.EventCapture:
		if !e.active {
			return
		}
		f1, f2 := ProfileFor(ev.Category).ChimeFrequencies(ev.X)
		e.play(Cue{
			Kind:     CueCapture,
			Category: ev.Category,
			Tones: []Tone{
				{Frequency: f1, DurationMs: 250},
				{Frequency: f2, OffsetMs: 80, DurationMs: 200},
			},
		})

	case soundscape.EventMode:
		e.onMode(ev)

	case soundscape.EventLoop:
		if ev.Active && len(ev.Notes) > 0 && e.active {
			e.startLoop(ev.Category, ev.Notes)
			return
		}
		if e.stopLoop(ev.Category) {
			e.play(Cue{Kind: CueLoopStop, Category: ev.Category})
		}
	}
}

func (e *Engine) onMode(ev soundscape.Event) {
	if ev.Mode != soundscape.ModeClosure && e.closure != nil {
		e.closure.Stop()
		e.closure = nil
	}
	if !e.active {
		return
	}

	p := ProfileFor(e.category)
	switch ev.Mode {
	case soundscape.ModeClosure:
		e.play(Cue{Kind: CueClosure, Category: e.category, Tones: chordTones(octaveUp(p.ChordFrequencies()), 0, 1500)})
		e.scheduleClosureComplete()
	case soundscape.ModeStable:
		e.play(Cue{Kind: CueLock, Category: e.category, Tones: chordTones(octaveUp(p.ChordFrequencies()), 120, 600)})
	}
}

// scheduleClosureComplete fires OnClosureComplete once the closure cue has played.
// It runs on its own goroutine so the store lock is never re-entered from OnEvent.
func (e *Engine) scheduleClosureComplete() {
	if e.cfg.OnClosureComplete == nil || e.cfg.ClosureHold <= 0 || e.closure != nil {
		return
	}
	done := e.cfg.OnClosureComplete
	e.closure = time.AfterFunc(e.cfg.ClosureHold, func() {
		e.mu.Lock()
		e.closure = nil
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}
		if done() {
			e.logger.Debug("Closure cue complete, session stable")
		}
	})
}

func (e *Engine) playParams() {
	params := ProfileFor(e.category).ParamsFor(e.clarity, e.focus, e.noteCount)
	e.play(Cue{Kind: CueParams, Category: e.category, Params: &params})
}

func (e *Engine) play(c Cue) {
	e.metrics.IncCues(string(c.Kind))
	e.sink.PlayCue(c)
}

// startLoop replaces the category's player with one cycling through notes.
// The first note plays immediately.
func (e *Engine) startLoop(c soundscape.Category, notes []soundscape.Note) {
	e.stopLoop(c)

	ctx, cancel := context.WithCancel(context.Background())
	lp := &loopPlayer{cancel: cancel, done: make(chan struct{})}
	e.loops[c] = lp
	e.metrics.SetLoopsActive(len(e.loops))

	p := ProfileFor(c)
	interval := e.cfg.LoopInterval
	go func() {
		defer close(lp.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			n := notes[i%len(notes)]
			e.play(Cue{
				Kind:     CueLoopNote,
				Category: c,
				Tones:    []Tone{{Frequency: p.NoteFrequency(n.X), DurationMs: 200}},
				NoteID:   n.ID,
			})
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	e.logger.Debug("Loop player started",
		zap.String("category", string(c)), zap.Int("notes", len(notes)))
}

func (e *Engine) stopLoop(c soundscape.Category) bool {
	lp, ok := e.loops[c]
	if !ok {
		return false
	}
	lp.cancel()
	<-lp.done
	delete(e.loops, c)
	e.metrics.SetLoopsActive(len(e.loops))
	return true
}

func (e *Engine) stopAllLoops() {
	for c := range e.loops {
		e.stopLoop(c)
	}
}

// Looping reports whether a loop player is running for c
func (e *Engine) Looping(c soundscape.Category) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.loops[c]
	return ok
}

// Close stops every loop player and the pending closure timer
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.closure != nil {
		e.closure.Stop()
		e.closure = nil
	}
	e.stopAllLoops()
}
