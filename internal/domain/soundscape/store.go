package soundscape

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/export"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/id"
	"go.uber.org/zap"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// newSeed draws a PCG seed from crypto/rand, falling back to the wall clock
func newSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

func (systemClock) Now() time.Time { return time.Now() }

// Random supplies uniform values in [0, 1)
type Random interface {
	Float64() float64
}

// Options configures a Store. Zero values select production defaults.
type Options struct {
	Logger      *zap.Logger
	Clock       Clock
	Random      Random
	IDs         *id.Generator
	SaveTimeout time.Duration
}

const defaultSaveTimeout = 2 * time.Second

// Store owns the single mutable session aggregate.
// Every mutation runs under one mutex; listeners are notified after it is released.
type Store struct {
	mu       sync.Mutex
	profile  Profile
	s        session
	lastMode Mode
	closed   bool
	pending  []Event

	// dispatchMu keeps event delivery in mutation order
	dispatchMu sync.Mutex
	listeners  []Listener

	persistence Persistence
	key         string
	saveTimeout time.Duration

	logger  *zap.Logger
	metrics *monitoring.Metrics
	clock   Clock
	rng     Random
	ids     *id.Generator
}

// NewStore creates the session store and seeds its durable collection from
// persistence. A missing or unreadable collection starts empty.
func NewStore(ctx context.Context, profile Profile, persistence Persistence, opts Options) (*Store, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session profile: %w", err)
	}

	st := &Store{
		profile:     profile,
		persistence: persistence,
		key:         StorageKey(profile.Variant),
		saveTimeout: opts.SaveTimeout,
		logger:      opts.Logger,
		clock:       opts.Clock,
		rng:         opts.Random,
		ids:         opts.IDs,
	}
	if st.logger == nil {
		st.logger = zap.NewNop()
	}
	if st.clock == nil {
		st.clock = systemClock{}
	}
	if st.rng == nil {
		st.rng = rand.New(rand.NewPCG(newSeed(), 0x5eed))
	}
	if st.ids == nil {
		st.ids = id.Default()
	}
	if st.saveTimeout <= 0 {
		st.saveTimeout = defaultSaveTimeout
	}

	st.s = session{
		clarity:       clamp01(profile.InitialClarity),
		focus:         clamp01(profile.InitialFocus),
		sprayStrength: clamp01(profile.InitialSprayStrength),
		category:      DefaultCategory,
		entities:      []Entity{},
		records:       []CapturedRecord{},
		moments:       []Moment{},
		tracks:        emptyTracks(),
	}
	st.load(ctx)

	normalize(profile.Variant, &st.s)
	st.lastMode = deriveMode(profile.Variant, &st.s)

	return st, nil
}

// WithMetrics attaches a metrics collector
func (st *Store) WithMetrics(m *monitoring.Metrics) *Store {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.metrics = m
	st.metrics.SetSessionState(st.s.clarity, len(st.s.entities), string(st.lastMode))
	return st
}

func (st *Store) load(ctx context.Context) {
	if st.persistence == nil {
		return
	}

	data, err := st.persistence.Load(ctx, st.key)
	switch {
	case errors.Is(err, ErrNotFound):
		st.logger.Info("No persisted collection, starting empty", zap.String("key", st.key))
		return
	case err != nil:
		st.logger.Warn("Failed to load persisted collection, starting empty",
			zap.String("key", st.key), zap.Error(err))
		st.metrics.IncPersistenceFailures("load")
		return
	}

	if err := decodeDurable(st.profile.Variant, data, &st.s); err != nil {
		st.logger.Warn("Persisted collection is unreadable, starting empty",
			zap.String("key", st.key), zap.Error(err))
		return
	}
	st.logger.Info("Loaded persisted collection",
		zap.String("key", st.key), zap.Int("size", st.durableSize()))
}

// Profile returns the store's tuning
func (st *Store) Profile() Profile {
	return st.profile
}

// AddListener registers l for events produced by subsequent mutations.
// Listeners must not call store mutators synchronously from OnEvent.
func (st *Store) AddListener(l Listener) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, l)
}

// apply runs fn under the store lock, re-derives mode, persists when fn
// reports a durable change, and dispatches the collected events.
// It returns false if the store is closed.
func (st *Store) apply(fn func() (durable bool)) bool {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return false
	}

	durable := fn()
	st.reconcile()
	if durable {
		st.persist()
	}

	events := st.pending
	listeners := st.listeners
	st.pending = nil

	st.dispatchMu.Lock()
	st.mu.Unlock()
	defer st.dispatchMu.Unlock()

	for _, e := range events {
		for _, l := range listeners {
			l.OnEvent(e)
		}
	}
	return true
}

func (st *Store) emit(e Event) {
	st.pending = append(st.pending, e)
}

// reconcile normalizes mode inputs and emits a transition when the derived mode changes
func (st *Store) reconcile() {
	normalize(st.profile.Variant, &st.s)
	mode := deriveMode(st.profile.Variant, &st.s)
	if mode != st.lastMode {
		st.logger.Debug("Mode transition",
			zap.String("from", string(st.lastMode)),
			zap.String("to", string(mode)),
			zap.Float64("clarity", st.s.clarity))
		st.emit(Event{Kind: EventMode, PrevMode: st.lastMode, Mode: mode, Category: st.s.category})
		st.lastMode = mode
	}
	st.metrics.SetSessionState(st.s.clarity, len(st.s.entities), string(mode))
}

// persist writes the durable collection. Failures are logged and counted,
// the in-memory collection stays authoritative. Runs with st.mu held, so
// each write is bounded by saveTimeout.
func (st *Store) persist() {
	if st.persistence == nil {
		return
	}

	data, err := encodeDurable(st.profile.Variant, &st.s)
	if err != nil {
		st.logger.Warn("Failed to encode collection", zap.String("key", st.key), zap.Error(err))
		st.metrics.IncPersistenceFailures("encode")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), st.saveTimeout)
	defer cancel()

	if err := st.persistence.Save(ctx, st.key, data); err != nil {
		st.logger.Warn("Failed to persist collection",
			zap.String("key", st.key), zap.Int("bytes", len(data)), zap.Error(err))
		st.metrics.IncPersistenceFailures("save")
		return
	}
	st.metrics.IncPersistenceWrites(st.key)
}

// Continuous values

// SetClarity replaces clarity, clamped to [0, 1]
func (st *Store) SetClarity(v float64) {
	st.apply(func() bool {
		st.setClarity(clamp01(v))
		return false
	})
}

func (st *Store) setClarity(v float64) {
	if v == st.s.clarity {
		return
	}
	st.s.clarity = v
	st.emit(Event{
		Kind:     EventClarity,
		Category: st.s.category,
		Clarity:  v,
		Focus:    st.s.focus,
	})
}

// SetFocus replaces focus, clamped to [0, 1]
func (st *Store) SetFocus(v float64) {
	st.apply(func() bool {
		v = clamp01(v)
		if v == st.s.focus {
			return false
		}
		st.s.focus = v
		st.emit(Event{
			Kind:      EventFocus,
			Category:  st.s.category,
			Clarity:   st.s.clarity,
			Focus:     v,
			NoteCount: st.s.noteCount(),
		})
		return false
	})
}

// SetSprayStrength replaces spray strength, clamped to [0, 1]
func (st *Store) SetSprayStrength(v float64) {
	st.apply(func() bool {
		st.s.sprayStrength = clamp01(v)
		st.emit(Event{Kind: EventSprayStrength, SprayStrength: st.s.sprayStrength})
		return false
	})
}

// SetCategory switches the active category. Unknown categories are ignored.
func (st *Store) SetCategory(c Category) {
	if !c.Valid() {
		return
	}
	st.apply(func() bool {
		if c == st.s.category {
			return false
		}
		st.s.category = c
		st.emit(Event{
			Kind:      EventCategory,
			Category:  c,
			Clarity:   st.s.clarity,
			Focus:     st.s.focus,
			NoteCount: st.s.noteCount(),
		})
		return false
	})
}

// SetAudioStarted records whether the audio engine is running
func (st *Store) SetAudioStarted(started bool) {
	st.apply(func() bool {
		st.setAudioStarted(started)
		return false
	})
}

func (st *Store) setAudioStarted(started bool) {
	if started == st.s.audioStarted {
		return
	}
	st.s.audioStarted = started
	st.emit(Event{
		Kind:      EventAudio,
		Active:    started,
		Category:  st.s.category,
		Clarity:   st.s.clarity,
		Focus:     st.s.focus,
		NoteCount: st.s.noteCount(),
	})
	if !started {
		return
	}
	// resume loop players that were running before audio stopped
	for _, c := range categories {
		if t := st.s.tracks[c]; t.IsLooping && len(t.Notes) > 0 {
			st.emit(st.loopEvent(t))
		}
	}
}

// IncrementClarity raises clarity by amount weighted by focus
func (st *Store) IncrementClarity(amount float64) {
	st.apply(func() bool {
		st.incrementClarity(amount)
		return false
	})
}

func (st *Store) incrementClarity(amount float64) {
	st.setClarity(clamp01(st.s.clarity + amount*st.profile.weight(st.s.focus)))
}

// Spray handles a click into the field at normalized (x, y): it starts
// audio if needed, emits a spray cue and raises clarity.
func (st *Store) Spray(x, y float64) {
	st.apply(func() bool {
		st.setAudioStarted(true)
		st.emit(Event{
			Kind:          EventSpray,
			Category:      st.s.category,
			X:             clamp01(x),
			Y:             clamp01(y),
			SprayStrength: st.s.sprayStrength,
		})
		st.incrementClarity(st.profile.SprayAmount)
		return false
	})
}

// CompleteClosure signals that the closure cue finished playing.
// It enters stable only when the events variant is currently in closure.
func (st *Store) CompleteClosure() bool {
	entered := false
	st.apply(func() bool {
		if st.profile.Variant != VariantEvents {
			return false
		}
		if deriveMode(st.profile.Variant, &st.s) != ModeClosure {
			return false
		}
		st.s.stableLatched = true
		entered = true
		return false
	})
	return entered
}

// Captures

// CaptureRecord snapshots the current category and clarity into the
// events collection. It is a no-op in other variants.
func (st *Store) CaptureRecord() (*CapturedRecord, bool) {
	var rec *CapturedRecord
	st.apply(func() bool {
		if st.profile.Variant != VariantEvents {
			return false
		}
		r := CapturedRecord{
			ID:        string(st.ids.NewRecordID()),
			Timestamp: st.clock.Now().UnixMilli(),
			Category:  st.s.category,
			Clarity:   st.s.clarity,
		}
		st.s.records = append(st.s.records, r)
		rec = &r

		st.metrics.IncRecordsCaptured(string(VariantEvents))
		st.emit(Event{Kind: EventRecord, Category: r.Category, Clarity: r.Clarity})
		return true
	})
	return rec, rec != nil
}

// CaptureMoment snapshots a locked session into the moments collection and
// soft-resets progress. It is a no-op unless the session is locked.
func (st *Store) CaptureMoment() (*Moment, bool) {
	var mom *Moment
	st.apply(func() bool {
		if st.profile.Variant != VariantMoments || !st.s.locked {
			return false
		}
		m := Moment{
			ID:              string(st.ids.NewMomentID()),
			Timestamp:       st.clock.Now().UnixMilli(),
			Name:            fmt.Sprintf("Moment %d", len(st.s.moments)+1),
			Category:        st.s.category,
			Clarity:         st.s.clarity,
			TokensAtCapture: st.s.tokens,
		}
		st.s.moments = append(st.s.moments, m)
		mom = &m

		st.s.tokens = 0
		st.s.locked = false
		st.setClarity(clamp01(st.s.clarity - MomentClarityDrop))

		st.metrics.IncRecordsCaptured(string(VariantMoments))
		st.emit(Event{Kind: EventRecord, Category: m.Category, Clarity: m.Clarity})
		return true
	})
	return mom, mom != nil
}

// CaptureEntity removes a live entity by id. An unknown id, already swept
// or already captured, is a silent no-op. In the tracks variant the
// capture is recorded as a note in the active category's track; in the
// moments variant it counts as one collected token until the session locks.
func (st *Store) CaptureEntity(entityID string) (Entity, bool) {
	if !id.HasPrefix(entityID, id.EntityPrefix) {
		return Entity{}, false
	}
	var captured Entity
	found := false
	st.apply(func() bool {
		i := slices.IndexFunc(st.s.entities, func(e Entity) bool { return e.ID == entityID })
		if i < 0 {
			return false
		}
		captured = st.s.entities[i]
		found = true
		st.s.entities = slices.Delete(st.s.entities, i, i+1)

		st.metrics.IncEntitiesCaptured()
		st.emit(Event{
			Kind:     EventCapture,
			Category: st.s.category,
			EntityID: captured.ID,
			X:        captured.X,
			Y:        captured.Y,
		})

		switch st.profile.Variant {
		case VariantMoments:
			// tokens stop counting once the session has locked
			if !st.s.locked {
				st.s.tokens++
			}
			return false
		case VariantEvents:
			return false
		}

		t := st.s.tracks[st.s.category]
		t.Notes = append(t.Notes, Note{
			ID:        string(st.ids.NewNoteID()),
			Timestamp: st.clock.Now().UnixMilli(),
			X:         captured.X,
			Y:         captured.Y,
			Category:  st.s.category,
		})
		st.emitNoteCount()
		if t.IsLooping {
			st.emit(st.loopEvent(t))
		}
		return true
	})
	return captured, found
}

// Tracks

// ToggleTrackLoop starts or stops loop playback of a category's track.
// Toggling an empty track is a no-op. It returns the new looping state.
func (st *Store) ToggleTrackLoop(c Category) bool {
	looping := false
	st.apply(func() bool {
		t, ok := st.s.tracks[c]
		if !ok || len(t.Notes) == 0 {
			return false
		}
		t.IsLooping = !t.IsLooping
		looping = t.IsLooping
		st.emit(st.loopEvent(t))
		return true
	})
	return looping
}

// ClearTrack removes every note from a category's track and stops its loop
func (st *Store) ClearTrack(c Category) {
	st.apply(func() bool {
		t, ok := st.s.tracks[c]
		if !ok {
			return false
		}
		wasLooping := t.IsLooping
		t.Notes = []Note{}
		t.IsLooping = false
		if wasLooping {
			st.emit(st.loopEvent(t))
		}
		st.emitNoteCount()
		return true
	})
}

// DeleteNote removes one note from a category's track.
// A track left empty stops looping.
func (st *Store) DeleteNote(c Category, noteID string) bool {
	deleted := false
	st.apply(func() bool {
		t, ok := st.s.tracks[c]
		if !ok {
			return false
		}
		i := slices.IndexFunc(t.Notes, func(n Note) bool { return n.ID == noteID })
		if i < 0 {
			return false
		}
		t.Notes = slices.Delete(t.Notes, i, i+1)
		deleted = true
		if t.IsLooping {
			if len(t.Notes) == 0 {
				t.IsLooping = false
			}
			st.emit(st.loopEvent(t))
		}
		st.emitNoteCount()
		return true
	})
	return deleted
}

func (st *Store) loopEvent(t *Track) Event {
	notes := make([]Note, len(t.Notes))
	copy(notes, t.Notes)
	return Event{Kind: EventLoop, Category: t.Category, Active: t.IsLooping, Notes: notes}
}

func (st *Store) emitNoteCount() {
	st.emit(Event{
		Kind:      EventNoteCount,
		Category:  st.s.category,
		Focus:     st.s.focus,
		NoteCount: st.s.noteCount(),
	})
}

// Durable records

// RenameRecord renames a moment. Blank names and unknown ids are ignored.
func (st *Store) RenameRecord(recordID, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	renamed := false
	st.apply(func() bool {
		i := slices.IndexFunc(st.s.moments, func(m Moment) bool { return m.ID == recordID })
		if i < 0 || st.s.moments[i].Name == name {
			return false
		}
		st.s.moments[i].Name = name
		renamed = true
		return true
	})
	return renamed
}

// DeleteRecord removes one captured record or moment by id
func (st *Store) DeleteRecord(recordID string) bool {
	deleted := false
	st.apply(func() bool {
		switch st.profile.Variant {
		case VariantEvents:
			n := len(st.s.records)
			st.s.records = slices.DeleteFunc(st.s.records, func(r CapturedRecord) bool { return r.ID == recordID })
			deleted = len(st.s.records) != n
		case VariantMoments:
			n := len(st.s.moments)
			st.s.moments = slices.DeleteFunc(st.s.moments, func(m Moment) bool { return m.ID == recordID })
			deleted = len(st.s.moments) != n
		}
		return deleted
	})
	return deleted
}

// ClearRecords empties the variant's durable collection.
// In the tracks variant every track is cleared and stops looping.
func (st *Store) ClearRecords() {
	st.apply(func() bool {
		switch st.profile.Variant {
		case VariantEvents:
			st.s.records = []CapturedRecord{}
		case VariantMoments:
			st.s.moments = []Moment{}
		case VariantTracks:
			for _, c := range categories {
				t := st.s.tracks[c]
				if t.IsLooping {
					t.IsLooping = false
					st.emit(st.loopEvent(t))
				}
				t.Notes = []Note{}
			}
			st.emitNoteCount()
		}
		return true
	})
}

// exportRoot names the collection in formats that need a top-level table
func exportRoot(v Variant) string {
	switch v {
	case VariantMoments:
		return "moments"
	case VariantTracks:
		return "tracks"
	default:
		return "records"
	}
}

// Export serializes the durable collection without mutating the session.
// It returns the payload and a dated download filename.
func (st *Store) Export(f export.Format, compress bool) ([]byte, string, error) {
	st.mu.Lock()
	v := st.profile.Variant
	records := slices.Clone(st.s.records)
	moments := slices.Clone(st.s.moments)
	tracks := orderedTracks(st.s.tracks)
	now := st.clock.Now()
	st.mu.Unlock()

	var (
		data []byte
		err  error
	)
	root := exportRoot(v)
	switch v {
	case VariantEvents:
		data, err = export.Encode(f, root, nonNil(records))
	case VariantMoments:
		data, err = export.Encode(f, root, nonNil(moments))
	case VariantTracks:
		data, err = export.Encode(f, root, tracks)
	}
	if err != nil {
		return nil, "", fmt.Errorf("export %s: %w", v, err)
	}

	if compress {
		if data, err = export.Compress(data); err != nil {
			return nil, "", fmt.Errorf("export %s: %w", v, err)
		}
	}
	return data, export.Filename(string(v), f, now, compress), nil
}

// Import replaces the durable collection with a previously exported one.
// Invalid entries are dropped; the number of entries kept is returned.
func (st *Store) Import(f export.Format, data []byte) (int, error) {
	root := exportRoot(st.profile.Variant)

	var (
		records []CapturedRecord
		moments []Moment
		tracks  map[Category]*Track
		count   int
	)
	switch st.profile.Variant {
	case VariantEvents:
		in, err := export.Decode[CapturedRecord](f, root, data)
		if err != nil {
			return 0, fmt.Errorf("import records: %w", err)
		}
		records = sanitizeRecords(in)
		count = len(records)
	case VariantMoments:
		in, err := export.Decode[Moment](f, root, data)
		if err != nil {
			return 0, fmt.Errorf("import moments: %w", err)
		}
		moments = sanitizeMoments(in)
		count = len(moments)
	case VariantTracks:
		in, err := export.Decode[Track](f, root, data)
		if err != nil {
			return 0, fmt.Errorf("import tracks: %w", err)
		}
		tracks = sanitizeTracks(in)
		for _, t := range tracks {
			count += len(t.Notes)
		}
	}

	if !st.apply(func() bool {
		switch st.profile.Variant {
		case VariantEvents:
			st.s.records = records
		case VariantMoments:
			st.s.moments = moments
		case VariantTracks:
			for _, c := range categories {
				if old := st.s.tracks[c]; old.IsLooping {
					st.emit(st.loopEvent(tracks[c]))
				}
			}
			st.s.tracks = tracks
			st.emitNoteCount()
		}
		return true
	}) {
		return 0, ErrClosed
	}

	st.logger.Info("Imported collection",
		zap.String("variant", string(st.profile.Variant)), zap.Int("count", count))
	return count, nil
}

// ErrClosed is returned by operations that report errors once the store is closed
var ErrClosed = errors.New("session store closed")

// Reads

// Snapshot returns an immutable copy of the session
func (st *Store) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	snap := Snapshot{
		Variant:          st.profile.Variant,
		Clarity:          st.s.clarity,
		Focus:            st.s.focus,
		SprayStrength:    st.s.sprayStrength,
		EffectiveClarity: EffectiveClarity(st.s.clarity, st.s.focus),
		Category:         st.s.category,
		Mode:             st.lastMode,
		AudioStarted:     st.s.audioStarted,
		Entities:         slices.Clone(st.s.entities),
		TokensCollected:  st.s.tokens,
		Locked:           st.s.locked,
	}
	if snap.Entities == nil {
		snap.Entities = []Entity{}
	}

	switch st.profile.Variant {
	case VariantEvents:
		snap.Records = nonNil(slices.Clone(st.s.records))
	case VariantMoments:
		snap.Moments = nonNil(slices.Clone(st.s.moments))
	case VariantTracks:
		snap.Tracks = orderedTracks(st.s.tracks)
	}
	return snap
}

// Mode returns the current derived mode
func (st *Store) Mode() Mode {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastMode
}

// Closed reports whether Close has been called
func (st *Store) Closed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.closed
}

// Close makes every further mutator a no-op. Ticks arriving from a timer
// that has not stopped yet see the flag and return.
func (st *Store) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.closed = true
	st.s.entities = nil
	st.logger.Info("Session store closed")
}

func (st *Store) durableSize() int {
	switch st.profile.Variant {
	case VariantEvents:
		return len(st.s.records)
	case VariantMoments:
		return len(st.s.moments)
	default:
		return st.s.noteCount()
	}
}
