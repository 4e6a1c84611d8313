package soundscape

import "time"

// Entity is a spawned, time-limited on-screen target (floating note / glimmer)
type Entity struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	SpawnTime time.Time `json:"spawn_time"`
}

// CapturedRecord is a flat snapshot captured in the events variant
type CapturedRecord struct {
	ID        string   `json:"id" yaml:"id" toml:"id"`
	Timestamp int64    `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	Category  Category `json:"scent" yaml:"scent" toml:"scent"`
	Clarity   float64  `json:"clarity" yaml:"clarity" toml:"clarity"`
}

// Moment is a named snapshot captured after locking in the moments variant
type Moment struct {
	ID              string   `json:"id" yaml:"id" toml:"id"`
	Timestamp       int64    `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	Name            string   `json:"name" yaml:"name" toml:"name"`
	Category        Category `json:"scent" yaml:"scent" toml:"scent"`
	Clarity         float64  `json:"clarity" yaml:"clarity" toml:"clarity"`
	TokensAtCapture int      `json:"glimmersCollected" yaml:"glimmersCollected" toml:"glimmersCollected"`
}

// Note is one captured entity stored in a category track
type Note struct {
	ID        string   `json:"id" yaml:"id" toml:"id"`
	Timestamp int64    `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	X         float64  `json:"x" yaml:"x" toml:"x"`
	Y         float64  `json:"y" yaml:"y" toml:"y"`
	Category  Category `json:"scent" yaml:"scent" toml:"scent"`
}

// Track is the ordered note sequence recorded for one category
type Track struct {
	Category  Category `json:"scent" yaml:"scent" toml:"scent"`
	Notes     []Note   `json:"notes" yaml:"notes" toml:"notes"`
	IsLooping bool     `json:"isPlaying" yaml:"isPlaying" toml:"isPlaying"`
}

func (t *Track) clone() Track {
	out := Track{Category: t.Category, IsLooping: t.IsLooping, Notes: make([]Note, len(t.Notes))}
	copy(out.Notes, t.Notes)
	return out
}

// Snapshot is an immutable copy of the session handed to readers
type Snapshot struct {
	Variant          Variant          `json:"variant"`
	Clarity          float64          `json:"clarity"`
	Focus            float64          `json:"focus"`
	SprayStrength    float64          `json:"spray_strength"`
	EffectiveClarity float64          `json:"effective_clarity"`
	Category         Category         `json:"scent"`
	Mode             Mode             `json:"mode"`
	AudioStarted     bool             `json:"audio_started"`
	Entities         []Entity         `json:"entities"`
	TokensCollected  int              `json:"tokens_collected"`
	Locked           bool             `json:"locked"`
	Records          []CapturedRecord `json:"records,omitempty"`
	Moments          []Moment         `json:"moments,omitempty"`
	Tracks           []Track          `json:"tracks,omitempty"`
}

// EffectiveClarity is the clarity forwarded to the audio engine
func EffectiveClarity(clarity, focus float64) float64 {
	return clamp01(clarity * (0.6 + 0.4*focus))
}

// EventKind names an outbound notification
type EventKind string

const (
	EventCategory      EventKind = "category"
	EventClarity       EventKind = "clarity"
	EventFocus         EventKind = "focus"
	EventSprayStrength EventKind = "spray_strength"
	EventAudio         EventKind = "audio"
	EventSpray         EventKind = "spray"
	EventCapture       EventKind = "capture"
	EventMode          EventKind = "mode"
	EventLoop          EventKind = "loop"
	EventSpawn         EventKind = "spawn"
	EventExpire        EventKind = "expire"
	EventRecord        EventKind = "record"
	EventNoteCount     EventKind = "note_count"
)

// Event is what the store tells downstream consumers after a mutation.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind          EventKind `json:"kind"`
	Category      Category  `json:"scent,omitempty"`
	Mode          Mode      `json:"mode,omitempty"`
	PrevMode      Mode      `json:"prev_mode,omitempty"`
	Clarity       float64   `json:"clarity,omitempty"`
	Focus         float64   `json:"focus,omitempty"`
	SprayStrength float64   `json:"spray_strength,omitempty"`
	X             float64   `json:"x,omitempty"`
	Y             float64   `json:"y,omitempty"`
	EntityID      string    `json:"entity_id,omitempty"`
	Notes         []Note    `json:"notes,omitempty"`
	NoteCount     int       `json:"note_count,omitempty"`
	Active        bool      `json:"active,omitempty"`
}

// Listener receives store events outside the store lock
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Event)

// OnEvent calls f(e)
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// session is the single mutable aggregate owned by Store
type session struct {
	clarity       float64
	focus         float64
	sprayStrength float64
	category      Category
	audioStarted  bool
	entities      []Entity

	// events variant
	records        []CapturedRecord
	closureLatched bool
	stableLatched  bool

	// moments variant
	tokens  int
	locked  bool
	moments []Moment

	// tracks variant
	tracks map[Category]*Track
}

func (s *session) noteCount() int {
	n := 0
	for _, t := range s.tracks {
		n += len(t.Notes)
	}
	return n
}

func emptyTracks() map[Category]*Track {
	tracks := make(map[Category]*Track, len(categories))
	for _, c := range categories {
		tracks[c] = &Track{Category: c, Notes: []Note{}}
	}
	return tracks
}
