// Package id provides centralized ID generation for the backend.
//
// IDs are prefixed ULIDs:
//   - Lexicographic sortability: newer entities sort after older ones
//   - Prefixed types: ent_*, rec_*, mom_*, note_* make logs readable
//   - Type safety: separate types prevent passing a note ID where an entity ID is expected
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// EntityID identifies an ephemeral on-screen entity (floating note / glimmer)
type EntityID string

// RecordID identifies a captured event record
type RecordID string

// MomentID identifies a captured moment
type MomentID string

// NoteID identifies a note stored in a category track
type NoteID string

// ClientID identifies a websocket connection
type ClientID string

// ============================================================================
// ID Prefixes
// ============================================================================

const (
	EntityPrefix = "ent"
	RecordPrefix = "rec"
	MomentPrefix = "mom"
	NotePrefix   = "note"
	ClientPrefix = "cli"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for tests that need deterministic IDs.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
		now:     time.Now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewEntityID generates a new ephemeral entity ID
func (g *Generator) NewEntityID() EntityID {
	return EntityID(g.GenerateWithPrefix(EntityPrefix))
}

// NewRecordID generates a new captured record ID
func (g *Generator) NewRecordID() RecordID {
	return RecordID(g.GenerateWithPrefix(RecordPrefix))
}

// NewMomentID generates a new moment ID
func (g *Generator) NewMomentID() MomentID {
	return MomentID(g.GenerateWithPrefix(MomentPrefix))
}

// NewNoteID generates a new track note ID
func (g *Generator) NewNoteID() NoteID {
	return NoteID(g.GenerateWithPrefix(NotePrefix))
}

// NewClientID generates a websocket client ID.
// Clients are not persisted, so a random UUID is enough.
func NewClientID() ClientID {
	return ClientID(ClientPrefix + "_" + uuid.NewString())
}

func (id EntityID) String() string { return string(id) }
func (id RecordID) String() string { return string(id) }
func (id MomentID) String() string { return string(id) }
func (id NoteID) String() string   { return string(id) }
func (id ClientID) String() string { return string(id) }

// ============================================================================
// Validation
// ============================================================================

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// HasPrefix reports whether id is a prefixed ULID with the given prefix
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	return ok && IsValid(rest)
}

// Timestamp extracts the timestamp from a possibly prefixed ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
