package soundscape

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/soundscape/backend/internal/shared/id"
)

// ErrNotFound is returned by a Persistence when a key has never been saved
var ErrNotFound = errors.New("persistence: key not found")

// Persistence is the durable key/value storage the store reads once at
// start-up and writes after every durable mutation.
type Persistence interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Storage keys, one per variant collection
const (
	KeyEvents  = "airwave-soundscape-events"
	KeyMoments = "airwave-soundscape-moments"
	KeyTracks  = "airwave-soundscape-tracks"
)

// StorageKey returns the key holding the variant's durable collection
func StorageKey(v Variant) string {
	switch v {
	case VariantMoments:
		return KeyMoments
	case VariantTracks:
		return KeyTracks
	default:
		return KeyEvents
	}
}

// encodeDurable serializes the variant's durable collection in its persisted shape
func encodeDurable(v Variant, s *session) ([]byte, error) {
	var payload any
	switch v {
	case VariantEvents:
		payload = nonNil(s.records)
	case VariantMoments:
		payload = nonNil(s.moments)
	case VariantTracks:
		payload = orderedTracks(s.tracks)
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", v, err)
	}
	return data, nil
}

// decodeDurable parses a persisted collection into s.
// On error s is left holding empty defaults.
func decodeDurable(v Variant, data []byte, s *session) error {
	switch v {
	case VariantEvents:
		var records []CapturedRecord
		if err := sonic.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("unmarshal events: %w", err)
		}
		s.records = sanitizeRecords(records)
	case VariantMoments:
		var moments []Moment
		if err := sonic.Unmarshal(data, &moments); err != nil {
			return fmt.Errorf("unmarshal moments: %w", err)
		}
		s.moments = sanitizeMoments(moments)
	case VariantTracks:
		var tracks []Track
		if err := sonic.Unmarshal(data, &tracks); err != nil {
			return fmt.Errorf("unmarshal tracks: %w", err)
		}
		s.tracks = sanitizeTracks(tracks)
	}
	return nil
}

func sanitizeRecords(in []CapturedRecord) []CapturedRecord {
	out := make([]CapturedRecord, 0, len(in))
	for _, r := range in {
		if r.ID == "" || !r.Category.Valid() {
			continue
		}
		r.Clarity = clamp01(r.Clarity)
		r.Timestamp = recoverTimestamp(r.ID, r.Timestamp)
		out = append(out, r)
	}
	return out
}

func sanitizeMoments(in []Moment) []Moment {
	out := make([]Moment, 0, len(in))
	for _, m := range in {
		if m.ID == "" || !m.Category.Valid() {
			continue
		}
		m.Clarity = clamp01(m.Clarity)
		m.Timestamp = recoverTimestamp(m.ID, m.Timestamp)
		if m.TokensAtCapture < 0 {
			m.TokensAtCapture = 0
		}
		out = append(out, m)
	}
	return out
}

// sanitizeTracks rebuilds one slot per category. Loop playback is not
// resumed across restarts, so IsLooping is cleared.
func sanitizeTracks(in []Track) map[Category]*Track {
	tracks := emptyTracks()
	for _, t := range in {
		slot, ok := tracks[t.Category]
		if !ok {
			continue
		}
		for _, n := range t.Notes {
			if n.ID == "" {
				continue
			}
			n.X = clamp01(n.X)
			n.Y = clamp01(n.Y)
			n.Category = t.Category
			n.Timestamp = recoverTimestamp(n.ID, n.Timestamp)
			slot.Notes = append(slot.Notes, n)
		}
	}
	return tracks
}

// recoverTimestamp fills a missing timestamp from the creation time encoded
// in ids this service generated. Foreign ids leave it untouched.
func recoverTimestamp(entryID string, ts int64) int64 {
	if ts > 0 {
		return ts
	}
	if created, err := id.Timestamp(entryID); err == nil {
		return created.UnixMilli()
	}
	return ts
}

func orderedTracks(tracks map[Category]*Track) []Track {
	out := make([]Track, 0, len(categories))
	for _, c := range categories {
		if t, ok := tracks[c]; ok {
			out = append(out, t.clone())
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
