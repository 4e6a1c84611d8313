package soundscape

import (
	"fmt"
	"strings"
	"time"
)

// Variant selects the durable collection shape and the mode rules
type Variant string

const (
	// VariantEvents captures flat event records and runs the closure/stable cycle
	VariantEvents Variant = "events"
	// VariantMoments collects tokens until locked, then captures named moments
	VariantMoments Variant = "moments"
	// VariantTracks records captured notes into per-category loop tracks
	VariantTracks Variant = "tracks"
)

// ParseVariant validates a variant name
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantEvents, VariantMoments, VariantTracks:
		return v, nil
	default:
		return "", fmt.Errorf("unknown session variant %q", s)
	}
}

// Mode thresholds
const (
	ClosureThreshold   = 0.85 // events: clarity that enters closure
	StableExitFloor    = 0.7  // events: clarity below which stable regresses to neutral
	LockingThreshold   = 0.6  // moments: clarity that enters locking
	LockTokenCount     = 3    // moments: tokens needed to lock
	MomentClarityDrop  = 0.45 // moments: clarity removed by the soft reset
	DriftStep          = 0.01 // amplitude of one drift nudge before damping
	DriftDamping       = 0.5
	DefaultSprayAmount = 0.03
)

// Profile holds the tunables of one session variant
type Profile struct {
	Variant Variant

	// Ephemeral entities
	EntityCap         int
	MarginMin         float64
	MarginMax         float64
	EntityTTL         time.Duration
	SpawnPeriod       time.Duration
	SweepPeriod       time.Duration
	SpawnClarityFloor float64

	// Stability drift
	DriftPeriod time.Duration
	DriftFloor  float64

	// Clarity gain
	FocusCoupled bool
	SprayAmount  float64

	// Initial continuous values
	InitialClarity       float64
	InitialFocus         float64
	InitialSprayStrength float64
}

// DefaultProfile returns the tuning used by each variant
func DefaultProfile(v Variant) Profile {
	p := Profile{
		Variant:              v,
		EntityCap:            3,
		MarginMin:            0.2,
		MarginMax:            0.8,
		EntityTTL:            5 * time.Second,
		SpawnPeriod:          2500 * time.Millisecond,
		SweepPeriod:          500 * time.Millisecond,
		SpawnClarityFloor:    0.2,
		DriftPeriod:          2 * time.Second,
		DriftFloor:           0.8,
		FocusCoupled:         true,
		SprayAmount:          DefaultSprayAmount,
		InitialClarity:       0.15,
		InitialFocus:         0.5,
		InitialSprayStrength: 0.5,
	}

	switch v {
	case VariantEvents:
		p.FocusCoupled = false
	case VariantMoments:
		p.SpawnPeriod = 2 * time.Second
		p.DriftFloor = 0.7
	case VariantTracks:
		p.EntityCap = 4
		p.MarginMin = 0.15
		p.MarginMax = 0.85
		p.EntityTTL = 6 * time.Second
		p.SpawnPeriod = 2200 * time.Millisecond
		p.SpawnClarityFloor = 0.1
	}

	return p
}

// Validate checks that the profile is internally consistent
func (p Profile) Validate() error {
	if _, err := ParseVariant(string(p.Variant)); err != nil {
		return err
	}
	if p.EntityCap < 0 {
		return fmt.Errorf("entity cap must not be negative, got %d", p.EntityCap)
	}
	if p.MarginMin < 0 || p.MarginMax > 1 || p.MarginMin > p.MarginMax {
		return fmt.Errorf("invalid spawn margin [%g, %g]", p.MarginMin, p.MarginMax)
	}
	if p.EntityTTL <= 0 || p.SpawnPeriod <= 0 || p.SweepPeriod <= 0 || p.DriftPeriod <= 0 {
		return fmt.Errorf("timer periods and entity TTL must be positive")
	}
	return nil
}

// weight scales clarity gain by focus when the variant couples them
func (p Profile) weight(focus float64) float64 {
	if !p.FocusCoupled {
		return 1
	}
	return 0.5 + 0.5*focus
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v != v: // NaN
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
