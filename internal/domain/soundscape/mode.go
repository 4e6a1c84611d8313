package soundscape

// Mode is the discrete session state derived from the continuous inputs.
// It is never stored as ground truth; see deriveMode.
type Mode string

const (
	ModeNeutralizing Mode = "neutralizing"
	ModeClosure      Mode = "closure"
	ModeStable       Mode = "stable"
	ModeLocking      Mode = "locking"
	ModeExploring    Mode = "exploring"
	ModeCollecting   Mode = "collecting"
	ModeLooping      Mode = "looping"
)

// BaseMode returns the mode a fresh session of the variant starts in
func BaseMode(v Variant) Mode {
	if v == VariantTracks {
		return ModeExploring
	}
	return ModeNeutralizing
}

// Terminal reports whether the mode stops entity spawning and enables drift
func (m Mode) Terminal() bool {
	return m == ModeStable
}

// normalize applies the latch and forfeit rules that feed mode derivation.
// It only touches mode inputs, never durable collections.
func normalize(v Variant, s *session) {
	switch v {
	case VariantEvents:
		if s.clarity >= ClosureThreshold {
			s.closureLatched = true
		}
		// closure holds until the cue completes; only stable regresses
		if s.stableLatched && s.clarity < StableExitFloor {
			s.closureLatched = false
			s.stableLatched = false
		}
	case VariantMoments:
		if !s.locked && s.tokens >= LockTokenCount {
			s.locked = true
		}
		if !s.locked && s.clarity < LockingThreshold {
			// dropping out of locking forfeits collected tokens
			s.tokens = 0
		}
	}
}

// deriveMode is a pure function of the normalized session inputs
func deriveMode(v Variant, s *session) Mode {
	switch v {
	case VariantEvents:
		switch {
		case s.stableLatched:
			return ModeStable
		case s.closureLatched || s.clarity >= ClosureThreshold:
			return ModeClosure
		default:
			return ModeNeutralizing
		}
	case VariantMoments:
		switch {
		case s.locked:
			return ModeStable
		case s.tokens >= LockTokenCount:
			return ModeStable
		case s.clarity >= LockingThreshold:
			return ModeLocking
		default:
			return ModeNeutralizing
		}
	case VariantTracks:
		t := s.tracks[s.category]
		switch {
		case t == nil || len(t.Notes) == 0:
			return ModeExploring
		case t.IsLooping:
			return ModeLooping
		default:
			return ModeCollecting
		}
	}
	return ModeNeutralizing
}
