package soundscape

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SpawnTick creates one entity at a random position inside the profile
// margin when spawning is allowed and the population is below the cap.
func (st *Store) SpawnTick(now time.Time) (Entity, bool) {
	var spawned Entity
	ok := false
	st.apply(func() bool {
		if !st.spawnAllowed() || len(st.s.entities) >= st.profile.EntityCap {
			return false
		}
		span := st.profile.MarginMax - st.profile.MarginMin
		spawned = Entity{
			ID:        string(st.ids.NewEntityID()),
			X:         st.profile.MarginMin + st.rng.Float64()*span,
			Y:         st.profile.MarginMin + st.rng.Float64()*span,
			SpawnTime: now,
		}
		st.s.entities = append(st.s.entities, spawned)
		ok = true

		st.metrics.IncEntitiesSpawned()
		st.emit(Event{Kind: EventSpawn, Category: st.s.category, EntityID: spawned.ID, X: spawned.X, Y: spawned.Y})
		return false
	})
	return spawned, ok
}

// spawnAllowed re-checks the gating condition under the lock
func (st *Store) spawnAllowed() bool {
	if !st.s.audioStarted {
		return false
	}
	mode := deriveMode(st.profile.Variant, &st.s)
	if st.profile.Variant == VariantMoments {
		return mode == ModeLocking
	}
	return st.s.clarity > st.profile.SpawnClarityFloor && !mode.Terminal()
}

// SweepTick removes every entity whose age has reached the TTL.
// It returns the number removed.
func (st *Store) SweepTick(now time.Time) int {
	removed := 0
	st.apply(func() bool {
		kept := st.s.entities[:0]
		for _, e := range st.s.entities {
			if now.Sub(e.SpawnTime) >= st.profile.EntityTTL {
				removed++
				st.emit(Event{Kind: EventExpire, EntityID: e.ID})
				continue
			}
			kept = append(kept, e)
		}
		st.s.entities = kept
		st.metrics.AddEntitiesExpired(removed)
		return false
	})
	return removed
}

// DriftTick nudges clarity by a small bounded random step while the
// session is stable, never letting it fall below the profile floor.
func (st *Store) DriftTick() bool {
	drifted := false
	st.apply(func() bool {
		if !deriveMode(st.profile.Variant, &st.s).Terminal() {
			return false
		}
		step := (st.rng.Float64() - 0.5) * DriftStep * DriftDamping
		st.setClarity(clamp(st.s.clarity+step, st.profile.DriftFloor, 1))
		drifted = true
		return false
	})
	return drifted
}

// Lifecycle runs the spawn, sweep and drift timers against a store
type Lifecycle struct {
	store  *Store
	logger *zap.Logger
	clock  Clock

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewLifecycle creates the timer manager for store
func NewLifecycle(store *Store, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		store:  store,
		logger: logger,
		clock:  store.clock,
	}
}

// Start launches the timers in a background goroutine
func (l *Lifecycle) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}

	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	l.running = true

	go func() {
		defer close(l.done)
		l.Run(ctx)
	}()
}

// Run blocks until ctx is cancelled or the store is closed
func (l *Lifecycle) Run(ctx context.Context) {
	p := l.store.Profile()

	spawn := time.NewTicker(p.SpawnPeriod)
	sweep := time.NewTicker(p.SweepPeriod)
	drift := time.NewTicker(p.DriftPeriod)
	defer spawn.Stop()
	defer sweep.Stop()
	defer drift.Stop()

	l.logger.Info("Session timers started",
		zap.String("variant", string(p.Variant)),
		zap.Duration("spawn_period", p.SpawnPeriod),
		zap.Duration("sweep_period", p.SweepPeriod),
		zap.Duration("drift_period", p.DriftPeriod))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Session timers stopped")
			return
		case <-spawn.C:
			l.store.SpawnTick(l.clock.Now())
		case <-sweep.C:
			l.store.SweepTick(l.clock.Now())
		case <-drift.C:
			l.store.DriftTick()
		}
		if l.store.Closed() {
			l.logger.Info("Session closed, stopping timers")
			return
		}
	}
}

// Stop cancels the timers and waits for the goroutine to exit
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done
}
