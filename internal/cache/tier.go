package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// State is the validity of a tier at a point in time.
type State string

const (
	StateEmpty State = "EMPTY"
	StateValid State = "VALID"
	StateStale State = "STALE"
)

// FetchFunc produces a complete, fresh item list.
type FetchFunc func(ctx context.Context) ([]domain.GalleryItem, error)

// Entry is one wholesale snapshot of a tier. It is never modified after being stored.
type Entry struct {
	Items     []domain.GalleryItem `json:"items"`
	FetchedAt time.Time            `json:"fetchedAt"`
}

// Tier is a single-entry read-through cache with serve-stale-on-error.
// The entry pointer is swapped atomically so readers see the old or the new entry, never a mix.
type Tier struct {
	name     string
	ttl      time.Duration
	fetch    FetchFunc
	now      func() time.Time
	snapshot SnapshotStore
	metrics  *Metrics

	entry   atomic.Pointer[Entry]
	lastErr atomic.Pointer[refreshError]
	group   singleflight.Group

	loadOnce sync.Once
}

type refreshError struct {
	err error
	at  time.Time
}

// Option configures a Tier.
type Option func(*Tier)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tier) { t.now = now }
}

// WithSnapshotStore persists every refreshed entry and seeds the tier from it on first use.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(t *Tier) { t.snapshot = store }
}

// WithMetrics records hits, refreshes and stale serves.
func WithMetrics(m *Metrics) Option {
	return func(t *Tier) { t.metrics = m }
}

func NewTier(name string, ttl time.Duration, fetch FetchFunc, opts ...Option) *Tier {
	t := &Tier{
		name:     name,
		ttl:      ttl,
		fetch:    fetch,
		now:      time.Now,
		snapshot: NewNoopSnapshotStore(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tier) Name() string { return t.name }

func (t *Tier) TTL() time.Duration { return t.ttl }

// State reports EMPTY, VALID or STALE for the current entry.
func (t *Tier) State() State {
	return t.stateOf(t.entry.Load())
}

func (t *Tier) stateOf(e *Entry) State {
	if e == nil || len(e.Items) == 0 {
		return StateEmpty
	}
	if t.now().Sub(e.FetchedAt) < t.ttl {
		return StateValid
	}
	return StateStale
}

// Entry returns the current entry, or nil when nothing was stored yet.
func (t *Tier) Entry() *Entry {
	return t.entry.Load()
}

// LastError is the most recent refresh failure. It is cleared by a successful refresh.
func (t *Tier) LastError() error {
	if re := t.lastErr.Load(); re != nil {
		return re.err
	}
	return nil
}

// Get returns the cached items when VALID and forceFresh is false. Otherwise it refreshes.
//
// A failed refresh falls back to the previous non-empty entry and returns no error; the
// failure is only visible through LastError. With nothing to fall back on, Get returns an
// empty list together with the error.
func (t *Tier) Get(ctx context.Context, forceFresh bool) ([]domain.GalleryItem, error) {
	t.loadOnce.Do(func() { t.restore(ctx) })

	current := t.entry.Load()
	if !forceFresh && t.stateOf(current) == StateValid {
		t.metrics.hit(t.name)
		log.Debug().Str("tier", t.name).Int("items", len(current.Items)).Msg("cache: serving valid entry")
		return current.Items, nil
	}
	t.metrics.miss(t.name)

	fresh, err := t.refresh(ctx)
	if err == nil {
		return fresh.Items, nil
	}

	t.lastErr.Store(&refreshError{err: err, at: t.now()})

	if previous := t.entry.Load(); previous != nil && len(previous.Items) > 0 {
		t.metrics.staleServed(t.name)
		log.Warn().Err(err).
			Str("tier", t.name).
			Int("items", len(previous.Items)).
			Time("fetched_at", previous.FetchedAt).
			Msg("cache: refresh failed, serving previous entry")
		return previous.Items, nil
	}

	log.Error().Err(err).Str("tier", t.name).Msg("cache: refresh failed with nothing to fall back on")
	return []domain.GalleryItem{}, err
}

// Invalidate drops the current entry. The next Get refreshes.
func (t *Tier) Invalidate() {
	t.entry.Store(nil)
}

func (t *Tier) refresh(ctx context.Context) (*Entry, error) {
	// Concurrent misses share one fetch.
	v, err, shared := t.group.Do(t.name, func() (interface{}, error) {
		items, err := t.fetch(ctx)
		if err != nil {
			t.metrics.refreshed(t.name, false)
			return nil, fmt.Errorf("%s tier refresh: %w", t.name, err)
		}
		if items == nil {
			items = []domain.GalleryItem{}
		}

		e := &Entry{Items: items, FetchedAt: t.now()}
		t.entry.Store(e)
		t.lastErr.Store(nil)
		t.metrics.refreshed(t.name, true)

		if err := t.snapshot.Save(ctx, t.name, e); err != nil {
			log.Warn().Err(err).Str("tier", t.name).Msg("cache: snapshot save failed")
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("tier", t.name).Msg("cache: joined in-flight refresh")
	}
	return v.(*Entry), nil
}

// restore seeds an empty tier from the snapshot store. The restored entry keeps its
// original fetch time, so an old snapshot is STALE and only acts as a fallback.
func (t *Tier) restore(ctx context.Context) {
	if t.entry.Load() != nil {
		return
	}
	e, err := t.snapshot.Load(ctx, t.name)
	if err != nil {
		log.Warn().Err(err).Str("tier", t.name).Msg("cache: snapshot load failed")
		return
	}
	if e == nil {
		return
	}
	t.entry.CompareAndSwap(nil, e)
	log.Info().
		Str("tier", t.name).
		Int("items", len(e.Items)).
		Str("state", string(t.stateOf(e))).
		Msg("cache: restored snapshot")
}
