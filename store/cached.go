package store

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/alimasry/boxesnlines/annotation"
)

// CachedStore wraps a backing Repository with an in-memory read cache.
// Writes go to the backing store first and are only cached once they are
// committed there, so a successful Set is always durable.
//
// When the backing store is a FileStore, every cache hit is checked against
// the file on disk, so writes made by other processes (the CLI, an import)
// are picked up by the next Get.
type CachedStore struct {
	backing Repository
	stamps  stamper
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
	// gen is bumped on every write so a load that raced with it is not cached.
	gen   map[string]uint64
	loads singleflight.Group
}

type cacheEntry struct {
	m  annotation.Map
	st stamp
}

// NewCachedStore creates a CachedStore over backing.
func NewCachedStore(backing Repository, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	cs := &CachedStore{
		backing: backing,
		logger:  logger.With("component", "cache"),
		entries: make(map[string]cacheEntry),
		gen:     make(map[string]uint64),
	}
	if st, ok := backing.(stamper); ok {
		cs.stamps = st
	}
	return cs
}

func (cs *CachedStore) Get(ctx context.Context, fileKey string) (annotation.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cs.mu.RLock()
	e, ok := cs.entries[fileKey]
	cs.mu.RUnlock()
	if ok && cs.fresh(fileKey, e) {
		return e.m.Clone(), nil
	}

	// Cache miss: load from backing store, once per key at a time. The load
	// is shared, so one caller's cancellation must not fail the others.
	v, err, _ := cs.loads.Do(fileKey, func() (any, error) {
		return cs.load(context.WithoutCancel(ctx), fileKey)
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.(annotation.Map).Clone(), nil
}

func (cs *CachedStore) load(ctx context.Context, fileKey string) (annotation.Map, error) {
	cs.mu.RLock()
	gen := cs.gen[fileKey]
	cs.mu.RUnlock()

	// Stamp before reading: a write landing in between leaves an older
	// stamp on the entry, which the next hit detects.
	var st stamp
	cacheable := true
	if cs.stamps != nil {
		var err error
		if st, err = cs.stamps.stamp(fileKey); err != nil {
			cs.logger.WarnContext(ctx, "stat annotations failed", "doc", fileKey, "error", err)
			cacheable = false
		}
	}

	loaded, err := cs.backing.Get(ctx, fileKey)
	if err != nil {
		return nil, err
	}
	if cacheable {
		cs.mu.Lock()
		if cs.gen[fileKey] == gen {
			cs.entries[fileKey] = cacheEntry{m: loaded.Clone(), st: st}
		}
		cs.mu.Unlock()
	}
	return loaded, nil
}

// fresh reports whether a cached entry still matches the backing store.
func (cs *CachedStore) fresh(fileKey string, e cacheEntry) bool {
	if cs.stamps == nil {
		return true
	}
	cur, err := cs.stamps.stamp(fileKey)
	if err != nil {
		return false
	}
	if !cur.same(e.st) {
		cs.logger.Debug("annotations changed on disk", "doc", fileKey)
		return false
	}
	return true
}

func (cs *CachedStore) Set(ctx context.Context, fileKey string, m annotation.Map) error {
	cs.mu.Lock()
	cs.gen[fileKey]++
	gen := cs.gen[fileKey]
	delete(cs.entries, fileKey)
	cs.mu.Unlock()

	var st stamp
	if cs.stamps != nil {
		var err error
		if st, err = cs.stamps.setStamped(ctx, fileKey, m); err != nil {
			return err
		}
	} else if err := cs.backing.Set(ctx, fileKey, m); err != nil {
		return err
	}

	// Cache what a fresh read would return, not the caller's map.
	normalized, err := normalize(m)
	if err != nil {
		cs.logger.WarnContext(ctx, "not caching written annotations", "error", err)
		return nil
	}
	cs.mu.Lock()
	if cs.gen[fileKey] == gen {
		cs.entries[fileKey] = cacheEntry{m: normalized, st: st}
	}
	cs.mu.Unlock()
	return nil
}

// Invalidate drops a cached document, forcing the next Get to hit the backing store.
func (cs *CachedStore) Invalidate(fileKey string) {
	cs.mu.Lock()
	cs.gen[fileKey]++
	delete(cs.entries, fileKey)
	cs.mu.Unlock()
}

// Len returns the number of cached documents.
func (cs *CachedStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.entries)
}

func normalize(m annotation.Map) (annotation.Map, error) {
	data, err := annotation.Encode(m)
	if err != nil {
		return nil, err
	}
	return annotation.Decode(data)
}
