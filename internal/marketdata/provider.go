// Package marketdata serves daily market history to the engine, backed by
// the local database with an in-memory TTL cache in front. Walk-forward
// batches read the same few series thousands of times; without the cache
// every window run would hit SQLite.
package marketdata

import (
	"fmt"
	"time"

	"eve-hauler/internal/engine"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Store is the persistent source of history series. *db.DB satisfies it.
type Store interface {
	History(typeID int32, stationID int64, maxDays int) []engine.HistoryPoint
}

// Provider is a read-through cache over a Store. It caches whole series and
// applies maxDays truncation on the way out, so one cache entry serves every
// window length. Safe for concurrent use.
type Provider struct {
	store Store
	cache *gocache.Cache
	group singleflight.Group
}

// New builds a provider with the given cache TTL. A TTL of 0 caches forever,
// which is the right setting for backtests over a fixed dataset.
func New(store Store, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Provider{
		store: store,
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

func seriesKey(typeID int32, stationID int64) string {
	return fmt.Sprintf("%d:%d", typeID, stationID)
}

// History returns the series for one (item, station) pair, oldest first.
// Satisfies engine.HistorySource. Concurrent misses for the same key are
// coalesced into a single store read.
func (p *Provider) History(typeID int32, stationID int64, maxDays int) []engine.HistoryPoint {
	key := seriesKey(typeID, stationID)

	if cached, ok := p.cache.Get(key); ok {
		return truncate(cached.([]engine.HistoryPoint), maxDays)
	}

	v, _, _ := p.group.Do(key, func() (any, error) {
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
		points := p.store.History(typeID, stationID, 0)
		p.cache.Set(key, points, gocache.DefaultExpiration)
		return points, nil
	})
	return truncate(v.([]engine.HistoryPoint), maxDays)
}

// Invalidate drops one cached series, used after an import touches it.
func (p *Provider) Invalidate(typeID int32, stationID int64) {
	p.cache.Delete(seriesKey(typeID, stationID))
}

// Flush drops every cached series.
func (p *Provider) Flush() {
	p.cache.Flush()
}

func truncate(points []engine.HistoryPoint, maxDays int) []engine.HistoryPoint {
	if maxDays > 0 && len(points) > maxDays {
		return points[len(points)-maxDays:]
	}
	return points
}
