// Package cache stores aggregate results per user and program. Entries are
// invalidated as a group whenever a completion is written for their program.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coocood/freecache"

	"github.com/claude/trainlog/internal/telemetry"
)

const megabyte = 1024 * 1024

// Key identifies one cached aggregate.
type Key struct {
	Kind      string
	UserID    int
	ProgramID int64
	Scope     string
}

// ProgressKey identifies a progress aggregate. Scope names the program, a
// week ("w3") or a day ("w3d2").
func ProgressKey(userID int, programID int64, scope string) Key {
	return Key{Kind: "progress", UserID: userID, ProgramID: programID, Scope: scope}
}

// HeatMapKey identifies a heat map for a filter. programID 0 spans all programs.
func HeatMapKey(userID int, programID int64, filter string) Key {
	return Key{Kind: "heatmap", UserID: userID, ProgramID: programID, Scope: filter}
}

type owner struct {
	userID    int
	programID int64
}

// Cache is a size-bounded JSON value cache on top of freecache.
type Cache struct {
	fc      *freecache.Cache
	ttl     int
	metrics *telemetry.Manager

	mu   sync.Mutex
	gens map[owner]uint64
}

// New returns a cache of sizeMB megabytes whose entries expire after ttl.
// metrics may be nil.
func New(sizeMB int, ttl time.Duration, metrics *telemetry.Manager) *Cache {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &Cache{
		fc:      freecache.NewCache(sizeMB * megabyte),
		ttl:     int(ttl / time.Second),
		metrics: metrics,
		gens:    make(map[owner]uint64),
	}
}

// Invalidate drops every entry of the user's program, and the user's
// entries spanning all programs.
func (c *Cache) Invalidate(userID int, programID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[owner{userID, programID}]++
	if programID != 0 {
		c.gens[owner{userID, 0}]++
	}
}

// Entry is a key bound to the generation current when it was resolved.
// A value set through an Entry resolved before an invalidation is never
// served under a later generation.
type Entry struct {
	kind string
	raw  []byte
}

// Resolve binds k to its owner's current generation.
func (c *Cache) Resolve(k Key) Entry {
	c.mu.Lock()
	gen := c.gens[owner{k.UserID, k.ProgramID}]
	c.mu.Unlock()
	return Entry{
		kind: k.Kind,
		raw:  []byte(fmt.Sprintf("%s:%d:%d:%d:%s", k.Kind, k.UserID, k.ProgramID, gen, k.Scope)),
	}
}

// Get decodes the cached value of e into v and reports whether it was found.
func (c *Cache) Get(e Entry, v any) bool {
	b, err := c.fc.Get(e.raw)
	if err != nil {
		c.count("miss")
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		c.count("corrupt")
		return false
	}
	c.count("hit")
	return true
}

// Set stores v under e.
func (c *Cache) Set(e Entry, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache value: %w", err)
	}
	if err := c.fc.Set(e.raw, b, c.ttl); err != nil {
		if errors.Is(err, freecache.ErrLargeEntry) {
			return fmt.Errorf("caching %s: value of %d bytes too large", e.kind, len(b))
		}
		return fmt.Errorf("caching %s: %w", e.kind, err)
	}
	return nil
}

func (c *Cache) count(result string) {
	if c.metrics != nil {
		c.metrics.CounterCache.WithLabelValues(result).Inc()
	}
}
