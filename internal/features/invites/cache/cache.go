// Package cache holds the process-local invite usage snapshots. One
// snapshot per guild, mapping invite code to its last known uses count.
// Snapshots are replaced wholesale on every refresh, never merged.
package cache

import (
	"sync"
)

type SnapshotCache struct {
	mu      sync.RWMutex
	byGuild map[string]map[string]int
}

func New() *SnapshotCache {
	return &SnapshotCache{byGuild: make(map[string]map[string]int)}
}

// Get returns a copy of the guild's snapshot. The second return value is
// false on a cold cache, which triggers the best-effort fallback in the
// reconciler.
func (c *SnapshotCache) Get(guildID string) (map[string]int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.byGuild[guildID]
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(snap))
	for code, uses := range snap {
		out[code] = uses
	}
	return out, true
}

// Replace installs a new snapshot for the guild, discarding the old one
// unconditionally.
func (c *SnapshotCache) Replace(guildID string, snapshot map[string]int) {
	own := make(map[string]int, len(snapshot))
	for code, uses := range snapshot {
		own[code] = uses
	}

	c.mu.Lock()
	c.byGuild[guildID] = own
	c.mu.Unlock()
}
