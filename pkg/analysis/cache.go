package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/vanderheijden86/cograph/pkg/model"
)

// DefaultCacheTTL is the default time-to-live for cached partitions.
const DefaultCacheTTL = 5 * time.Minute

// DefaultCacheEntries bounds the number of resolutions kept per graph.
const DefaultCacheEntries = 16

type cachedPartition struct {
	partition  Partition
	computedAt time.Time
}

// PartitionCache holds the partitions of one graph keyed by resolution, so
// stepping back to a resolution already visited skips Louvain. Entries are
// dropped when the graph hash changes or the TTL expires.
// Thread-safe for concurrent access.
type PartitionCache struct {
	mu         sync.Mutex
	hash       string
	entries    map[Resolution]cachedPartition
	ttl        time.Duration
	maxEntries int

	hits, misses int
}

// NewPartitionCache creates a cache with the given TTL. ttl <= 0 means
// DefaultCacheTTL.
func NewPartitionCache(ttl time.Duration) *PartitionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &PartitionCache{
		ttl:        ttl,
		maxEntries: DefaultCacheEntries,
		entries:    make(map[Resolution]cachedPartition),
	}
}

// Detect returns the partition of g at res, computing it with
// DetectCommunities on a miss. On a hit the cached assignment is written
// back onto the nodes of g. The returned partition must not be mutated.
func (c *PartitionCache) Detect(g *model.Graph, res Resolution, cfg CommunityConfig) (Partition, bool, error) {
	// Hash outside the lock
	hash := GraphHash(g, cfg)

	c.mu.Lock()
	if hash != c.hash {
		c.hash = hash
		clear(c.entries)
	}
	if e, ok := c.entries[res]; ok && time.Since(e.computedAt) < c.ttl {
		c.hits++
		c.mu.Unlock()
		ApplyPartition(g, e.partition)
		return e.partition, true, nil
	}
	c.misses++
	c.mu.Unlock()

	p, err := DetectCommunities(g, res, cfg)
	if err != nil {
		return p, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hash == hash {
		if len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
		c.entries[res] = cachedPartition{partition: p, computedAt: time.Now()}
	}
	return p, false, nil
}

func (c *PartitionCache) evictOldest() {
	var (
		oldest Resolution
		at     time.Time
	)
	for r, e := range c.entries {
		if at.IsZero() || e.computedAt.Before(at) {
			oldest, at = r, e.computedAt
		}
	}
	delete(c.entries, oldest)
}

// Invalidate clears the cache.
func (c *PartitionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hash = ""
	clear(c.entries)
}

// Stats returns cache statistics for debugging.
func (c *PartitionCache) Stats() (entries, hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.hits, c.misses
}

// GraphHash generates a deterministic hash of everything Louvain sees:
// node ids and markers in insertion order, edge pairs with sizes, and the
// community config. Insertion order is kept because it drives the
// partition's community numbering.
func GraphHash(g *model.Graph, cfg CommunityConfig) string {
	if g == nil || g.Order() == 0 {
		return "empty"
	}
	h := sha256.New()
	h.Write([]byte(strconv.FormatUint(cfg.Seed, 10)))
	h.Write([]byte(strconv.FormatBool(cfg.Weighted)))
	h.Write([]byte{0})
	for _, n := range g.Nodes() {
		h.Write([]byte(n.ID))
		if n.IsCategoryMarker {
			h.Write([]byte{1})
		}
		h.Write([]byte{0})
	}
	h.Write([]byte{0})
	for _, e := range g.Edges() {
		h.Write([]byte(e.Source))
		h.Write([]byte{0})
		h.Write([]byte(e.Target))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatFloat(e.Size, 'g', -1, 64)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
