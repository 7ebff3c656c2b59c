package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/menta2k/trackmate/pkg/types"
)

// Cache memoizes classification results for identical frames that arrive in
// quick succession. A disabled cache always misses.
type Cache struct {
	store *cache.Cache
	ttl   time.Duration
}

// New creates a cache whose entries live for ttl. A ttl <= 0 disables it.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{}
	}
	return &Cache{
		store: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Enabled reports whether results are being memoized
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil
}

// TTL returns the entry lifetime
func (c *Cache) TTL() time.Duration {
	if !c.Enabled() {
		return 0
	}
	return c.ttl
}

// Key returns the content hash used to index raw image bytes
func Key(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the unexpired result stored under key
func (c *Cache) Get(key string) (types.Result, bool) {
	if !c.Enabled() {
		return types.Result{}, false
	}
	v, found := c.store.Get(key)
	if !found {
		return types.Result{}, false
	}
	r, ok := v.(types.Result)
	return r, ok
}

// Set stores result under key, replacing any previous entry
func (c *Cache) Set(key string, result types.Result) {
	if !c.Enabled() {
		return
	}
	c.store.Set(key, result, cache.DefaultExpiration)
}

// Len returns the number of entries, expired ones included
func (c *Cache) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.store.ItemCount()
}
