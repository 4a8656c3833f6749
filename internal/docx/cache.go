package docx

import (
	"container/list"
	"encoding/hex"
	"sync"

	"github.com/zeebo/blake3"
)

// ContentHash is the hex blake3 digest of a template container.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type cacheKey struct {
	id   string
	hash string
}

type cacheEntry struct {
	key  cacheKey
	tmpl *Template
}

// Cache keeps parsed templates keyed by template id and content hash, so a
// changed upload never reuses a stale tree. Least recently used entries are
// evicted beyond the size limit.
type Cache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[cacheKey]*list.Element

	// OnLookup, when set, is called after every Get with whether it hit.
	OnLookup func(hit bool)
}

// NewCache returns a cache holding at most size templates; size <= 0
// means 64.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 64
	}
	return &Cache{size: size, order: list.New(), entries: map[cacheKey]*list.Element{}}
}

// Get returns the parsed template for pkg, parsing it on a miss. Parse
// errors are not cached.
func (c *Cache) Get(templateID string, pkg *Package) (*Template, error) {
	key := cacheKey{id: templateID, hash: ContentHash(pkg.data)}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		t := el.Value.(*cacheEntry).tmpl
		c.mu.Unlock()
		c.observe(true)
		return t, nil
	}
	c.mu.Unlock()
	c.observe(false)

	t, err := Parse(pkg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		return el.Value.(*cacheEntry).tmpl, nil
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, tmpl: t})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return t, nil
}

// Invalidate drops every cached tree of templateID.
func (c *Cache) Invalidate(templateID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.entries {
		if key.id == templateID {
			c.order.Remove(el)
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) observe(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}
