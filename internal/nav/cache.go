package nav

import (
	"container/list"
	"sync"

	"github.com/udisondev/flowtiles/internal/field"
)

// routeCache is an LRU cache of built routes keyed by route identity.
// A reverse index from sector to keys makes invalidation by sector-chain
// membership cheap on every cost mutation.
type routeCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[RouteKey]*list.Element
	bySector map[field.SectorID]map[RouteKey]struct{}
}

func newRouteCache(capacity int) *routeCache {
	return &routeCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[RouteKey]*list.Element),
		bySector: make(map[field.SectorID]map[RouteKey]struct{}),
	}
}

// get returns the cached route and refreshes its recency.
func (c *routeCache) get(key RouteKey) (*Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*Route), true
}

// put inserts a route, evicting the least recently used entry when the
// cache is full.
func (c *routeCache) put(route *Route) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[route.Key]; ok {
		c.order.MoveToFront(el)
		el.Value = route
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*Route).Key)
	}

	el := c.order.PushFront(route)
	c.entries[route.Key] = el
	for _, sf := range route.Chain {
		keys, ok := c.bySector[sf.Sector]
		if !ok {
			keys = make(map[RouteKey]struct{})
			c.bySector[sf.Sector] = keys
		}
		keys[route.Key] = struct{}{}
	}
}

// invalidateSectors drops every cached route whose sector chain touches
// any of the given sectors. Returns the number of dropped routes.
func (c *routeCache) invalidateSectors(ids []field.SectorID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for _, id := range ids {
		for key := range c.bySector[id] {
			if c.removeLocked(key) {
				dropped++
			}
		}
	}
	return dropped
}

func (c *routeCache) removeLocked(key RouteKey) bool {
	el, ok := c.entries[key]
	if !ok {
		return false
	}
	route := el.Value.(*Route)
	c.order.Remove(el)
	delete(c.entries, key)
	for _, sf := range route.Chain {
		if keys := c.bySector[sf.Sector]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.bySector, sf.Sector)
			}
		}
	}
	return true
}

// clear drops every entry.
func (c *routeCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[RouteKey]*list.Element)
	c.bySector = make(map[field.SectorID]map[RouteKey]struct{})
}

// len returns the number of cached routes.
func (c *routeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
