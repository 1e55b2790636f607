package ingest

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Fillereine/MathE/internal/table"
)

// Entry is a cached load: the parsed table and the report produced with it.
type Entry struct {
	Table  *table.Table
	Report Report
}

// Cache stores parsed tables by key. Implementations must be safe for
// concurrent use. A miss is always safe; the loader recomputes.
type Cache interface {
	Get(key string) (*Entry, bool)
	Put(key string, e *Entry)
}

// MemoryCache is an in-process Cache. When MaxEntries is positive the oldest
// entry is evicted once the limit is reached.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	order      []string
	maxEntries int
}

// NewMemoryCache creates a cache holding at most maxEntries tables.
// Zero or a negative value means no limit.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
	}
}

// Get returns the entry stored under key.
func (c *MemoryCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put stores e under key.
func (c *MemoryCache) Put(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = e
	for c.maxEntries > 0 && len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of cached tables.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cacheNamespace scopes content keys to this loader.
var cacheNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:mathe:ingest"))

// ContentKey derives a stable key from a file's name and bytes. The name takes
// part because it selects the format.
func ContentKey(f *RawFile) string {
	sum := sha256.Sum256(f.Data)
	buf := make([]byte, 0, len(f.Name)+1+len(sum))
	buf = append(buf, f.Name...)
	buf = append(buf, 0)
	buf = append(buf, sum[:]...)
	return uuid.NewSHA1(cacheNamespace, buf).String()
}

// CacheObserver is notified of cache lookups.
type CacheObserver func(hit bool)

// CachedLoader is a read-through cache in front of another Loader.
// Concurrent loads of the same content run once, and the shared load is not
// cancelled when the caller that started it goes away. Callers always receive
// their own copy of the table. Failed loads are not cached.
type CachedLoader struct {
	next    Loader
	cache   Cache
	observe CacheObserver
	group   singleflight.Group
}

// NewCachedLoader wraps next with cache. observe may be nil.
func NewCachedLoader(next Loader, cache Cache, observe CacheObserver) *CachedLoader {
	if next == nil {
		next = Default
	}
	return &CachedLoader{
		next:    next,
		cache:   cache,
		observe: observe,
	}
}

// LoadWithReport implements Loader.
func (l *CachedLoader) LoadWithReport(ctx context.Context, f *RawFile) (*table.Table, *Report, error) {
	if f == nil {
		return nil, nil, nil
	}
	key := ContentKey(f)

	if e, ok := l.cache.Get(key); ok {
		l.notify(true)
		rep := e.Report
		rep.Cached = true
		return e.Table.Clone(), &rep, nil
	}
	l.notify(false)

	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		t, rep, err := l.next.LoadWithReport(shared, f)
		if err != nil {
			return nil, err
		}
		if t == nil || rep == nil {
			return nil, nil
		}
		e := &Entry{Table: t, Report: *rep}
		l.cache.Put(key, &Entry{Table: t.Clone(), Report: *rep})
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil || res.Val == nil {
			return nil, nil, res.Err
		}
		e := res.Val.(*Entry)
		rep := e.Report
		return e.Table.Clone(), &rep, nil
	}
}

func (l *CachedLoader) notify(hit bool) {
	if l.observe != nil {
		l.observe(hit)
	}
}
