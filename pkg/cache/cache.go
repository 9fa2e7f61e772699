// Package cache implements the client-side read cache of §4.4: per-inode
// extents deduping overlapping reads, held with reference counts so
// in-flight readers can share a buffer safely, expired lazily off an LRU.
//
// Grounded on LizardFS's src/mount/readdata_cache.h for the extent/refcount/
// eviction model, and on the teacher repo's
// modules/renter/downloadcache_test.go for the Go idiom of a small heap/list
// backed cache with a demotemutex-style lock (github.com/NebulousLabs/demotemutex) guarding
// mutation.
package cache

import (
	"container/list"
	"time"

	"github.com/NebulousLabs/demotemutex"
)

// State is an extent's lifecycle stage.
type State int

const (
	Empty State = iota
	Filled
	Invalidated
)

// Extent is one cached byte range of one inode.
type Extent struct {
	Offset      uint64
	Buffer      []byte
	RefCount    int
	LastTouched time.Time
	State       State

	lruElem *list.Element
}

// Result is what a Query returns: an ordered list of extent references plus
// flags telling the caller how to use them, unifying cached and bypass
// reads behind one shape (§4.4's "fake result").
type Result struct {
	Extents []*Extent
	// Fake marks a result that wraps data not owned by the cache (a
	// one-shot bypass read); its extent must not be released through the
	// cache's Release path.
	Fake bool
}

// inodeCache holds two of the three lists described in §4.4 for one inode:
// by-offset (sorted) and reserved (evicted, still ref-counted). The LRU is
// shared by every inode and lives on Cache.
type inodeCache struct {
	byOffset []*Extent // kept sorted by Offset; extents never overlap
	reserved []*Extent
}

// Cache is the client read cache, keyed by inode number.
type Cache struct {
	mu     demotemutex.DemoteMutex
	inodes map[uint64]*inodeCache
	lru    *list.List // of *Extent, most-recently-touched at Back
	ttl    time.Duration

	// gcBudget bounds how many expired extents a single Query call will
	// garbage-collect, per §4.4 ("garbage-collect up to a few expired
	// extents per query").
	gcBudget int
}

// New returns an empty cache with the given extent TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		inodes:   map[uint64]*inodeCache{},
		lru:      list.New(),
		ttl:      ttl,
		gcBudget: 4,
	}
}

// Query walks extents covering [offset, offset+size) for inode. Existing
// extents have their refcount incremented and their last-touched timer
// reset; any uncovered gap gets a newly allocated empty extent the caller
// must fill (per §4.4 steps 1-2).
func (c *Cache) Query(inode, offset, size uint64) Result {
	id := c.mu.Lock()
	defer c.mu.Unlock(id)

	ic, ok := c.inodes[inode]
	if !ok {
		ic = &inodeCache{}
		c.inodes[inode] = ic
	}

	c.gcExpiredLocked(ic)

	var out []*Extent
	end := offset + size
	cursor := offset
	i := 0
	for cursor < end {
		// Find the first existing extent at or after cursor.
		var next *Extent
		for ; i < len(ic.byOffset); i++ {
			e := ic.byOffset[i]
			eEnd := e.Offset + uint64(len(e.Buffer))
			if eEnd <= cursor {
				continue
			}
			next = e
			break
		}
		if next == nil || next.Offset > cursor {
			// Gap: allocate a new empty extent up to the next extent (or
			// to the end of the request).
			gapEnd := end
			if next != nil && next.Offset < gapEnd {
				gapEnd = next.Offset
			}
			e := &Extent{Offset: cursor, Buffer: make([]byte, gapEnd-cursor), State: Empty}
			c.insertLocked(ic, e)
			c.touchLocked(e)
			e.RefCount++
			out = append(out, e)
			cursor = gapEnd
			continue
		}
		// next covers cursor.
		c.touchLocked(next)
		next.RefCount++
		out = append(out, next)
		cursor = next.Offset + uint64(len(next.Buffer))
	}

	return Result{Extents: out}
}

// Release drops one reference on every extent in r. Extents whose refcount
// reaches zero remain eligible for eviction on a later Query, per §4.4's
// lazy-free reserved list.
func (c *Cache) Release(inode uint64, r Result) {
	if r.Fake {
		return
	}
	id := c.mu.Lock()
	defer c.mu.Unlock(id)
	ic := c.inodes[inode]
	if ic == nil {
		return
	}
	for _, e := range r.Extents {
		if e.RefCount > 0 {
			e.RefCount--
		}
		if e.RefCount == 0 && e.State == Invalidated {
			c.moveToReservedLocked(ic, e)
		}
	}
}

// Fill marks an empty extent filled with data, trimming its buffer if the
// backing chunk was shorter than requested (§4.4: "post-fill, buffer.len
// becomes its authoritative size").
func (e *Extent) Fill(data []byte) {
	e.Buffer = data
	e.State = Filled
}

func (c *Cache) insertLocked(ic *inodeCache, e *Extent) {
	idx := 0
	for idx < len(ic.byOffset) && ic.byOffset[idx].Offset < e.Offset {
		idx++
	}
	ic.byOffset = append(ic.byOffset, nil)
	copy(ic.byOffset[idx+1:], ic.byOffset[idx:])
	ic.byOffset[idx] = e
}

func (c *Cache) touchLocked(e *Extent) {
	e.LastTouched = time.Now()
	if e.lruElem != nil {
		c.lru.MoveToBack(e.lruElem)
	} else {
		e.lruElem = c.lru.PushBack(e)
	}
}

func (c *Cache) gcExpiredLocked(ic *inodeCache) {
	n := 0
	for i := 0; i < len(ic.byOffset) && n < c.gcBudget; i++ {
		e := ic.byOffset[i]
		if time.Since(e.LastTouched) <= c.ttl {
			continue
		}
		e.State = Invalidated
		if e.RefCount == 0 {
			c.removeFromByOffsetLocked(ic, i)
			c.moveToReservedLocked(ic, e)
			i--
		}
		n++
	}
}

func (c *Cache) removeFromByOffsetLocked(ic *inodeCache, i int) {
	ic.byOffset = append(ic.byOffset[:i], ic.byOffset[i+1:]...)
}

func (c *Cache) moveToReservedLocked(ic *inodeCache, e *Extent) {
	if e.lruElem != nil {
		c.lru.Remove(e.lruElem)
		e.lruElem = nil
	}
	ic.reserved = append(ic.reserved, e)
}
