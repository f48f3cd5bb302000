package service

import (
	"sort"
	"sync"

	quotesvc "picklist_converter/internal/quotes/service"
)

// claimSet is the in-process single-flight guard: a picklist id can be held
// by one batch at a time. The ledger lease extends the guard across
// processes and its uniqueness rule stays authoritative.
type claimSet struct {
	mu   sync.Mutex
	held map[int64]struct{}
	// unrecorded pins ids whose quotation was written but whose success
	// record was not. Pinned ids stay held until the record lands.
	unrecorded map[int64]quotesvc.Created
}

func newClaimSet() *claimSet {
	return &claimSet{
		held:       make(map[int64]struct{}),
		unrecorded: make(map[int64]quotesvc.Created),
	}
}

// tryClaim takes id without blocking. The returned release must be called
// exactly once when ok is true. Release leaves pinned ids held.
func (c *claimSet) tryClaim(id int64) (release func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.held[id]; busy {
		return nil, false
	}
	c.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if _, pinned := c.unrecorded[id]; !pinned {
				delete(c.held, id)
			}
			c.mu.Unlock()
		})
	}, true
}

func (c *claimSet) pin(id int64, created quotesvc.Created) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held[id] = struct{}{}
	c.unrecorded[id] = created
}

func (c *claimSet) unpin(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, pinned := c.unrecorded[id]; pinned {
		delete(c.unrecorded, id)
		delete(c.held, id)
	}
}

func (c *claimSet) pinned(id int64) (quotesvc.Created, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	created, ok := c.unrecorded[id]
	return created, ok
}

func (c *claimSet) isHeld(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.held[id]
	_, pinned := c.unrecorded[id]
	return busy && !pinned
}

// snapshot lists held ids that are actively being converted.
func (c *claimSet) snapshot() []int64 {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.held))
	for id := range c.held {
		if _, pinned := c.unrecorded[id]; pinned {
			continue
		}
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
