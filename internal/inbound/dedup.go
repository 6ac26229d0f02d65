package inbound

import (
	"sync"
	"time"
)

// Deduper remembers recently processed message ids so channel redelivery
// never produces a second reply. Entries expire after a TTL and the table
// is capped, so memory stays bounded for the life of the process. Dedup
// state is not persisted; redelivery across a restart is accepted.
type Deduper struct {
	mu    sync.Mutex
	ttl   time.Duration
	cap   int
	seen  map[string]time.Time
	order []string

	now func() time.Time
}

// NewDeduper creates a dedup filter holding at most capacity ids for at
// most ttl each.
func NewDeduper(ttl time.Duration, capacity int) *Deduper {
	return &Deduper{
		ttl:  ttl,
		cap:  capacity,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// MarkIfNew records the id and reports whether it was unseen. The check
// and the insert are one atomic step so concurrent deliveries of the same
// id cannot both pass.
func (d *Deduper) MarkIfNew(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.evict(now)

	if expiry, ok := d.seen[id]; ok && now.Before(expiry) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	d.order = append(d.order, id)
	return true
}

// evict drops expired entries from the front of the insertion order, then
// enforces the capacity cap by dropping the oldest survivors.
func (d *Deduper) evict(now time.Time) {
	keep := 0
	for _, id := range d.order {
		expiry, ok := d.seen[id]
		if !ok || !now.Before(expiry) {
			delete(d.seen, id)
			continue
		}
		d.order[keep] = id
		keep++
	}
	d.order = d.order[:keep]

	for len(d.order) >= d.cap && len(d.order) > 0 {
		delete(d.seen, d.order[0])
		d.order = d.order[1:]
	}
}
