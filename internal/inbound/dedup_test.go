package inbound

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeduperMarkIfNew(t *testing.T) {
	d := NewDeduper(time.Hour, 100)

	assert.True(t, d.MarkIfNew("m1"))
	assert.False(t, d.MarkIfNew("m1"))
	assert.True(t, d.MarkIfNew("m2"))
}

func TestDeduperTTLExpiry(t *testing.T) {
	d := NewDeduper(time.Minute, 100)
	current := time.Unix(1_700_000_000, 0)
	d.now = func() time.Time { return current }

	assert.True(t, d.MarkIfNew("m1"))
	assert.False(t, d.MarkIfNew("m1"))

	current = current.Add(2 * time.Minute)
	assert.True(t, d.MarkIfNew("m1"), "expired ids are forgotten")
}

func TestDeduperCapacityBound(t *testing.T) {
	d := NewDeduper(time.Hour, 3)

	for i := 0; i < 10; i++ {
		d.MarkIfNew(fmt.Sprintf("m%d", i))
	}

	assert.LessOrEqual(t, len(d.seen), 3)
	assert.False(t, d.MarkIfNew("m9"), "newest id is still remembered")
	assert.True(t, d.MarkIfNew("m0"), "oldest id was evicted")
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.lock("user-1")
	assert.Len(t, k.locks, 1)
	unlock()
	assert.Empty(t, k.locks, "idle locks are removed")
}
