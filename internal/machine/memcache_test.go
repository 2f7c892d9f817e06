package machine

import "testing"

func TestMemCacheHitAndMiss(t *testing.T) {
	c := NewMemCache()
	if _, ok := c.Get(7); ok {
		t.Fatal("empty cache should miss")
	}
	c.Put(7, 3)
	slot, ok := c.Get(7)
	assert(t, ok && slot == 3, "expected hit with slot 3, got (%d, %v)", slot, ok)
}

func TestMemCacheEvictsStrictlyFIFO(t *testing.T) {
	c := NewMemCache()
	for i := uint32(0); i < defaultMemCacheCapacity; i++ {
		c.Put(i, i*10)
	}
	// Re-putting an existing key must not disturb the insertion order.
	c.Put(0, 0)

	c.Put(100, 1000)
	if _, ok := c.Get(0); ok {
		t.Fatal("expected the first-inserted entry to be evicted first")
	}
	slot, ok := c.Get(1)
	assert(t, ok && slot == 10, "second-inserted entry should survive one eviction, got (%d, %v)", slot, ok)
	slot, ok = c.Get(100)
	assert(t, ok && slot == 1000, "newly inserted entry missing, got (%d, %v)", slot, ok)
}
