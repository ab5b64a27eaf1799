package entitytainer

import "fmt"

// noFreeBucket terminates a tier's free-list chain.
const noFreeBucket int32 = -1

// acquireBucket hands out a bucket index in tier ti, preferring the
// tier's free list over never-used buckets. Running a tier dry is a fatal
// capacity violation.
func (h *Hierarchy) acquireBucket(ti int32) int32 {
	t := &h.tiers[ti]
	idx := t.usedBuckets
	if t.firstFree != noFreeBucket {
		// A freed bucket chains to the next free one through its first slot.
		idx = t.firstFree
		t.firstFree = int32(h.data[ti][idx*t.capacity])
	} else if idx >= t.totalBuckets {
		panic(fmt.Sprintf("tier %d exhausted: all %d buckets in use", ti, t.totalBuckets))
	}
	t.usedBuckets++
	return idx
}

// releaseBucket pushes a bucket onto tier ti's free list. The bucket's
// first slot is repurposed as the next-free link while it is unowned.
func (h *Hierarchy) releaseBucket(ti, bucket int32) {
	t := &h.tiers[ti]
	h.data[ti][bucket*t.capacity] = Entity(t.firstFree)
	t.firstFree = bucket
	t.usedBuckets--
}

// bucketSlots returns the slot view of one bucket: slot 0 holds the child
// count, slots 1..capacity-1 hold children.
func (h *Hierarchy) bucketSlots(ti, bucket int32) []Entity {
	capacity := h.tiers[ti].capacity
	off := bucket * capacity
	return h.data[ti][off : off+capacity]
}

// migrate moves parent's child list from one bucket to a fresh bucket in
// toTier, releases the old bucket, and rewrites parent's locator. The
// destination may be smaller than the source (demotion); the caller
// guarantees every child fits.
func (h *Hierarchy) migrate(parent Entity, fromTier, fromBucket, toTier int32) (int32, int32) {
	toBucket := h.acquireBucket(toTier)
	src := h.bucketSlots(fromTier, fromBucket)
	dst := h.bucketSlots(toTier, toBucket)
	n := copy(dst, src)
	// The fresh bucket may carry stale slots from a previous owner.
	clear(dst[n:])
	h.releaseBucket(fromTier, fromBucket)
	h.forward[parent] = newLocator(toTier, toBucket)
	return toTier, toBucket
}
