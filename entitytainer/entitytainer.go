// Package entitytainer keeps track of hierarchies of entities: attachments
// (a weapon held in a hand), inventory (cheese in a bag in a backpack), and
// similar one-to-many parent/child relationships keyed by small integer ids.
//
// All storage lives in a single arena sized up front; mutations never
// allocate. A parent's children occupy one fixed-capacity bucket, and the
// bucket migrates between size tiers as the child count grows and shrinks.
package entitytainer

import (
	"fmt"

	"github.com/pkg/errors"
)

// shrinkMargin is the hysteresis applied to hole-mode demotion: the last
// occupied slot must sit at least this far inside the previous tier's
// capacity before the list moves down.
const shrinkMargin = 1

// Hierarchy is a multimap from parent entities to child entities over one
// preallocated arena. It is not safe for concurrent mutation.
type Hierarchy struct {
	hdr     *header
	forward []locator
	reverse []Entity
	tiers   []tierDesc
	data    [][]Entity
	buf     []byte
	cfg     Config

	removeWithHoles      bool
	keepCapacityOnRemove bool
}

// checkRange panics unless e is a usable entity id.
func (h *Hierarchy) checkRange(e Entity) {
	if e <= NoEntity || int32(e) >= h.hdr.numEntries {
		panic(fmt.Sprintf("entity %d out of range [1, %d)", e, h.hdr.numEntries))
	}
}

// lookup resolves parent's current bucket, panicking if parent was never
// added.
func (h *Hierarchy) lookup(parent Entity) (int32, int32) {
	h.checkRange(parent)
	loc := h.forward[parent]
	if loc == locatorNone {
		panic(fmt.Sprintf("entity %d not added", parent))
	}
	return loc.tier(), loc.bucket()
}

// AddEntity registers an entity so it can hold children. It starts with an
// empty tier-0 bucket. Adding the same entity twice panics.
func (h *Hierarchy) AddEntity(e Entity) {
	h.checkRange(e)
	if h.forward[e] != locatorNone {
		panic(fmt.Sprintf("entity %d already added", e))
	}
	bucket := h.acquireBucket(0)
	h.forward[e] = newLocator(0, bucket)
	clear(h.bucketSlots(0, bucket))
}

// RemoveEntity detaches e from its parent (if any) and recycles its bucket.
// It is a no-op for entities that were never added.
func (h *Hierarchy) RemoveEntity(e Entity) {
	h.checkRange(e)
	if parent := h.reverse[e]; parent != NoEntity {
		h.RemoveChild(parent, e)
	}
	loc := h.forward[e]
	if loc == locatorNone {
		return
	}
	h.releaseBucket(loc.tier(), loc.bucket())
	h.forward[e] = locatorNone
}

// IsAdded reports whether e currently owns a bucket, i.e. AddEntity was
// called and RemoveEntity was not.
func (h *Hierarchy) IsAdded(e Entity) bool {
	h.checkRange(e)
	return h.forward[e] != locatorNone
}

// AddChild appends child to parent's list, promoting parent's bucket to the
// next tier first if it is full. Duplicate children are not detected; adding
// the same child twice yields two entries.
func (h *Hierarchy) AddChild(parent, child Entity) {
	h.checkRange(parent)
	h.checkRange(child)
	ti, bucket := h.lookup(parent)
	slots := h.bucketSlots(ti, bucket)
	if int32(slots[0])+1 == h.tiers[ti].capacity {
		if int(ti)+1 >= len(h.tiers) {
			panic(fmt.Sprintf("entity %d outgrew the largest tier (capacity %d)", parent, h.tiers[ti].capacity))
		}
		ti, bucket = h.migrate(parent, ti, bucket, ti+1)
		slots = h.bucketSlots(ti, bucket)
	}

	count := slots[0] + 1
	slots[0] = count
	if h.removeWithHoles {
		// Fill the first hole; fall through to the end slot if there is none.
		i := Entity(1)
		for ; i < count; i++ {
			if slots[i] == NoEntity {
				break
			}
		}
		slots[i] = child
	} else {
		slots[count] = child
	}
	h.reverse[child] = parent
}

// AddChildAt places child at a fixed child index, promoting parent's bucket
// as many tiers as it takes for the index to fit. The slot must be empty.
// Useful with RemoveWithHoles, where indices are stable and may be mirrored
// across a network.
func (h *Hierarchy) AddChildAt(parent, child Entity, index int) {
	h.checkRange(parent)
	h.checkRange(child)
	ti, bucket := h.lookup(parent)
	for int32(index)+1 >= h.tiers[ti].capacity {
		if int(ti)+1 >= len(h.tiers) {
			panic(fmt.Sprintf("child index %d does not fit the largest tier (capacity %d)", index, h.tiers[ti].capacity))
		}
		ti, bucket = h.migrate(parent, ti, bucket, ti+1)
	}

	slots := h.bucketSlots(ti, bucket)
	if slots[index+1] != NoEntity {
		panic(fmt.Sprintf("child slot %d of entity %d is occupied by %d", index, parent, slots[index+1]))
	}
	slots[0]++
	slots[index+1] = child
	h.reverse[child] = parent
}

// RemoveChild detaches child from parent. Panics if child is not among
// parent's children. Later children shift down one slot, or, with
// RemoveWithHoles, the slot is left empty. The bucket demotes to the
// previous tier once the list fits there, unless KeepCapacityOnRemove is
// set.
func (h *Hierarchy) RemoveChild(parent, child Entity) {
	h.checkRange(child)
	if h.removeWithHoles {
		h.removeChildHole(parent, child)
	} else {
		h.removeChildShift(parent, child)
	}
}

func (h *Hierarchy) removeChildShift(parent, child Entity) {
	ti, bucket := h.lookup(parent)
	slots := h.bucketSlots(ti, bucket)
	count := slots[0]
	i := Entity(1)
	for ; i <= count; i++ {
		if slots[i] == child {
			break
		}
	}
	if i > count {
		panic(fmt.Sprintf("entity %d is not a child of %d", child, parent))
	}
	copy(slots[i:count], slots[i+1:count+1])
	slots[count] = NoEntity
	slots[0] = count - 1
	h.reverse[child] = NoEntity

	if h.keepCapacityOnRemove || ti == 0 {
		return
	}
	if int32(slots[0])+1 == h.tiers[ti-1].capacity {
		h.migrate(parent, ti, bucket, ti-1)
	}
}

func (h *Hierarchy) removeChildHole(parent, child Entity) {
	ti, bucket := h.lookup(parent)
	slots := h.bucketSlots(ti, bucket)
	var pos, last int32
	for i := int32(1); i < h.tiers[ti].capacity; i++ {
		if slots[i] == child {
			pos = i
		} else if slots[i] != NoEntity {
			last = i
		}
	}
	if pos == 0 {
		panic(fmt.Sprintf("entity %d is not a child of %d", child, parent))
	}
	slots[pos] = NoEntity
	slots[0]--
	h.reverse[child] = NoEntity

	if h.keepCapacityOnRemove || ti == 0 {
		return
	}
	if last+shrinkMargin < h.tiers[ti-1].capacity {
		h.migrate(parent, ti, bucket, ti-1)
	}
}

// Reserve pre-promotes parent into the smallest tier able to hold capacity
// children, so that the next capacity adds cannot trigger a migration.
// It never demotes.
func (h *Hierarchy) Reserve(parent Entity, capacity int) {
	ti, bucket := h.lookup(parent)
	if h.tiers[ti].capacity > int32(capacity) {
		return
	}
	target := int32(-1)
	for i := ti + 1; int(i) < len(h.tiers); i++ {
		if h.tiers[i].capacity > int32(capacity) {
			target = i
			break
		}
	}
	if target < 0 {
		panic(fmt.Sprintf("no tier can hold %d children (largest capacity %d)", capacity, h.tiers[len(h.tiers)-1].capacity))
	}
	h.migrate(parent, ti, bucket, target)
}

// Children returns a view of parent's child slots along with the current
// child count. The view aliases bucket storage directly: it is valid only
// until the next mutation of parent, which may shift entries or relocate
// the bucket entirely.
//
// Without RemoveWithHoles the first count slots are the children in
// insertion order. With RemoveWithHoles children may sit anywhere in the
// view, with NoEntity marking empty slots.
func (h *Hierarchy) Children(parent Entity) ([]Entity, int) {
	ti, bucket := h.lookup(parent)
	slots := h.bucketSlots(ti, bucket)
	return slots[1:], int(slots[0])
}

// NumChildren returns parent's current child count.
func (h *Hierarchy) NumChildren(parent Entity) int {
	ti, bucket := h.lookup(parent)
	return int(h.bucketSlots(ti, bucket)[0])
}

// ChildIndex returns child's slot index within parent's child list, or -1
// if child is not there.
func (h *Hierarchy) ChildIndex(parent, child Entity) int {
	children, count := h.Children(parent)
	limit := count
	if h.removeWithHoles {
		limit = len(children)
	}
	for i := 0; i < limit; i++ {
		if children[i] == child {
			return i
		}
	}
	return -1
}

// Parent returns child's current parent, or NoEntity if it has none.
func (h *Hierarchy) Parent(child Entity) Entity {
	h.checkRange(child)
	return h.reverse[child]
}

// NeedsResize reports whether any tier is running out of buckets. When
// maxFreeFraction is non-negative the per-tier threshold is that fraction
// of the tier's total buckets; otherwise it is minFreeBuckets. A tier whose
// free bucket count is at or below its threshold trips the check. Callers
// are expected to poll this and Resize before a tier runs dry.
func (h *Hierarchy) NeedsResize(maxFreeFraction float64, minFreeBuckets int) bool {
	for i := range h.tiers {
		t := &h.tiers[i]
		threshold := int32(minFreeBuckets)
		if maxFreeFraction >= 0 {
			threshold = int32(float64(t.totalBuckets) * maxFreeFraction)
		}
		if t.totalBuckets-t.usedBuckets <= threshold {
			return true
		}
	}
	return false
}

// Resize builds a new Hierarchy whose per-tier bucket counts are scaled by
// growth, carrying over every entity and every parent/child relationship in
// order. Tier capacities and MaxEntities are unchanged. The receiver is
// left intact; callers swap to the returned structure. With RemoveWithHoles
// the surviving children keep their order but re-pack, so slot indices may
// change.
func (h *Hierarchy) Resize(growth float64) (*Hierarchy, error) {
	if growth < 1 {
		return nil, errors.Errorf("growth factor %v is below 1", growth)
	}
	cfg := h.cfg.clone()
	for i, count := range cfg.TierBucketCounts {
		cfg.TierBucketCounts[i] = int(float64(count) * growth)
	}
	grown, err := New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "building resized hierarchy")
	}

	for e := Entity(1); int32(e) < h.hdr.numEntries; e++ {
		if h.forward[e] != locatorNone {
			grown.AddEntity(e)
		}
	}
	for e := Entity(1); int32(e) < h.hdr.numEntries; e++ {
		if h.forward[e] == locatorNone {
			continue
		}
		children, _ := h.Children(e)
		for _, child := range children {
			if child == NoEntity {
				continue
			}
			grown.AddChild(e, child)
		}
	}
	return grown, nil
}
