package entitytainer

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Config fixes the shape of a Hierarchy at construction time. Tiers are
// ordered by ascending bucket capacity; a parent's child list starts in
// tier 0 and migrates upwards as it grows.
type Config struct {
	// MaxEntities is the upper bound on entity id + 1.
	MaxEntities int

	// TierCapacities holds the per-bucket slot count of each tier. Slot 0
	// of a bucket stores the child count, so a tier of capacity N holds up
	// to N-1 children per parent.
	TierCapacities []int

	// TierBucketCounts holds the number of buckets preallocated per tier,
	// parallel to TierCapacities.
	TierBucketCounts []int

	// RemoveWithHoles leaves a NoEntity hole where a child was removed
	// instead of shifting later children down. Adds fill holes first.
	// Child slot indices stay stable across removals in this mode.
	RemoveWithHoles bool

	// KeepCapacityOnRemove disables demotion to smaller tiers after
	// removals.
	KeepCapacityOnRemove bool
}

func (cfg *Config) clone() Config {
	out := *cfg
	out.TierCapacities = append([]int(nil), cfg.TierCapacities...)
	out.TierBucketCounts = append([]int(nil), cfg.TierBucketCounts...)
	return out
}

func (cfg *Config) validate() error {
	if cfg.MaxEntities < 2 {
		return errors.Errorf("MaxEntities must be at least 2, got %d", cfg.MaxEntities)
	}
	if len(cfg.TierCapacities) == 0 {
		return errors.New("at least one tier is required")
	}
	if len(cfg.TierCapacities) != len(cfg.TierBucketCounts) {
		return errors.Errorf("mismatched tier configuration: %d capacities, %d bucket counts",
			len(cfg.TierCapacities), len(cfg.TierBucketCounts))
	}
	if len(cfg.TierCapacities) > maxTiers {
		return errors.Errorf("at most %d tiers are supported, got %d", maxTiers, len(cfg.TierCapacities))
	}
	prev := 1
	for i, capacity := range cfg.TierCapacities {
		if capacity < 2 {
			return errors.Errorf("tier %d capacity %d cannot hold a count and a child", i, capacity)
		}
		if capacity <= prev && i > 0 {
			return errors.New("tier capacities must be strictly ascending")
		}
		// Free buckets store the next free bucket index in their own slots.
		if capacity*entitySize < freeLinkSize {
			return errors.Errorf("tier %d bucket of %d bytes cannot hold a free-list link", i, capacity*entitySize)
		}
		count := cfg.TierBucketCounts[i]
		if count < 1 {
			return errors.Errorf("tier %d needs at least one bucket", i)
		}
		if count > bucketMask {
			return errors.Errorf("tier %d bucket count %d exceeds the locator encoding", i, count)
		}
		prev = capacity
	}
	return nil
}

// header sits at the start of the arena and records its shape. All arena
// bookkeeping is stored as indices, never addresses, so the backing block
// may be copied or relocated freely.
type header struct {
	numEntries int32
	numTiers   int32
	flags      int32
	_          int32
}

const (
	flagRemoveWithHoles = 1 << iota
	flagKeepCapacity
)

// tierDesc describes one tier in place inside the arena.
type tierDesc struct {
	capacity     int32
	totalBuckets int32
	usedBuckets  int32
	firstFree    int32
}

const (
	entitySize   = int(unsafe.Sizeof(Entity(0)))
	locatorSize  = int(unsafe.Sizeof(locator(0)))
	headerSize   = int(unsafe.Sizeof(header{}))
	tierDescSize = int(unsafe.Sizeof(tierDesc{}))
	freeLinkSize = int(unsafe.Sizeof(int32(0)))

	slotAlign = uintptr(unsafe.Alignof(Entity(0)))
)

// SizeNeeded reports the exact number of bytes a Hierarchy with this
// configuration occupies: header, forward lookup, reverse lookup, tier
// descriptors, then the flattened bucket storage of every tier, in that
// order. FromBuffer partitions its block identically.
func SizeNeeded(cfg Config) (int, error) {
	if err := cfg.validate(); err != nil {
		return 0, err
	}
	size := headerSize
	size += cfg.MaxEntities * locatorSize
	size += cfg.MaxEntities * entitySize
	size += len(cfg.TierCapacities) * tierDescSize
	for i, capacity := range cfg.TierCapacities {
		size += capacity * cfg.TierBucketCounts[i] * entitySize
	}
	return size, nil
}

// New builds a Hierarchy over a freshly allocated arena. This is the only
// allocation the structure ever makes; every subsequent operation works in
// place.
func New(cfg Config) (*Hierarchy, error) {
	size, err := SizeNeeded(cfg)
	if err != nil {
		return nil, err
	}
	return FromBuffer(make([]byte, size), cfg)
}

// FromBuffer builds a Hierarchy over a caller-supplied block of at least
// SizeNeeded(cfg) bytes. The block's prior contents are discarded. The
// Hierarchy aliases the block for its whole lifetime.
func FromBuffer(buf []byte, cfg Config) (*Hierarchy, error) {
	size, err := SizeNeeded(cfg)
	if err != nil {
		return nil, err
	}
	if len(buf) < size {
		return nil, errors.Errorf("buffer of %d bytes is smaller than the %d bytes required", len(buf), size)
	}
	if uintptr(unsafe.Pointer(&buf[0]))%slotAlign != 0 {
		return nil, errors.Errorf("buffer is not %d-byte aligned", slotAlign)
	}
	clear(buf[:size])

	h := &Hierarchy{
		buf:                  buf[:size],
		cfg:                  cfg.clone(),
		removeWithHoles:      cfg.RemoveWithHoles,
		keepCapacityOnRemove: cfg.KeepCapacityOnRemove,
	}

	off := 0
	h.hdr = (*header)(unsafe.Pointer(&buf[off]))
	off += headerSize
	h.hdr.numEntries = int32(cfg.MaxEntities)
	h.hdr.numTiers = int32(len(cfg.TierCapacities))
	if cfg.RemoveWithHoles {
		h.hdr.flags |= flagRemoveWithHoles
	}
	if cfg.KeepCapacityOnRemove {
		h.hdr.flags |= flagKeepCapacity
	}

	h.forward = unsafe.Slice((*locator)(unsafe.Pointer(&buf[off])), cfg.MaxEntities)
	off += cfg.MaxEntities * locatorSize
	h.reverse = unsafe.Slice((*Entity)(unsafe.Pointer(&buf[off])), cfg.MaxEntities)
	off += cfg.MaxEntities * entitySize
	h.tiers = unsafe.Slice((*tierDesc)(unsafe.Pointer(&buf[off])), len(cfg.TierCapacities))
	off += len(cfg.TierCapacities) * tierDescSize

	h.data = make([][]Entity, len(cfg.TierCapacities))
	for i, capacity := range cfg.TierCapacities {
		h.tiers[i] = tierDesc{
			capacity:     int32(capacity),
			totalBuckets: int32(cfg.TierBucketCounts[i]),
			firstFree:    noFreeBucket,
		}
		slots := capacity * cfg.TierBucketCounts[i]
		h.data[i] = unsafe.Slice((*Entity)(unsafe.Pointer(&buf[off])), slots)
		off += slots * entitySize
	}

	for i := range h.forward {
		h.forward[i] = locatorNone
	}
	return h, nil
}
