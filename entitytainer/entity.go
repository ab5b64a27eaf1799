package entitytainer

// Entity identifies one entity in the caller's namespace.
// Valid ids are [1, MaxEntities); 0 is reserved as NoEntity.
type Entity int32

// NoEntity means "no entity here": an empty child slot, or the parent of
// an entity that is not attached to anything.
const NoEntity Entity = 0

// locator encodes the tier index (upper bits) and the bucket index within
// that tier (lower bits) of the bucket holding a parent's child list.
type locator int32

// locatorNone marks an entity that currently owns no bucket. It is
// negative, so it can never collide with a packed (tier, bucket) pair.
const locatorNone locator = -1

const (
	tierBits   = 2
	bucketBits = 28
	bucketMask = 1<<bucketBits - 1

	// maxTiers is fixed by the locator encoding
	maxTiers = 1 << tierBits
)

func newLocator(tier, bucket int32) locator {
	return locator(tier<<bucketBits | bucket)
}

// tier extracts the tier index from the locator
func (l locator) tier() int32 {
	return int32(l) >> bucketBits
}

// bucket extracts the bucket index from the locator
func (l locator) bucket() int32 {
	return int32(l) & bucketMask
}
