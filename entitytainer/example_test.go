package entitytainer_test

import (
	"fmt"

	"github.com/MdFirdousMehdi/the-entitytainer/entitytainer"
)

// ExampleNew demonstrates the basic API: size a hierarchy for a game's
// entity universe, attach children to a parent, and query them back.
// A typical use is tracking attachments (a weapon held in a hand) or
// inventory (an item inside a bag).
func ExampleNew() {
	h, err := entitytainer.New(entitytainer.Config{
		MaxEntities:      1024,
		TierCapacities:   []int{4, 16, 256},
		TierBucketCounts: []int{4, 2, 2},
	})
	if err != nil {
		panic(err)
	}

	h.AddEntity(3)
	h.AddChild(3, 10)

	children, count := h.Children(3)
	fmt.Printf("entity 3 has %d child: %d\n", count, children[0])
	fmt.Printf("entity 10's parent: %d\n", h.Parent(10))

	h.RemoveChild(3, 10)
	fmt.Printf("after removal: %d children\n", h.NumChildren(3))

	// Output:
	// entity 3 has 1 child: 10
	// entity 10's parent: 3
	// after removal: 0 children
}

// ExampleHierarchy_NeedsResize shows how to monitor tier occupancy so the
// structure can be rebuilt before a tier runs out of buckets.
func ExampleHierarchy_NeedsResize() {
	h, err := entitytainer.New(entitytainer.Config{
		MaxEntities:      64,
		TierCapacities:   []int{4, 8},
		TierBucketCounts: []int{4, 2},
	})
	if err != nil {
		panic(err)
	}

	for e := entitytainer.Entity(1); e <= 3; e++ {
		h.AddEntity(e)
	}
	fmt.Println("low on buckets:", h.NeedsResize(-1, 1))

	if h.NeedsResize(-1, 1) {
		grown, err := h.Resize(2)
		if err != nil {
			panic(err)
		}
		h = grown
	}
	fmt.Println("low on buckets:", h.NeedsResize(-1, 1))

	// Output:
	// low on buckets: true
	// low on buckets: false
}
