package entitytainer_test

import (
	"testing"

	"github.com/MdFirdousMehdi/the-entitytainer/entitytainer"
)

func newBenchHierarchy(b *testing.B) *entitytainer.Hierarchy {
	b.Helper()
	h, err := entitytainer.New(entitytainer.Config{
		MaxEntities:      4096,
		TierCapacities:   []int{4, 16, 256},
		TierBucketCounts: []int{2048, 512, 64},
	})
	if err != nil {
		b.Fatal(err)
	}
	return h
}

func BenchmarkAddRemoveEntity(b *testing.B) {
	h := newBenchHierarchy(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.AddEntity(1)
		h.RemoveEntity(1)
	}
}

func BenchmarkAddRemoveChild(b *testing.B) {
	h := newBenchHierarchy(b)
	h.AddEntity(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.AddChild(1, 2)
		h.RemoveChild(1, 2)
	}
}

func BenchmarkAddRemoveChildWithPromotion(b *testing.B) {
	h := newBenchHierarchy(b)
	h.AddEntity(1)
	// Sit right at the tier 0 boundary so every pair of operations crosses it.
	h.AddChild(1, 2)
	h.AddChild(1, 3)
	h.AddChild(1, 4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.AddChild(1, 5)
		h.RemoveChild(1, 5)
	}
}

func BenchmarkChildren(b *testing.B) {
	h := newBenchHierarchy(b)
	h.AddEntity(1)
	for c := entitytainer.Entity(2); c < 12; c++ {
		h.AddChild(1, c)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		children, count := h.Children(1)
		_ = children[:count]
	}
}

func BenchmarkParent(b *testing.B) {
	h := newBenchHierarchy(b)
	h.AddEntity(1)
	h.AddChild(1, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = h.Parent(2)
	}
}
