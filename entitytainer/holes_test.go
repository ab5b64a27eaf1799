package entitytainer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MdFirdousMehdi/the-entitytainer/entitytainer"
)

func holesConfig() entitytainer.Config {
	cfg := testConfig()
	cfg.RemoveWithHoles = true
	return cfg
}

func TestRemoveWithHoles(t *testing.T) {
	h := newTestHierarchy(t, holesConfig())

	h.AddEntity(10)
	children, count := h.Children(10)
	assert.Equal(t, 0, count)
	assert.Len(t, children, 3)

	h.AddChild(10, 20)
	h.AddChild(10, 21)
	h.AddChild(10, 22)
	children, count = h.Children(10)
	assert.Equal(t, 3, count)
	assert.Len(t, children, 3)

	// The fourth child promotes to tier 1 and lands after the existing three.
	h.AddChild(10, 23)
	children, count = h.Children(10)
	assert.Equal(t, 4, count)
	assert.Len(t, children, 7)

	// Removal leaves a hole; the other children keep their slots.
	h.RemoveChild(10, 20)
	children, count = h.Children(10)
	assert.Equal(t, 3, count)
	assert.Len(t, children, 7)
	assert.Equal(t, entitytainer.NoEntity, children[0])
	assert.Equal(t, 1, h.ChildIndex(10, 21))
	assert.Equal(t, 3, h.ChildIndex(10, 23))

	// The next add fills the hole.
	h.AddChild(10, 30)
	children, count = h.Children(10)
	assert.Equal(t, 4, count)
	assert.Equal(t, entitytainer.Entity(30), children[0])

	h.RemoveChild(10, 30)
	children, count = h.Children(10)
	assert.Equal(t, 3, count)
	assert.Equal(t, entitytainer.NoEntity, children[0])

	// No demotion while a child still sits beyond the smaller capacity.
	h.RemoveChild(10, 21)
	h.RemoveChild(10, 22)
	children, _ = h.Children(10)
	assert.Len(t, children, 7)

	// Removing the last straggler demotes back to tier 0.
	h.RemoveChild(10, 23)
	children, count = h.Children(10)
	assert.Equal(t, 0, count)
	assert.Len(t, children, 3)

	h.AddChild(10, 20)
	h.AddChild(10, 21)
	h.AddChild(10, 22)
	h.AddChild(10, 23)
	h.RemoveChild(10, 23)
	children, count = h.Children(10)
	assert.Equal(t, 3, count)
	assert.Len(t, children, 7)

	// One more removal clears the shrink margin and demotes.
	h.RemoveChild(10, 22)
	children, count = h.Children(10)
	assert.Equal(t, 2, count)
	assert.Len(t, children, 3)
}

func TestAddChildAt(t *testing.T) {
	h := newTestHierarchy(t, holesConfig())

	h.AddEntity(10)
	h.AddChildAt(10, 50, 5)
	assert.Equal(t, entitytainer.Entity(10), h.Parent(50))
	assert.Equal(t, 1, h.NumChildren(10))
	assert.Equal(t, 5, h.ChildIndex(10, 50))

	// Index 5 does not fit tier 0, so the bucket was promoted.
	children, _ := h.Children(10)
	assert.Len(t, children, 7)
	assert.Equal(t, entitytainer.Entity(50), children[5])

	h.AddChildAt(10, 51, 0)
	assert.Equal(t, 0, h.ChildIndex(10, 51))
	assert.Equal(t, 2, h.NumChildren(10))

	assert.Panics(t, func() { h.AddChildAt(10, 52, 5) }, "slot occupied")
}

func TestResizeWithHoles(t *testing.T) {
	h := newTestHierarchy(t, holesConfig())

	h.AddEntity(10)
	for i := entitytainer.Entity(0); i < 5; i++ {
		h.AddChild(10, 100+i)
	}
	h.RemoveChild(10, 101)

	grown, err := h.Resize(2)
	assert.NoError(t, err)

	// Children re-pack in order; the hole disappears.
	children, count := grown.Children(10)
	assert.Equal(t, 4, count)
	assert.Equal(t, []entitytainer.Entity{100, 102, 103, 104}, children[:count])
}
