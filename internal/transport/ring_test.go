package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetNodesReturnsDistinctPhysicalNodes verifies GetNodes never
// returns the same physical node twice even though each has many
// virtual positions.
func TestGetNodesReturnsDistinctPhysicalNodes(t *testing.T) {
	r := NewRing(50)
	r.AddNode("a")
	r.AddNode("b")
	r.AddNode("c")

	nodes := r.GetNodes("some-variable", 3)
	require.Len(t, nodes, 3)
	seen := make(map[string]bool)
	for _, n := range nodes {
		assert.False(t, seen[n], "node %q returned twice", n)
		seen[n] = true
	}
}

// TestGetNodesStableForSameName verifies repeated lookups of the same
// name land on the same owner set as long as membership is unchanged.
func TestGetNodesStableForSameName(t *testing.T) {
	r := NewRing(50)
	r.AddNode("a")
	r.AddNode("b")

	first := r.GetNodes("x", 2)
	second := r.GetNodes("x", 2)
	assert.Equal(t, first, second)
}

// TestRemoveNodeDropsItFromOwnership verifies a removed node never
// appears in subsequent GetNodes results.
func TestRemoveNodeDropsItFromOwnership(t *testing.T) {
	r := NewRing(50)
	r.AddNode("a")
	r.AddNode("b")
	r.AddNode("c")
	r.RemoveNode("b")

	for i := 0; i < 20; i++ {
		nodes := r.GetNodes("name-"+string(rune('a'+i)), 3)
		for _, n := range nodes {
			assert.NotEqual(t, "b", n)
		}
	}
}

// TestGetNodesOnEmptyRing verifies an empty ring yields no owners
// rather than panicking.
func TestGetNodesOnEmptyRing(t *testing.T) {
	r := NewRing(10)
	assert.Nil(t, r.GetNodes("anything", 3))
}
