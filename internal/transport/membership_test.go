package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJoinRejectsDuplicateID verifies joining an already-known node ID
// is an error rather than silently overwriting it.
func TestJoinRejectsDuplicateID(t *testing.T) {
	m := NewMembership([]Node{{ID: "a", Address: "10.0.0.1:9000"}}, 50)
	err := m.Join(Node{ID: "a", Address: "10.0.0.2:9000"})
	assert.Error(t, err)
}

// TestJoinThenGetNode verifies a newly joined node is retrievable and
// participates in the ring.
func TestJoinThenGetNode(t *testing.T) {
	m := NewMembership(nil, 50)
	require.NoError(t, m.Join(Node{ID: "a", Address: "10.0.0.1:9000"}))

	n, ok := m.GetNode("a")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1:9000", n.Address)

	owners := m.ReplicaNodes("some-key", 1)
	require.Len(t, owners, 1)
	assert.Equal(t, "a", owners[0].ID)
}

// TestLeaveRejectsUnknownID verifies removing a node that was never
// joined is an error.
func TestLeaveRejectsUnknownID(t *testing.T) {
	m := NewMembership(nil, 50)
	err := m.Leave("ghost")
	assert.Error(t, err)
}

// TestLeaveRemovesFromRingAndAll verifies a departed node no longer
// appears in All() or in ReplicaNodes results.
func TestLeaveRemovesFromRingAndAll(t *testing.T) {
	m := NewMembership([]Node{
		{ID: "a", Address: "10.0.0.1:9000"},
		{ID: "b", Address: "10.0.0.2:9000"},
	}, 50)
	require.NoError(t, m.Leave("b"))

	all := m.All()
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)

	for i := 0; i < 20; i++ {
		owners := m.ReplicaNodes("k"+string(rune('a'+i)), 2)
		for _, o := range owners {
			assert.NotEqual(t, "b", o.ID)
		}
	}
}

// TestReplicaNodesRespectsRequestedCount verifies fewer nodes than
// requested are returned when the cluster is smaller than n.
func TestReplicaNodesRespectsRequestedCount(t *testing.T) {
	m := NewMembership([]Node{{ID: "solo", Address: "10.0.0.1:9000"}}, 50)
	owners := m.ReplicaNodes("x", 3)
	assert.Len(t, owners, 1)
}
