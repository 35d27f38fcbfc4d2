package transport

import (
	"fmt"
	"sync"
)

// Node is one member of the replication cluster.
type Node struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Membership tracks which nodes participate in replication. Static
// membership, seeded at startup from configuration; there is no
// gossip or failure detector here, matching the scope of the
// knowledge context's own concurrency model (no cross-node
// coordination beyond the merge rule).
type Membership struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	ring  *Ring
}

// NewMembership seeds membership with the given nodes.
func NewMembership(nodes []Node, vnodes int) *Membership {
	m := &Membership{nodes: make(map[string]*Node), ring: NewRing(vnodes)}
	for i := range nodes {
		n := nodes[i]
		m.nodes[n.ID] = &n
		m.ring.AddNode(n.ID)
	}
	return m
}

// Join adds a node to the cluster.
func (m *Membership) Join(node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[node.ID]; ok {
		return fmt.Errorf("node %s already in cluster", node.ID)
	}
	m.nodes[node.ID] = &node
	m.ring.AddNode(node.ID)
	return nil
}

// Leave removes a node from the cluster.
func (m *Membership) Leave(nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[nodeID]; !ok {
		return fmt.Errorf("node %s not in cluster", nodeID)
	}
	delete(m.nodes, nodeID)
	m.ring.RemoveNode(nodeID)
	return nil
}

// GetNode looks up a node by ID.
func (m *Membership) GetNode(id string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	return n, ok
}

// All returns a snapshot of every known node.
func (m *Membership) All() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, *n)
	}
	return out
}

// Ring exposes the consistent-hash ring backing this membership.
func (m *Membership) Ring() *Ring { return m.ring }

// ReplicaNodes returns the n nodes responsible for name.
func (m *Membership) ReplicaNodes(name string, n int) []*Node {
	ids := m.ring.GetNodes(name, n)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var nodes []*Node
	for _, id := range ids {
		if node, ok := m.nodes[id]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}
