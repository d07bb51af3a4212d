package tree

import (
	"context"
	"filezone/internal/models"
	"fmt"
	"sync"
)

// MemoryIndex is an in-process Index. A single RWMutex makes every call a
// consistent snapshot.
type MemoryIndex struct {
	mu       sync.RWMutex
	nodes    map[string]*models.Node
	children map[string]map[string]struct{}
	roots    map[string]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		nodes:    make(map[string]*models.Node),
		children: make(map[string]map[string]struct{}),
		roots:    make(map[string]string),
	}
}

func (m *MemoryIndex) CreateRoot(ctx context.Context, node *models.Node) error {
	if node.ParentID != nil {
		return fmt.Errorf("%w: root cannot have a parent", ErrInvalidParent)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roots[node.OwnerID]; ok {
		return ErrDuplicateRoot
	}
	if _, ok := m.nodes[node.ID]; ok {
		return fmt.Errorf("node id %s already in use", node.ID)
	}

	stored := *node
	stored.State = models.StatePending
	m.nodes[stored.ID] = &stored
	m.roots[stored.OwnerID] = stored.ID
	return nil
}

func (m *MemoryIndex) Insert(ctx context.Context, node *models.Node) error {
	if node.ParentID == nil {
		return ErrInvalidParent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.nodes[*node.ParentID]
	if !ok || parent.State != models.StateActive || parent.Kind != models.KindContainer {
		return ErrInvalidParent
	}
	if _, ok := m.nodes[node.ID]; ok {
		return fmt.Errorf("node id %s already in use", node.ID)
	}
	for childID := range m.children[parent.ID] {
		if m.nodes[childID].Name == node.Name {
			return ErrNameConflict
		}
	}

	stored := *node
	stored.OwnerID = parent.OwnerID
	stored.State = models.StatePending
	m.nodes[stored.ID] = &stored
	if m.children[parent.ID] == nil {
		m.children[parent.ID] = make(map[string]struct{})
	}
	m.children[parent.ID][stored.ID] = struct{}{}
	return nil
}

func (m *MemoryIndex) Commit(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok || n.State != models.StatePending {
		return ErrNotFound
	}
	n.State = models.StateActive
	return nil
}

func (m *MemoryIndex) Discard(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok || n.State != models.StatePending {
		return nil
	}
	m.unlink(n)
	return nil
}

func (m *MemoryIndex) unlink(n *models.Node) {
	delete(m.nodes, n.ID)
	delete(m.children, n.ID)
	if n.ParentID != nil {
		delete(m.children[*n.ParentID], n.ID)
	} else if m.roots[n.OwnerID] == n.ID {
		delete(m.roots, n.OwnerID)
	}
}

func (m *MemoryIndex) Lookup(ctx context.Context, id string) (*models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[id]
	if !ok || n.State != models.StateActive {
		return nil, ErrNotFound
	}
	found := *n
	return &found, nil
}

func (m *MemoryIndex) Ancestors(ctx context.Context, id string) ([]models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[id]
	if !ok || n.State != models.StateActive {
		return nil, ErrNotFound
	}

	chain := []models.Node{*n}
	seen := map[string]struct{}{n.ID: {}}
	for n.ParentID != nil {
		parent, ok := m.nodes[*n.ParentID]
		if !ok {
			break
		}
		if _, dup := seen[parent.ID]; dup {
			break
		}
		seen[parent.ID] = struct{}{}
		chain = append(chain, *parent)
		n = parent
	}
	return chain, nil
}

func (m *MemoryIndex) Subtree(ctx context.Context, id string) ([]models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[id]
	if !ok || n.State != models.StateActive {
		return nil, ErrNotFound
	}

	var out []models.Node
	seen := make(map[string]struct{})
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, dup := seen[cur]; dup {
			continue
		}
		seen[cur] = struct{}{}

		node := m.nodes[cur]
		if node.State != models.StateActive {
			continue
		}
		out = append(out, *node)
		for childID := range m.children[cur] {
			queue = append(queue, childID)
		}
	}
	return out, nil
}

func (m *MemoryIndex) RootOf(ctx context.Context, ownerID string) (*models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.roots[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	n := m.nodes[id]
	if n.State != models.StateActive {
		return nil, ErrNotFound
	}
	found := *n
	return &found, nil
}

func (m *MemoryIndex) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[id]
	return ok, nil
}

func (m *MemoryIndex) RemoveSubtree(ctx context.Context, id string) ([]models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok || n.State != models.StateActive {
		return nil, ErrNotFound
	}

	var removed []*models.Node
	seen := make(map[string]struct{})
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, dup := seen[cur]; dup {
			continue
		}
		seen[cur] = struct{}{}
		removed = append(removed, m.nodes[cur])
		for childID := range m.children[cur] {
			stack = append(stack, childID)
		}
	}

	out := make([]models.Node, 0, len(removed))
	for _, r := range removed {
		out = append(out, *r)
		m.unlink(r)
	}
	return out, nil
}

// Len counts records in any state.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}
