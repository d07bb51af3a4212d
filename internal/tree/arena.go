package tree

import (
	"filezone/internal/models"
	"fmt"
	"path"
	"sort"
)

// Arena is an immutable snapshot of index records keyed by id. Path
// resolution and size aggregation are pure functions over it.
type Arena struct {
	nodes    map[string]*models.Node
	children map[string][]string
}

func NewArena(nodes []models.Node) *Arena {
	a := &Arena{
		nodes:    make(map[string]*models.Node, len(nodes)),
		children: make(map[string][]string),
	}
	for i := range nodes {
		n := &nodes[i]
		a.nodes[n.ID] = n
	}
	for _, n := range a.nodes {
		if n.ParentID != nil {
			if _, ok := a.nodes[*n.ParentID]; ok {
				a.children[*n.ParentID] = append(a.children[*n.ParentID], n.ID)
			}
		}
	}
	for parentID, ids := range a.children {
		sort.Slice(ids, func(i, j int) bool {
			return a.less(ids[i], ids[j])
		})
		a.children[parentID] = ids
	}
	return a
}

// Containers first, then by name.
func (a *Arena) less(i, j string) bool {
	ni, nj := a.nodes[i], a.nodes[j]
	if ni.Kind != nj.Kind {
		return ni.Kind == models.KindContainer
	}
	return ni.Name < nj.Name
}

func (a *Arena) Node(id string) (*models.Node, bool) {
	n, ok := a.nodes[id]
	return n, ok
}

// RootSegment is the physical namespace of an owner's tree.
func RootSegment(ownerID string) string {
	return ownerID
}

// ChildPath appends name as the next segment of parentPath.
func ChildPath(parentPath, name string) string {
	return path.Join(parentPath, name)
}

// Path walks parent links from id up to the owning root. The arena must
// contain the whole ancestor chain.
func (a *Arena) Path(id string) (string, error) {
	n, ok := a.nodes[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var names []string
	seen := make(map[string]struct{}, 8)
	for !n.IsRoot() {
		if _, dup := seen[n.ID]; dup {
			return "", fmt.Errorf("%w: at %s", ErrCycleDetected, n.ID)
		}
		seen[n.ID] = struct{}{}
		names = append(names, n.Name)

		parent, ok := a.nodes[*n.ParentID]
		if !ok {
			return "", fmt.Errorf("%w: %s has missing parent %s", ErrOrphanNode, n.ID, *n.ParentID)
		}
		n = parent
	}
	if n.OwnerID == "" {
		return "", fmt.Errorf("%w: root %s has no owner", ErrOrphanNode, n.ID)
	}

	p := RootSegment(n.OwnerID)
	for i := len(names) - 1; i >= 0; i-- {
		p = ChildPath(p, names[i])
	}
	return p, nil
}

// Size returns the stored size for a leaf and the recursive sum of children
// for a container.
func (a *Arena) Size(id string) (int64, error) {
	return a.size(id, make(map[string]struct{}))
}

func (a *Arena) size(id string, visiting map[string]struct{}) (int64, error) {
	n, ok := a.nodes[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if n.Kind == models.KindLeaf {
		if n.SizeBytes == nil {
			return 0, nil
		}
		return *n.SizeBytes, nil
	}
	if _, dup := visiting[id]; dup {
		return 0, fmt.Errorf("%w: at %s", ErrCycleDetected, id)
	}
	visiting[id] = struct{}{}
	defer delete(visiting, id)

	var total int64
	for _, childID := range a.children[id] {
		s, err := a.size(childID, visiting)
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total, nil
}

// View serializes id and its descendants. Sizes are aggregated bottom-up in
// the same walk.
func (a *Arena) View(id string) (models.TreeView, error) {
	return a.view(id, make(map[string]struct{}))
}

func (a *Arena) view(id string, visiting map[string]struct{}) (models.TreeView, error) {
	n, ok := a.nodes[id]
	if !ok {
		return models.TreeView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, dup := visiting[id]; dup {
		return models.TreeView{}, fmt.Errorf("%w: at %s", ErrCycleDetected, id)
	}
	visiting[id] = struct{}{}
	defer delete(visiting, id)

	v := models.TreeView{
		ID:         n.ID,
		Name:       n.Name,
		Kind:       n.Kind,
		ModifiedAt: n.ModifiedAt,
		Children:   []models.TreeView{},
	}
	if n.Kind == models.KindLeaf {
		if n.SizeBytes != nil {
			v.Size = *n.SizeBytes
		}
		return v, nil
	}
	for _, childID := range a.children[id] {
		cv, err := a.view(childID, visiting)
		if err != nil {
			return models.TreeView{}, err
		}
		v.Size += cv.Size
		v.Children = append(v.Children, cv)
	}
	return v, nil
}
