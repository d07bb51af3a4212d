package models

import "time"

type NodeKind string

const (
	KindContainer NodeKind = "container"
	KindLeaf      NodeKind = "leaf"
)

type NodeState string

const (
	StatePending NodeState = "pending"
	StateActive  NodeState = "active"
)

// Node is a single index record. Relations are stored as ids; a root has no
// ParentID and is bound to OwnerID.
type Node struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	ParentID   *string   `json:"parent_id"`
	Name       string    `json:"name"`
	Kind       NodeKind  `json:"kind"`
	SizeBytes  *int64    `json:"size_bytes,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	State      NodeState `json:"-"`
}

func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

func (n *Node) IsContainer() bool {
	return n.Kind == KindContainer
}

// TreeView is the serialized shape of a node and its descendants. Size is
// always the aggregated value for containers.
type TreeView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Kind       NodeKind   `json:"kind"`
	Size       int64      `json:"size"`
	ModifiedAt time.Time  `json:"modified_at"`
	Children   []TreeView `json:"children"`
}
