// Package tree keeps per-user hierarchies of containers and leaves whose
// metadata lives in an Index and whose bytes live in a Storage backend.
package tree

import (
	"context"
	"filezone/internal/models"
	"io"
)

// Index is the persisted mapping of node id to node record. Implementations
// only ever touch metadata; physical storage is driven by Service.
//
// Nodes are inserted pending and become visible to Lookup, Ancestors and
// Subtree only after Commit.
type Index interface {
	// CreateRoot inserts a pending root for node.OwnerID. Fails with
	// ErrDuplicateRoot if the owner already has one.
	CreateRoot(ctx context.Context, node *models.Node) error
	// Insert adds a pending node under node.ParentID. Fails with
	// ErrInvalidParent if the parent is missing or a leaf and with
	// ErrNameConflict if a sibling already holds the name.
	Insert(ctx context.Context, node *models.Node) error
	Commit(ctx context.Context, id string) error
	// Discard removes a pending node. It is a no-op for unknown ids.
	Discard(ctx context.Context, id string) error

	Lookup(ctx context.Context, id string) (*models.Node, error)
	// Ancestors returns the node followed by its parent chain, root last.
	// A broken chain is returned as far as it could be followed.
	Ancestors(ctx context.Context, id string) ([]models.Node, error)
	// Subtree returns the node and all of its active descendants as one
	// consistent snapshot.
	Subtree(ctx context.Context, id string) ([]models.Node, error)
	RootOf(ctx context.Context, ownerID string) (*models.Node, error)
	Exists(ctx context.Context, id string) (bool, error)

	// RemoveSubtree removes the node and every descendant and returns the
	// removed records.
	RemoveSubtree(ctx context.Context, id string) ([]models.Node, error)
}

// Storage is the physical byte store keyed by resolved path. Paths are
// slash separated and relative to the backend's own namespace.
type Storage interface {
	Write(ctx context.Context, path string, r io.Reader) error
	Read(ctx context.Context, path string) (io.ReadCloser, error)
	CreateContainer(ctx context.Context, path string) error
	DeleteRecursive(ctx context.Context, path string) error
}

// Locker serializes mutations of one tree. Acquire blocks until the lock is
// held or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type EventPublisher interface {
	Publish(event models.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.Event) {}
