package tree

import (
	"context"
	"filezone/internal/models"
	"testing"

	"github.com/stretchr/testify/require"
)

func insertActive(t *testing.T, idx *MemoryIndex, n models.Node) {
	t.Helper()
	ctx := context.Background()
	if n.ParentID == nil {
		require.NoError(t, idx.CreateRoot(ctx, &n))
	} else {
		require.NoError(t, idx.Insert(ctx, &n))
	}
	require.NoError(t, idx.Commit(ctx, n.ID))
}

func seededIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	for _, n := range sampleNodes() {
		insertActive(t, idx, n)
	}
	return idx
}

func TestMemoryIndex_PendingIsInvisible(t *testing.T) {
	ctx := context.Background()
	idx := seededIndex(t)

	pending := models.Node{ID: "p", ParentID: strPtr("docs"), Name: "p.txt", Kind: models.KindLeaf, SizeBytes: sizePtr(9)}
	require.NoError(t, idx.Insert(ctx, &pending))

	_, err := idx.Lookup(ctx, "p")
	require.ErrorIs(t, err, ErrNotFound)

	nodes, err := idx.Subtree(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	exists, err := idx.Exists(ctx, "p")
	require.NoError(t, err)
	require.True(t, exists, "pending ids stay reserved")

	// A pending sibling still reserves its name.
	dup := models.Node{ID: "q", ParentID: strPtr("docs"), Name: "p.txt", Kind: models.KindLeaf}
	require.ErrorIs(t, idx.Insert(ctx, &dup), ErrNameConflict)

	require.NoError(t, idx.Commit(ctx, "p"))
	found, err := idx.Lookup(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, "alice", found.OwnerID)
	require.Equal(t, models.StateActive, found.State)
}

func TestMemoryIndex_Discard(t *testing.T) {
	ctx := context.Background()
	idx := seededIndex(t)
	before := idx.Len()

	pending := models.Node{ID: "p", ParentID: strPtr("docs"), Name: "p.txt", Kind: models.KindLeaf}
	require.NoError(t, idx.Insert(ctx, &pending))
	require.NoError(t, idx.Discard(ctx, "p"))
	require.Equal(t, before, idx.Len())

	// Active nodes and unknown ids are left alone.
	require.NoError(t, idx.Discard(ctx, "docs"))
	require.NoError(t, idx.Discard(ctx, "nope"))
	require.Equal(t, before, idx.Len())

	again := models.Node{ID: "p2", ParentID: strPtr("docs"), Name: "p.txt", Kind: models.KindLeaf}
	require.NoError(t, idx.Insert(ctx, &again))
}

func TestMemoryIndex_InsertInvalidParent(t *testing.T) {
	ctx := context.Background()
	idx := seededIndex(t)

	tests := []struct {
		name   string
		parent *string
	}{
		{"no parent", nil},
		{"missing parent", strPtr("missing")},
		{"leaf parent", strPtr("a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := models.Node{ID: "x-" + tt.name, ParentID: tt.parent, Name: "x", Kind: models.KindContainer}
			require.ErrorIs(t, idx.Insert(ctx, &n), ErrInvalidParent)
		})
	}
}

func TestMemoryIndex_DuplicateRoot(t *testing.T) {
	ctx := context.Background()
	idx := seededIndex(t)
	before := idx.Len()

	second := models.Node{ID: "root2", OwnerID: "alice", Name: "Again", Kind: models.KindContainer}
	require.ErrorIs(t, idx.CreateRoot(ctx, &second), ErrDuplicateRoot)
	require.Equal(t, before, idx.Len())

	root, err := idx.RootOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "root", root.ID)
}

func TestMemoryIndex_Ancestors(t *testing.T) {
	ctx := context.Background()
	idx := seededIndex(t)

	chain, err := idx.Ancestors(ctx, "a")
	require.NoError(t, err)
	ids := make([]string, 0, len(chain))
	for _, n := range chain {
		ids = append(ids, n.ID)
	}
	require.Equal(t, []string{"a", "docs", "root"}, ids)
}

func TestMemoryIndex_RemoveSubtree(t *testing.T) {
	ctx := context.Background()
	idx := seededIndex(t)

	removed, err := idx.RemoveSubtree(ctx, "docs")
	require.NoError(t, err)

	ids := make([]string, 0, len(removed))
	for _, n := range removed {
		ids = append(ids, n.ID)
	}
	require.ElementsMatch(t, []string{"docs", "a", "b"}, ids)

	for _, id := range ids {
		_, err := idx.Lookup(ctx, id)
		require.ErrorIs(t, err, ErrNotFound)
	}

	nodes, err := idx.Subtree(ctx, "root")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	_, err = idx.RemoveSubtree(ctx, "docs")
	require.ErrorIs(t, err, ErrNotFound)

	// The name is free again.
	n := models.Node{ID: "docs2", ParentID: strPtr("root"), Name: "docs", Kind: models.KindContainer}
	require.NoError(t, idx.Insert(ctx, &n))
}

func TestMemoryIndex_RemoveRoot(t *testing.T) {
	ctx := context.Background()
	idx := seededIndex(t)

	_, err := idx.RemoveSubtree(ctx, "root")
	require.NoError(t, err)
	require.Zero(t, idx.Len())

	_, err = idx.RootOf(ctx, "alice")
	require.ErrorIs(t, err, ErrNotFound)
}
