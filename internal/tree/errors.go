package tree

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("node not found")
	ErrNotADirectory        = errors.New("node is not a directory")
	ErrNotAFile             = errors.New("node is not a file")
	ErrDuplicateRoot        = errors.New("owner already has a root directory")
	ErrInvalidParent        = errors.New("parent does not exist or cannot have children")
	ErrNameConflict         = errors.New("a node with the same name already exists in this folder")
	ErrInvalidName          = errors.New("invalid node name")
	ErrRootNode             = errors.New("root directory cannot be deleted")
	ErrStorageUnavailable   = errors.New("storage backend unavailable")
	ErrPartialDeleteFailure = errors.New("node removed from index but physical delete failed")
	ErrIndexUnavailable     = errors.New("tree index unavailable")
	ErrTreeBusy             = errors.New("tree is locked by another operation")

	// Index corruption. Unreachable under correct operation.
	ErrOrphanNode    = errors.New("node has no parent chain to an owned root")
	ErrCycleDetected = errors.New("cycle detected in parent chain")
)

// IsCorruption reports whether err signals a broken index.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrOrphanNode) || errors.Is(err, ErrCycleDetected)
}

var resultLabels = []struct {
	err   error
	label string
}{
	{ErrNotFound, "not_found"},
	{ErrNotADirectory, "not_a_directory"},
	{ErrNotAFile, "not_a_file"},
	{ErrDuplicateRoot, "duplicate_root"},
	{ErrInvalidParent, "invalid_parent"},
	{ErrNameConflict, "name_conflict"},
	{ErrInvalidName, "invalid_name"},
	{ErrRootNode, "root_node"},
	{ErrStorageUnavailable, "storage_unavailable"},
	{ErrPartialDeleteFailure, "partial_delete_failure"},
	{ErrIndexUnavailable, "index_unavailable"},
	{ErrTreeBusy, "tree_busy"},
	{ErrOrphanNode, "orphan_node"},
	{ErrCycleDetected, "cycle_detected"},
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range resultLabels {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "error"
}

// classify leaves taxonomy errors untouched and files everything else under
// ErrIndexUnavailable.
func classify(err error) error {
	if err == nil || resultLabel(err) != "error" {
		return err
	}
	return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
}
