package tree

import (
	"bytes"
	"context"
	"filezone/internal/locks"
	"filezone/internal/metrics"
	"filezone/internal/models"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service keeps the index and the physical storage in lockstep. Every
// mutation holds the owner's tree lock for the duration of that single
// operation.
type Service struct {
	index   Index
	storage Storage
	locker  Locker
	events  EventPublisher
	logger  *zap.Logger
	newID   IDGenerator
	now     func() time.Time
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.newID = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(index Index, storage Storage, opts ...Option) (*Service, error) {
	s := &Service{
		index:   index,
		storage: storage,
		events:  noopPublisher{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = locks.NewLocalLocker()
	}
	if s.newID == nil {
		gen, err := NewNanoIDGenerator()
		if err != nil {
			return nil, err
		}
		s.newID = gen
	}
	s.logger = s.logger.With(zap.String("component", "tree"))
	return s, nil
}

// ValidateName rejects names that cannot be used as a single path segment.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

func validateOwnerID(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: owner id cannot be empty", ErrInvalidName)
	}
	return ValidateName(ownerID)
}

func (s *Service) lockTree(ctx context.Context, ownerID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, "tree:"+ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTreeBusy, err)
	}
	return release, nil
}

func (s *Service) observe(operation string, err error, start time.Time) {
	metrics.ObserveTreeOperation(operation, resultLabel(err), start)
}

// CreateRoot creates the owner's root container. It can succeed only once
// per owner.
func (s *Service) CreateRoot(ctx context.Context, ownerID, displayName string) (node *models.Node, err error) {
	start := time.Now()
	defer func() { s.observe("create_root", err, start) }()

	if strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("%w: display name cannot be empty", ErrInvalidName)
	}
	if err := validateOwnerID(ownerID); err != nil {
		return nil, err
	}

	release, err := s.lockTree(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, classify(err)
	}

	node = &models.Node{
		ID:         id,
		OwnerID:    ownerID,
		Name:       displayName,
		Kind:       models.KindContainer,
		ModifiedAt: s.now().UTC(),
	}
	if err := s.index.CreateRoot(ctx, node); err != nil {
		return nil, classify(err)
	}

	p := RootSegment(ownerID)
	if err := s.storage.CreateContainer(ctx, p); err != nil {
		s.rollbackCreate(ctx, node, p)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.commit(ctx, node, p); err != nil {
		return nil, err
	}

	s.logger.Info("Root created", zap.String("owner_id", ownerID), zap.String("node_id", node.ID))
	return node, nil
}

func (s *Service) CreateContainer(ctx context.Context, parentID, name string) (node *models.Node, err error) {
	start := time.Now()
	defer func() { s.observe("create_container", err, start) }()

	return s.createChild(ctx, parentID, name, models.KindContainer, nil)
}

// CreateLeaf stores content under parentID. The leaf's size is len(content).
func (s *Service) CreateLeaf(ctx context.Context, parentID, name string, content []byte) (node *models.Node, err error) {
	start := time.Now()
	defer func() { s.observe("create_leaf", err, start) }()

	return s.createChild(ctx, parentID, name, models.KindLeaf, content)
}

func (s *Service) createChild(ctx context.Context, parentID, name string, kind models.NodeKind, content []byte) (*models.Node, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	parent, err := s.index.Lookup(ctx, parentID)
	if err != nil {
		return nil, classify(err)
	}
	release, err := s.lockTree(ctx, parent.OwnerID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock; the parent may have been deleted meanwhile.
	parent, err = s.index.Lookup(ctx, parentID)
	if err != nil {
		return nil, classify(err)
	}
	if !parent.IsContainer() {
		return nil, ErrNotADirectory
	}
	parentPath, err := s.resolve(ctx, parent.ID)
	if err != nil {
		return nil, err
	}

	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, classify(err)
	}

	node := &models.Node{
		ID:         id,
		OwnerID:    parent.OwnerID,
		ParentID:   &parent.ID,
		Name:       name,
		Kind:       kind,
		ModifiedAt: s.now().UTC(),
	}
	if kind == models.KindLeaf {
		size := int64(len(content))
		node.SizeBytes = &size
	}
	if err := s.index.Insert(ctx, node); err != nil {
		return nil, classify(err)
	}

	p := ChildPath(parentPath, name)
	if kind == models.KindContainer {
		err = s.storage.CreateContainer(ctx, p)
	} else {
		err = s.storage.Write(ctx, p, bytes.NewReader(content))
	}
	if err != nil {
		s.logger.Warn("Physical create failed, rolling back",
			zap.String("node_id", node.ID),
			zap.String("path", p),
			zap.Error(err))
		s.rollbackCreate(ctx, node, p)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.commit(ctx, node, p); err != nil {
		return nil, err
	}

	return node, nil
}

// commit makes a pending node visible. A caller that gave up after the
// physical artifact exists still gets a fully created node.
func (s *Service) commit(ctx context.Context, node *models.Node, p string) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.index.Commit(ctx, node.ID); err != nil {
		s.logger.Error("Commit failed, rolling back",
			zap.String("node_id", node.ID),
			zap.Error(err))
		s.rollbackCreate(ctx, node, p)
		return classify(err)
	}
	node.State = models.StateActive

	s.events.Publish(models.Event{
		Type:     models.EventNodeCreated,
		OwnerID:  node.OwnerID,
		NodeID:   node.ID,
		ParentID: node.ParentID,
		Name:     node.Name,
		Kind:     node.Kind,
	})
	return nil
}

func (s *Service) rollbackCreate(ctx context.Context, node *models.Node, p string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.index.Discard(ctx, node.ID); err != nil {
		s.logger.Error("Failed to discard pending node",
			zap.String("node_id", node.ID),
			zap.Error(err))
	}
	if err := s.storage.DeleteRecursive(ctx, p); err != nil {
		s.logger.Warn("Failed to clean up physical path after rollback",
			zap.String("path", p),
			zap.Error(err))
	}
}

// Delete removes the node and its whole subtree from the index, then from
// storage. A physical failure after the index commit is reported as
// ErrPartialDeleteFailure and needs manual reconciliation.
func (s *Service) Delete(ctx context.Context, nodeID string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", err, start) }()

	node, err := s.index.Lookup(ctx, nodeID)
	if err != nil {
		return classify(err)
	}
	release, err := s.lockTree(ctx, node.OwnerID)
	if err != nil {
		return err
	}
	defer release()

	node, err = s.index.Lookup(ctx, nodeID)
	if err != nil {
		return classify(err)
	}
	if node.IsRoot() {
		return ErrRootNode
	}

	// The path depends on an intact parent chain, so resolve it first.
	p, err := s.resolve(ctx, nodeID)
	if err != nil {
		return err
	}

	removed, err := s.index.RemoveSubtree(ctx, nodeID)
	if err != nil {
		return classify(err)
	}

	removedIDs := make([]string, 0, len(removed))
	for _, r := range removed {
		removedIDs = append(removedIDs, r.ID)
	}

	// The nodes are gone from the index whatever happens to storage below.
	s.events.Publish(models.Event{
		Type:       models.EventNodeDeleted,
		OwnerID:    node.OwnerID,
		NodeID:     node.ID,
		ParentID:   node.ParentID,
		Name:       node.Name,
		Kind:       node.Kind,
		RemovedIDs: removedIDs,
	})

	if err := s.storage.DeleteRecursive(context.WithoutCancel(ctx), p); err != nil {
		metrics.PartialDeletes.Inc()
		s.logger.Error("Physical delete failed after index removal",
			zap.String("node_id", nodeID),
			zap.String("path", p),
			zap.Strings("removed_ids", removedIDs),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrPartialDeleteFailure, p, err)
	}

	return nil
}

// GetSubtree serializes the node and all of its descendants from a single
// index snapshot.
func (s *Service) GetSubtree(ctx context.Context, nodeID string) (view *models.TreeView, err error) {
	start := time.Now()
	defer func() { s.observe("get_subtree", err, start) }()

	nodes, err := s.index.Subtree(ctx, nodeID)
	if err != nil {
		return nil, classify(err)
	}
	v, err := NewArena(nodes).View(nodeID)
	if err != nil {
		return nil, s.corruption(nodeID, err)
	}
	return &v, nil
}

// OpenContent returns a reader over a leaf's bytes. The caller closes it.
func (s *Service) OpenContent(ctx context.Context, nodeID string) (rc io.ReadCloser, node *models.Node, err error) {
	start := time.Now()
	defer func() { s.observe("open_content", err, start) }()

	node, err = s.index.Lookup(ctx, nodeID)
	if err != nil {
		return nil, nil, classify(err)
	}
	if node.Kind != models.KindLeaf {
		return nil, nil, ErrNotAFile
	}
	p, err := s.resolve(ctx, nodeID)
	if err != nil {
		return nil, nil, err
	}
	rc, err = s.storage.Read(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return rc, node, nil
}

func (s *Service) Lookup(ctx context.Context, nodeID string) (*models.Node, error) {
	n, err := s.index.Lookup(ctx, nodeID)
	return n, classify(err)
}

func (s *Service) Root(ctx context.Context, ownerID string) (*models.Node, error) {
	n, err := s.index.RootOf(ctx, ownerID)
	return n, classify(err)
}

// Authorize returns the node if ownerID owns it. Foreign nodes are reported
// as ErrNotFound.
func (s *Service) Authorize(ctx context.Context, ownerID, nodeID string) (*models.Node, error) {
	n, err := s.index.Lookup(ctx, nodeID)
	if err != nil {
		return nil, classify(err)
	}
	if n.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return n, nil
}

// ResolvePath returns the physical path of nodeID.
func (s *Service) ResolvePath(ctx context.Context, nodeID string) (string, error) {
	return s.resolve(ctx, nodeID)
}

// Size returns the aggregated size of nodeID.
func (s *Service) Size(ctx context.Context, nodeID string) (int64, error) {
	nodes, err := s.index.Subtree(ctx, nodeID)
	if err != nil {
		return 0, classify(err)
	}
	size, err := NewArena(nodes).Size(nodeID)
	if err != nil {
		return 0, s.corruption(nodeID, err)
	}
	return size, nil
}

func (s *Service) resolve(ctx context.Context, nodeID string) (string, error) {
	chain, err := s.index.Ancestors(ctx, nodeID)
	if err != nil {
		return "", classify(err)
	}
	p, err := NewArena(chain).Path(nodeID)
	if err != nil {
		return "", s.corruption(nodeID, err)
	}
	return p, nil
}

func (s *Service) corruption(nodeID string, err error) error {
	if IsCorruption(err) {
		metrics.CorruptionErrors.Inc()
		s.logger.Error("Index corruption detected",
			zap.String("node_id", nodeID),
			zap.Error(err))
	}
	return classify(err)
}
