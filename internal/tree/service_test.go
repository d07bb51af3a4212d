package tree

import (
	"bytes"
	"context"
	"errors"
	"filezone/internal/models"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errDiskDown = errors.New("disk down")

// memStorage is a Storage that can be told to fail.
type memStorage struct {
	mu          sync.Mutex
	files       map[string][]byte
	dirs        map[string]struct{}
	failWrite   bool
	failMkdir   bool
	failDelete  bool
	deleteCalls int
}

func newMemStorage() *memStorage {
	return &memStorage{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

func (m *memStorage) Write(ctx context.Context, p string, r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errDiskDown
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.files[p] = data
	return nil
}

func (m *memStorage) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", p)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) CreateContainer(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMkdir {
		return errDiskDown
	}
	m.dirs[p] = struct{}{}
	return nil
}

func (m *memStorage) DeleteRecursive(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.failDelete {
		return errDiskDown
	}
	for k := range m.files {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(m.files, k)
		}
	}
	for k := range m.dirs {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(m.dirs, k)
		}
	}
	return nil
}

func (m *memStorage) hasFile(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[p]
	return ok
}

func (m *memStorage) hasDir(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.dirs[p]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingPublisher) Publish(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) snapshot() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

type testEnv struct {
	svc    *Service
	index  *MemoryIndex
	store  *memStorage
	events *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		index:  NewMemoryIndex(),
		store:  newMemStorage(),
		events: &recordingPublisher{},
	}
	svc, err := NewService(env.index, env.store, WithEventPublisher(env.events))
	require.NoError(t, err)
	env.svc = svc
	return env
}

// aliceTree builds alice/docs/a.txt with five bytes of content.
func (env *testEnv) aliceTree(t *testing.T) (root, docs, leaf *models.Node) {
	t.Helper()
	ctx := context.Background()

	root, err := env.svc.CreateRoot(ctx, "alice", "Alice")
	require.NoError(t, err)
	docs, err = env.svc.CreateContainer(ctx, root.ID, "docs")
	require.NoError(t, err)
	leaf, err = env.svc.CreateLeaf(ctx, docs.ID, "a.txt", []byte("hello"))
	require.NoError(t, err)
	return root, docs, leaf
}

func TestService_CreateAndSize(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, docs, leaf := env.aliceTree(t)

	require.True(t, env.store.hasDir("alice"))
	require.True(t, env.store.hasDir("alice/docs"))
	require.True(t, env.store.hasFile("alice/docs/a.txt"))

	for _, id := range []string{leaf.ID, docs.ID, root.ID} {
		size, err := env.svc.Size(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(5), size)
	}

	p, err := env.svc.ResolvePath(ctx, leaf.ID)
	require.NoError(t, err)
	require.Equal(t, "alice/docs/a.txt", p)

	view, err := env.svc.GetSubtree(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", view.Name)
	require.Equal(t, int64(5), view.Size)
	require.Len(t, view.Children, 1)
	require.Equal(t, "docs", view.Children[0].Name)
	require.Equal(t, int64(5), view.Children[0].Size)
	require.Equal(t, "a.txt", view.Children[0].Children[0].Name)

	events := env.events.snapshot()
	require.Len(t, events, 3)
	require.Equal(t, models.EventNodeCreated, events[2].Type)
	require.Equal(t, leaf.ID, events[2].NodeID)
	require.Equal(t, "alice", events[2].OwnerID)
}

func TestService_OpenContent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, docs, leaf := env.aliceTree(t)

	rc, node, err := env.svc.OpenContent(ctx, leaf.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.Equal(t, "a.txt", node.Name)

	_, _, err = env.svc.OpenContent(ctx, docs.ID)
	require.ErrorIs(t, err, ErrNotAFile)
}

func TestService_DeleteCascade(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, docs, leaf := env.aliceTree(t)

	require.NoError(t, env.svc.Delete(ctx, docs.ID))

	_, err := env.svc.Lookup(ctx, leaf.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = env.svc.Lookup(ctx, docs.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, env.store.hasDir("alice/docs"))
	require.False(t, env.store.hasFile("alice/docs/a.txt"))

	size, err := env.svc.Size(ctx, root.ID)
	require.NoError(t, err)
	require.Zero(t, size)

	events := env.events.snapshot()
	last := events[len(events)-1]
	require.Equal(t, models.EventNodeDeleted, last.Type)
	require.ElementsMatch(t, []string{docs.ID, leaf.ID}, last.RemovedIDs)
}

func TestService_DeleteRootRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, _, _ := env.aliceTree(t)

	require.ErrorIs(t, env.svc.Delete(ctx, root.ID), ErrRootNode)
	require.Equal(t, 3, env.index.Len())
}

func TestService_DeleteNotFound(t *testing.T) {
	env := newTestEnv(t)
	require.ErrorIs(t, env.svc.Delete(context.Background(), "missing"), ErrNotFound)
}

func TestService_DuplicateRootLeavesIndexUnchanged(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, _, _ := env.aliceTree(t)
	before := env.index.Len()

	_, err := env.svc.CreateRoot(ctx, "alice", "Alice again")
	require.ErrorIs(t, err, ErrDuplicateRoot)
	require.Equal(t, before, env.index.Len())

	got, err := env.svc.Root(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, root.ID, got.ID)
}

func TestService_CreateRootRollback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.store.failMkdir = true

	_, err := env.svc.CreateRoot(ctx, "bob", "Bob")
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.Zero(t, env.index.Len())

	env.store.failMkdir = false
	_, err = env.svc.CreateRoot(ctx, "bob", "Bob")
	require.NoError(t, err)
}

func TestService_CreateLeafRollback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, docs, _ := env.aliceTree(t)
	before := env.index.Len()
	eventsBefore := len(env.events.snapshot())

	env.store.failWrite = true
	_, err := env.svc.CreateLeaf(ctx, docs.ID, "b.txt", []byte("world"))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.Equal(t, before, env.index.Len())
	require.Len(t, env.events.snapshot(), eventsBefore)

	size, err := env.svc.Size(ctx, docs.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), size)

	// The name was released by the rollback.
	env.store.failWrite = false
	_, err = env.svc.CreateLeaf(ctx, docs.ID, "b.txt", []byte("world"))
	require.NoError(t, err)
}

func TestService_CreateContainerRollback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, _, _ := env.aliceTree(t)
	before := env.index.Len()

	env.store.failMkdir = true
	_, err := env.svc.CreateContainer(ctx, root.ID, "photos")
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.Equal(t, before, env.index.Len())
}

func TestService_CreateUnderLeaf(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, _, leaf := env.aliceTree(t)

	_, err := env.svc.CreateContainer(ctx, leaf.ID, "sub")
	require.ErrorIs(t, err, ErrNotADirectory)

	_, err = env.svc.CreateLeaf(ctx, leaf.ID, "x", nil)
	require.ErrorIs(t, err, ErrNotADirectory)
}

func TestService_CreateUnderMissingParent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateContainer(context.Background(), "missing", "sub")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_NameConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, docs, _ := env.aliceTree(t)

	_, err := env.svc.CreateContainer(ctx, root.ID, "docs")
	require.ErrorIs(t, err, ErrNameConflict)

	_, err = env.svc.CreateLeaf(ctx, docs.ID, "a.txt", []byte("other"))
	require.ErrorIs(t, err, ErrNameConflict)

	// The original file is untouched.
	rc, _, err := env.svc.OpenContent(ctx, mustChildID(t, env, docs.ID, "a.txt"))
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	require.Equal(t, "hello", string(data))
}

func mustChildID(t *testing.T, env *testEnv, parentID, name string) string {
	t.Helper()
	view, err := env.svc.GetSubtree(context.Background(), parentID)
	require.NoError(t, err)
	for _, c := range view.Children {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("no child %q under %s", name, parentID)
	return ""
}

func TestService_InvalidNames(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, _, _ := env.aliceTree(t)

	for _, name := range []string{"", "   ", ".", "..", "a/b", `a\b`, "nul\x00"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			_, err := env.svc.CreateContainer(ctx, root.ID, name)
			require.ErrorIs(t, err, ErrInvalidName)
		})
	}

	_, err := env.svc.CreateRoot(ctx, "../etc", "Evil")
	require.ErrorIs(t, err, ErrInvalidName)
	_, err = env.svc.CreateRoot(ctx, "", "Nobody")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestService_PartialDeleteFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, docs, leaf := env.aliceTree(t)
	eventsBefore := len(env.events.snapshot())

	env.store.failDelete = true
	err := env.svc.Delete(ctx, docs.ID)
	require.ErrorIs(t, err, ErrPartialDeleteFailure)
	require.Contains(t, err.Error(), "alice/docs")

	// The index commit is not undone.
	_, err = env.svc.Lookup(ctx, leaf.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, env.store.hasFile("alice/docs/a.txt"))

	// Subscribers still learn that the nodes left the tree.
	events := env.events.snapshot()
	require.Len(t, events, eventsBefore+1)
	deleted := events[len(events)-1]
	require.Equal(t, models.EventNodeDeleted, deleted.Type)
	require.Equal(t, docs.ID, deleted.NodeID)
	require.ElementsMatch(t, []string{docs.ID, leaf.ID}, deleted.RemovedIDs)
}

func TestService_Authorize(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, docs, _ := env.aliceTree(t)

	n, err := env.svc.Authorize(ctx, "alice", docs.ID)
	require.NoError(t, err)
	require.Equal(t, docs.ID, n.ID)

	_, err = env.svc.Authorize(ctx, "mallory", docs.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, docs, _ := env.aliceTree(t)

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.CreateLeaf(ctx, docs.ID, fmt.Sprintf("f%02d.bin", i), []byte{byte(i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := env.svc.GetSubtree(ctx, docs.ID)
	require.NoError(t, err)
	require.Len(t, view.Children, workers+1)
	require.Equal(t, int64(5+workers), view.Size)
}

func TestService_ConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, docs, _ := env.aliceTree(t)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflicts int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CreateContainer(ctx, docs.ID, "same")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrNameConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, conflicts)
}

func TestService_ReadsDuringDeletes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, docs, _ := env.aliceTree(t)
	for i := 0; i < 10; i++ {
		_, err := env.svc.CreateLeaf(ctx, docs.ID, fmt.Sprintf("x%d", i), []byte("12345"))
		require.NoError(t, err)
	}

	deleted := make(chan error, 1)
	go func() {
		deleted <- env.svc.Delete(ctx, docs.ID)
	}()

	// Every read sees either the whole docs folder or none of it.
	for i := 0; i < 200; i++ {
		size, err := env.svc.Size(ctx, root.ID)
		require.NoError(t, err)
		require.Contains(t, []int64{0, 55}, size)
	}
	require.NoError(t, <-deleted)
}

type brokenChainIndex struct {
	*MemoryIndex
}

func (b brokenChainIndex) Ancestors(ctx context.Context, id string) ([]models.Node, error) {
	chain, err := b.MemoryIndex.Ancestors(ctx, id)
	if err != nil || len(chain) < 2 {
		return chain, err
	}
	return chain[:1], nil
}

func TestService_CorruptionSurfaces(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, docs, leaf := env.aliceTree(t)

	svc, err := NewService(brokenChainIndex{env.index}, env.store)
	require.NoError(t, err)

	_, err = svc.ResolvePath(ctx, leaf.ID)
	require.ErrorIs(t, err, ErrOrphanNode)

	_, err = svc.CreateLeaf(ctx, docs.ID, "b.txt", nil)
	require.ErrorIs(t, err, ErrOrphanNode)
	require.True(t, IsCorruption(err))
}

type failingIndex struct {
	*MemoryIndex
}

func (failingIndex) Lookup(ctx context.Context, id string) (*models.Node, error) {
	return nil, errors.New("connection refused")
}

func TestService_UnknownIndexErrorsAreClassified(t *testing.T) {
	svc, err := NewService(failingIndex{NewMemoryIndex()}, newMemStorage())
	require.NoError(t, err)

	_, err = svc.Lookup(context.Background(), "x")
	require.ErrorIs(t, err, ErrIndexUnavailable)
	require.Equal(t, "index_unavailable", resultLabel(err))
}

type busyLocker struct{}

func (busyLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return nil, context.DeadlineExceeded
}

func TestService_LockFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root, _, _ := env.aliceTree(t)

	svc, err := NewService(env.index, env.store, WithLocker(busyLocker{}))
	require.NoError(t, err)

	_, err = svc.CreateContainer(ctx, root.ID, "later")
	require.ErrorIs(t, err, ErrTreeBusy)
}

func TestService_CustomIDGenerator(t *testing.T) {
	ctx := context.Background()
	ids := []string{"fixed", "fixed", "other"}
	next := 0
	gen := func() string {
		id := ids[next%len(ids)]
		next++
		return id
	}

	svc, err := NewService(NewMemoryIndex(), newMemStorage(), WithIDGenerator(gen))
	require.NoError(t, err)

	root, err := svc.CreateRoot(ctx, "carol", "Carol")
	require.NoError(t, err)
	require.Equal(t, "fixed", root.ID)

	child, err := svc.CreateContainer(ctx, root.ID, "c")
	require.NoError(t, err)
	require.Equal(t, "other", child.ID)
}
