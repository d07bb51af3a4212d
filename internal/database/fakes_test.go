package database

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

type recordingStorage struct {
	mu       sync.Mutex
	failNext bool
	deleted  []string
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{}
}

func (r *recordingStorage) fail() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return true
	}
	return false
}

func (r *recordingStorage) Write(ctx context.Context, p string, data io.Reader) error {
	if r.fail() {
		return errors.New("write failed")
	}
	_, err := io.Copy(io.Discard, data)
	return err
}

func (r *recordingStorage) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (r *recordingStorage) CreateContainer(ctx context.Context, p string) error {
	if r.fail() {
		return errors.New("mkdir failed")
	}
	return nil
}

func (r *recordingStorage) DeleteRecursive(ctx context.Context, p string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, p)
	return nil
}
