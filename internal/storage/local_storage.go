package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("path escapes storage root")

// LocalStorage maps tree paths onto a directory on disk.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: abs}, nil
}

func (ls *LocalStorage) fullPath(p string) (string, error) {
	full := filepath.Join(ls.basePath, filepath.FromSlash(p))
	if full == ls.basePath || !strings.HasPrefix(full, ls.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return full, nil
}

// Write replaces the file at p. Content goes to a temp file first so readers
// never see a partial write.
func (ls *LocalStorage) Write(ctx context.Context, p string, data io.Reader) error {
	filePath, err := ls.fullPath(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(filePath)

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &contextReader{ctx: ctx, r: data}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

func (ls *LocalStorage) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	filePath, err := ls.fullPath(p)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s not found: %w", p, err)
		}
		return nil, err
	}

	return file, nil
}

func (ls *LocalStorage) CreateContainer(ctx context.Context, p string) error {
	dirPath, err := ls.fullPath(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(dirPath, os.ModePerm)
}

// DeleteRecursive removes a file or a whole directory. Missing paths are not
// an error.
func (ls *LocalStorage) DeleteRecursive(ctx context.Context, p string) error {
	fullPath, err := ls.fullPath(p)
	if err != nil {
		return err
	}
	return os.RemoveAll(fullPath)
}

func (ls *LocalStorage) Exists(ctx context.Context, p string) (bool, error) {
	fullPath, err := ls.fullPath(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
