package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/excelytics/backend/pkg/logger"
)

// Storage holds the raw bytes of uploaded spreadsheets. Objects are written
// once at upload time and never mutated in place, so concurrent reads of the
// same object are safe.
type Storage interface {
	// Ensure makes the backing location exist. Called once at startup.
	Ensure(ctx context.Context) error
	// Save writes the object and returns the path Open and Delete accept.
	Save(ctx context.Context, name string, reader io.Reader, size int64) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// LocalStorage keeps uploads in a directory on disk.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

func (s *LocalStorage) Ensure(ctx context.Context) error {
	return os.MkdirAll(s.dir, 0o755)
}

func (s *LocalStorage) Save(ctx context.Context, name string, reader io.Reader, size int64) (string, error) {
	path := filepath.Join(s.dir, name)
	out, err := os.Create(path)
	if err != nil {
		logger.Error("local_storage_create_failed", err, map[string]interface{}{"path": path})
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		logger.Error("local_storage_write_failed", err, map[string]interface{}{"path": path})
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		logger.Error("local_storage_delete_failed", err, map[string]interface{}{"path": path})
	}
	return err
}
