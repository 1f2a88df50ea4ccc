package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/ports"
)

func init() {
	RegisterStorageType("local", func(_ context.Context, cfg config.StorageConfig) (ports.ObjectStorage, error) {
		if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		return NewLocalStorage(afero.NewBasePathFs(afero.NewOsFs(), cfg.LocalPath), cfg.LocalBaseURL), nil
	})
}

// LocalStorage keeps objects on a filesystem and serves them from baseURL.
type LocalStorage struct {
	fs      afero.Fs
	baseURL string
}

// NewLocalStorage stores objects in fs. Production wraps a directory with
// afero.NewBasePathFs; tests pass afero.NewMemMapFs.
func NewLocalStorage(fs afero.Fs, baseURL string) *LocalStorage {
	return &LocalStorage{fs: fs, baseURL: baseURL}
}

func (s *LocalStorage) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	p, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(p)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	return joinURL(s.baseURL, p), nil
}

// Delete is a no-op for missing objects.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
