// Package storage implements attachment object stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/ports"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// NewStorageFunc creates a storage from configuration.
type NewStorageFunc func(ctx context.Context, cfg config.StorageConfig) (ports.ObjectStorage, error)

var storageMap = map[string]NewStorageFunc{}

// RegisterStorageType registers a constructor for a storage type.
func RegisterStorageType(typ string, fn NewStorageFunc) {
	storageMap[typ] = fn
}

// New builds the storage selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (ports.ObjectStorage, error) {
	fn, ok := storageMap[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
	return fn(ctx, cfg)
}

// cleanKey normalizes key into a relative slash path.
func cleanKey(key string) (string, error) {
	p := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return p, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
