// Package lock serializes work on shared keys such as a column's card order.
package lock

import (
	"context"
	"sort"
)

// ReleaseFunc unlocks a key. Calling it more than once is safe.
type ReleaseFunc func()

// Locker hands out exclusive locks per key.
type Locker interface {
	// Lock blocks until key is acquired or ctx is done.
	Lock(ctx context.Context, key string) (ReleaseFunc, error)
}

// LockMany acquires every key in sorted order so that two callers locking
// the same pair never deadlock. Duplicate keys are locked once.
func LockMany(ctx context.Context, l Locker, keys ...string) (ReleaseFunc, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var releases []ReleaseFunc
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for i, key := range sorted {
		if i > 0 && sorted[i-1] == key {
			continue
		}
		release, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return func() {}, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// ColumnKey names the lock guarding a column's card positions.
func ColumnKey(id string) string {
	return "column:" + id
}

// BoardKey names the lock guarding a board's column positions.
func BoardKey(id string) string {
	return "board:" + id
}
