// Package linkstore keeps pending chat-account link codes.
package linkstore

import (
	"context"
	"sync"
	"time"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/ports"
)

// MemoryStore is a process-local LinkStore. Codes do not survive restarts.
type MemoryStore struct {
	mu    sync.Mutex
	links map[string]ports.PendingLink
	now   func() time.Time
}

// NewMemoryStore creates an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an empty store with an injected clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{links: make(map[string]ports.PendingLink), now: now}
}

func (s *MemoryStore) Put(_ context.Context, code string, link ports.PendingLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[code] = link
	return nil
}

func (s *MemoryStore) Claim(_ context.Context, code string) (*ports.PendingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[code]
	if !ok {
		return nil, entities.ErrInvalidLinkCode
	}
	delete(s.links, code)
	if !s.now().Before(link.ExpiresAt) {
		return nil, entities.ErrInvalidLinkCode
	}
	return &link, nil
}

// Sweep drops expired codes and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for code, link := range s.links {
		if !now.Before(link.ExpiresAt) {
			delete(s.links, code)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored codes, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
