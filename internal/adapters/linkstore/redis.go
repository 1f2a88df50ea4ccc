package linkstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/ports"
)

const redisPrefix = "planner:link:"

// RedisStore shares link codes between API replicas. Expiry is enforced by
// the key TTL.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Put(ctx context.Context, code string, link ports.PendingLink) error {
	ttl := link.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}
	if err := s.client.Set(ctx, redisPrefix+code, data, ttl).Err(); err != nil {
		return fmt.Errorf("store link code: %w", err)
	}
	return nil
}

func (s *RedisStore) Claim(ctx context.Context, code string) (*ports.PendingLink, error) {
	data, err := s.client.GetDel(ctx, redisPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entities.ErrInvalidLinkCode
	}
	if err != nil {
		return nil, fmt.Errorf("claim link code: %w", err)
	}

	var link ports.PendingLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	if !s.now().Before(link.ExpiresAt) {
		return nil, entities.ErrInvalidLinkCode
	}
	return &link, nil
}
