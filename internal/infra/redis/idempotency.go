package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"billing-user/internal/domain/ports/repository"
)

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps reserved idempotency keys for a fixed TTL.
type IdempotencyStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewIdempotencyStore(client RedisClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// IdempotencyKey is the Redis key holding account's reservation of key.
// Account names are case-insensitive emails.
func IdempotencyKey(account, key string) string {
	return fmt.Sprintf("idem:agreement:%s:%s", strings.ToLower(account), key)
}

func (s *IdempotencyStore) Reserve(ctx context.Context, account, key string) (bool, error) {
	return s.client.SetNX(ctx, IdempotencyKey(account, key), time.Now().UTC().Format(time.RFC3339), s.ttl)
}

// Release frees a key whose request failed before any money moved.
func (s *IdempotencyStore) Release(ctx context.Context, account, key string) error {
	return s.client.Del(ctx, IdempotencyKey(account, key))
}
