package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookEventRepository remembers processed webhook event ids so replayed
// deliveries are acknowledged without being applied twice.
type WebhookEventRepository interface {
	// MarkProcessed records id and reports whether this is its first delivery.
	MarkProcessed(ctx context.Context, id string) (bool, error)
	// Forget drops id so a failed delivery can be retried.
	Forget(ctx context.Context, id string) error
}

type redisWebhookEventRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisWebhookEventRepository stores event ids as expiring Redis keys.
func NewRedisWebhookEventRepository(client *redis.Client, prefix string, ttl time.Duration) WebhookEventRepository {
	return &redisWebhookEventRepository{client: client, prefix: prefix, ttl: ttl}
}

func (r *redisWebhookEventRepository) MarkProcessed(ctx context.Context, id string) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+id, time.Now().Unix(), r.ttl).Result()
}

func (r *redisWebhookEventRepository) Forget(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.prefix+id).Err()
}

type memoryWebhookEventRepository struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

// NewMemoryWebhookEventRepository keeps event ids in process memory. Used when
// Redis is not configured.
func NewMemoryWebhookEventRepository(ttl time.Duration) WebhookEventRepository {
	return &memoryWebhookEventRepository{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (r *memoryWebhookEventRepository) MarkProcessed(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for key, expires := range r.seen {
		if now.After(expires) {
			delete(r.seen, key)
		}
	}
	if _, ok := r.seen[id]; ok {
		return false, nil
	}
	r.seen[id] = now.Add(r.ttl)
	return true, nil
}

func (r *memoryWebhookEventRepository) Forget(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, id)
	return nil
}
