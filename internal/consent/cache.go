package consent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"medgate/internal/platform/redis"
	"medgate/pkg/domain"
)

// CachedStore wraps a Store with a Redis read-through cache on FindLatest,
// the lookup on the hot access path. Writes invalidate the affected pair so
// a fresh grant or a withdrawal is visible immediately; the TTL only bounds
// how long an untouched entry may live.
//
// Cache failures degrade to the underlying store; they are logged, never
// surfaced, because a cache outage must not block consent verification.
type CachedStore struct {
	store  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps store with a Redis cache using the given TTL.
func NewCachedStore(store Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{store: store, client: client, ttl: ttl, logger: logger}
}

func cacheKey(patientID string, purpose domain.Purpose) string {
	return "consent:latest:" + patientID + ":" + string(purpose)
}

func (c *CachedStore) Insert(ctx context.Context, grant *Grant) error {
	if err := c.store.Insert(ctx, grant); err != nil {
		return err
	}
	c.invalidate(ctx, grant.PatientID, grant.Purpose)
	return nil
}

func (c *CachedStore) GetByID(ctx context.Context, id string) (*Grant, error) {
	return c.store.GetByID(ctx, id)
}

func (c *CachedStore) FindLatest(ctx context.Context, patientID string, purpose domain.Purpose) (*Grant, error) {
	key := cacheKey(patientID, purpose)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var g Grant
		if err := json.Unmarshal(raw, &g); err == nil {
			return &g, nil
		}
		c.logger.Warn("consent cache entry corrupt, falling through", "key", key)
	} else if err != goredis.Nil {
		c.logger.Warn("consent cache read failed", "error", err)
	}

	g, err := c.store.FindLatest(ctx, patientID, purpose)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(g); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("consent cache write failed", "error", err)
		}
	}
	return g, nil
}

func (c *CachedStore) Withdraw(ctx context.Context, id string, withdrawnAt time.Time) error {
	grant, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.Withdraw(ctx, id, withdrawnAt); err != nil {
		return err
	}
	c.invalidate(ctx, grant.PatientID, grant.Purpose)
	return nil
}

func (c *CachedStore) invalidate(ctx context.Context, patientID string, purpose domain.Purpose) {
	if err := c.client.Del(ctx, cacheKey(patientID, purpose)).Err(); err != nil {
		c.logger.Warn("consent cache invalidation failed", "error", err)
	}
}
