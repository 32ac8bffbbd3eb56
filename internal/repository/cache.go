package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"slotbook/internal/backend"
)

const companyKeyPrefix = "slotbook:company:"

// CachedStore serves company snapshots from Redis for a short TTL.
// Writes go straight to the wrapped store.
type CachedStore struct {
	backend.Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedStore wraps store. A nil client or non-positive ttl disables caching.
func NewCachedStore(store backend.Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, redis: client, ttl: ttl}
}

func (c *CachedStore) FetchCompanyAndStaff(ctx context.Context, identifier string) (*backend.CompanyData, error) {
	key := companyKeyPrefix + identifier
	var data backend.CompanyData
	if c.readCache(ctx, key, &data) {
		return &data, nil
	}

	fresh, err := c.Store.FetchCompanyAndStaff(ctx, identifier)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

// Invalidate drops the cached snapshot so the next read sees new bookings.
func (c *CachedStore) Invalidate(ctx context.Context, identifier string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, companyKeyPrefix+identifier).Err()
}

func (c *CachedStore) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *CachedStore) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}
