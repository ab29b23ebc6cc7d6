package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/config"
)

const defaultReferenceTTL = 15 * time.Minute

// RedisReferenceCache decorates a billing.ReferenceRepository with a Redis
// cache. Taxes, discount plans and language labels change rarely but are
// read for every account of a run, so they are cached with a TTL. The
// cache fails open: any Redis failure is logged and the call falls through
// to the underlying repository.
type RedisReferenceCache struct {
	source     billing.ReferenceRepository
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	keyPrefix  string
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisReferenceCacheOption is a functional option for configuring the cache
type RedisReferenceCacheOption func(*RedisReferenceCache)

// WithReferenceTTL sets how long cached reference entries live
func WithReferenceTTL(ttl time.Duration) RedisReferenceCacheOption {
	return func(c *RedisReferenceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisReferenceCacheOption {
	return func(c *RedisReferenceCache) {
		c.logger = logger
	}
}

// NewRedisReferenceCache creates a reference cache with its own Redis client
func NewRedisReferenceCache(source billing.ReferenceRepository, cfg *config.RedisConfig, opts ...RedisReferenceCacheOption) (*RedisReferenceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisReferenceCache{
		source:     source,
		client:     client,
		ownsClient: true,
		keyPrefix:  "billing:ref:",
		ttl:        defaultReferenceTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// NewRedisReferenceCacheWithClient creates a cache sharing an existing Redis
// client. The caller retains ownership of the client and closes it.
func NewRedisReferenceCacheWithClient(source billing.ReferenceRepository, client *redis.Client, opts ...RedisReferenceCacheOption) *RedisReferenceCache {
	cache := &RedisReferenceCache{
		source:    source,
		client:    client,
		keyPrefix: "billing:ref:",
		ttl:       defaultReferenceTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Close releases the Redis client when the cache owns it
func (c *RedisReferenceCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}

func (c *RedisReferenceCache) taxKey(id uuid.UUID) string {
	return fmt.Sprintf("%stax:%s", c.keyPrefix, id)
}

func (c *RedisReferenceCache) plansKey(accountID uuid.UUID) string {
	return fmt.Sprintf("%splans:%s", c.keyPrefix, accountID)
}

func (c *RedisReferenceCache) languageKey(code string) string {
	return fmt.Sprintf("%slang:%s", c.keyPrefix, code)
}

// TaxByID returns the tax with its sub-taxes, cached by tax id
func (c *RedisReferenceCache) TaxByID(ctx context.Context, id uuid.UUID) (*billing.Tax, error) {
	key := c.taxKey(id)
	var tax billing.Tax
	if c.lookup(ctx, key, &tax) {
		return &tax, nil
	}

	fresh, err := c.source.TaxByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

// DiscountPlanItemsForAccount returns the account's active discount plan
// items, cached by account id
func (c *RedisReferenceCache) DiscountPlanItemsForAccount(ctx context.Context, accountID uuid.UUID) ([]*billing.DiscountPlanItem, error) {
	key := c.plansKey(accountID)
	var items []*billing.DiscountPlanItem
	if c.lookup(ctx, key, &items) {
		return items, nil
	}

	fresh, err := c.source.DiscountPlanItemsForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

// LanguageDescription returns the invoice line label for a language code
func (c *RedisReferenceCache) LanguageDescription(ctx context.Context, code string) (string, error) {
	key := c.languageKey(code)
	var description string
	if c.lookup(ctx, key, &description) {
		return description, nil
	}

	fresh, err := c.source.LanguageDescription(ctx, code)
	if err != nil {
		return "", err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

// lookup reads and unmarshals one cache entry. It returns false on a miss
// or any Redis failure; corrupted entries are deleted.
func (c *RedisReferenceCache) lookup(ctx context.Context, key string, target interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.Warn("reference cache read failed",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		c.logger.Warn("corrupted reference cache entry dropped",
			zap.String("key", key),
			zap.Error(err))
		_ = c.client.Del(ctx, key)
		return false
	}
	return true
}

// store marshals and writes one cache entry, logging failures
func (c *RedisReferenceCache) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("failed to marshal reference cache entry",
			zap.String("key", key),
			zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("reference cache write failed",
			zap.String("key", key),
			zap.Error(err))
	}
}

var _ billing.ReferenceRepository = (*RedisReferenceCache)(nil)
