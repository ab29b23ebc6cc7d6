package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisSequenceReserver implements billing.SequenceReserver on a Redis
// counter per numbering key. INCRBY is atomic, so concurrent runs drawing
// from the same sequence always receive disjoint blocks.
type RedisSequenceReserver struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSequenceReserver creates a reserver with its own Redis client
func NewRedisSequenceReserver(cfg *config.RedisConfig) (*RedisSequenceReserver, error) {
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

	return &RedisSequenceReserver{
		client:    client,
		keyPrefix: "invoice:sequence:",
	}, nil
}

// NewRedisSequenceReserverWithClient creates a reserver sharing an existing
// Redis client. Useful for testing or when a client is shared across
// components.
func NewRedisSequenceReserverWithClient(client *redis.Client, keyPrefix string) *RedisSequenceReserver {
	if keyPrefix == "" {
		keyPrefix = "invoice:sequence:"
	}
	return &RedisSequenceReserver{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// ReserveBlock reserves a contiguous block of invoice numbers for the key
// and returns the first number of the block
func (r *RedisSequenceReserver) ReserveBlock(ctx context.Context, key billing.NumberingKey, count int64) (int64, error) {
	if count <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %d", count)
	}

	end, err := r.client.IncrBy(ctx, r.sequenceKey(key), count).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve sequence block for %s: %w", key, err)
	}
	return end - count + 1, nil
}

// Close closes the underlying Redis client
func (r *RedisSequenceReserver) Close() error {
	return r.client.Close()
}

func (r *RedisSequenceReserver) sequenceKey(key billing.NumberingKey) string {
	return fmt.Sprintf("%s%s:%s:%s", r.keyPrefix, key.InvoiceType, key.SellerID, key.InvoiceDate)
}
