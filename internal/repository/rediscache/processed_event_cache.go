package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gym-saas-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const defaultProcessedTTL = 72 * time.Hour

type processedEventCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProcessedEventCache keeps a short-lived marker for every webhook
// (payment id, event) pair that finished reconciliation.
func NewProcessedEventCache(rdb *redis.Client, ttl time.Duration) contract.ProcessedEventCache {
	if ttl <= 0 {
		ttl = defaultProcessedTTL
	}
	return &processedEventCache{rdb: rdb, ttl: ttl}
}

func processedKey(gatewayPaymentId, event string) string {
	return fmt.Sprintf("webhook:processed:%s:%s", gatewayPaymentId, event)
}

func (c *processedEventCache) IsProcessed(ctx context.Context, gatewayPaymentId, event string) (bool, error) {
	_, err := c.rdb.Get(ctx, processedKey(gatewayPaymentId, event)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *processedEventCache) MarkProcessed(ctx context.Context, gatewayPaymentId, event string) error {
	return c.rdb.Set(ctx, processedKey(gatewayPaymentId, event), time.Now().UTC().Format(time.RFC3339), c.ttl).Err()
}
