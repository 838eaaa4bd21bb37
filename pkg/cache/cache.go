package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"templora_backend/pkg/config"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache connects to the Redis instance used as the webhook dedup
// fast path. The connection is optional: when it is down the DB-level
// dedup record still guarantees correctness.
func SetupCache(cfg config.CacheConfig) {
	client = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
	} else {
		log.Println("Cache connected successfully!")
	}
}

// GetClient returns the Redis client, or nil when the cache is not set up.
func GetClient() *redis.Client {
	return client
}

// MarkEventSeen claims a provider event id with a TTL. It returns true the
// first time an id is seen and false on a replay. Cache errors report the
// event as unseen so the caller falls through to the DB dedup record.
func MarkEventSeen(eventID string, ttl time.Duration) bool {
	if client == nil || eventID == "" {
		return true
	}

	ok, err := client.SetNX(ctx, "webhook:event:"+eventID, 1, ttl).Result()
	if err != nil {
		log.Printf("Cache dedup check failed for event %s: %v", eventID, err)
		return true
	}
	return ok
}
