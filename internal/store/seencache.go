package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// seenKeyPrefix namespaces cache entries so the instance can share a Redis
// with other tools.
const seenKeyPrefix = "biliwatch:seen:"

// seenTTL bounds how long a fast-path entry lives; the registry remains the
// source of truth after expiry.
const seenTTL = 7 * 24 * time.Hour

// SeenCache is an optional Redis front for the registry. A nil *SeenCache is
// valid and treats every lookup as a miss, so callers never branch on
// availability.
type SeenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeenCache connects to Redis if redisURL is set and reachable. It returns
// nil on empty URL, parse failure, or ping failure; the watcher then runs on
// the registry alone.
func NewSeenCache(redisURL string) *SeenCache {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("seen cache: invalid redis URL, disabled", slog.Any("error", err))
		return nil
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("seen cache: redis unreachable, disabled", slog.Any("error", err))
		return nil
	}

	slog.Info("seen cache: redis connected", slog.String("addr", opts.Addr))
	return &SeenCache{rdb: rdb, ttl: seenTTL}
}

// IsSeen reports whether the id is cached. Errors count as misses; the
// registry query that follows settles the truth.
func (c *SeenCache) IsSeen(ctx context.Context, id string) bool {
	if c == nil {
		return false
	}
	n, err := c.rdb.Exists(ctx, seenKeyPrefix+id).Result()
	if err != nil {
		slog.Debug("seen cache: exists failed", slog.Any("error", err))
		return false
	}
	return n > 0
}

// MarkSeen records the id with a TTL. Failures are logged and dropped; the
// cache is an accelerator, not a store.
func (c *SeenCache) MarkSeen(ctx context.Context, id string) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, seenKeyPrefix+id, "1", c.ttl).Err(); err != nil {
		slog.Debug("seen cache: set failed", slog.Any("error", err))
	}
}

// Close shuts down the Redis connection if one was made.
func (c *SeenCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
