package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quickbite-api/config"
	"quickbite-api/listing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const generationKey = "restaurants:gen"

func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// ListingCache stores restaurant listing pages. Keys carry a generation
// number; Invalidate bumps it so every older page becomes unreachable and
// expires on its own. A nil *ListingCache is a pass-through.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewListingCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *ListingCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *ListingCache) key(ctx context.Context, q listing.Query) (string, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("restaurants:v%d:%s", gen, q.Key()), nil
}

// Fetch returns the cached page for q or calls load and caches its result.
// Redis failures fall through to load.
func (c *ListingCache) Fetch(ctx context.Context, q listing.Query, load func(context.Context) (*listing.Result, error)) (*listing.Result, error) {
	if c == nil {
		return load(ctx)
	}

	key, err := c.key(ctx, q)
	if err != nil {
		c.log.Warn("redis error, continuing with DB", zap.Error(err))
		return load(ctx)
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var res listing.Result
		if err := json.Unmarshal(data, &res); err == nil {
			return &res, nil
		}
		c.log.Warn("failed to unmarshal cached listing", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("redis error, continuing with DB", zap.Error(err))
	}

	res, err := load(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(res)
	if err != nil {
		c.log.Warn("failed to marshal listing", zap.Error(err))
		return res, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache listing", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}

func (c *ListingCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}
