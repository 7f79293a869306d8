package project

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the optional shared tier: this process is short-lived per
// tool invocation, so caching resolutions in Redis lets the next invocation
// skip a socket round-trip. Misses and Redis outages degrade silently to
// the normal lookup path.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, prefix: "huly:project:", ttl: ttl}, nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, prefix: "huly:project:", ttl: ttl}
}

func (r *RedisCache) key(ref string) string {
	return r.prefix + ref
}

func (r *RedisCache) Get(ctx context.Context, ref string) (Info, bool) {
	data, err := r.client.Get(ctx, r.key(ref)).Bytes()
	if err != nil {
		return Info{}, false
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, false
	}
	return info, true
}

func (r *RedisCache) Set(ctx context.Context, ref string, info Info) {
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(ref), data, r.ttl).Err(); err != nil {
		log.Printf("project: redis cache write failed: %v", err)
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
