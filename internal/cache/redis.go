package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"market-pulse/internal/domain"
)

var Client *redis.Client

// InitRedis connects the shared client. An empty address leaves Client nil
// and callers fall back to the in-process cache.
func InitRedis(ctx context.Context, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		log.Info().Msg("REDIS_URL not set, using in-memory movers cache")
		return nil
	}

	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect to redis: %w", err)
	}
	Client = client
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return nil
}

const moversKey = "market-pulse:top-movers"

// RedisMoversCache shares the top-movers list between processes.
type RedisMoversCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMoversCache(client *redis.Client, ttl time.Duration) *RedisMoversCache {
	return &RedisMoversCache{client: client, ttl: ttl}
}

func (c *RedisMoversCache) Get(ctx context.Context) ([]domain.Ticker, bool) {
	raw, err := c.client.Get(ctx, moversKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("movers cache read failed")
		}
		return nil, false
	}
	var tickers []domain.Ticker
	if err := json.Unmarshal(raw, &tickers); err != nil {
		log.Warn().Err(err).Msg("movers cache entry corrupt")
		return nil, false
	}
	return tickers, true
}

func (c *RedisMoversCache) Set(ctx context.Context, tickers []domain.Ticker) {
	raw, err := json.Marshal(tickers)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, moversKey, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("movers cache write failed")
	}
}

func (c *RedisMoversCache) Clear(ctx context.Context) {
	if err := c.client.Del(ctx, moversKey).Err(); err != nil {
		log.Warn().Err(err).Msg("movers cache clear failed")
	}
}
