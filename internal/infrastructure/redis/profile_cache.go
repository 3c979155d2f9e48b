package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/logger"
)

const DefaultProfileTTL = 5 * time.Minute

// ProfileCache keeps the public user projection in Redis.
// - Read path: Redis hit or miss; any Redis error is a miss
// - Write path: best-effort SET with TTL
// - Invalidate: best-effort DEL, called after verification or password reset
// It never stores password hashes or tokens.
type ProfileCache struct {
	rdb     *goredis.Client
	ttl     time.Duration
	keyPref string
}

func NewProfileCache(client *Client, ttl time.Duration) *ProfileCache {
	var rdb *goredis.Client
	if client != nil {
		rdb = client.rdb
	}
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{
		rdb:     rdb,
		ttl:     ttl,
		keyPref: "profile:",
	}
}

func (c *ProfileCache) key(userID string) string {
	return c.keyPref + userID
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (domain.PublicUser, bool) {
	if c.rdb == nil || userID == "" {
		return domain.PublicUser{}, false
	}

	b, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.WithCtx(ctx).Warn().Err(err).Msg("profile_cache_get_failed")
		}
		return domain.PublicUser{}, false
	}

	var p domain.PublicUser
	if err := json.Unmarshal(b, &p); err != nil || p.ID != userID {
		// corrupt entry: drop it and read through
		_ = c.rdb.Del(ctx, c.key(userID)).Err()
		return domain.PublicUser{}, false
	}
	return p, true
}

func (c *ProfileCache) Set(ctx context.Context, p domain.PublicUser) {
	if c.rdb == nil || p.ID == "" {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(p.ID), b, c.ttl).Err(); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Msg("profile_cache_set_failed")
	}
}

func (c *ProfileCache) Invalidate(ctx context.Context, userID string) {
	if c.rdb == nil || userID == "" {
		return
	}
	if err := c.rdb.Del(ctx, c.key(userID)).Err(); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("user_id", userID).Msg("profile_cache_invalidate_failed")
	}
}
