package redis

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

const pingTimeout = 2 * time.Second

// Client owns the connection pool shared by the profile cache and the readiness probe.
type Client struct {
	rdb *goredis.Client
}

// New accepts either host:port or a redis:// / rediss:// URL. For URLs, password and db
// override what the URL carries only when set.
func New(addr, password string, db int) *Client {
	opts := &goredis.Options{Addr: addr, Password: password, DB: db}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if parsed, err := goredis.ParseURL(addr); err == nil {
			opts = parsed
			if password != "" {
				opts.Password = password
			}
			if db != 0 {
				opts.DB = db
			}
		}
	}
	opts.DialTimeout = pingTimeout
	return &Client{rdb: goredis.NewClient(opts)}
}

// Addr is the resolved host:port.
func (c *Client) Addr() string { return c.rdb.Options().Addr }

// Ping reports redis_unavailable when the server cannot answer within pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
