// Package redis holds the small Redis surface the storefront needs:
// idempotent replays, login rate limits and anonymous cart sessions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var ErrNotInitialized = errors.New("redis client not initialized")

// keyspace prefixes every key so the storefront can share a Redis instance.
type keyspace string

const (
	rootKeyspace        keyspace = "sf"
	idempotencyKeyspace keyspace = "idempotency"
	rateLimitKeyspace   keyspace = "rate_limit"
	cartSessionKeyspace keyspace = "cart_session"
)

func (k keyspace) key(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(rootKeyspace))
	b.WriteByte(':')
	b.WriteString(string(k))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

// commands is the subset of redis.Cmdable used here.
type commands interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

type Client struct {
	cmd  commands
	conn *redis.Client
}

type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what the idempotency middleware needs.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// New dials Redis and fails fast if the server does not answer PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := buildOptions(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis at %s: %w", opts.Addr, err), conn.Close())
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis connected")
	}
	return &Client{cmd: conn, conn: conn}, nil
}

// buildOptions prefers the URL form; pool and timeout settings from cfg fill
// whatever the URL left unset.
func buildOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis url or address is required")
	}
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	if url := strings.TrimSpace(cfg.URL); url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	}
	fill := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	return opts, nil
}

func (c *Client) commands() (commands, error) {
	if c == nil || c.cmd == nil {
		return nil, ErrNotInitialized
	}
	return c.cmd, nil
}

func (c *Client) Ping(ctx context.Context) error {
	cmd, err := c.commands()
	if err != nil {
		return err
	}
	return cmd.Ping(ctx).Err()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	cmd, err := c.commands()
	if err != nil {
		return err
	}
	return cmd.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil when key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	cmd, err := c.commands()
	if err != nil {
		return "", err
	}
	return cmd.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	cmd, err := c.commands()
	if err != nil {
		return false, err
	}
	return cmd.SetNX(ctx, key, value, ttl).Result()
}

// IncrWithTTL increments key and starts its expiry on the first hit only, so
// the window is anchored to the first request.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	cmd, err := c.commands()
	if err != nil {
		return 0, err
	}
	n, err := cmd.Incr(ctx, key).Result()
	if err != nil || n != 1 || ttl <= 0 {
		return n, err
	}
	return n, cmd.Expire(ctx, key, ttl).Err()
}

// FixedWindowAllow counts a hit against scope and reports whether it is
// still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	hits, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, hits, err
	}
	return hits <= limit, hits, nil
}

// Touch extends the TTL of an existing key.
func (c *Client) Touch(ctx context.Context, key string, ttl time.Duration) error {
	cmd, err := c.commands()
	if err != nil {
		return err
	}
	return cmd.Expire(ctx, key, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	cmd, err := c.commands()
	if err != nil {
		return err
	}
	return cmd.Del(ctx, keys...).Err()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return idempotencyKeyspace.key(scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return rateLimitKeyspace.key(scope)
}

// CartSessionKey marks an anonymous cart session issued by this service.
func (c *Client) CartSessionKey(session string) string {
	return cartSessionKeyspace.key(session)
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
