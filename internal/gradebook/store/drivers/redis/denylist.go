// Package redis keeps revoked session tokens in Redis so several gradebook
// instances share one denylist.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces denylist keys.
const DefaultKeyPrefix = "gradebook:revoked:"

// Denylist implements jwtx.Denylist. Each revoked jti is a key that expires
// together with its token, so no cleanup job is needed.
type Denylist struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// Options configures NewDenylist.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewDenylist connects to Redis and checks that it answers.
func NewDenylist(ctx context.Context, opts Options) (*Denylist, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewDenylistWithClient(client, opts.Prefix), nil
}

// NewDenylistWithClient wraps an existing client.
func NewDenylistWithClient(client *goredis.Client, prefix string) *Denylist {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Denylist{client: client, prefix: prefix, now: time.Now}
}

func (d *Denylist) key(jti string) string { return d.prefix + jti }

// Revoke stores jti until the given expiry. Tokens that already expired
// are ignored since the codec rejects them anyway.
func (d *Denylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	// Round up so the key lives at least as long as the token.
	ttl = ttl.Truncate(time.Second) + time.Second
	return d.client.Set(ctx, d.key(jti), 1, ttl).Err()
}

// IsRevoked reports whether jti is on the list.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks the connection, for readiness probes.
func (d *Denylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *Denylist) Close() error { return d.client.Close() }
