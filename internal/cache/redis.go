package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Client *redis.Client

func InitRedis(ctx context.Context, addr string) error {
	if addr == "" {
		addr = "localhost:6379"
	}
	Client = redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	log.Info().Str("addr", addr).Msg("Connected to Redis")
	return nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a Redis-backed mutual exclusion token with a TTL. Only the
// holder that acquired a name can release it.
type Lease struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	token  string
}

func NewLease(client *redis.Client, prefix string, ttl time.Duration) *Lease {
	if prefix == "" {
		prefix = "autotrader:lease:"
	}
	return &Lease{client: client, prefix: prefix, ttl: ttl, token: uuid.NewString()}
}

// Acquire reports whether this process now holds name. A nil client always
// grants the lease.
func (l *Lease) Acquire(ctx context.Context, name string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.prefix+name, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return ok, nil
}

func (l *Lease) Release(ctx context.Context, name string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + name}, l.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}
