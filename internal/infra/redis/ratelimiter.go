package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postmangpx/postmangpx/internal/domain"
	"github.com/postmangpx/postmangpx/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a distributed fixed-window rate limiter keyed by
// credential id. Limit and window length come from the credential itself.
type RedisRateLimiter struct {
	client *goredis.Client
	now    func() time.Time
	script *goredis.Script
}

func NewRedisRateLimiter(client *goredis.Client) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, time.Now)
}

func newRedisRateLimiter(client *goredis.Client, nowFn func() time.Time) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &RedisRateLimiter{
		client: client,
		now:    nowFn,
		script: allowScript,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, credential domain.Credential) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}
	if strings.TrimSpace(credential.ID) == "" {
		return false, fmt.Errorf("credential id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	limit := credential.RateLimit
	if limit <= 0 {
		limit = domain.DefaultRateLimit
	}
	window := credential.RateWindowSecs
	if window <= 0 {
		window = domain.DefaultRateWindowSecs
	}

	epoch := r.now().UTC().Unix()
	windowStart := epoch - epoch%int64(window)
	key := fmt.Sprintf("ratelimit:cred:%s:%d", credential.ID, windowStart)

	result, err := r.script.Run(ctx, r.client, []string{key}, limit, window).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}
