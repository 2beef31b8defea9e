package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admitScript checks and increments one budget. It returns
// {allowed, count, pttl_ms}. Rejected requests leave the counter alone.
var admitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if current >= limit then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], window)
    ttl = window
  end
  return {0, current, ttl}
end
current = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {1, current, ttl}
`)

const defaultRedisPrefix = "ratelimit"

// RedisLimiter shares budgets across processes through Redis. Windows are
// anchored at the first request, same as MemoryLimiter, and expire through
// key TTLs so no eviction loop is needed.
type RedisLimiter struct {
	client redis.Scripter
	rules  Rules
	prefix string
	now    func() time.Time
}

// NewRedisLimiter validates rules and binds them to client.
func NewRedisLimiter(client redis.Scripter, rules Rules, prefix string) (*RedisLimiter, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLimiter{client: client, rules: rules, prefix: prefix, now: time.Now}, nil
}

// Admit implements Limiter.
func (l *RedisLimiter) Admit(ctx context.Context, clientKey, endpointKey string) (Decision, error) {
	rule, ok := l.rules[endpointKey]
	if !ok {
		return Decision{}, unknownEndpoint(endpointKey)
	}
	key := l.prefix + ":" + endpointKey + ":" + clientKey
	res, err := admitScript.Run(ctx, l.client, []string{key}, rule.Limit, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("limiter: redis admit: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("limiter: redis admit: unexpected reply %v", res)
	}
	ttl := time.Duration(res[2]) * time.Millisecond
	decision := Decision{Limit: rule.Limit, ResetAt: l.now().Add(ttl)}
	if res[0] == 0 {
		decision.RetryAfter = ttl
		return decision, nil
	}
	decision.Allowed = true
	decision.Remaining = rule.Limit - int(res[1])
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}
