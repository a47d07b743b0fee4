package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/barberbook/internal/models"
	"github.com/redis/go-redis/v9"
)

const ipAttemptKeyPrefix = "ipguard:"

// KEYS[1] record hash; ARGV[1] max failures; ARGV[2] blocked_until (unix ms); ARGV[3] ttl (ms)
const incrementIPAttemptScript = `
local c = redis.call('HINCRBY', KEYS[1], 'count', 1)
if c >= tonumber(ARGV[1]) then
  redis.call('HSET', KEYS[1], 'blocked_until', ARGV[2])
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
local b = redis.call('HGET', KEYS[1], 'blocked_until') or ''
return {c, b}
`

var incrementIPAttemptLua = redis.NewScript(incrementIPAttemptScript)

// RedisIPAttemptStore shares IP attempt records between instances. Each
// record is a hash whose TTL is reset to the guard window on every failure.
type RedisIPAttemptStore struct {
	redis redis.UniversalClient
}

func NewRedisIPAttemptStore(client redis.UniversalClient) *RedisIPAttemptStore {
	return &RedisIPAttemptStore{redis: client}
}

func ipAttemptKey(ip string) string {
	return ipAttemptKeyPrefix + ip
}

func (s *RedisIPAttemptStore) Get(ctx context.Context, ip string, _ time.Time) (*models.IPAttemptRecord, error) {
	fields, err := s.redis.HGetAll(ctx, ipAttemptKey(ip)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ip attempts: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, fmt.Errorf("corrupt ip attempt count: %w", err)
	}
	blockedUntil, err := parseUnixMillis(fields["blocked_until"])
	if err != nil {
		return nil, err
	}
	return &models.IPAttemptRecord{Count: count, BlockedUntil: blockedUntil}, nil
}

// Increment atomically adds one failure, blocking at maxFailures
func (s *RedisIPAttemptStore) Increment(ctx context.Context, ip string, maxFailures int, window time.Duration, now time.Time) (*models.IPAttemptRecord, error) {
	res, err := incrementIPAttemptLua.Run(ctx, s.redis,
		[]string{ipAttemptKey(ip)},
		maxFailures, now.Add(window).UnixMilli(), window.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to record ip attempt: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected ip attempt script reply: %v", res)
	}

	count, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected ip attempt count type %T", res[0])
	}
	raw, _ := res[1].(string)
	blockedUntil, err := parseUnixMillis(raw)
	if err != nil {
		return nil, err
	}
	return &models.IPAttemptRecord{Count: int(count), BlockedUntil: blockedUntil}, nil
}

func (s *RedisIPAttemptStore) Delete(ctx context.Context, ip string) error {
	if err := s.redis.Del(ctx, ipAttemptKey(ip)).Err(); err != nil {
		return fmt.Errorf("failed to clear ip attempts: %w", err)
	}
	return nil
}

func parseUnixMillis(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt ip block timestamp: %w", err)
	}
	t := time.UnixMilli(ms)
	return &t, nil
}
