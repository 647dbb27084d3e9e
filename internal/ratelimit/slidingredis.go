package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims events older than the window, admits the new one
// only while under the limit and reports when the oldest event leaves.
// KEYS[1] set key; ARGV now_ms, window_ms, limit, member.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, limit - count, reset}
`)

// SlidingWindow limits events per key over a rolling window kept in a Redis
// sorted set. Rejected events are not recorded, so a client that keeps
// retrying regains capacity as soon as its oldest admitted request ages out.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Allow records an event for key if it fits and reports the remaining budget
// and the time the oldest counted event expires.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}
	if l.Client == nil {
		return false, 0, now.Add(window), errors.New("sliding window: redis client not configured")
	}

	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	member := fmt.Sprintf("%d:%s", now.UnixMilli(), uuid.NewString())
	res, err := slidingWindowScript.Run(ctx, l.Client, []string{l.Prefix + key},
		now.UnixMilli(), windowMs, max, member).Int64Slice()
	if err != nil {
		return false, 0, now.Add(window), fmt.Errorf("sliding window %s: %w", key, err)
	}
	if len(res) != 3 {
		return false, 0, now.Add(window), fmt.Errorf("sliding window %s: unexpected reply %v", key, res)
	}
	return res[0] == 1, int(res[1]), time.UnixMilli(res[2]), nil
}
