package lock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkarlsen/seatplanner/internal/engine"
	"github.com/mkarlsen/seatplanner/internal/model"
)

// RedisManager stores plan locks in Redis so multiple service replicas
// agree on the current editor.  Each lock is one key whose TTL is the
// lock expiry, which makes expired locks disappear without a sweep.  The
// acquire and release paths run as Lua scripts so the holder check and
// the write are atomic on the Redis side.
type RedisManager struct {
	rdb *redis.Client
}

// NewRedisManager wraps an existing Redis client.  The client must be
// non-nil and reachable; callers that tolerate Redis being down should
// fall back to the memory manager.
func NewRedisManager(rdb *redis.Client) *RedisManager {
	if rdb == nil {
		panic("nil redis client passed to NewRedisManager")
	}
	return &RedisManager{rdb: rdb}
}

func lockKey(planID uint64) string {
	return fmt.Sprintf("seatplanner:lock:%d", planID)
}

// acquireScript sets the lock when it is free or already ours (refresh).
// Returns {1, pttl_ms} on success or {0, holder, pttl_ms} on conflict.
var acquireScript = redis.NewScript(`
    local key = KEYS[1]
    local user = ARGV[1]
    local ttl_ms = tonumber(ARGV[2])

    local holder = redis.call('GET', key)
    if holder == false or holder == user then
        redis.call('SET', key, user, 'PX', ttl_ms)
        return { 1, ttl_ms }
    end
    return { 0, holder, redis.call('PTTL', key) }
`)

// releaseScript deletes the lock only when held by the caller.  Returns 1
// on success, 0 otherwise.
var releaseScript = redis.NewScript(`
    local key = KEYS[1]
    local user = ARGV[1]
    if redis.call('GET', key) == user then
        return redis.call('DEL', key)
    end
    return 0
`)

// Acquire implements Manager.
func (m *RedisManager) Acquire(ctx context.Context, planID, userID uint64, ttl time.Duration) (model.LockInfo, error) {
	vals, err := acquireScript.Run(ctx, m.rdb,
		[]string{lockKey(planID)},
		strconv.FormatUint(userID, 10),
		ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return model.LockInfo{}, fmt.Errorf("lock acquire: %w", err)
	}
	if len(vals) >= 2 {
		if granted, _ := vals[0].(int64); granted == 1 {
			return model.LockInfo{PlanID: planID, HeldBy: userID, ExpiresAt: time.Now().UTC().Add(ttl)}, nil
		}
	}
	if len(vals) == 3 {
		holderStr, _ := vals[1].(string)
		holder, _ := strconv.ParseUint(holderStr, 10, 64)
		pttl, _ := vals[2].(int64)
		return model.LockInfo{}, engine.LockConflict(holder, time.Now().UTC().Add(time.Duration(pttl)*time.Millisecond))
	}
	return model.LockInfo{}, fmt.Errorf("lock acquire: unexpected script result %#v", vals)
}

// Release implements Manager.
func (m *RedisManager) Release(ctx context.Context, planID, userID uint64) error {
	n, err := releaseScript.Run(ctx, m.rdb,
		[]string{lockKey(planID)},
		strconv.FormatUint(userID, 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("lock release: %w", err)
	}
	if n == 0 {
		return engine.NotLockOwner()
	}
	return nil
}

// Holder implements Manager.
func (m *RedisManager) Holder(ctx context.Context, planID uint64) (*model.LockInfo, error) {
	key := lockKey(planID)
	holderStr, err := m.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock holder: %w", err)
	}
	pttl, err := m.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("lock holder: %w", err)
	}
	if pttl <= 0 {
		return nil, nil
	}
	holder, err := strconv.ParseUint(holderStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("lock holder: bad value %q", holderStr)
	}
	return &model.LockInfo{PlanID: planID, HeldBy: holder, ExpiresAt: time.Now().UTC().Add(pttl)}, nil
}
