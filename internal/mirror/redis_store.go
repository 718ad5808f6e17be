package mirror

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the mirror with Redis so a flow survives reloads
// against any instance behind the load balancer.  A nil client is
// tolerated: the store then reports every operation as failed and the
// mirror degrades to a pass-through, exactly as when device storage is
// disabled.  Keys carry no Redis-side TTL; staleness is resolved by
// deferring to the server draft, and abandoned keys are bounded by the
// keyTTL safety horizon.
type RedisStore struct {
	rdb    *redis.Client
	keyTTL time.Duration
}

// NewRedisStore wraps the given client.  keyTTL bounds how long
// abandoned mirror keys linger; zero disables expiry.
func NewRedisStore(rdb *redis.Client, keyTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, keyTTL: keyTTL}
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func (s *RedisStore) Set(key, value string) bool {
	if s.rdb == nil {
		return false
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.Set(ctx, key, value, s.keyTTL).Err() == nil
}

func (s *RedisStore) Get(key string) (string, bool) {
	if s.rdb == nil {
		return "", false
	}
	ctx, cancel := s.ctx()
	defer cancel()
	v, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *RedisStore) Delete(key string) bool {
	if s.rdb == nil {
		return false
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.Del(ctx, key).Err() == nil
}

func (s *RedisStore) Keys(prefix string) []string {
	if s.rdb == nil {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	keys, err := s.rdb.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil
	}
	return keys
}
