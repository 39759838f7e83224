package attempts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login_attempts:"

// RedisStore — счётчики в Redis, общие для всех инстансов.
// Ключ хранит hash {count, last}; TTL продлевается на каждой неудаче.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	vals, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return Record{}, false, err
	}
	if len(vals) == 0 {
		return Record{}, false, nil
	}
	return parseRecord(vals), true, nil
}

func (s *RedisStore) Fail(ctx context.Context, key string, now time.Time, ttl time.Duration) (Record, error) {
	k := keyPrefix + key
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, k, "count", 1)
		pipe.HSet(ctx, k, "last", now.UnixMilli())
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return Record{Count: int(incr.Val()), Last: now}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func parseRecord(vals map[string]string) Record {
	var r Record
	if n, err := strconv.Atoi(vals["count"]); err == nil {
		r.Count = n
	}
	if ms, err := strconv.ParseInt(vals["last"], 10, 64); err == nil {
		r.Last = time.UnixMilli(ms)
	}
	return r
}
