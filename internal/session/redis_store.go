package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "inkpost:session:"

type redisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore keeps sessions in Redis, letting several server processes
// share logins.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb, now: time.Now}
}

// DialRedis connects to Redis and checks it answers.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *redisStore) Save(ctx context.Context, id string, st State, ttl time.Duration) error {
	b, err := encodeState(st, r.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+id, b, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *redisStore) Load(ctx context.Context, id string) (State, bool, error) {
	b, err := r.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Anonymous, false, nil
	}
	if err != nil {
		return Anonymous, false, fmt.Errorf("load session: %w", err)
	}
	st, ok, err := decodeState(b, r.now())
	if err != nil {
		return Anonymous, false, fmt.Errorf("decode session: %w", err)
	}
	return st, ok, nil
}

func (r *redisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *redisStore) Close() error {
	return r.rdb.Close()
}
