package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"abisal/client/internal/config"
)

// RedisStore keeps the session record in Redis so multiple client processes
// on the same machine share one login. Token and user entries go through a
// transaction pipeline, keeping the pair atomic.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "abisal:session"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) tokenKey() string { return r.prefix + ":token" }
func (r *RedisStore) userKey() string  { return r.prefix + ":user" }

func (r *RedisStore) Save(ctx context.Context, rec Record) error {
	user, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(), rec.Token, 0)
		pipe.Set(ctx, r.userKey(), user, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (Record, error) {
	values, err := r.client.MGet(ctx, r.tokenKey(), r.userKey()).Result()
	if err != nil {
		return Record{}, fmt.Errorf("read session: %w", err)
	}

	raw, ok := values[0].(string)
	if !ok || raw == "" {
		return Record{}, ErrNoSession
	}

	rec := Record{Token: raw}
	if user, ok := values[1].(string); ok && user != "" {
		if err := json.Unmarshal([]byte(user), &rec.User); err != nil {
			return Record{}, fmt.Errorf("decode session user: %w", err)
		}
	}
	return rec, nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.tokenKey(), r.userKey()).Err(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
