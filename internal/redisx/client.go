package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	return r
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Store wraps the client with the few key patterns the services use.
type Store struct{ RDB *redis.Client }

func (s Store) Exists(ctx context.Context, key string) (bool, error) {
	return Exists(ctx, s.RDB, key)
}

// Mark records key as done.
func (s Store) Mark(ctx context.Context, key string, ttl time.Duration) error {
	return s.RDB.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// Claim sets key only when it is absent and reports whether this caller won it.
func (s Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.RDB.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (s Store) Release(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}

// GetJSON decodes key into out. A missing key returns false with no error.
func (s Store) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	b, err := s.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}

func (s Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, key, b, ttl).Err()
}
