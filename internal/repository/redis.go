package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryhub/internal/config"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisCacheStore keeps cached payloads in Redis under a key namespace.
type RedisCacheStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCacheStore(client *redis.Client, namespace string) *RedisCacheStore {
	return &RedisCacheStore{
		client:    client,
		namespace: namespace,
	}
}

func (r *RedisCacheStore) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.client == nil {
		return nil, false, errors.New("redis client is nil")
	}
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (r *RedisCacheStore) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix using SCAN, never KEYS.
// Keys are collected over the whole scan first: deleting mid-scan may shift the cursor.
func (r *RedisCacheStore) DeletePrefix(ctx context.Context, prefix string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}

	var (
		cursor uint64
		found  []string
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key(prefix)+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s*: %w", prefix, err)
		}
		found = append(found, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}

	for start := 0; start < len(found); start += scanBatch {
		end := min(start+scanBatch, len(found))
		if err := r.client.Unlink(ctx, found[start:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete %s*: %w", prefix, err)
		}
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
