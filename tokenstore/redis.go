package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "npcagent:"

// RedisStore 基于 Redis 的令牌存储，键为 <prefix>token:<name>
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore 创建 Redis 存储并检查连通性
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisStoreWithClient 使用已有客户端创建存储
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "token:", ttl: ttl}
}

func (s *RedisStore) key(name string) (string, error) {
	k, err := keyFor(name)
	if err != nil {
		return "", err
	}
	return s.keyPrefix + k, nil
}

// Load 实现 Store.Load
func (s *RedisStore) Load(ctx context.Context, name string) (string, error) {
	k, err := s.key(name)
	if err != nil {
		return "", err
	}
	tok, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return tok, nil
}

// Save 实现 Store.Save
func (s *RedisStore) Save(ctx context.Context, name, token string) error {
	k, err := s.key(name)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, k, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// Delete 实现 Store.Delete
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	k, err := s.key(name)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, k).Err()
}

// Close 实现 Store.Close
func (s *RedisStore) Close() error {
	return s.client.Close()
}
