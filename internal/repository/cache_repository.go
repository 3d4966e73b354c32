package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss ключ отсутствует в кэше
var ErrCacheMiss = errors.New("cache key not found")

// CacheRepository key/value хранилище с TTL.
// Все операции best-effort: при недоступности бэкенда вызывающая сторона
// обязана пойти в основное хранилище, а не падать.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Reset(ctx context.Context) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, key string) (string, error) {
	value, err := r.redis.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache key: %w", err)
	}
	return value, nil
}

func (r *cacheRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.redis.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key: %w", err)
	}
	return nil
}

// Delete идемпотентен: удаление отсутствующего ключа не ошибка
func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.redis.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

// Reset очищает весь namespace. Используется после структурных правок,
// чтобы не отдавать устаревшие редиректы.
func (r *cacheRepository) Reset(ctx context.Context) error {
	if err := r.redis.Client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	return nil
}
