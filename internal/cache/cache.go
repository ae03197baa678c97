package cache

import (
	"context"
	"time"
)

// Cache — быстрый путь для повторных доставок: ключ появляется после
// успешной вставки, попадание означает дубликат без похода в БД.
// Источником истины остается уникальный ключ в Postgres.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	Close() error
}
