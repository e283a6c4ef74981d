package usecase

import (
	"context"
	"time"
)

// KV is the key-value store shared by every service. Implementations live in
// internal/repository.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	ZAdd(ctx context.Context, key string, score float64, member string) error
}
