package cache

import (
	"context"
	"time"
)

// Store is a best-effort key-value cache. Implementations must never be
// treated as a source of truth; a miss or an error simply falls through to
// persistence.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}
