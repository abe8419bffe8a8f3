package repository

import (
	"context"
	"time"
)

// Locker provides a best-effort mutual exclusion across bot replicas.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
