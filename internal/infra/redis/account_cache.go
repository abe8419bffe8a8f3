package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"telegram-sender-admin/internal/domain"
	"telegram-sender-admin/internal/domain/model"
	"telegram-sender-admin/internal/domain/ports/repository"
)

var _ repository.AccountCache = (*AccountCache)(nil)

var errNoSealer = errors.New("snapshot sealer not configured")

// SnapshotSealer encrypts snapshot bytes bound to a label.
type SnapshotSealer interface {
	Seal(plaintext []byte, label string) (string, error)
	Open(sealed, label string) ([]byte, error)
}

// AccountCache keeps sealed JSON snapshots of remote account rows under
// account_snapshot:<id>. Snapshots carry credentials, so nothing is written
// in the clear.
type AccountCache struct {
	client RedisClient
	sealer SnapshotSealer
	ttl    time.Duration
}

func NewAccountCache(client RedisClient, sealer SnapshotSealer, ttl time.Duration) *AccountCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AccountCache{client: client, sealer: sealer, ttl: ttl}
}

func snapshotKey(accountID string) string { return "account_snapshot:" + accountID }

func (c *AccountCache) Get(ctx context.Context, accountID string) (*model.AccountRecord, error) {
	raw, err := c.client.Get(ctx, snapshotKey(accountID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.sealer == nil {
		return nil, errNoSealer
	}
	var rec model.AccountRecord
	plain, err := c.sealer.Open(raw, accountID)
	if err == nil {
		err = json.Unmarshal(plain, &rec)
	}
	if err != nil {
		// An entry that fails to open or decode behaves like a miss and is dropped.
		_ = c.client.Del(ctx, snapshotKey(accountID))
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (c *AccountCache) Store(ctx context.Context, accountID string, rec *model.AccountRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if c.sealer == nil {
		return errNoSealer
	}
	sealed, err := c.sealer.Seal(b, accountID)
	if err != nil {
		return fmt.Errorf("seal snapshot: %w", err)
	}
	return c.client.Set(ctx, snapshotKey(accountID), sealed, c.ttl)
}

func (c *AccountCache) Invalidate(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, snapshotKey(accountID))
}
