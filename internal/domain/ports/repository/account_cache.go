package repository

import (
	"context"

	"telegram-sender-admin/internal/domain/model"
)

// AccountCache holds short-lived snapshots of remote account records.
// Get returns domain.ErrNotFound on a miss.
type AccountCache interface {
	Get(ctx context.Context, accountID string) (*model.AccountRecord, error)
	Store(ctx context.Context, accountID string, rec *model.AccountRecord) error
	Invalidate(ctx context.Context, accountID string) error
}
