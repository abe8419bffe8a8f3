package repository

import (
	"context"

	"telegram-sender-admin/internal/domain/model"
)

type EditAuditRepository interface {
	Save(ctx context.Context, entry *model.EditAuditEntry) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.EditAuditEntry, error)
}
