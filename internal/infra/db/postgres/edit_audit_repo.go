package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-sender-admin/internal/domain"
	"telegram-sender-admin/internal/domain/model"
	"telegram-sender-admin/internal/domain/ports/repository"
)

var _ repository.EditAuditRepository = (*editAuditRepo)(nil)

type editAuditRepo struct {
	pool *pgxpool.Pool
}

func NewEditAuditRepo(pool *pgxpool.Pool) *editAuditRepo {
	return &editAuditRepo{pool: pool}
}

func (r *editAuditRepo) Save(ctx context.Context, e *model.EditAuditEntry) error {
	if e == nil || e.ID == "" || e.AccountID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO edit_audit (id, account_id, operator_id, changed_fields, trigger_only, success, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	changed := e.ChangedFields
	if changed == nil {
		changed = []string{}
	}
	_, err := execSQL(ctx, r.pool, nil, q,
		e.ID, e.AccountID, e.OperatorID, changed, e.Trigger, e.Success, e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert edit audit: %w", err)
	}
	return nil
}

// ListByAccount returns the newest entries first.
func (r *editAuditRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.EditAuditEntry, error) {
	const q = `
SELECT id, account_id, operator_id, changed_fields, trigger_only, success, message, created_at
FROM edit_audit
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	rows, err := queryRows(ctx, r.pool, nil, q, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query edit audit: %w", err)
	}
	defer rows.Close()

	var out []*model.EditAuditEntry
	for rows.Next() {
		var e model.EditAuditEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.OperatorID, &e.ChangedFields,
			&e.Trigger, &e.Success, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edit audit: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
