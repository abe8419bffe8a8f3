package model

import "time"

// EditAuditEntry records one edit attempt. Credentials are never stored.
type EditAuditEntry struct {
	ID            string
	AccountID     string
	OperatorID    int64
	ChangedFields []string
	Trigger       bool
	Success       bool
	Message       string
	CreatedAt     time.Time
}
