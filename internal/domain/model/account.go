package model

import "strings"

// DefaultGroup is used when the site returns a row without a group column.
const DefaultGroup = "1111"

// AccountRecord is the editable part of a sender account on the remote site.
type AccountRecord struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	BackupCodes string `json:"backup_codes"`
	Group       string `json:"group"`
}

// MinAccountFields is the minimum row width the site must return for a usable record.
const MinAccountFields = 4

// AccountRecordFromRow maps the positional getAccountData row:
// [_, email, password, backupCodes, _, _, group, ...].
func AccountRecordFromRow(row []string) (*AccountRecord, bool) {
	if len(row) < MinAccountFields {
		return nil, false
	}
	rec := &AccountRecord{
		Email:       row[1],
		Password:    row[2],
		BackupCodes: row[3],
		Group:       DefaultGroup,
	}
	if len(row) > 6 {
		rec.Group = row[6]
	}
	return rec, true
}

// ParsedInput is the classified form of an operator's free-text edit request.
// Nil fields were not supplied and fall back to the current remote value.
type ParsedInput struct {
	Email       *string
	Password    *string
	BackupCodes *string
	HasTrigger  bool
}

// ChangedFields lists the field names Merge will actually override. A field
// that was detected but cleaned down to nothing does not count.
func (p ParsedInput) ChangedFields() []string {
	var out []string
	if nonEmpty(p.Email) != "" {
		out = append(out, "email")
	}
	if nonEmpty(p.Password) != "" {
		out = append(out, "password")
	}
	if nonEmpty(p.BackupCodes) != "" {
		out = append(out, "backup_codes")
	}
	return out
}

// Empty reports whether no field would override the current record
// (trigger-only, blank, or cleaned-away input).
func (p ParsedInput) Empty() bool {
	return len(p.ChangedFields()) == 0
}

// Merge overlays the parsed fields on the current record. The group is always
// carried over unmodified.
func (p ParsedInput) Merge(current AccountRecord) AccountRecord {
	out := current
	if v := nonEmpty(p.Email); v != "" {
		out.Email = v
	}
	if v := nonEmpty(p.Password); v != "" {
		out.Password = v
	}
	if v := nonEmpty(p.BackupCodes); v != "" {
		out.BackupCodes = v
	}
	return out
}

func nonEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
