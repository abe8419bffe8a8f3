package application

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"telegram-sender-admin/internal/domain"
	"telegram-sender-admin/internal/domain/model"
	"telegram-sender-admin/internal/usecase"
)

const historyLimit = 10

// ErrorMonitor exposes the tracked error states.
type ErrorMonitor interface {
	Active() []model.ErrorState
}

// BotFacade turns operator commands into usecase calls and renders the replies.
// Every method returns ready-to-send Markdown so the Telegram adapter only forwards text.
type BotFacade struct {
	AccountUC usecase.AccountUseCase
	Errors    ErrorMonitor
	tr        usecase.Translator
	now       func() time.Time
}

func NewBotFacade(accountUC usecase.AccountUseCase, errs ErrorMonitor, tr usecase.Translator) *BotFacade {
	return &BotFacade{AccountUC: accountUC, Errors: errs, tr: tr, now: time.Now}
}

// SplitEditArgs separates "/edit" arguments into the account id (first token)
// and the free-text field lines that follow it.
func SplitEditArgs(args string) (accountID, rest string) {
	args = strings.TrimLeftFunc(args, unicode.IsSpace)
	i := strings.IndexFunc(args, unicode.IsSpace)
	if i < 0 {
		return args, ""
	}
	return args[:i], strings.TrimSpace(args[i:])
}

func (b *BotFacade) HandleHelp() string { return b.tr.T("bot.help") }

// HandleEdit returns the outcome message of an edit. Missing id or an empty
// body is answered with usage instead of touching the site.
func (b *BotFacade) HandleEdit(ctx context.Context, args string) (bool, string) {
	id, rest := SplitEditArgs(args)
	if id == "" || rest == "" {
		return false, b.tr.T("bot.usage_edit")
	}
	return b.AccountUC.Edit(ctx, id, rest)
}

func (b *BotFacade) HandleAccount(ctx context.Context, args string) string {
	id, _ := SplitEditArgs(args)
	if id == "" {
		return b.tr.T("bot.usage_id", "/account")
	}
	rec, err := b.AccountUC.Current(ctx, id)
	if err != nil {
		return b.tr.T("account.fetch_failed", md(id))
	}
	return b.tr.T("account.view", md(id), md(rec.Email), md(rec.Password), md(rec.BackupCodes), md(rec.Group))
}

func (b *BotFacade) HandleHistory(ctx context.Context, args string) string {
	id, _ := SplitEditArgs(args)
	if id == "" {
		return b.tr.T("bot.usage_id", "/history")
	}
	entries, err := b.AccountUC.History(ctx, id, historyLimit)
	switch {
	case errors.Is(err, domain.ErrAuditDisabled):
		return b.tr.T("bot.audit_disabled")
	case err != nil:
		return b.tr.T("edit.unknown_failure")
	case len(entries) == 0:
		return b.tr.T("bot.history_empty", md(id))
	}

	var sb strings.Builder
	sb.WriteString(b.tr.T("bot.history_header", md(id)))
	for _, e := range entries {
		status := "❌"
		if e.Success {
			status = "✅"
		}
		fields := strings.Join(e.ChangedFields, ", ")
		if fields == "" {
			fields = "-"
		}
		if e.Trigger {
			fields += " (trigger)"
		}
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("bot.history_line", e.CreatedAt.Format("2006-01-02 15:04"), status, md(fields)))
	}
	return sb.String()
}

func (b *BotFacade) HandleErrors(context.Context) string {
	if b.Errors == nil {
		return b.tr.T("bot.no_errors")
	}
	active := b.Errors.Active()
	if len(active) == 0 {
		return b.tr.T("bot.no_errors")
	}
	var sb strings.Builder
	sb.WriteString(b.tr.T("bot.errors_header"))
	for _, st := range active {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("bot.error_line", md(st.Key.String()), st.Count, st.FirstSeen.Format("15:04:05")))
	}
	return sb.String()
}

func md(s string) string { return strings.ReplaceAll(s, "`", "'") }
