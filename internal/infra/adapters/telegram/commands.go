package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-sender-admin/internal/application"
	"telegram-sender-admin/internal/infra/logging"
	"telegram-sender-admin/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes maps bot commands to handlers. Every operator command is admin-only.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":   r.adminOnly(r.handleHelpCommand),
		"help":    r.adminOnly(r.handleHelpCommand),
		"edit":    r.adminOnly(r.handleEditCommand),
		"account": r.adminOnly(r.handleAccountCommand),
		"history": r.adminOnly(r.handleHistoryCommand),
		"errors":  r.adminOnly(r.handleErrorsCommand),
	}
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !r.isAdmin(message.From.ID) {
			metrics.IncUnauthorized()
			logging.With(ctx, r.log).Warn().Str("command", message.Command()).Msg("unauthorized command")
			return r.SendMessage(ctx, message.Chat.ID, r.translator.T("bot.unauthorized"))
		}
		return next(ctx, message)
	}
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.SendMessage(ctx, message.Chat.ID, r.facade.HandleHelp())
}

func (r *RealTelegramBotAdapter) handleEditCommand(ctx context.Context, message *tgbotapi.Message) error {
	args := message.CommandArguments()
	if id, _ := application.SplitEditArgs(args); id != "" {
		ctx = logging.WithAccountID(ctx, id)
		if err := r.SendMessage(ctx, message.Chat.ID, r.translator.T("bot.working", id)); err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("failed to send progress message")
		}
	}
	_, text := r.facade.HandleEdit(ctx, args)
	return r.SendMarkdown(ctx, message.Chat.ID, text)
}

func (r *RealTelegramBotAdapter) handleAccountCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.SendMarkdown(ctx, message.Chat.ID, r.facade.HandleAccount(ctx, message.CommandArguments()))
}

func (r *RealTelegramBotAdapter) handleHistoryCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.SendMarkdown(ctx, message.Chat.ID, r.facade.HandleHistory(ctx, message.CommandArguments()))
}

func (r *RealTelegramBotAdapter) handleErrorsCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.SendMarkdown(ctx, message.Chat.ID, r.facade.HandleErrors(ctx))
}
