package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-sender-admin/internal/application"
	"telegram-sender-admin/internal/config"
	"telegram-sender-admin/internal/domain/ports/adapter"
	"telegram-sender-admin/internal/infra/logging"
	"telegram-sender-admin/internal/infra/metrics"
	red "telegram-sender-admin/internal/infra/redis"
	"telegram-sender-admin/internal/usecase"
)

const (
	commandsPerMinute = 20
	updateBuffer      = 100
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// botAPI is the part of tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RealTelegramBotAdapter polls updates for the operator bot and delivers
// outgoing messages, including error notifications.
type RealTelegramBotAdapter struct {
	api         botAPI
	facade      *application.BotFacade
	rateLimiter RateLimiter // optional
	translator  usecase.Translator
	log         *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	updateWorkers int

	mu            sync.Mutex
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	facade *application.BotFacade,
	rateLimiter RateLimiter,
	translator usecase.Translator,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newAdapter(bot, cfg, facade, rateLimiter, translator, logger), nil
}

func newAdapter(api botAPI, cfg *config.BotConfig, facade *application.BotFacade, rateLimiter RateLimiter, translator usecase.Translator, logger *zerolog.Logger) *RealTelegramBotAdapter {
	adminMap := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	compLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		api:           api,
		facade:        facade,
		rateLimiter:   rateLimiter,
		translator:    translator,
		log:           &compLog,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}
}

// AttachFacade sets the command handler. The error tracker needs the adapter
// as a sender before the facade exists, so wiring happens in two steps.
func (r *RealTelegramBotAdapter) AttachFacade(facade *application.BotFacade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facade = facade
}

// StartPolling blocks, dispatching updates to a fixed set of workers until
// ctx is cancelled or StopPolling is called.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade is nil")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancelPolling = cancel
	r.mu.Unlock()

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, updateBuffer)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for update := range updateChan {
				if err := r.handleUpdate(ctx, update); err != nil {
					r.log.Error().Err(err).Int("worker", workerID).Msg("error handling update")
				}
			}
		}(i + 1)
	}

	r.log.Info().Int("workers", r.updateWorkers).Msg("telegram polling started")
	func() {
		defer close(updateChan)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	r.api.StopReceivingUpdates()
	wg.Wait()
	r.log.Info().Msg("telegram polling stopped")
	return nil
}

func (r *RealTelegramBotAdapter) StopPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendMarkdown sends with Markdown parse mode, falling back to plain text
// when Telegram rejects the entities.
func (r *RealTelegramBotAdapter) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := r.api.Send(msg)
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "parse entities") {
		r.log.Warn().Err(err).Int64("chat_id", chatID).Msg("markdown rejected, resending as plain text")
		return r.SendMessage(ctx, chatID, text)
	}
	return err
}

func (r *RealTelegramBotAdapter) isAdmin(id int64) bool {
	_, ok := r.adminIDsMap[id]
	return ok
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithOperatorID(ctx, msg.From.ID)

	command := "message"
	if msg.IsCommand() {
		command = msg.Command()
	}

	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.OperatorCommandKey(msg.From.ID, command), commandsPerMinute, time.Minute)
		if err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return r.SendMessage(ctx, msg.Chat.ID, r.translator.T("bot.rate_limited"))
		}
	}

	if !msg.IsCommand() {
		if !r.isAdmin(msg.From.ID) {
			return nil
		}
		return r.SendMessage(ctx, msg.Chat.ID, r.facade.HandleHelp())
	}

	handler, ok := r.commandRoutes()[command]
	if !ok {
		return r.SendMessage(ctx, msg.Chat.ID, r.facade.HandleHelp())
	}
	metrics.IncTelegramCommand(command)
	return handler(ctx, msg)
}
