package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-sender-admin/internal/domain/model"
	"telegram-sender-admin/internal/domain/ports/adapter"
	"telegram-sender-admin/internal/infra/metrics"
)

const maxDetailsLen = 300

// ErrorTrackerSettings controls notification throttling.
type ErrorTrackerSettings struct {
	Enabled            bool
	ResendInterval     time.Duration
	MaxFastRetries     int
	SlowResendInterval time.Duration
	AutoResolveTimeout time.Duration
	ChatID             int64
}

// ErrorTracker deduplicates recurring failures into one notification stream per
// (worker, operation, error type): a first alert, throttled reminders while the
// error keeps occurring, and a resolved message once it goes quiet.
//
// State lives only in memory and is lost on restart.
type ErrorTracker struct {
	mu     sync.Mutex
	active map[model.ErrorKey]*model.ErrorState

	cfg ErrorTrackerSettings
	bot adapter.TelegramBotAdapter
	tr  Translator
	now func() time.Time
	log *zerolog.Logger
}

type notificationKind string

const (
	notifyFirst    notificationKind = "first"
	notifyOngoing  notificationKind = "ongoing"
	notifyResolved notificationKind = "resolved"
)

type pendingNotification struct {
	kind     notificationKind
	state    model.ErrorState
	duration time.Duration
	at       time.Time
}

func NewErrorTracker(cfg ErrorTrackerSettings, bot adapter.TelegramBotAdapter, tr Translator, logger *zerolog.Logger) *ErrorTracker {
	compLog := logger.With().Str("component", "ErrorTracker").Logger()
	return &ErrorTracker{
		active: make(map[model.ErrorKey]*model.ErrorState),
		cfg:    cfg,
		bot:    bot,
		tr:     tr,
		now:    time.Now,
		log:    &compLog,
	}
}

func (t *ErrorTracker) Enabled() bool { return t != nil && t.cfg.Enabled }

func (t *ErrorTracker) Settings() ErrorTrackerSettings { return t.cfg }

// TargetChat is the chat notifications are delivered to; zero when unset.
func (t *ErrorTracker) TargetChat() int64 { return t.cfg.ChatID }

// Track records one failure. A new key triggers the first notification
// immediately; a known key only refreshes its last occurrence and details.
func (t *ErrorTracker) Track(ctx context.Context, worker, operation, errorType, details string) {
	if !t.Enabled() {
		return
	}
	key := model.ErrorKey{Worker: worker, Operation: operation, ErrorType: errorType}
	details = truncate(details, maxDetailsLen)
	now := t.now()
	metrics.IncErrorOccurrence(worker, operation, errorType)

	t.mu.Lock()
	if st, ok := t.active[key]; ok {
		st.LastOccurrence = now
		st.Details = details
		t.mu.Unlock()
		return
	}
	st := &model.ErrorState{
		Key:            key,
		FirstSeen:      now,
		LastSent:       now,
		LastOccurrence: now,
		Count:          1,
		Details:        details,
	}
	t.active[key] = st
	snapshot := *st
	metrics.SetActiveErrors(len(t.active))
	t.mu.Unlock()

	t.log.Warn().Str("error_key", key.String()).Str("details", details).Msg("new error tracked")
	t.send(ctx, pendingNotification{kind: notifyFirst, state: snapshot, at: now})
}

// Sweep runs one pass of the periodic check. Keys silent for the auto-resolve
// timeout are resolved and removed; the rest are re-notified once their resend
// interval has elapsed.
func (t *ErrorTracker) Sweep(ctx context.Context) (resolved, resent int) {
	if !t.Enabled() {
		return 0, 0
	}
	now := t.now()

	var out []pendingNotification
	t.mu.Lock()
	for key, st := range t.active {
		if now.Sub(st.LastOccurrence) >= t.cfg.AutoResolveTimeout {
			delete(t.active, key)
			out = append(out, pendingNotification{
				kind: notifyResolved, state: *st, duration: now.Sub(st.FirstSeen), at: now,
			})
			resolved++
			continue
		}
		if now.Sub(st.LastSent) >= t.resendInterval(st.Count) {
			st.Count++
			st.LastSent = now
			out = append(out, pendingNotification{
				kind: notifyOngoing, state: *st, duration: now.Sub(st.FirstSeen), at: now,
			})
			resent++
		}
	}
	metrics.SetActiveErrors(len(t.active))
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].state.FirstSeen.Before(out[j].state.FirstSeen) })
	for _, n := range out {
		if n.kind == notifyResolved {
			t.log.Info().Str("error_key", n.state.Key.String()).Dur("lasted", n.duration).Msg("error auto-resolved")
		}
		t.send(ctx, n)
	}
	return resolved, resent
}

// Active returns a copy of the tracked states, oldest first.
func (t *ErrorTracker) Active() []model.ErrorState {
	t.mu.Lock()
	out := make([]model.ErrorState, 0, len(t.active))
	for _, st := range t.active {
		out = append(out, *st)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].Key.String() < out[j].Key.String()
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

// resendInterval is the fast interval for the first attempts, then the slow one.
func (t *ErrorTracker) resendInterval(count int) time.Duration {
	if count >= t.cfg.MaxFastRetries {
		return t.cfg.SlowResendInterval
	}
	return t.cfg.ResendInterval
}

func (t *ErrorTracker) render(n pendingNotification) string {
	k := n.state.Key
	clock := n.at.Format("15:04:05")
	switch n.kind {
	case notifyResolved:
		return t.tr.T("notify.resolved",
			mdCode(k.Worker), mdCode(k.Operation), mdCode(k.ErrorType),
			humanDuration(t.tr, n.duration), n.state.Count, clock)
	case notifyOngoing:
		return t.tr.T("notify.ongoing",
			mdCode(k.Worker), mdCode(k.ErrorType), n.state.Count,
			humanDuration(t.tr, n.duration), int(t.resendInterval(n.state.Count).Seconds()))
	default:
		return t.tr.T("notify.first",
			mdCode(k.Worker), mdCode(k.Operation), mdCode(k.ErrorType), mdCode(n.state.Details),
			clock, n.state.Count, int(t.cfg.ResendInterval.Seconds()))
	}
}

// send delivers a notification; failures are logged and swallowed.
func (t *ErrorTracker) send(ctx context.Context, n pendingNotification) {
	if t.bot == nil {
		return
	}
	if t.cfg.ChatID == 0 {
		t.log.Warn().Msg("no target chat configured for error notifications")
		return
	}
	if err := t.bot.SendMarkdown(ctx, t.cfg.ChatID, t.render(n)); err != nil {
		metrics.IncErrorNotificationFailure()
		t.log.Error().Err(err).Str("error_key", n.state.Key.String()).Msg("failed to send error notification")
		return
	}
	metrics.IncErrorNotification(string(n.kind))
	t.log.Info().Int64("chat_id", t.cfg.ChatID).Str("error_key", n.state.Key.String()).
		Str("kind", string(n.kind)).Msg("error notification sent")
}
