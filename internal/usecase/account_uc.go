package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"telegram-sender-admin/internal/domain"
	"telegram-sender-admin/internal/domain/model"
	"telegram-sender-admin/internal/domain/ports/adapter"
	"telegram-sender-admin/internal/domain/ports/repository"
	"telegram-sender-admin/internal/infra/logging"
	"telegram-sender-admin/internal/infra/metrics"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// Worker names reported to the error tracker.
const (
	WorkerSenderSite = "sender_site"
	WorkerRedis      = "redis"
	WorkerPostgres   = "postgres"
)

const (
	statusCSRFMismatch = 419
	rejectionBodyLimit = 100
	defaultHistorySize = 10
)

// AccountUseCase edits and inspects sender accounts on the remote site.
type AccountUseCase interface {
	// Edit applies free-text operator input to an account. It never returns an
	// error; every failure is reported as (false, message).
	Edit(ctx context.Context, accountID, rawText string) (bool, string)
	Current(ctx context.Context, accountID string) (*model.AccountRecord, error)
	History(ctx context.Context, accountID string, limit int) ([]*model.EditAuditEntry, error)
}

type AccountEditOptions struct {
	ConcurrentLimit int
	Attempts        int
	LockTTL         time.Duration
}

type accountUC struct {
	site   adapter.SenderSite
	cache  repository.AccountCache        // optional
	audit  repository.EditAuditRepository // optional
	locker repository.Locker              // optional
	guard  *ErrorGuard                    // optional

	sem      *semaphore.Weighted
	attempts int
	lockTTL  time.Duration
	tr       Translator
	log      *zerolog.Logger
}

func NewAccountUseCase(
	site adapter.SenderSite,
	cache repository.AccountCache,
	audit repository.EditAuditRepository,
	locker repository.Locker,
	guard *ErrorGuard,
	tr Translator,
	opts AccountEditOptions,
	logger *zerolog.Logger,
) *accountUC {
	if opts.ConcurrentLimit <= 0 {
		opts.ConcurrentLimit = 2
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 2
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	compLog := logger.With().Str("component", "AccountUC").Logger()
	return &accountUC{
		site:     site,
		cache:    cache,
		audit:    audit,
		locker:   locker,
		guard:    guard,
		sem:      semaphore.NewWeighted(int64(opts.ConcurrentLimit)),
		attempts: opts.Attempts,
		lockTTL:  opts.LockTTL,
		tr:       tr,
		log:      &compLog,
	}
}

func editLockKey(accountID string) string { return "edit_lock:" + accountID }

func (u *accountUC) Edit(ctx context.Context, accountID, rawText string) (bool, string) {
	start := time.Now()
	result := "failed"
	defer func() { metrics.ObserveEdit(result, time.Since(start)) }()

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		result = "invalid"
		return false, u.tr.T("bot.usage_edit")
	}
	ctx = logging.WithAccountID(ctx, accountID)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "AccountUC.Edit")()

	// Waiters queue in FIFO order behind the running edits.
	if err := u.sem.Acquire(ctx, 1); err != nil {
		result = "cancelled"
		return false, u.tr.T("edit.cancelled")
	}
	defer u.sem.Release(1)
	metrics.EditStarted()
	defer metrics.EditFinished()

	if u.locker != nil {
		key := editLockKey(accountID)
		token, err := u.locker.TryLock(ctx, key, u.lockTTL)
		switch {
		case errors.Is(err, domain.ErrEditInProgress):
			result = "locked"
			return false, u.tr.T("edit.in_progress")
		case err != nil:
			log.Warn().Err(err).Msg("edit lock unavailable, continuing unlocked")
			u.guard.ObserveError(ctx, WorkerRedis, "edit_lock", err)
		default:
			defer func() {
				if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn().Err(err).Msg("failed to release edit lock")
				}
			}()
		}
	}

	parsed := ParseSmartInput(rawText)
	log.Info().Strs("fields", parsed.ChangedFields()).Bool("trigger", parsed.HasTrigger).Msg("smart edit started")

	current, err := u.fetchCurrent(ctx, accountID)
	if err != nil {
		log.Warn().Err(err).Msg("could not fetch current account data")
		u.guard.ObserveError(ctx, WorkerSenderSite, "get_account_data", err)
		result = "fetch_failed"
		msg := u.tr.T("edit.fetch_failed")
		u.recordAudit(ctx, accountID, parsed, false, msg)
		return false, msg
	}

	merged := parsed.Merge(*current)
	ok, msg, err := u.guard.Run(ctx, WorkerSenderSite, "edit_account", func(ctx context.Context) (bool, string, error) {
		return u.submit(ctx, accountID, merged)
	})
	if ok {
		result = "success"
		log.Info().Msg("account updated")
		if u.cache != nil {
			if err := u.cache.Invalidate(ctx, accountID); err != nil {
				log.Warn().Err(err).Msg("failed to invalidate account snapshot")
				u.guard.ObserveError(ctx, WorkerRedis, "account_cache", err)
			}
		}
		u.recordAudit(ctx, accountID, parsed, true, "ok")
		return true, msg
	}

	result = "rejected"
	log.Warn().Err(err).Msg("edit submission failed")
	u.recordAudit(ctx, accountID, parsed, false, msg)
	return false, msg
}

func (u *accountUC) Current(ctx context.Context, accountID string) (*model.AccountRecord, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidArgument
	}
	ctx = logging.WithAccountID(ctx, accountID)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "AccountUC.Current")()

	if u.cache != nil {
		rec, err := u.cache.Get(ctx, accountID)
		switch {
		case err == nil:
			metrics.IncCacheRequest("account_snapshot", "hit")
			return rec, nil
		case errors.Is(err, domain.ErrNotFound):
			metrics.IncCacheRequest("account_snapshot", "miss")
		default:
			metrics.IncCacheRequest("account_snapshot", "error")
			log.Warn().Err(err).Msg("account snapshot lookup failed")
			u.guard.ObserveError(ctx, WorkerRedis, "account_cache", err)
		}
	}

	rec, err := u.fetchCurrent(ctx, accountID)
	if err != nil {
		u.guard.ObserveError(ctx, WorkerSenderSite, "get_account_data", err)
		return nil, err
	}
	if u.cache != nil {
		if err := u.cache.Store(ctx, accountID, rec); err != nil {
			log.Warn().Err(err).Msg("failed to store account snapshot")
		}
	}
	return rec, nil
}

func (u *accountUC) History(ctx context.Context, accountID string, limit int) ([]*model.EditAuditEntry, error) {
	if u.audit == nil {
		return nil, domain.ErrAuditDisabled
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}
	entries, err := u.audit.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list edit history: %w", err)
	}
	return entries, nil
}

func isCSRFRejection(status int) bool {
	return status == http.StatusForbidden || status == statusCSRFMismatch
}

// fetchCurrent reads the account row, refreshing the CSRF token between
// attempts when the site rejects it.
func (u *accountUC) fetchCurrent(ctx context.Context, accountID string) (*model.AccountRecord, error) {
	log := logging.With(ctx, u.log)
	lastErr := domain.ErrDataFetch
	for attempt := 1; attempt <= u.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token, err := u.site.CSRFToken(ctx)
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Int("attempt", attempt).Msg("csrf token unavailable")
			continue
		}
		resp, err := u.site.GetAccountData(ctx, accountID, token)
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Int("attempt", attempt).Msg("getAccountData failed")
			continue
		}
		if isCSRFRejection(resp.StatusCode) {
			u.site.InvalidateCSRF()
			metrics.IncCSRFRefresh()
			lastErr = fmt.Errorf("%w: status %d", domain.ErrTransientAuth, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: status %d: %s", domain.ErrDataFetch, resp.StatusCode, truncate(resp.Body, rejectionBodyLimit))
			continue
		}
		rec, ok := model.AccountRecordFromRow(resp.Row)
		if !ok {
			lastErr = fmt.Errorf("%w: row has %d fields", domain.ErrDataFetch, len(resp.Row))
			continue
		}
		return rec, nil
	}
	return nil, lastErr
}

// submit sends the full merged record. A non-200, non-CSRF response is final.
func (u *accountUC) submit(ctx context.Context, accountID string, rec model.AccountRecord) (bool, string, error) {
	log := logging.With(ctx, u.log)
	var lastErr error
	for attempt := 1; attempt <= u.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		token, err := u.site.CSRFToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := u.site.EditAccount(ctx, adapter.EditAccountRequest{
			AccountID:   accountID,
			Email:       rec.Email,
			Password:    rec.Password,
			BackupCodes: rec.BackupCodes,
			Group:       rec.Group,
			CSRFToken:   token,
		})
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Int("attempt", attempt).Msg("editAccount failed")
			continue
		}
		if isCSRFRejection(resp.StatusCode) {
			u.site.InvalidateCSRF()
			metrics.IncCSRFRefresh()
			lastErr = fmt.Errorf("%w: status %d", domain.ErrTransientAuth, resp.StatusCode)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return true, u.tr.T("edit.success", mdCode(rec.Email), mdCode(rec.Password)), nil
		}
		body := truncate(resp.Body, rejectionBodyLimit)
		return false, u.tr.T("edit.rejected", body),
			fmt.Errorf("%w: status %d: %s", domain.ErrSubmissionRejected, resp.StatusCode, body)
	}

	if lastErr == nil || errors.Is(lastErr, domain.ErrTransientAuth) {
		return false, u.tr.T("edit.unknown_failure"), lastErr
	}
	return false, "❌ " + truncate(lastErr.Error(), rejectionBodyLimit), lastErr
}

func (u *accountUC) recordAudit(ctx context.Context, accountID string, parsed model.ParsedInput, success bool, msg string) {
	if u.audit == nil {
		return
	}
	entry := &model.EditAuditEntry{
		ID:            ulid.Make().String(),
		AccountID:     accountID,
		OperatorID:    logging.OperatorID(ctx),
		ChangedFields: parsed.ChangedFields(),
		Trigger:       parsed.HasTrigger,
		Success:       success,
		Message:       truncate(msg, 500),
		CreatedAt:     time.Now().UTC(),
	}
	if err := u.audit.Save(context.WithoutCancel(ctx), entry); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Msg("failed to save edit audit entry")
		u.guard.ObserveError(ctx, WorkerPostgres, "save_edit_audit", err)
	}
}
