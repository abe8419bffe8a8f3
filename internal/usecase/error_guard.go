package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-sender-admin/internal/domain"
)

// Error types reported for (false, message) results.
const (
	ErrorTypeRateLimit     = "Rate Limit"
	ErrorTypeQuota         = "Quota Exceeded"
	ErrorTypeAuth          = "Authentication Error"
	ErrorTypeOperationFail = "Operation Failed"
)

// ClassifyMessage maps a failure message to an error type by substring.
func ClassifyMessage(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit"):
		return ErrorTypeRateLimit
	case strings.Contains(lower, "quota"):
		return ErrorTypeQuota
	case strings.Contains(lower, "auth"):
		return ErrorTypeAuth
	default:
		return ErrorTypeOperationFail
	}
}

var errorKinds = []struct {
	target error
	kind   string
}{
	{domain.ErrNetwork, "NetworkError"},
	{domain.ErrTransientAuth, "TransientAuthError"},
	{domain.ErrDataFetch, "DataFetchError"},
	{domain.ErrSubmissionRejected, "SubmissionRejected"},
	{context.DeadlineExceeded, "Timeout"},
	{context.Canceled, "Canceled"},
}

// ErrorKind names the kind of err: a known sentinel name, else the Go type
// of the innermost wrapped error.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", inner), "*")
	switch name {
	case "errors.errorString", "fmt.wrapError", "fmt.wrapErrors", "errors.joinError":
		return "Error"
	}
	return name
}

// TaskSubmitter queues work for a background consumer.
type TaskSubmitter interface {
	Submit(task func(ctx context.Context) error) error
}

// ErrorGuard feeds outcomes of monitored operations into the tracker and
// always hands the original outcome back to the caller. A nil guard is a
// pass-through.
type ErrorGuard struct {
	tracker *ErrorTracker
	queue   TaskSubmitter
	log     *zerolog.Logger
}

func NewErrorGuard(tracker *ErrorTracker, queue TaskSubmitter, logger *zerolog.Logger) *ErrorGuard {
	compLog := logger.With().Str("component", "ErrorGuard").Logger()
	return &ErrorGuard{tracker: tracker, queue: queue, log: &compLog}
}

// Run invokes fn and queues tracking of a returned error or (false, message)
// result. A rejection the site explained is classified by its message.
func (g *ErrorGuard) Run(ctx context.Context, worker, operation string, fn func(ctx context.Context) (bool, string, error)) (bool, string, error) {
	ok, msg, err := fn(ctx)
	switch {
	case err != nil && !errors.Is(err, domain.ErrSubmissionRejected):
		g.ObserveError(ctx, worker, operation, err)
	default:
		g.ObserveResult(ctx, worker, operation, ok, msg)
	}
	return ok, msg, err
}

// ObserveResult queues tracking of a (false, message) result and returns it unchanged.
func (g *ErrorGuard) ObserveResult(ctx context.Context, worker, operation string, ok bool, msg string) (bool, string) {
	if !ok {
		g.submit(ctx, worker, operation, ClassifyMessage(msg), msg)
	}
	return ok, msg
}

// ObserveError queues tracking of err and returns it unchanged.
func (g *ErrorGuard) ObserveError(ctx context.Context, worker, operation string, err error) error {
	if err != nil {
		g.submit(ctx, worker, operation, ErrorKind(err), err.Error())
	}
	return err
}

func (g *ErrorGuard) submit(ctx context.Context, worker, operation, errorType, details string) {
	if g == nil || !g.tracker.Enabled() {
		return
	}
	if g.queue == nil {
		g.tracker.Track(ctx, worker, operation, errorType, details)
		return
	}
	err := g.queue.Submit(func(taskCtx context.Context) error {
		g.tracker.Track(taskCtx, worker, operation, errorType, details)
		return nil
	})
	if err != nil {
		g.log.Warn().Err(err).Str("worker", worker).Str("operation", operation).Msg("could not queue error tracking")
	}
}
