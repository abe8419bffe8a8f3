package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-sender-admin/internal/domain"
	"telegram-sender-admin/internal/domain/model"
	"telegram-sender-admin/internal/domain/ports/adapter"
	"telegram-sender-admin/internal/infra/i18n"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

func newTestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("load translator: %v", err)
	}
	return tr
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- Telegram ----

type mockBot struct {
	mu   sync.Mutex
	sent []string
	err  error
}

var _ adapter.TelegramBotAdapter = (*mockBot)(nil)

func (m *mockBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return m.SendMarkdown(ctx, chatID, text)
}

func (m *mockBot) SendMarkdown(_ context.Context, _ int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockBot) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// ---- Sender site ----

type siteReply struct {
	status int
	row    []string
	body   string
	err    error
}

// mockSite replays scripted replies in order; the last one repeats.
type mockSite struct {
	mu            sync.Mutex
	dataReplies   []siteReply
	editReplies   []siteReply
	tokenErr      error
	dataCalls     int
	edits         []adapter.EditAccountRequest
	invalidations int
	tokens        int

	// optional hook run inside GetAccountData, outside the lock
	onData func()
}

var _ adapter.SenderSite = (*mockSite)(nil)

func nextReply(replies []siteReply, n int) siteReply {
	if len(replies) == 0 {
		return siteReply{status: 200}
	}
	if n >= len(replies) {
		return replies[len(replies)-1]
	}
	return replies[n]
}

func (m *mockSite) CSRFToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return "", m.tokenErr
	}
	m.tokens++
	return "tok", nil
}

func (m *mockSite) InvalidateCSRF() {
	m.mu.Lock()
	m.invalidations++
	m.mu.Unlock()
}

func (m *mockSite) GetAccountData(ctx context.Context, accountID, token string) (*adapter.AccountDataResponse, error) {
	if m.onData != nil {
		m.onData()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := nextReply(m.dataReplies, m.dataCalls)
	m.dataCalls++
	if r.err != nil {
		return nil, r.err
	}
	return &adapter.AccountDataResponse{StatusCode: r.status, Row: r.row, Body: r.body}, nil
}

func (m *mockSite) EditAccount(ctx context.Context, req adapter.EditAccountRequest) (*adapter.EditAccountResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := nextReply(m.editReplies, len(m.edits))
	m.edits = append(m.edits, req)
	if r.err != nil {
		return nil, r.err
	}
	return &adapter.EditAccountResponse{StatusCode: r.status, Body: r.body}, nil
}

func (m *mockSite) Edits() []adapter.EditAccountRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.EditAccountRequest(nil), m.edits...)
}

func (m *mockSite) DataCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dataCalls
}

// ---- Repositories ----

type memCache struct {
	mu          sync.Mutex
	store       map[string]model.AccountRecord
	invalidated []string
	err         error
}

func newMemCache() *memCache { return &memCache{store: map[string]model.AccountRecord{}} }

func (c *memCache) Get(_ context.Context, id string) (*model.AccountRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	rec, ok := c.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (c *memCache) Store(_ context.Context, id string, rec *model.AccountRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[id] = *rec
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []*model.EditAuditEntry
	saveErr error
}

func (a *memAudit) Save(_ context.Context, e *model.EditAuditEntry) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) ListByAccount(_ context.Context, id string, limit int) ([]*model.EditAuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*model.EditAuditEntry
	for i := len(a.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if a.entries[i].AccountID == id {
			out = append(out, a.entries[i])
		}
	}
	return out, nil
}

type mockLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	unlocked int
}

func newMockLocker() *mockLocker { return &mockLocker{held: map[string]bool{}} }

func (l *mockLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	if l.held[key] {
		return "", domain.ErrEditInProgress
	}
	l.held[key] = true
	return "token-" + key, nil
}

func (l *mockLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token != "token-"+key {
		return errors.New("token mismatch")
	}
	delete(l.held, key)
	l.unlocked++
	return nil
}

// inlineQueue runs submitted tasks immediately.
type inlineQueue struct {
	mu    sync.Mutex
	count int
	err   error
}

func (q *inlineQueue) Submit(task func(ctx context.Context) error) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	q.count++
	q.mu.Unlock()
	return task(context.Background())
}
