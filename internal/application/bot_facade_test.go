package application_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"telegram-sender-admin/internal/application"
	"telegram-sender-admin/internal/domain"
	"telegram-sender-admin/internal/domain/model"
	"telegram-sender-admin/internal/infra/i18n"
)

type mockAccountUC struct {
	EditFunc    func(ctx context.Context, id, raw string) (bool, string)
	CurrentFunc func(ctx context.Context, id string) (*model.AccountRecord, error)
	HistoryFunc func(ctx context.Context, id string, limit int) ([]*model.EditAuditEntry, error)
}

func (m *mockAccountUC) Edit(ctx context.Context, id, raw string) (bool, string) {
	return m.EditFunc(ctx, id, raw)
}
func (m *mockAccountUC) Current(ctx context.Context, id string) (*model.AccountRecord, error) {
	return m.CurrentFunc(ctx, id)
}
func (m *mockAccountUC) History(ctx context.Context, id string, limit int) ([]*model.EditAuditEntry, error) {
	return m.HistoryFunc(ctx, id, limit)
}

type staticMonitor []model.ErrorState

func (s staticMonitor) Active() []model.ErrorState { return s }

func newFacade(t *testing.T, uc *mockAccountUC, mon application.ErrorMonitor) *application.BotFacade {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatal(err)
	}
	return application.NewBotFacade(uc, mon, tr)
}

func TestSplitEditArgs(t *testing.T) {
	cases := []struct{ in, id, rest string }{
		{"123\na@b.com\npw", "123", "a@b.com\npw"},
		{"  123 a@b.com", "123", "a@b.com"},
		{"123", "123", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		id, rest := application.SplitEditArgs(tc.in)
		if id != tc.id || rest != tc.rest {
			t.Errorf("SplitEditArgs(%q) = %q, %q; want %q, %q", tc.in, id, rest, tc.id, tc.rest)
		}
	}
}

func TestBotFacade_HandleEdit(t *testing.T) {
	var gotID, gotRaw string
	uc := &mockAccountUC{EditFunc: func(_ context.Context, id, raw string) (bool, string) {
		gotID, gotRaw = id, raw
		return true, "done"
	}}
	f := newFacade(t, uc, nil)

	ok, msg := f.HandleEdit(context.Background(), "55\nnew@mail.com\nsecret")
	if !ok || msg != "done" || gotID != "55" || gotRaw != "new@mail.com\nsecret" {
		t.Fatalf("unexpected call: %v %q id=%q raw=%q", ok, msg, gotID, gotRaw)
	}

	gotID = ""
	if ok, msg := f.HandleEdit(context.Background(), "55"); ok || !strings.Contains(msg, "Usage") || gotID != "" {
		t.Fatalf("expected usage without calling the usecase, got %v %q", ok, msg)
	}
}

func TestBotFacade_HandleAccount(t *testing.T) {
	uc := &mockAccountUC{CurrentFunc: func(_ context.Context, id string) (*model.AccountRecord, error) {
		if id == "404" {
			return nil, domain.ErrDataFetch
		}
		return &model.AccountRecord{Email: "a@b.com", Password: "p`w", BackupCodes: "12345678", Group: "1111"}, nil
	}}
	f := newFacade(t, uc, nil)

	out := f.HandleAccount(context.Background(), "7")
	if !strings.Contains(out, "a@b.com") || !strings.Contains(out, "p'w") {
		t.Errorf("unexpected view: %q", out)
	}
	if out := f.HandleAccount(context.Background(), "404"); !strings.Contains(out, "Could not load account") {
		t.Errorf("unexpected failure text: %q", out)
	}
	if out := f.HandleAccount(context.Background(), ""); !strings.Contains(out, "/account") {
		t.Errorf("expected usage, got %q", out)
	}
}

func TestBotFacade_HandleHistory(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	uc := &mockAccountUC{HistoryFunc: func(_ context.Context, id string, limit int) ([]*model.EditAuditEntry, error) {
		switch id {
		case "off":
			return nil, domain.ErrAuditDisabled
		case "none":
			return nil, nil
		}
		if limit != 10 {
			t.Errorf("unexpected limit %d", limit)
		}
		return []*model.EditAuditEntry{
			{AccountID: id, ChangedFields: []string{"email", "password"}, Success: true, CreatedAt: at},
			{AccountID: id, Trigger: true, CreatedAt: at},
		}, nil
	}}
	f := newFacade(t, uc, nil)

	out := f.HandleHistory(context.Background(), "7")
	if !strings.Contains(out, "2024-05-01 10:30") || !strings.Contains(out, "email, password") || !strings.Contains(out, "(trigger)") {
		t.Errorf("unexpected history: %q", out)
	}
	if out := f.HandleHistory(context.Background(), "off"); !strings.Contains(out, "not enabled") {
		t.Errorf("unexpected disabled text: %q", out)
	}
	if out := f.HandleHistory(context.Background(), "none"); !strings.Contains(out, "No edits") {
		t.Errorf("unexpected empty text: %q", out)
	}
}

func TestBotFacade_HandleErrors(t *testing.T) {
	f := newFacade(t, &mockAccountUC{}, staticMonitor{})
	if out := f.HandleErrors(context.Background()); !strings.Contains(out, "No active errors") {
		t.Errorf("unexpected empty text: %q", out)
	}

	mon := staticMonitor{{
		Key:       model.ErrorKey{Worker: "sender_site", Operation: "edit_account", ErrorType: "NetworkError"},
		Count:     3,
		FirstSeen: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}}
	f = newFacade(t, &mockAccountUC{}, mon)
	out := f.HandleErrors(context.Background())
	if !strings.Contains(out, "sender_site:edit_account:NetworkError") || !strings.Contains(out, "attempt 3") {
		t.Errorf("unexpected errors view: %q", out)
	}
}

