package usecase

import "testing"

func TestConvertArabicDigits(t *testing.T) {
	cases := map[string]string{
		"١٢٣":        "123",
		"٠٩":         "09",
		"abc ٤٥":     "abc 45",
		"":           "",
		"already 12": "already 12",
		"۱۲۳۴":       "1234",
		"٧۷":         "77",
	}
	for in, want := range cases {
		if got := ConvertArabicDigits(in); got != want {
			t.Errorf("ConvertArabicDigits(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanBackupCodes(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"dedupe keeps first order", "12345678, 12345678, 87654321", "12345678,87654321"},
		{"keeps last 8 digits of long runs", "9912345678\n55555555", "12345678,55555555"},
		{"arabic digits", "١٢٣٤٥٦٧٨", "12345678"},
		{"persian digits", "۱۲۳۴۵۶۷۸, ۸۷۶۵۴۳۲۱", "12345678,87654321"},
		{"short runs ignored", "1234 5678, 11112222", "11112222"},
		{"no codes", "abc,def", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanBackupCodes(tc.in); got != tc.want {
				t.Errorf("CleanBackupCodes(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDetectFieldType(t *testing.T) {
	cases := []struct {
		in   string
		want FieldType
	}{
		{"user@mail.com", FieldEmail},
		{"12345678@mail.com", FieldEmail},
		{"  ", FieldNone},
		{"11112222,33334444", FieldBackup},
		{"a,b", FieldBackup},
		{"code 123456789", FieldBackup},
		{"1234 5678 1234 5678", FieldBackup},
		{"١٢٣٤٥٦٧٨", FieldBackup},
		{"99", FieldTrigger},
		{"ok", FieldTrigger},
		{"تم", FieldTrigger},
		{"s3cretPass", FieldPassword},
		{"1234567", FieldPassword},
	}
	for _, tc := range cases {
		if got, _ := DetectFieldType(tc.in); got != tc.want {
			t.Errorf("DetectFieldType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseSmartInput(t *testing.T) {
	t.Run("email password and codes", func(t *testing.T) {
		p := ParseSmartInput("new@mail.com\nHunter22!\n11112222\n33334444, 11112222")
		if p.Email == nil || *p.Email != "new@mail.com" {
			t.Fatalf("email not parsed: %+v", p)
		}
		if p.Password == nil || *p.Password != "Hunter22!" {
			t.Fatalf("password not parsed: %+v", p)
		}
		if p.BackupCodes == nil || *p.BackupCodes != "11112222,33334444" {
			t.Fatalf("codes not parsed: %v", p.BackupCodes)
		}
		if p.HasTrigger {
			t.Error("unexpected trigger")
		}
	})

	t.Run("trigger contributes no value", func(t *testing.T) {
		p := ParseSmartInput("99")
		if !p.HasTrigger {
			t.Fatal("expected trigger flag")
		}
		if !p.Empty() {
			t.Errorf("trigger should not set fields: %+v", p)
		}
	})

	t.Run("order independent and blank lines skipped", func(t *testing.T) {
		p := ParseSmartInput("\n\n  passw0rd-long \n\n x@y.io ")
		if p.Email == nil || *p.Email != "x@y.io" {
			t.Errorf("email: %v", p.Email)
		}
		if p.Password == nil || *p.Password != "passw0rd-long" {
			t.Errorf("password: %v", p.Password)
		}
		if p.BackupCodes != nil {
			t.Errorf("unexpected codes %q", *p.BackupCodes)
		}
	})

	t.Run("later field of same type wins", func(t *testing.T) {
		p := ParseSmartInput("firstpass\nsecondpass")
		if p.Password == nil || *p.Password != "secondpass" {
			t.Errorf("expected second password to win, got %v", p.Password)
		}
	})

	t.Run("persian digit run is backup codes not a password", func(t *testing.T) {
		p := ParseSmartInput("۱۲۳۴۵۶۷۸")
		if p.Password != nil {
			t.Errorf("classified as password: %q", *p.Password)
		}
		if p.BackupCodes == nil || *p.BackupCodes != "12345678" {
			t.Errorf("expected normalized codes, got %v", p.BackupCodes)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		p := ParseSmartInput("")
		if !p.Empty() || p.HasTrigger {
			t.Errorf("expected zero value, got %+v", p)
		}
	})
}
