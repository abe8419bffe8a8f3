package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"telegram-sender-admin/internal/domain/model"
)

// FieldType is the semantic class of one line of operator input.
type FieldType string

const (
	FieldNone     FieldType = ""
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldBackup   FieldType = "backup"
	FieldTrigger  FieldType = "trigger"
)

const (
	backupCodeLen    = 8
	minBackupDigits  = 16
	maxTriggerLength = 4
)

var (
	arabicDigits = strings.NewReplacer(
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
		// Extended (Persian) forms, U+06F0..U+06F9.
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	)
	codeRunRe   = regexp.MustCompile(`\d{8,}`)
	nonDigitRe  = regexp.MustCompile(`\D`)
	separatorRe = regexp.MustCompile(`[,\n]+`)
)

// ConvertArabicDigits maps Arabic-Indic and Persian digits to ASCII and leaves
// everything else alone.
func ConvertArabicDigits(s string) string {
	if s == "" {
		return ""
	}
	return arabicDigits.Replace(s)
}

// CleanBackupCodes extracts 8-digit codes from loosely formatted text.
// Every run of 8 or more digits contributes its last 8 digits; duplicates
// are dropped keeping the first occurrence.
func CleanBackupCodes(raw string) string {
	if raw == "" {
		return ""
	}
	standardized := separatorRe.ReplaceAllString(ConvertArabicDigits(raw), " ")

	seen := make(map[string]struct{})
	codes := make([]string, 0, 8)
	for _, run := range codeRunRe.FindAllString(standardized, -1) {
		code := run[len(run)-backupCodeLen:]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return strings.Join(codes, ",")
}

// DetectFieldType classifies a single field. The returned value is trimmed,
// and digit-normalized for backup fields.
func DetectFieldType(value string) (FieldType, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return FieldNone, ""
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return FieldEmail, value
	}

	normalized := ConvertArabicDigits(value)
	if strings.Contains(normalized, ",") {
		return FieldBackup, normalized
	}
	if codeRunRe.MatchString(normalized) {
		return FieldBackup, normalized
	}
	if len(nonDigitRe.ReplaceAllString(normalized, "")) >= minBackupDigits {
		return FieldBackup, normalized
	}

	if n := utf8.RuneCountInString(value); n >= 1 && n <= maxTriggerLength {
		return FieldTrigger, value
	}
	return FieldPassword, value
}

// ParseSmartInput splits text into up to three positional fields (line 1,
// line 2, remaining lines) and classifies each independently.
func ParseSmartInput(text string) model.ParsedInput {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	fields := make([]string, 3)
	for i := 0; i < len(lines) && i < 2; i++ {
		fields[i] = lines[i]
	}
	if len(lines) > 2 {
		fields[2] = strings.Join(lines[2:], "\n")
	}

	var out model.ParsedInput
	for _, f := range fields {
		if f == "" {
			continue
		}
		kind, value := DetectFieldType(f)
		switch kind {
		case FieldTrigger:
			out.HasTrigger = true
		case FieldBackup:
			codes := CleanBackupCodes(value)
			out.BackupCodes = &codes
		case FieldEmail:
			out.Email = &value
		case FieldPassword:
			out.Password = &value
		}
	}
	return out
}
