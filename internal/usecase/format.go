package usecase

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Translator resolves localized message templates.
type Translator interface {
	T(key string, args ...interface{}) string
}

// mdCode makes a value safe to place inside a Markdown (v1) code span.
func mdCode(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func humanDuration(tr Translator, d time.Duration) string {
	if d < time.Minute {
		return tr.T("duration.seconds", int(d.Seconds()))
	}
	return tr.T("duration.minutes", int(d.Minutes()))
}
