// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling only for now
	Workers  int     `yaml:"workers"`
	AdminIDs []int64 `yaml:"admin_ids"`
	Language string  `yaml:"language"` // ar|en
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // optional; enables the edit audit trail
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // optional; enables snapshot cache, rate limit and edit lock
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// SiteConfig points at the third-party web service holding the sender accounts.
type SiteConfig struct {
	BaseURL     string            `yaml:"base_url"`
	SessionPath string            `yaml:"session_path"` // page carrying <meta name="csrf-token">
	Cookies     map[string]string `yaml:"cookies"`      // pre-authenticated session cookies
	UserAgent   string            `yaml:"user_agent"`
	Timeout     time.Duration     `yaml:"timeout"`
}

// SecurityConfig holds the key that seals credential-bearing snapshots in Redis.
type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // 16, 24 or 32 bytes
}

type EditConfig struct {
	ConcurrentLimit int           `yaml:"concurrent_limit"`
	Attempts        int           `yaml:"attempts"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
}

// ErrorNotifyConfig mirrors the sheets_error_notifications block operators already use.
// Intervals are whole seconds.
type ErrorNotifyConfig struct {
	Enabled            bool  `yaml:"enabled"`
	ResendInterval     int   `yaml:"resend_interval"`
	MaxFastRetries     int   `yaml:"max_fast_retries"`
	SlowResendInterval int   `yaml:"slow_resend_interval"`
	AutoResolveTimeout int   `yaml:"auto_resolve_timeout"`
	GroupID            int64 `yaml:"group_id"`
	PollInterval       int   `yaml:"poll_interval"`
	ErrorBackoff       int   `yaml:"error_backoff"`
}

func (c ErrorNotifyConfig) Resend() time.Duration      { return seconds(c.ResendInterval) }
func (c ErrorNotifyConfig) SlowResend() time.Duration  { return seconds(c.SlowResendInterval) }
func (c ErrorNotifyConfig) AutoResolve() time.Duration { return seconds(c.AutoResolveTimeout) }
func (c ErrorNotifyConfig) Poll() time.Duration        { return seconds(c.PollInterval) }
func (c ErrorNotifyConfig) Backoff() time.Duration     { return seconds(c.ErrorBackoff) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

type Config struct {
	Bot                BotConfig         `yaml:"bot"`
	Log                LogConfig         `yaml:"log"`
	Admin              AdminConfig       `yaml:"admin"`
	Database           DatabaseConfig    `yaml:"database"`
	Redis              RedisConfig       `yaml:"redis"`
	Site               SiteConfig        `yaml:"site"`
	Security           SecurityConfig    `yaml:"security"`
	Edit               EditConfig        `yaml:"edit"`
	ErrorNotifications ErrorNotifyConfig `yaml:"error_notifications"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates the minimum required keys.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Site.BaseURL == "" {
		return nil, errors.New("site.base_url is required")
	}
	switch len(cfg.Security.EncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("security.encryption_key must be 16, 24, or 32 bytes; got %d", len(cfg.Security.EncryptionKey))
	}
	if cfg.ErrorNotifications.Enabled && cfg.ErrorNotifications.GroupID == 0 {
		return nil, errors.New("error_notifications.group_id is required when enabled")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 4
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "ar"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.JWTTTL <= 0 {
		cfg.Admin.JWTTTL = 30 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")
	if cfg.Site.SessionPath == "" {
		cfg.Site.SessionPath = "/"
	}
	if cfg.Site.Timeout <= 0 {
		cfg.Site.Timeout = 30 * time.Second
	}

	if cfg.Edit.ConcurrentLimit <= 0 {
		cfg.Edit.ConcurrentLimit = 2
	}
	if cfg.Edit.Attempts <= 0 {
		cfg.Edit.Attempts = 2
	}
	if cfg.Edit.LockTTL <= 0 {
		cfg.Edit.LockTTL = 2 * time.Minute
	}

	n := &cfg.ErrorNotifications
	if n.ResendInterval <= 0 {
		n.ResendInterval = 40
	}
	if n.MaxFastRetries <= 0 {
		n.MaxFastRetries = 3
	}
	if n.SlowResendInterval <= 0 {
		n.SlowResendInterval = 120
	}
	if n.AutoResolveTimeout <= 0 {
		n.AutoResolveTimeout = 60
	}
	if n.PollInterval <= 0 {
		n.PollInterval = 10
	}
	if n.ErrorBackoff <= 0 {
		n.ErrorBackoff = 30
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Minute
	}
	return d
}
