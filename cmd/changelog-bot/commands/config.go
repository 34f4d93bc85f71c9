package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	devenv "changelog-bot/dev/env"
	"changelog-bot/lib/changelog"
	"changelog-bot/lib/changelog/store"
	"changelog-bot/lib/configutil"
	configsqlite "changelog-bot/lib/configutil/sqlite"
	"changelog-bot/lib/textutil"

	"github.com/joho/godotenv"
)

type HttpConfig struct {
	TimeoutSeconds   int    `json:"timeout_seconds"`
	Retries          int    `json:"retries"`
	UserAgent        string `json:"user_agent"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
}

func (c HttpConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type StoreConfig struct {
	File string `json:"file"`
	// Retention is one of "full", "window" or "delta".
	Retention string `json:"retention"`
}

type TelegramConfig struct {
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
	BaseUrl string `json:"base_url"`
	Retries int    `json:"retries"`
}

type EmailConfig struct {
	Addr     string `json:"addr"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
}

type Config struct {
	Url string `json:"url"`
	// Lines are the release lines announced, ex. ["19.5", "20.0"].
	Lines []string `json:"lines"`
	// Notifier is one of "telegram", "email" or "console".
	Notifier string              `json:"notifier"`
	Store    StoreConfig         `json:"store"`
	Ledger   configsqlite.Struct `json:"ledger"`
	Http     HttpConfig          `json:"http"`
	Telegram TelegramConfig      `json:"telegram"`
	Email    EmailConfig         `json:"email"`
	// Icons override or extend the default category icons.
	Icons    map[string]string `json:"icons"`
	Timezone string            `json:"timezone"`
	// RestyOutput is a directory HTTP exchanges are dumped to when
	// running verbose, ex. "<dev_state>/resty".
	RestyOutput string `json:"resty_output"`
}

// environment variables that take priority over the config files
const (
	env_bot_token      = "BOT_TOKEN"
	env_chat_id        = "CHAT_ID"
	env_changelog_url  = "CHANGELOG_URL"
	env_changelog_file = "CHANGELOG_STORE"
	env_smtp_password  = "SMTP_PASSWORD"
)

func defaultConfig() Config {
	return Config{
		Notifier: "telegram",
		Store: StoreConfig{
			File:      store.DefaultPath,
			Retention: string(store.RetainFull),
		},
		Http: HttpConfig{
			TimeoutSeconds: 30,
			Retries:        2,
		},
		Telegram: TelegramConfig{
			Retries: 2,
		},
	}
}

// LoadConfig reads .env (if present), then the config file and its local
// override (if present) on top of the defaults, then the environment.
func LoadConfig(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := configutil.ReadConfigOnto(path, defaultConfig())
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("no config file, using defaults and environment", "path", path)
	case err != nil:
		return Config{}, err
	}

	if v := os.Getenv(env_bot_token); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv(env_chat_id); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv(env_changelog_url); v != "" {
		cfg.Url = v
	}
	if v := os.Getenv(env_changelog_file); v != "" {
		cfg.Store.File = v
	}
	if v := os.Getenv(env_smtp_password); v != "" {
		cfg.Email.Password = v
	}

	cfg.Store.File, err = devenv.ResolvePath(cfg.Store.File)
	if err != nil {
		return Config{}, fmt.Errorf("store.file: %w", err)
	}

	_, err = store.ParseRetention(cfg.Store.Retention)
	if err != nil {
		return Config{}, err
	}
	switch cfg.Notifier {
	case "telegram", "email", "console":
	default:
		return Config{}, fmt.Errorf("unknown notifier %q (expected telegram, email or console)", cfg.Notifier)
	}
	return cfg, nil
}

// IconTable is the default icon table with the configured overrides.
func (c Config) IconTable() changelog.IconTable {
	icons := changelog.DefaultIcons()
	for category, icon := range c.Icons {
		icons[textutil.NormalizeKey(category)] = icon
	}
	return icons
}
