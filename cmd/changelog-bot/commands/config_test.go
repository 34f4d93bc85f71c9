package commands

import (
	"os"
	"path/filepath"
	"testing"

	"changelog-bot/lib/changelog/store"
	"changelog-bot/lib/testutil"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := testutil.Chdir(t)
	for _, key := range []string{env_bot_token, env_chat_id, env_changelog_url, env_changelog_file, env_smtp_password} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)
	require.Equal(t, store.DefaultPath, cfg.Store.File)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := testutil.Chdir(t)
	t.Setenv(env_chat_id, "")
	t.Setenv(env_changelog_url, "")
	t.Setenv(env_changelog_file, "")
	t.Setenv(env_smtp_password, "")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		url: "https://example.com/changelog",
		lines: ["19.5", "20.0"],
		store: {retention: "window"},
		telegram: {chat_id: "-100"},
		icons: {sop: "*"},
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		telegram: {chat_id: "-200"},
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BOT_TOKEN=123:abc\n"), 0644))
	testutil.Unsetenv(t, env_bot_token)

	cfg, err := LoadConfig(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/changelog", cfg.Url)
	require.Equal(t, []string{"19.5", "20.0"}, cfg.Lines)
	require.Equal(t, "window", cfg.Store.Retention)
	require.Equal(t, store.DefaultPath, cfg.Store.File)
	require.Equal(t, "-200", cfg.Telegram.ChatID)
	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, "telegram", cfg.Notifier)
	require.Equal(t, 30, cfg.Http.TimeoutSeconds)
	require.Equal(t, "*", cfg.IconTable().Icon("sop"))

	t.Setenv(env_chat_id, "-300")
	t.Setenv(env_changelog_file, "other.json")
	cfg, err = LoadConfig(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "-300", cfg.Telegram.ChatID)
	require.Equal(t, "other.json", cfg.Store.File)
}

func TestLoadConfigExplicitZero(t *testing.T) {
	dir := testutil.Chdir(t)
	for _, key := range []string{env_bot_token, env_chat_id, env_changelog_url, env_changelog_file, env_smtp_password} {
		t.Setenv(key, "")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		http: {retries: 0},
		telegram: {retries: 0},
	}`), 0644))

	cfg, err := LoadConfig(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Http.Retries)
	require.Equal(t, 0, cfg.Telegram.Retries)
	require.Equal(t, 30, cfg.Http.TimeoutSeconds)
	require.Equal(t, "telegram", cfg.Notifier)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := testutil.Chdir(t)
	path := filepath.Join(dir, "config.json5")

	require.NoError(t, os.WriteFile(path, []byte(`{store: {retention: "forever"}}`), 0644))
	_, err := LoadConfig(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{notifier: "pigeon"}`), 0644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
